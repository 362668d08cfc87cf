package domain

import (
	"time"
)

// ReputationCode is the severity a single blacklist assigns to an address.
// Codes are only comparable within one list's scale.
type ReputationCode int

const (
	CodeUnknown      ReputationCode = 0 // only set together with StatusFailed
	CodeNotListed    ReputationCode = 1
	CodeListedLow    ReputationCode = 2
	CodeListedMedium ReputationCode = 3
	CodeListedHigh   ReputationCode = 4
	CodeListedSevere ReputationCode = 5
)

// Valid reports whether c is one of the listing codes 1-5
func (c ReputationCode) Valid() bool {
	return c >= CodeNotListed && c <= CodeListedSevere
}

func (c ReputationCode) String() string {
	switch c {
	case CodeNotListed:
		return "not_listed"
	case CodeListedLow:
		return "listed_low"
	case CodeListedMedium:
		return "listed_medium"
	case CodeListedHigh:
		return "listed_high"
	case CodeListedSevere:
		return "listed_severe"
	default:
		return "unknown"
	}
}

// ListStatus is the outcome of one blacklist probe
type ListStatus string

const (
	StatusListed    ListStatus = "listed"
	StatusNotListed ListStatus = "not_listed"
	StatusFailed    ListStatus = "failed"
)

type ListResult struct {
	List      string         `json:"list"`
	Zone      string         `json:"zone"`
	Status    ListStatus     `json:"status"`
	Code      ReputationCode `json:"code"`
	Responses []string       `json:"responses,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Failed reports whether the probe could not produce a code
func (r ListResult) Failed() bool {
	return r.Status == StatusFailed
}

type ReputationRecord struct {
	IP        string                `json:"ip"`
	Lists     map[string]ListResult `json:"lists"`
	CheckedAt time.Time             `json:"checked_at"`
}

// Code returns the code recorded for list, and false when the list
// is absent or its probe failed
func (r ReputationRecord) Code(list string) (ReputationCode, bool) {
	res, ok := r.Lists[list]
	if !ok || res.Failed() {
		return CodeUnknown, false
	}
	return res.Code, true
}

// NetworkData is the Team Cymru ownership metadata of one address.
// It is only ever returned fully populated.
type NetworkData struct {
	IP          string    `json:"ip"`
	ASN         string    `json:"asn"`
	CIDR        string    `json:"cidr"`
	CountryCode string    `json:"country_code,omitempty"`
	Registry    string    `json:"registry,omitempty"`
	Allocated   string    `json:"allocated,omitempty"`
	ASNPeers    []string  `json:"asn_peers"`
	Provider    string    `json:"provider"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

type GeoRecord struct {
	IP          string  `json:"ip"`
	Source      string  `json:"source"`
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Region      string  `json:"region,omitempty"`
	RegionName  string  `json:"region_name,omitempty"`
	City        string  `json:"city,omitempty"`
	Zip         string  `json:"zip,omitempty"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone,omitempty"`
	Org         string  `json:"org,omitempty"`
	// CountryMatch is set when the caller supplied an expected country
	CountryMatch *bool `json:"country_match,omitempty"`
}

type DNSData struct {
	IP        string            `json:"ip"`
	Hostnames map[string]string `json:"hostnames"`
}

type ClassInfo struct {
	IP      string `json:"ip"`
	Class   string `json:"class"`
	Integer uint32 `json:"integer"`
}

type ReputationScore struct {
	Score   float64 `json:"score"`
	Grade   string  `json:"grade"`
	Listed  int     `json:"listed"`
	Queried int     `json:"queried"`
	Partial bool    `json:"partial"`
}

// Report is the combined inspection of one address. Each section is
// independent; a failed section leaves its field nil and its error in Errors.
type Report struct {
	IP         string            `json:"ip"`
	Class      *ClassInfo        `json:"class,omitempty"`
	Reputation *ReputationRecord `json:"reputation,omitempty"`
	Score      *ReputationScore  `json:"score,omitempty"`
	Network    *NetworkData      `json:"network,omitempty"`
	Geo        *GeoRecord        `json:"geo,omitempty"`
	DNS        *DNSData          `json:"dns,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

type BatchRequest struct {
	Addresses   []string `json:"addresses"`
	CallbackURL string   `json:"callback_url,omitempty"`
}

type BatchResult struct {
	BatchID string       `json:"batch_id"`
	Reports []Report     `json:"reports"`
	Summary BatchSummary `json:"summary"`
	DoneAt  time.Time    `json:"done_at"`
}

// BatchSummary aggregates the reports of one batch
type BatchSummary struct {
	Total           int            `json:"total"`
	Invalid         int            `json:"invalid"`
	Listed          int            `json:"listed"`
	Clean           int            `json:"clean"`
	Unknown         int            `json:"unknown"`
	Partial         int            `json:"partial"`
	SectionFailures map[string]int `json:"section_failures,omitempty"`
	ScoreAvg        float64        `json:"score_avg"`
	ScoreP50        float64        `json:"score_p50"`
	DurationAvgMS   float64        `json:"duration_avg_ms"`
	DurationP50MS   float64        `json:"duration_p50_ms"`
	DurationP95MS   float64        `json:"duration_p95_ms"`
	DurationMaxMS   float64        `json:"duration_max_ms"`
}
