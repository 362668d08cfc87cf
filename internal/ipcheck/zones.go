package ipcheck

import (
	"fmt"
	"strings"

	"ipv4intel/internal/domain"
	"ipv4intel/internal/ipv4"
)

// Zone describes one DNS blacklist and how to read its A-record answers.
// A Zone is read-only once handed to a Probe.
type Zone struct {
	Name      string
	Suffix    string
	Responses map[string]domain.ReputationCode
	// Default is used for answers missing from Responses
	Default domain.ReputationCode
}

// SpamhausZEN is the combined Spamhaus list (SBL, CSS, XBL, PBL)
func SpamhausZEN() Zone {
	return Zone{
		Name:   "spamhaus",
		Suffix: "zen.spamhaus.org",
		Responses: map[string]domain.ReputationCode{
			"127.0.0.2":  domain.CodeListedLow,    // SBL
			"127.0.0.3":  domain.CodeListedMedium, // CSS
			"127.0.0.10": domain.CodeListedHigh,   // PBL, ISP maintained
			"127.0.0.11": domain.CodeListedHigh,   // PBL, Spamhaus maintained
			"127.0.0.4":  domain.CodeListedSevere, // XBL
			"127.0.0.5":  domain.CodeListedSevere,
			"127.0.0.6":  domain.CodeListedSevere,
			"127.0.0.7":  domain.CodeListedSevere,
		},
		Default: domain.CodeNotListed,
	}
}

// AbuseatCBL is the Composite Blocking List
func AbuseatCBL() Zone {
	return Zone{
		Name:   "cbl",
		Suffix: "cbl.abuseat.org",
		Responses: map[string]domain.ReputationCode{
			"127.0.0.2": domain.CodeListedLow,
		},
		Default: domain.CodeNotListed,
	}
}

// DefaultZones returns the lists queried when no zones file is configured
func DefaultZones() []Zone {
	return []Zone{SpamhausZEN(), AbuseatCBL()}
}

// Validate checks that the zone can be probed and classified
func (z Zone) Validate() error {
	if strings.TrimSpace(z.Name) == "" {
		return fmt.Errorf("zone name is required")
	}
	if strings.Trim(strings.TrimSpace(z.Suffix), ".") == "" {
		return fmt.Errorf("zone %s: suffix is required", z.Name)
	}
	if !z.Default.Valid() {
		return fmt.Errorf("zone %s: default code %d out of range 1-5", z.Name, z.Default)
	}
	for resp, code := range z.Responses {
		if _, err := ipv4.Parse(resp); err != nil {
			return fmt.Errorf("zone %s: response %q: %w", z.Name, resp, err)
		}
		if !code.Valid() {
			return fmt.Errorf("zone %s: response %s code %d out of range 1-5", z.Name, resp, code)
		}
	}
	return nil
}

// Classify maps the answers of one lookup to a single code.
// The highest severity among the answers wins.
func (z Zone) Classify(answers []string) domain.ReputationCode {
	best := domain.CodeUnknown
	for _, a := range answers {
		code, ok := z.Responses[strings.TrimSpace(a)]
		if !ok {
			code = z.Default
		}
		if code > best {
			best = code
		}
	}
	if best == domain.CodeUnknown {
		return domain.CodeNotListed
	}
	return best
}
