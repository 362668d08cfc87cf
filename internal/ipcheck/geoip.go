package ipcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"

	"ipv4intel/internal/domain"
	"ipv4intel/internal/ipv4"
)

const DefaultGeoAPIURL = "http://ip-api.com/json/"

// ErrGeoLookup wraps every geolocation failure
var ErrGeoLookup = errors.New("geolocation lookup failed")

// GeoLocator returns the geographic context of an address
type GeoLocator interface {
	Locate(ctx context.Context, addr ipv4.Address) (domain.GeoRecord, error)
}

// ip-api.com answer; isp, as and query are left out on purpose
type geoIPResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Zip         string  `json:"zip"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
	Org         string  `json:"org"`
}

// HTTPGeoLocator looks up addresses with the ip-api.com JSON API
type HTTPGeoLocator struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPGeoLocator creates a locator for baseURL (DefaultGeoAPIURL when empty)
func NewHTTPGeoLocator(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPGeoLocator {
	if baseURL == "" {
		baseURL = DefaultGeoAPIURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	initMetrics()
	return &HTTPGeoLocator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With("module", "ipcheck.geoip"),
	}
}

// Locate looks up geographic information for addr
func (g *HTTPGeoLocator) Locate(ctx context.Context, addr ipv4.Address) (domain.GeoRecord, error) {
	start := time.Now()
	defer observeLookup("geo", start)

	apiURL := g.baseURL + addr.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return domain.GeoRecord{}, fmt.Errorf("%w: %w", ErrGeoLookup, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("Geo API fail",
			"api_url", apiURL,
			"error_detail", err.Error(),
		)
		return domain.GeoRecord{}, fmt.Errorf("%w: request: %w", ErrGeoLookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.Error("Geo API fail",
			"api_url", apiURL,
			"error_detail", fmt.Sprintf("HTTP %d", resp.StatusCode),
		)
		return domain.GeoRecord{}, fmt.Errorf("%w: API returned %d", ErrGeoLookup, resp.StatusCode)
	}

	var result geoIPResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		g.logger.Error("Geo API fail",
			"api_url", apiURL,
			"error_detail", err.Error(),
		)
		return domain.GeoRecord{}, fmt.Errorf("%w: decode: %w", ErrGeoLookup, err)
	}

	if result.Status != "success" {
		g.logger.Error("Geo API fail",
			"api_url", apiURL,
			"error_detail", fmt.Sprintf("status=%s message=%s", result.Status, result.Message),
		)
		return domain.GeoRecord{}, fmt.Errorf("%w: status=%s %s", ErrGeoLookup, result.Status, result.Message)
	}

	g.logger.Info("Geo lookup done",
		"observed_ip", addr.String(),
		"actual_country", result.CountryCode,
		"actual_city", result.City,
	)

	return domain.GeoRecord{
		IP:          addr.String(),
		Source:      "ip-api",
		Country:     result.Country,
		CountryCode: result.CountryCode,
		Region:      result.Region,
		RegionName:  result.RegionName,
		City:        result.City,
		Zip:         result.Zip,
		Lat:         result.Lat,
		Lon:         result.Lon,
		Timezone:    result.Timezone,
		Org:         result.Org,
	}, nil
}

// MMDBGeoLocator reads a MaxMind GeoLite2/GeoIP2 City database
type MMDBGeoLocator struct {
	db     *geoip2.Reader
	logger *slog.Logger
}

// OpenMMDBGeoLocator opens the database at path
func OpenMMDBGeoLocator(path string, logger *slog.Logger) (*MMDBGeoLocator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database %s: %w", path, err)
	}
	initMetrics()
	return &MMDBGeoLocator{
		db:     db,
		logger: logger.With("module", "ipcheck.geoip"),
	}, nil
}

// Locate looks up addr in the local database
func (m *MMDBGeoLocator) Locate(_ context.Context, addr ipv4.Address) (domain.GeoRecord, error) {
	start := time.Now()
	defer observeLookup("geo", start)

	rec, err := m.db.City(net.IPv4(addr[0], addr[1], addr[2], addr[3]))
	if err != nil {
		return domain.GeoRecord{}, fmt.Errorf("%w: %w", ErrGeoLookup, err)
	}
	if rec.Country.IsoCode == "" && rec.City.GeoNameID == 0 {
		return domain.GeoRecord{}, fmt.Errorf("%w: %s not in database", ErrGeoLookup, addr)
	}

	geo := domain.GeoRecord{
		IP:          addr.String(),
		Source:      "mmdb",
		Country:     rec.Country.Names["en"],
		CountryCode: rec.Country.IsoCode,
		City:        rec.City.Names["en"],
		Zip:         rec.Postal.Code,
		Lat:         rec.Location.Latitude,
		Lon:         rec.Location.Longitude,
		Timezone:    rec.Location.TimeZone,
	}
	if len(rec.Subdivisions) > 0 {
		geo.Region = rec.Subdivisions[0].IsoCode
		geo.RegionName = rec.Subdivisions[0].Names["en"]
	}

	m.logger.Debug("Geo lookup done",
		"observed_ip", addr.String(),
		"actual_country", geo.CountryCode,
		"actual_city", geo.City,
	)

	return geo, nil
}

// Close releases the database
func (m *MMDBGeoLocator) Close() error {
	return m.db.Close()
}

// LocateAddress validates raw before handing it to g
func LocateAddress(ctx context.Context, g GeoLocator, raw string) (domain.GeoRecord, error) {
	addr, err := ipv4.Parse(raw)
	if err != nil {
		return domain.GeoRecord{}, err
	}
	return g.Locate(ctx, addr)
}

// CheckGeoMatch compares expected country with actual country code
func CheckGeoMatch(logger *slog.Logger, expectedCountry, actualCountryCode, ip string) bool {
	if expectedCountry == "" {
		// no expectation, nothing to mismatch
		return true
	}

	match := strings.EqualFold(expectedCountry, actualCountryCode)
	if !match {
		logger.With("module", "ipcheck.geoip").Warn("Geo mismatch",
			"expected_country", expectedCountry,
			"actual_country", actualCountryCode,
			"observed_ip", ip,
		)
	}

	return match
}
