package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"ipv4intel/internal/ipcheck"
)

// Defaults for the service configuration
const (
	DefaultPort              = "9090"
	DefaultDNSTimeoutMS      = 3000
	DefaultRequestTimeoutMS  = 10000
	DefaultCallbackTimeoutMS = 30000
	DefaultMaxParallel       = 10
	DefaultRateLimitRPS      = 20
	DefaultRateLimitBurst    = 40
	DefaultLogFormat         = "json"
)

// Config is everything the service reads from its environment
type Config struct {
	Port              string
	LogLevel          string
	LogFormat         string
	DNSServer         string
	DNSTimeoutMS      int
	GeoAPIURL         string
	GeoDBPath         string
	ZonesFile         string
	MaxParallel       int
	RateLimitRPS      int
	RateLimitBurst    int
	RequestTimeoutMS  int
	CallbackTimeoutMS int

	Zones []ipcheck.Zone
}

// LoadDotEnv loads variables from the given .env files (".env" when none
// are given). A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// FromEnv builds a Config from environment variables, applying defaults
// and loading the zones file when one is named
func FromEnv() (Config, error) {
	return fromLookup(os.Getenv)
}

func fromLookup(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:      withDefaultString(getenv("IPINTEL_PORT"), DefaultPort),
		LogLevel:  getenv("LOG_LEVEL"),
		LogFormat: withDefaultString(getenv("LOG_FORMAT"), DefaultLogFormat),
		DNSServer: getenv("DNS_SERVER"),
		GeoAPIURL: withDefaultString(getenv("GEO_API_URL"), ipcheck.DefaultGeoAPIURL),
		GeoDBPath: getenv("GEOIP_DB"),
		ZonesFile: getenv("ZONES_FILE"),
	}

	ints := []struct {
		key string
		dst *int
		def int
	}{
		{"DNS_TIMEOUT_MS", &cfg.DNSTimeoutMS, DefaultDNSTimeoutMS},
		{"MAX_PARALLEL", &cfg.MaxParallel, DefaultMaxParallel},
		{"RATE_LIMIT_RPS", &cfg.RateLimitRPS, DefaultRateLimitRPS},
		{"RATE_LIMIT_BURST", &cfg.RateLimitBurst, DefaultRateLimitBurst},
		{"REQUEST_TIMEOUT_MS", &cfg.RequestTimeoutMS, DefaultRequestTimeoutMS},
		{"CALLBACK_TIMEOUT_MS", &cfg.CallbackTimeoutMS, DefaultCallbackTimeoutMS},
	}
	for _, v := range ints {
		n, err := parseInt(getenv(v.key))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", v.key, err)
		}
		*v.dst = withDefault(n, v.def)
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		return Config{}, fmt.Errorf("LOG_FORMAT: unsupported format %q", cfg.LogFormat)
	}

	if cfg.ZonesFile != "" {
		zones, err := LoadZones(cfg.ZonesFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Zones = zones
	} else {
		cfg.Zones = ipcheck.DefaultZones()
	}

	return cfg, nil
}

// DNSTimeout returns the per-query DNS timeout
func (c Config) DNSTimeout() time.Duration {
	return time.Duration(c.DNSTimeoutMS) * time.Millisecond
}

// RequestTimeout returns the deadline applied to each API request
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// CallbackTimeout returns the HTTP timeout for batch result delivery
func (c Config) CallbackTimeout() time.Duration {
	return time.Duration(c.CallbackTimeoutMS) * time.Millisecond
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func withDefault(val, def int) int {
	if val <= 0 {
		return def
	}
	return val
}

func withDefaultString(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
