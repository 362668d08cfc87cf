package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipv4intel/internal/domain"
	"ipv4intel/internal/ipcheck"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := fromLookup(env(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, DefaultDNSTimeoutMS, cfg.DNSTimeoutMS)
	assert.Equal(t, DefaultMaxParallel, cfg.MaxParallel)
	assert.Equal(t, DefaultRateLimitRPS, cfg.RateLimitRPS)
	assert.Equal(t, ipcheck.DefaultGeoAPIURL, cfg.GeoAPIURL)
	assert.Empty(t, cfg.DNSServer)
	require.Len(t, cfg.Zones, 2)
	assert.Equal(t, "spamhaus", cfg.Zones[0].Name)
	assert.Equal(t, "cbl", cfg.Zones[1].Name)
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := fromLookup(env(map[string]string{
		"IPINTEL_PORT":   "8081",
		"LOG_FORMAT":     "text",
		"DNS_SERVER":     "1.1.1.1",
		"DNS_TIMEOUT_MS": "500",
		"MAX_PARALLEL":   "0",
		"GEO_API_URL":    "http://geo.internal/json/",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "1.1.1.1", cfg.DNSServer)
	assert.Equal(t, int64(500), cfg.DNSTimeout().Milliseconds())
	assert.Equal(t, DefaultMaxParallel, cfg.MaxParallel)
	assert.Equal(t, "http://geo.internal/json/", cfg.GeoAPIURL)
}

func TestFromLookup_Invalid(t *testing.T) {
	_, err := fromLookup(env(map[string]string{"MAX_PARALLEL": "lots"}))
	assert.ErrorContains(t, err, "MAX_PARALLEL")

	_, err = fromLookup(env(map[string]string{"LOG_FORMAT": "xml"}))
	assert.ErrorContains(t, err, "LOG_FORMAT")
}

func TestFromLookup_ZonesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
zones:
  - name: spamcop
    suffix: bl.spamcop.net
    responses:
      127.0.0.2: 3
`), 0o600))

	cfg, err := fromLookup(env(map[string]string{"ZONES_FILE": path}))
	require.NoError(t, err)

	require.Len(t, cfg.Zones, 1)
	z := cfg.Zones[0]
	assert.Equal(t, "spamcop", z.Name)
	assert.Equal(t, "bl.spamcop.net", z.Suffix)
	assert.Equal(t, domain.CodeNotListed, z.Default)
	assert.Equal(t, domain.CodeListedMedium, z.Responses["127.0.0.2"])
}

func TestParseZones_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"Empty", `zones: []`},
		{"BadYAML", `zones: [`},
		{"MissingSuffix", "zones:\n  - name: x\n"},
		{"BadCode", "zones:\n  - name: x\n    suffix: x.test\n    responses:\n      127.0.0.2: 9\n"},
		{"BadResponse", "zones:\n  - name: x\n    suffix: x.test\n    responses:\n      127.0.0.256: 2\n"},
		{"DuplicateResponse", "zones:\n  - name: x\n    suffix: x.test\n    responses:\n      127.0.0.2: 2\n      \" 127.0.0.2\": 3\n"},
		{"Duplicate", "zones:\n  - name: x\n    suffix: a.test\n  - name: x\n    suffix: b.test\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseZones([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseZones_NormalizesResponseKeys(t *testing.T) {
	zones, err := ParseZones([]byte("zones:\n  - name: x\n    suffix: x.test\n    responses:\n      \" 127.0.0.2 \": 5\n"))
	require.NoError(t, err)
	require.Len(t, zones, 1)

	assert.Equal(t, map[string]domain.ReputationCode{"127.0.0.2": domain.CodeListedSevere}, zones[0].Responses)
	assert.Equal(t, domain.CodeListedSevere, zones[0].Classify([]string{"127.0.0.2"}))
}

func TestLoadZones_MissingFile(t *testing.T) {
	_, err := LoadZones(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("IPINTEL_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("IPINTEL_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("IPINTEL_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("IPINTEL_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
