package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ipv4intel/internal/domain"
	"ipv4intel/internal/ipcheck"
	"ipv4intel/internal/ipv4"
)

// zoneFile is the on-disk form of the blacklist configuration:
//
//	zones:
//	  - name: spamhaus
//	    suffix: zen.spamhaus.org
//	    default: 1
//	    responses:
//	      127.0.0.2: 2
type zoneFile struct {
	Zones []zoneEntry `yaml:"zones"`
}

type zoneEntry struct {
	Name      string         `yaml:"name"`
	Suffix    string         `yaml:"suffix"`
	Default   int            `yaml:"default"`
	Responses map[string]int `yaml:"responses"`
}

// LoadZones reads and validates a zones file
func LoadZones(path string) ([]ipcheck.Zone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zones file: %w", err)
	}
	return ParseZones(data)
}

// ParseZones decodes zones YAML. A zone without a default uses code 1.
func ParseZones(data []byte) ([]ipcheck.Zone, error) {
	var f zoneFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse zones file: %w", err)
	}
	if len(f.Zones) == 0 {
		return nil, fmt.Errorf("zones file defines no zones")
	}

	seen := make(map[string]bool, len(f.Zones))
	zones := make([]ipcheck.Zone, 0, len(f.Zones))
	for _, e := range f.Zones {
		z := ipcheck.Zone{
			Name:      e.Name,
			Suffix:    e.Suffix,
			Default:   domain.ReputationCode(withDefault(e.Default, int(domain.CodeNotListed))),
			Responses: make(map[string]domain.ReputationCode, len(e.Responses)),
		}
		for resp, code := range e.Responses {
			// keys are stored in canonical form so Classify can match answers
			addr, err := ipv4.Parse(resp)
			if err != nil {
				return nil, fmt.Errorf("zone %s: response %q: %w", e.Name, resp, err)
			}
			key := addr.String()
			if _, dup := z.Responses[key]; dup {
				return nil, fmt.Errorf("zone %s: response %s listed twice", e.Name, key)
			}
			z.Responses[key] = domain.ReputationCode(code)
		}
		if err := z.Validate(); err != nil {
			return nil, err
		}
		if seen[z.Name] {
			return nil, fmt.Errorf("zone %s defined twice", z.Name)
		}
		seen[z.Name] = true
		zones = append(zones, z)
	}

	return zones, nil
}
