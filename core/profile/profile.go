// Package profile ships the built-in provider tier profiles: the
// preferred plan order per provider and the usage magnitude buckets
// each canonical plan name serves. Tier selection consults these when
// no explicit hint is given.
package profile

import (
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"

	"hostcost/core/types"
	"hostcost/internal/errors"
)

//go:embed data/profiles.yaml
var profilesYAML []byte

// Profile describes one provider's plan landscape
type Profile struct {
	// Preference is the plan order to try, cheapest-fit first
	Preference []string `yaml:"preference"`

	// Buckets maps canonical plan names to the usage magnitude
	// buckets they serve
	Buckets map[string][]string `yaml:"buckets"`
}

// ServesBucket reports whether a canonical plan name maps to a bucket
func (p Profile) ServesBucket(name, bucket string) bool {
	for _, b := range p.Buckets[strings.ToLower(name)] {
		if b == bucket {
			return true
		}
	}
	return false
}

// Catalog holds all provider profiles plus the fallback default
type Catalog struct {
	Providers map[string]Profile `yaml:"providers"`
	Default   Profile            `yaml:"default"`
}

// For returns the profile for a provider, falling back to the default
// profile for providers without a bespoke entry
func (c *Catalog) For(provider types.Provider) Profile {
	if p, ok := c.Providers[strings.ToLower(provider.String())]; ok {
		return p
	}
	return c.Default
}

// Load parses the embedded profile catalog
func Load() (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(profilesYAML, &catalog); err != nil {
		return nil, errors.Parsing("parsing embedded provider profiles", err)
	}
	if len(catalog.Default.Preference) == 0 {
		return nil, errors.Validation("embedded profile catalog has no default preference list")
	}
	return &catalog, nil
}
