// Package cmd - pricing source wiring shared by the commands
package cmd

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"hostcost/adapters/archive"
	"hostcost/core/override"
	"hostcost/core/pricing"
	"hostcost/core/types"
	"hostcost/internal/config"
)

// pricingSource composes effective pricing on demand from the snapshot
// archive and the override store
type pricingSource struct {
	archive  *archive.Archive
	store    *override.Store
	composer *pricing.CachedComposer
}

// Effective returns the provider's snapshot of record with overrides
// applied
func (s *pricingSource) Effective(provider types.Provider) (*pricing.EffectivePricing, error) {
	snapshot, err := s.archive.Current(provider)
	if err != nil {
		return nil, err
	}
	if s.composer != nil {
		return s.composer.Compose(snapshot, s.store, provider)
	}
	return pricing.Compose(snapshot, s.store.Layers(provider))
}

// openArchive opens the configured snapshot archive
func openArchive(cfg *config.Config) (*archive.Archive, error) {
	return archive.New(cfg.Archive.Directory)
}

// openOverrides loads the persisted override collections into a store
func openOverrides(cfg *config.Config) (*override.Store, *archive.OverrideVault, error) {
	vault, err := archive.NewOverrideVault(cfg.Archive.OverridesDirectory)
	if err != nil {
		return nil, nil, err
	}
	store := override.NewStore()
	if err := vault.Load(store); err != nil {
		return nil, nil, err
	}
	return store, vault, nil
}

// openPricingSource wires the archive, override store, and composition
// cache per configuration. The cleanup func releases the cache.
func openPricingSource(cfg *config.Config) (*pricingSource, func(), error) {
	arch, err := openArchive(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, _, err := openOverrides(cfg)
	if err != nil {
		return nil, nil, err
	}

	source := &pricingSource{archive: arch, store: store}
	cleanup := func() {}
	if cfg.Cache.Enabled {
		composer, err := pricing.NewCachedComposer(cfg.Cache.MaxEntries)
		if err != nil {
			return nil, nil, err
		}
		source.composer = composer
		cleanup = composer.Close
	}
	return source, cleanup, nil
}

// preferredProviders maps the configured preference order to providers
func preferredProviders(cfg *config.Config) []types.Provider {
	out := make([]types.Provider, 0, len(cfg.Estimate.PreferredProviders))
	for _, p := range cfg.Estimate.PreferredProviders {
		out = append(out, types.Provider(strings.ToLower(p)))
	}
	return out
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
