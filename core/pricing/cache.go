// Package pricing - Memoized composition
package pricing

import (
	"strconv"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"

	"hostcost/core/override"
	"hostcost/core/types"
	"hostcost/internal/logging"
)

// CachedComposer memoizes composition results keyed by (base snapshot
// fingerprint, override-set version, provider). A change to either the
// base data or the override store shifts the key and naturally
// invalidates; stale entries simply age out. Memoization is a
// performance optimization only, never a correctness requirement.
type CachedComposer struct {
	cache *ristretto.Cache[string, *EffectivePricing]
	log   *zap.Logger
}

// NewCachedComposer creates a composer memoizing up to maxEntries
// compositions
func NewCachedComposer(maxEntries int64) (*CachedComposer, error) {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, *EffectivePricing]{
		NumCounters: maxEntries * 10, // ~10x expected items
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedComposer{
		cache: cache,
		log:   logging.Named("compose.cache"),
	}, nil
}

// Compose returns the effective pricing for a provider's base snapshot
// and the store's current override layers, reusing a memoized result
// when neither input has changed.
func (c *CachedComposer) Compose(base *types.PricingSnapshot, store *override.Store, provider types.Provider) (*EffectivePricing, error) {
	version := store.Version()
	key := cacheKey(Fingerprint(base), version, provider)

	if hit, ok := c.cache.Get(key); ok {
		c.log.Debug("composition cache hit", zap.String("provider", provider.String()))
		return hit, nil
	}

	eff, err := Compose(base, store.Layers(provider))
	if err != nil {
		return nil, err
	}
	eff.OverrideVersion = version

	c.cache.Set(key, eff, 1)
	return eff, nil
}

// Wait blocks until buffered cache writes are visible. Tests use it;
// production callers never need to.
func (c *CachedComposer) Wait() {
	c.cache.Wait()
}

// Close releases cache resources
func (c *CachedComposer) Close() {
	c.cache.Close()
}

func cacheKey(fingerprint string, version uint64, provider types.Provider) string {
	return fingerprint + "@" + strconv.FormatUint(version, 10) + "/" + provider.String()
}
