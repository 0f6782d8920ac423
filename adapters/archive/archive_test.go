package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostcost/core/override"
	"hostcost/core/types"
	"hostcost/internal/errors"
)

func sampleSnapshot(provider types.Provider, proPrice float64) *types.PricingSnapshot {
	return &types.PricingSnapshot{
		Provider:      provider,
		Currency:      types.CurrencyUSD,
		BillingPeriod: types.PeriodMonthly,
		LastUpdated:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Tiers: []types.Tier{
			{Name: "hobby", BasePrice: types.PriceOf(0)},
			{Name: "pro", BasePrice: types.PriceOf(proPrice)},
		},
		Source: "published pricing page",
	}
}

// TestAdoptAndCurrent archives a snapshot and reads it back as the
// provider's snapshot of record.
func TestAdoptAndCurrent(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)

	entry, err := a.Adopt(sampleSnapshot(types.ProviderVercel, 20))
	require.NoError(t, err)
	assert.Equal(t, "vercel", entry.Provider)
	assert.Len(t, entry.Fingerprint, 64)
	assert.Equal(t, "vercel-"+entry.Fingerprint[:12], entry.ID)
	assert.Equal(t, "published pricing page", entry.Source)

	got, err := a.Current(types.ProviderVercel)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderVercel, got.Provider)
	require.Len(t, got.Tiers, 2)
	assert.True(t, got.Tiers[1].BasePrice.Decimal().Equal(decimal.NewFromInt(20)))
}

// TestAdoptNeverRewrites confirms archived files stay byte-identical:
// adopting changed pricing adds a new file, and re-adopting old content
// only repoints the current marker.
func TestAdoptNeverRewrites(t *testing.T) {
	dir := t.TempDir()
	a, err := New(dir)
	require.NoError(t, err)

	first, err := a.Adopt(sampleSnapshot(types.ProviderVercel, 20))
	require.NoError(t, err)
	second, err := a.Adopt(sampleSnapshot(types.ProviderVercel, 25))
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	current, err := a.Current(types.ProviderVercel)
	require.NoError(t, err)
	assert.True(t, current.Tiers[1].BasePrice.Decimal().Equal(decimal.NewFromInt(25)))

	// Rolling back to the earlier pricing reuses the archived file
	again, err := a.Adopt(sampleSnapshot(types.ProviderVercel, 20))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	current, err = a.Current(types.ProviderVercel)
	require.NoError(t, err)
	assert.True(t, current.Tiers[1].BasePrice.Decimal().Equal(decimal.NewFromInt(20)))

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 3, "two snapshots plus the index")
}

// TestGetDetectsTampering corrupts an archived file on disk and expects
// the read to fail the hash check.
func TestGetDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	a, err := New(dir)
	require.NoError(t, err)

	entry, err := a.Adopt(sampleSnapshot(types.ProviderNetlify, 19))
	require.NoError(t, err)

	path := filepath.Join(dir, entry.File)
	require.NoError(t, os.Chmod(path, 0644))
	require.NoError(t, os.WriteFile(path, []byte(`{"provider":"netlify"}`), 0644))

	_, err = a.Get(entry.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHashMismatch)

	corrupted := a.VerifyIntegrity()
	require.Len(t, corrupted, 1)
	assert.Contains(t, corrupted[0], entry.ID)
}

// TestHistoryNewestFirst archives two revisions and expects history to
// lead with the most recent adoption.
func TestHistoryNewestFirst(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)

	first, err := a.Adopt(sampleSnapshot(types.ProviderRender, 7))
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := a.Adopt(sampleSnapshot(types.ProviderRender, 9))
	require.NoError(t, err)

	history := a.History(types.ProviderRender)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)

	assert.Empty(t, a.History(types.ProviderHeroku))
}

// TestReloadFromDisk reopens the archive directory and expects the
// index, current markers, and snapshots to survive.
func TestReloadFromDisk(t *testing.T) {
	dir := t.TempDir()

	a, err := New(dir)
	require.NoError(t, err)
	_, err = a.Adopt(sampleSnapshot(types.ProviderVercel, 20))
	require.NoError(t, err)
	_, err = a.Adopt(sampleSnapshot(types.ProviderFly, 5))
	require.NoError(t, err)

	reopened, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"flyio", "vercel"}, reopened.Providers())

	got, err := reopened.Current(types.ProviderFly)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderFly, got.Provider)
	assert.Empty(t, reopened.VerifyIntegrity())
}

// TestCurrentUnknownProvider expects a typed not-found error when no
// snapshot has been adopted for the provider.
func TestCurrentUnknownProvider(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = a.Current(types.ProviderRailway)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeNotFound))
}

// TestOverrideVaultRoundTrip flushes a populated store and loads it
// into a fresh one, preserving IDs and collection membership.
func TestOverrideVaultRoundTrip(t *testing.T) {
	dir := t.TempDir()
	vault, err := NewOverrideVault(dir)
	require.NoError(t, err)

	store := override.NewStore()
	added, err := store.Add(&override.Override{
		Path:  "annualDiscount",
		Value: 0.15,
		Scope: override.ScopeGlobal,
	})
	require.NoError(t, err)
	_, err = store.Add(&override.Override{
		Path:     "tiers[1].basePrice",
		Value:    25,
		Scope:    override.ScopeProvider,
		Provider: "vercel",
	})
	require.NoError(t, err)
	_, err = store.Add(&override.Override{
		Path:     "services[0].price",
		Value:    "custom",
		Scope:    override.ScopeLocal,
		Provider: "vercel",
	})
	require.NoError(t, err)

	require.NoError(t, vault.Flush(store))
	for _, name := range []string{"global.json", "provider-vercel.json", "local-vercel.json"} {
		_, statErr := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, statErr, name)
	}

	restored := override.NewStore()
	require.NoError(t, vault.Load(restored))
	assert.Len(t, restored.All(), 3)

	global := restored.List(override.ScopeGlobal, "")
	require.Len(t, global, 1)
	assert.Equal(t, added.ID, global[0].ID)
	assert.Equal(t, "annualDiscount", global[0].Path)
}

// TestOverrideVaultDropsEmptiedCollections removes a collection's only
// override and expects the next flush to delete its file.
func TestOverrideVaultDropsEmptiedCollections(t *testing.T) {
	dir := t.TempDir()
	vault, err := NewOverrideVault(dir)
	require.NoError(t, err)

	store := override.NewStore()
	_, err = store.Add(&override.Override{
		Path:  "annualDiscount",
		Value: 0.1,
		Scope: override.ScopeGlobal,
	})
	require.NoError(t, err)
	_, err = store.Add(&override.Override{
		Path:     "currency",
		Value:    "EUR",
		Scope:    override.ScopeProvider,
		Provider: "netlify",
	})
	require.NoError(t, err)
	require.NoError(t, vault.Flush(store))

	removed, err := store.Remove(override.ScopeProvider, "netlify", "currency")
	require.NoError(t, err)
	require.True(t, removed)
	require.NoError(t, vault.Flush(store))

	_, statErr := os.Stat(filepath.Join(dir, "provider-netlify.json"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(dir, "global.json"))
	assert.NoError(t, statErr)
}
