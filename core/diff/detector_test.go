package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostcost/core/types"
)

func snapshot(tiers []types.Tier, services []types.ServiceRate) *types.PricingSnapshot {
	return &types.PricingSnapshot{
		Provider:      types.ProviderNetlify,
		Currency:      types.CurrencyUSD,
		BillingPeriod: types.PeriodMonthly,
		Tiers:         tiers,
		Services:      services,
	}
}

func tier(name string, base float64) types.Tier {
	return types.Tier{Name: name, BasePrice: types.PriceOf(base)}
}

// TestCompareFirstObservation verifies comparing against no prior
// snapshot reports a change with nothing itemized.
func TestCompareFirstObservation(t *testing.T) {
	d := NewDetector()
	current := snapshot([]types.Tier{tier("free", 0)}, nil)

	r := d.Compare(nil, current)

	assert.True(t, r.HasChanges)
	assert.True(t, r.FirstObservation)
	assert.Empty(t, r.AddedTiers)
	assert.Empty(t, r.RemovedTiers)
	assert.Empty(t, r.ChangedTiers)
	assert.Equal(t, SignificanceMinor, r.Significance)

	assert.False(t, d.Compare(nil, nil).HasChanges)
	assert.Equal(t, SignificanceNone, d.Compare(nil, nil).Significance)
}

// TestCompareIdenticalSnapshots verifies equal snapshots produce an
// empty report graded none.
func TestCompareIdenticalSnapshots(t *testing.T) {
	a := snapshot([]types.Tier{tier("free", 0), tier("pro", 19)}, nil)
	b := snapshot([]types.Tier{tier("free", 0), tier("pro", 19)}, nil)

	r := NewDetector().Compare(a, b)

	assert.False(t, r.HasChanges)
	assert.Equal(t, SignificanceNone, r.Significance)
	assert.Zero(t, r.ChangeCount())
}

// TestCompareSymmetry proves a tier added in one direction is the same
// tier removed in the other.
func TestCompareSymmetry(t *testing.T) {
	a := snapshot([]types.Tier{tier("free", 0), tier("pro", 19)}, nil)
	b := snapshot([]types.Tier{tier("free", 0), tier("pro", 19), tier("business", 99)}, nil)
	d := NewDetector()

	forward := d.Compare(a, b)
	backward := d.Compare(b, a)

	assert.Equal(t, []string{"business"}, forward.AddedTiers)
	assert.Empty(t, forward.RemovedTiers)
	assert.Equal(t, []string{"business"}, backward.RemovedTiers)
	assert.Empty(t, backward.AddedTiers)
}

// TestComparePercentShift verifies the percent arithmetic, including
// the zero-base convention: from zero to anything counts as 100.
func TestComparePercentShift(t *testing.T) {
	d := NewDetector()

	r := d.Compare(
		snapshot([]types.Tier{tier("pro", 20)}, nil),
		snapshot([]types.Tier{tier("pro", 22)}, nil),
	)
	require.Len(t, r.ChangedTiers, 1)
	assert.InDelta(t, 10, r.ChangedTiers[0].PercentChange, 1e-9)

	r = d.Compare(
		snapshot([]types.Tier{tier("free", 0)}, nil),
		snapshot([]types.Tier{tier("free", 5)}, nil),
	)
	require.Len(t, r.ChangedTiers, 1)
	assert.InDelta(t, 100, r.ChangedTiers[0].PercentChange, 1e-9)
	assert.Equal(t, SignificanceCritical, r.Significance)
}

// TestCompareLimitNormalization verifies quotas compare by normalized
// value: "100gb" equals a plain 100, and only real quota moves count.
func TestCompareLimitNormalization(t *testing.T) {
	d := NewDetector()

	same := d.Compare(
		snapshot([]types.Tier{{Name: "pro", BasePrice: types.PriceOf(19), Limits: map[string]types.Quantity{
			"bandwidth": types.ParseQuantity("100gb"),
		}}}, nil),
		snapshot([]types.Tier{{Name: "pro", BasePrice: types.PriceOf(19), Limits: map[string]types.Quantity{
			"bandwidth": types.QuantityOf(100),
		}}}, nil),
	)
	assert.False(t, same.HasChanges)

	moved := d.Compare(
		snapshot([]types.Tier{{Name: "pro", BasePrice: types.PriceOf(19), Limits: map[string]types.Quantity{
			"bandwidth": types.ParseQuantity("100gb"),
			"requests":  types.ParseQuantity("1m"),
		}}}, nil),
		snapshot([]types.Tier{{Name: "pro", BasePrice: types.PriceOf(19), Limits: map[string]types.Quantity{
			"bandwidth": types.ParseQuantity("200gb"),
		}}}, nil),
	)
	require.Len(t, moved.ChangedTiers, 1)
	assert.Equal(t, []string{"bandwidth", "requests"}, moved.ChangedTiers[0].ChangedLimits)
}

// TestCompareSignificanceLadder walks the escalation rules in
// precedence order: >20% is critical, tier removal is major, >5% or
// broad structural change is major, anything else is minor.
func TestCompareSignificanceLadder(t *testing.T) {
	d := NewDetector()

	critical := d.Compare(
		snapshot([]types.Tier{tier("pro", 20), tier("business", 99)}, nil),
		snapshot([]types.Tier{tier("pro", 26)}, nil),
	)
	assert.Equal(t, SignificanceCritical, critical.Significance, "a 30% shift outranks the removal")

	removal := d.Compare(
		snapshot([]types.Tier{tier("pro", 20), tier("business", 99)}, nil),
		snapshot([]types.Tier{tier("pro", 20)}, nil),
	)
	assert.Equal(t, SignificanceMajor, removal.Significance)

	shift := d.Compare(
		snapshot([]types.Tier{tier("pro", 20)}, nil),
		snapshot([]types.Tier{tier("pro", 21.5)}, nil),
	)
	assert.Equal(t, SignificanceMajor, shift.Significance, "7.5% is past the major threshold")

	structural := d.Compare(
		snapshot([]types.Tier{tier("pro", 20)}, nil),
		snapshot([]types.Tier{tier("pro", 20), tier("team", 49), tier("business", 99), tier("scale", 199)}, nil),
	)
	assert.Equal(t, SignificanceMajor, structural.Significance, "three additions are broad structural change")

	minor := d.Compare(
		snapshot([]types.Tier{tier("pro", 20)}, nil),
		snapshot([]types.Tier{tier("pro", 20.5)}, nil),
	)
	assert.Equal(t, SignificanceMinor, minor.Significance, "2.5% with no structure moves is minor")
}

// TestCompareServices verifies pay-per-use rates diff by name with
// unit and free quota moves tracked separately from price shifts.
func TestCompareServices(t *testing.T) {
	oldFree := types.ParseQuantity("100gb")
	newFree := types.ParseQuantity("50gb")
	d := NewDetector()

	r := d.Compare(
		snapshot(nil, []types.ServiceRate{
			{Name: "bandwidth", Unit: "GB", Price: types.PriceOf(0.2), FreeQuota: &oldFree},
			{Name: "builds", Unit: "minute", Price: types.PriceOf(0.01)},
		}),
		snapshot(nil, []types.ServiceRate{
			{Name: "bandwidth", Unit: "GB", Price: types.PriceOf(0.2), FreeQuota: &newFree},
			{Name: "storage", Unit: "GB", Price: types.PriceOf(0.1)},
		}),
	)

	assert.True(t, r.HasChanges)
	assert.Equal(t, []string{"storage"}, r.AddedServices)
	assert.Equal(t, []string{"builds"}, r.RemovedServices)
	require.Len(t, r.ChangedServices, 1)
	assert.True(t, r.ChangedServices[0].QuotaChanged)
	assert.Zero(t, r.ChangedServices[0].PercentChange)
}

// TestCompareCustomPriceFlip verifies moving a published price behind
// the custom sentinel registers as a change with no percent shift.
func TestCompareCustomPriceFlip(t *testing.T) {
	r := NewDetector().Compare(
		snapshot([]types.Tier{{Name: "enterprise", BasePrice: types.PriceOf(500)}}, nil),
		snapshot([]types.Tier{{Name: "enterprise", BasePrice: types.CustomPrice()}}, nil),
	)

	require.Len(t, r.ChangedTiers, 1)
	assert.Zero(t, r.ChangedTiers[0].PercentChange)
	assert.True(t, r.HasChanges)
	assert.Equal(t, SignificanceMinor, r.Significance)
}

// TestCompareDocumentLevelChanges verifies currency, period and
// discount redefinitions flip the report on their own.
func TestCompareDocumentLevelChanges(t *testing.T) {
	a := snapshot([]types.Tier{tier("pro", 20)}, nil)
	b := snapshot([]types.Tier{tier("pro", 20)}, nil)
	b.Currency = types.CurrencyEUR
	b.AnnualDiscount = 0.15

	r := NewDetector().Compare(a, b)

	assert.True(t, r.HasChanges)
	assert.True(t, r.CurrencyChanged)
	assert.True(t, r.DiscountChanged)
	assert.False(t, r.PeriodChanged)
	assert.Equal(t, SignificanceMinor, r.Significance)
	assert.Zero(t, r.ChangeCount())
}
