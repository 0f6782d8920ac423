package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostcost/core/types"
	"hostcost/internal/errors"
)

func qty(v float64) *types.Quantity {
	q := types.QuantityOf(v)
	return &q
}

func authored(raw string) *types.Quantity {
	q := types.ParseQuantity(raw)
	return &q
}

func monthlySnapshot(tiers []types.Tier, services []types.ServiceRate) *types.PricingSnapshot {
	return &types.PricingSnapshot{
		Provider:      types.ProviderVercel,
		Currency:      types.CurrencyUSD,
		BillingPeriod: types.PeriodMonthly,
		Tiers:         tiers,
		Services:      services,
	}
}

func equalAmount(t *testing.T, want float64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.NewFromFloat(want)), "want %v, got %s", want, got)
}

// TestBillOverage verifies the quota-then-rate arithmetic: a plan
// including 10 units of bandwidth at a 0.5 overage rate bills usage of
// 30 as 20 over quota, costing 10 on top of the 5 base.
func TestBillOverage(t *testing.T) {
	snapshot := monthlySnapshot(
		[]types.Tier{{Name: "basic", BasePrice: types.PriceOf(5), Limits: map[string]types.Quantity{
			"bandwidth": types.QuantityOf(10),
		}}},
		[]types.ServiceRate{{Name: "bandwidth", Unit: "GB", Price: types.PriceOf(0.5)}},
	)
	usage := &types.UsageVector{Period: types.PeriodMonthly, Bandwidth: qty(30)}

	b, err := NewCalculator().Bill(snapshot, snapshot.Tiers[0], usage)
	require.NoError(t, err)

	equalAmount(t, 5, b.BaseCost)
	equalAmount(t, 10, b.ServiceCosts["bandwidth"])
	equalAmount(t, 15, b.TotalCost)
	assert.Equal(t, types.PeriodMonthly, b.Period)
	assert.Empty(t, b.Issues)
}

// TestBillWithinQuotaCostsNothing verifies usage inside the included
// quota produces no service cost, only an explanatory detail.
func TestBillWithinQuotaCostsNothing(t *testing.T) {
	snapshot := monthlySnapshot(
		[]types.Tier{{Name: "basic", BasePrice: types.PriceOf(5), Limits: map[string]types.Quantity{
			"bandwidth": types.ParseQuantity("100gb"),
		}}},
		[]types.ServiceRate{{Name: "bandwidth", Unit: "GB", Price: types.PriceOf(0.5)}},
	)
	usage := &types.UsageVector{Period: types.PeriodMonthly, Bandwidth: qty(40)}

	b, err := NewCalculator().Bill(snapshot, snapshot.Tiers[0], usage)
	require.NoError(t, err)

	assert.Empty(t, b.ServiceCosts)
	equalAmount(t, 5, b.TotalCost)
	require.NotEmpty(t, b.Details)
	assert.Contains(t, b.Details[0], "within")
}

// TestBillCustomBasePrice verifies a custom-priced plan contributes a
// zero base and flags the breakdown instead of failing.
func TestBillCustomBasePrice(t *testing.T) {
	snapshot := monthlySnapshot(
		[]types.Tier{{Name: "enterprise", BasePrice: types.CustomPrice()}},
		nil,
	)
	usage := &types.UsageVector{Period: types.PeriodMonthly}

	b, err := NewCalculator().Bill(snapshot, snapshot.Tiers[0], usage)
	require.NoError(t, err)

	equalAmount(t, 0, b.BaseCost)
	equalAmount(t, 0, b.TotalCost)
	require.NotEmpty(t, b.Warnings)
	assert.Contains(t, b.Warnings[0], "custom-priced")
}

// TestBillUnlimitedQuotaNeverCharges proves an unlimited quota absorbs
// any finite usage with zero overage.
func TestBillUnlimitedQuotaNeverCharges(t *testing.T) {
	snapshot := monthlySnapshot(
		[]types.Tier{{Name: "scale", BasePrice: types.PriceOf(50), Limits: map[string]types.Quantity{
			"bandwidth": types.ParseQuantity("unlimited"),
		}}},
		[]types.ServiceRate{{Name: "bandwidth", Unit: "GB", Price: types.PriceOf(0.5)}},
	)
	usage := &types.UsageVector{Period: types.PeriodMonthly, Bandwidth: authored("900tb")}

	b, err := NewCalculator().Bill(snapshot, snapshot.Tiers[0], usage)
	require.NoError(t, err)

	assert.Empty(t, b.ServiceCosts)
	equalAmount(t, 50, b.TotalCost)
}

// TestBillFreeQuotaFallback verifies the service rate's free quota
// applies when the plan declares no limit for the dimension.
func TestBillFreeQuotaFallback(t *testing.T) {
	free := types.ParseQuantity("100gb")
	snapshot := monthlySnapshot(
		[]types.Tier{{Name: "basic", BasePrice: types.PriceOf(0)}},
		[]types.ServiceRate{{Name: "bandwidth", Unit: "GB", Price: types.PriceOf(0.1), FreeQuota: &free}},
	)
	usage := &types.UsageVector{Period: types.PeriodMonthly, Bandwidth: qty(150)}

	b, err := NewCalculator().Bill(snapshot, snapshot.Tiers[0], usage)
	require.NoError(t, err)

	equalAmount(t, 5, b.ServiceCosts["bandwidth"])
}

// TestBillUnreadableUsageDegradesDimension verifies a quantity that
// fails to parse skips only its own dimension, reporting a structured
// issue, while the rest of the bill completes.
func TestBillUnreadableUsageDegradesDimension(t *testing.T) {
	snapshot := monthlySnapshot(
		[]types.Tier{{Name: "basic", BasePrice: types.PriceOf(5), Limits: map[string]types.Quantity{
			"requests": types.QuantityOf(1000),
		}}},
		[]types.ServiceRate{
			{Name: "requests", Unit: "request", Price: types.PriceOf(0.001)},
			{Name: "bandwidth", Unit: "GB", Price: types.PriceOf(0.5)},
		},
	)
	usage := &types.UsageVector{
		Period:    types.PeriodMonthly,
		Requests:  qty(2000),
		Bandwidth: authored("lots"),
	}

	b, err := NewCalculator().Bill(snapshot, snapshot.Tiers[0], usage)
	require.NoError(t, err)

	equalAmount(t, 1, b.ServiceCosts["requests"])
	assert.NotContains(t, b.ServiceCosts, "bandwidth")

	require.Len(t, b.Issues, 1)
	assert.Equal(t, errors.TypeInvalidQuantity, b.Issues[0].Type)
	assert.Equal(t, "bandwidth", b.Issues[0].Context["dimension"])
	assert.Equal(t, "lots", b.Issues[0].Context["raw"])
}

// TestBillAssumptionsForUnpricedDimensions verifies the two unbillable
// shapes: no rate and no quota at all, and usage beyond a quota with no
// published overage rate.
func TestBillAssumptionsForUnpricedDimensions(t *testing.T) {
	snapshot := monthlySnapshot(
		[]types.Tier{{Name: "basic", BasePrice: types.PriceOf(5), Limits: map[string]types.Quantity{
			"bandwidth": types.QuantityOf(10),
		}}},
		nil,
	)
	usage := &types.UsageVector{
		Period:    types.PeriodMonthly,
		Bandwidth: qty(30),
		Storage:   qty(12),
	}

	b, err := NewCalculator().Bill(snapshot, snapshot.Tiers[0], usage)
	require.NoError(t, err)

	assert.Empty(t, b.ServiceCosts)
	equalAmount(t, 5, b.TotalCost)
	require.Len(t, b.Assumptions, 2)
	assert.Contains(t, b.Assumptions[0], "no overage rate")
	assert.Contains(t, b.Assumptions[1], "no published rate or quota")
}

// TestBillCustomRateWarns verifies overage against a custom-priced
// rate is surfaced as a warning rather than silently priced at zero.
func TestBillCustomRateWarns(t *testing.T) {
	snapshot := monthlySnapshot(
		[]types.Tier{{Name: "basic", BasePrice: types.PriceOf(5), Limits: map[string]types.Quantity{
			"bandwidth": types.QuantityOf(10),
		}}},
		[]types.ServiceRate{{Name: "bandwidth", Unit: "GB", Price: types.CustomPrice()}},
	)
	usage := &types.UsageVector{Period: types.PeriodMonthly, Bandwidth: qty(30)}

	b, err := NewCalculator().Bill(snapshot, snapshot.Tiers[0], usage)
	require.NoError(t, err)

	assert.Empty(t, b.ServiceCosts)
	require.NotEmpty(t, b.Warnings)
	assert.Contains(t, b.Warnings[0], "custom-priced")
}

// TestBillMultipliersScaleOnlyUsage verifies the regional and peak
// multipliers scale the overage portion while the base price stays
// untouched.
func TestBillMultipliersScaleOnlyUsage(t *testing.T) {
	snapshot := monthlySnapshot(
		[]types.Tier{{Name: "basic", BasePrice: types.PriceOf(5), Limits: map[string]types.Quantity{
			"bandwidth": types.QuantityOf(10),
		}}},
		[]types.ServiceRate{{Name: "bandwidth", Unit: "GB", Price: types.PriceOf(0.5)}},
	)
	snapshot.RegionMultipliers = map[string]float64{"us-east": 1.0, "eu-west": 1.2}

	usage := &types.UsageVector{
		Period:     types.PeriodMonthly,
		Bandwidth:  qty(30),
		Regions:    map[string]float64{"us-east": 1, "eu-west": 1},
		PeakFactor: 4,
	}

	b, err := NewCalculator().Bill(snapshot, snapshot.Tiers[0], usage)
	require.NoError(t, err)

	assert.InDelta(t, 1.1, b.RegionalMultiplier, 1e-9)
	assert.InDelta(t, 2.0, b.PeakMultiplier, 1e-9)
	// unscaled overage stays itemized at 10; the total scales it by 2.2
	equalAmount(t, 10, b.ServiceCosts["bandwidth"])
	assert.InDelta(t, 27, b.TotalCost.InexactFloat64(), 1e-9)
}

// TestBillYearlyAppliesAnnualDiscount verifies the yearly figure is
// twelve months less the provider's committed-use discount.
func TestBillYearlyAppliesAnnualDiscount(t *testing.T) {
	snapshot := monthlySnapshot(
		[]types.Tier{{Name: "basic", BasePrice: types.PriceOf(10)}},
		nil,
	)
	snapshot.AnnualDiscount = 0.2
	usage := &types.UsageVector{Period: types.PeriodMonthly}

	b, err := NewCalculator().Bill(snapshot, snapshot.Tiers[0], usage)
	require.NoError(t, err)

	equalAmount(t, 96, b.YearlyCost)
}

// TestBillNormalizesPeriods verifies hourly base prices and hourly
// usage both normalize to the standard 730-hour month before any
// arithmetic.
func TestBillNormalizesPeriods(t *testing.T) {
	snapshot := &types.PricingSnapshot{
		Provider:      types.ProviderFly,
		Currency:      types.CurrencyUSD,
		BillingPeriod: types.PeriodHourly,
		Tiers: []types.Tier{{Name: "shared", BasePrice: types.PriceOf(0.01), Limits: map[string]types.Quantity{
			"requests": types.QuantityOf(50_000),
		}}},
		Services: []types.ServiceRate{{Name: "requests", Unit: "request", Price: types.PriceOf(0.001)}},
	}
	usage := &types.UsageVector{Period: types.PeriodHourly, Requests: qty(100)}

	b, err := NewCalculator().Bill(snapshot, snapshot.Tiers[0], usage)
	require.NoError(t, err)

	// 0.01/hour base over a 730-hour month; 73000 monthly requests
	// leave 23000 over the included 50000
	equalAmount(t, 7.3, b.BaseCost)
	equalAmount(t, 23, b.ServiceCosts["requests"])
}

// TestBillServicesSkipsPlanPricing verifies the tier-less path bills
// pay-per-use rates with their free quotas and no base price.
func TestBillServicesSkipsPlanPricing(t *testing.T) {
	free := types.QuantityOf(1)
	snapshot := monthlySnapshot(nil, []types.ServiceRate{
		{Name: "storage", Unit: "GB", Price: types.PriceOf(0.25), FreeQuota: &free},
	})
	usage := &types.UsageVector{Period: types.PeriodMonthly, Storage: qty(11)}

	b, err := NewCalculator().BillServices(snapshot, usage)
	require.NoError(t, err)

	assert.Empty(t, b.Tier)
	equalAmount(t, 0, b.BaseCost)
	equalAmount(t, 2.5, b.ServiceCosts["storage"])
	equalAmount(t, 2.5, b.TotalCost)
}

// TestBillRejectsUnknownUsagePeriod verifies the only hard failures:
// missing inputs and an unknown usage period.
func TestBillRejectsUnknownUsagePeriod(t *testing.T) {
	snapshot := monthlySnapshot([]types.Tier{{Name: "basic", BasePrice: types.PriceOf(5)}}, nil)

	_, err := NewCalculator().Bill(snapshot, snapshot.Tiers[0], &types.UsageVector{Period: "quarterly"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeValidation))

	_, err = NewCalculator().Bill(snapshot, snapshot.Tiers[0], nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeValidation))
}

// TestRegionalMultiplier exercises weight normalization and the
// neutral fallbacks of the geo multiplier.
func TestRegionalMultiplier(t *testing.T) {
	multipliers := map[string]float64{"us-east": 1.0, "eu-west": 1.2, "ap-south": 1.4}

	tests := []struct {
		name    string
		regions map[string]float64
		want    float64
	}{
		{"no regions", nil, 1.0},
		{"single region", map[string]float64{"eu-west": 1}, 1.2},
		{"equal spread", map[string]float64{"us-east": 1, "eu-west": 1}, 1.1},
		{"unnormalized weights", map[string]float64{"us-east": 30, "eu-west": 10}, 1.05},
		{"unknown region neutral", map[string]float64{"mars": 2}, 1.0},
		{"non-positive weights dropped", map[string]float64{"eu-west": 0, "ap-south": -1}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RegionalMultiplier(multipliers, tt.regions), 1e-9)
		})
	}
}

// TestPeakMultiplier verifies the square-root damping and the neutral
// floor at one.
func TestPeakMultiplier(t *testing.T) {
	assert.InDelta(t, 1.0, PeakMultiplier(0), 1e-9)
	assert.InDelta(t, 1.0, PeakMultiplier(1), 1e-9)
	assert.InDelta(t, 2.0, PeakMultiplier(4), 1e-9)
	assert.InDelta(t, 3.0, PeakMultiplier(9), 1e-9)
}
