package aggregate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostcost/core/billing"
	"hostcost/core/pricing"
	"hostcost/core/profile"
	"hostcost/core/tier"
	"hostcost/core/types"
	"hostcost/internal/errors"
)

// fakeSource serves effective pricing straight from a map, the way the
// aggregator sees it after composition.
type fakeSource map[types.Provider]*pricing.EffectivePricing

func (f fakeSource) Effective(p types.Provider) (*pricing.EffectivePricing, error) {
	eff, ok := f[p]
	if !ok {
		return nil, errors.NotFound("pricing snapshot", p.String())
	}
	return eff, nil
}

func newAggregator(t *testing.T) *Aggregator {
	t.Helper()
	catalog, err := profile.Load()
	require.NoError(t, err)
	return NewAggregator(tier.NewSelector(catalog), billing.NewCalculator())
}

func qty(v float64) *types.Quantity {
	q := types.QuantityOf(v)
	return &q
}

func effective(s types.PricingSnapshot) *pricing.EffectivePricing {
	return &pricing.EffectivePricing{Snapshot: s}
}

func testSource() fakeSource {
	storageFree := types.QuantityOf(1)
	return fakeSource{
		types.ProviderVercel: effective(types.PricingSnapshot{
			Provider:      types.ProviderVercel,
			Currency:      types.CurrencyUSD,
			BillingPeriod: types.PeriodMonthly,
			Tiers: []types.Tier{
				{Name: "hobby", BasePrice: types.PriceOf(0), Limits: map[string]types.Quantity{
					"bandwidth": types.ParseQuantity("100gb"),
				}},
				{Name: "pro", BasePrice: types.PriceOf(20), Limits: map[string]types.Quantity{
					"bandwidth": types.ParseQuantity("1tb"),
				}},
			},
		}),
		types.ProviderRender: effective(types.PricingSnapshot{
			Provider:      types.ProviderRender,
			Currency:      types.CurrencyUSD,
			BillingPeriod: types.PeriodMonthly,
			Services: []types.ServiceRate{
				{Name: "storage", Unit: "GB", Price: types.PriceOf(0.25), FreeQuota: &storageFree},
			},
		}),
	}
}

// TestEstimateWorkload verifies a hosting component bills its selected
// plan while ancillary components bill pay-per-use rates, with totals
// summed across both.
func TestEstimateWorkload(t *testing.T) {
	a := newAggregator(t)
	w := &types.Workload{
		Name:        "shop",
		Environment: "prod",
		Components: []types.Component{
			{
				Name:     "web",
				Kind:     types.ComponentHosting,
				Provider: types.ProviderVercel,
				TierHint: "pro",
				Usage:    types.UsageVector{Period: types.PeriodMonthly, Bandwidth: qty(50)},
			},
			{
				Name:     "db",
				Kind:     types.ComponentDatabase,
				Provider: types.ProviderRender,
				Usage:    types.UsageVector{Period: types.PeriodMonthly, Storage: qty(11)},
			},
		},
	}

	est, err := a.Estimate(testSource(), w)
	require.NoError(t, err)

	require.Len(t, est.Components, 2)
	assert.False(t, est.Degraded())

	web := est.Components[0]
	require.NotNil(t, web.Selection)
	assert.Equal(t, "pro", web.Selection.Tier.Name)
	assert.Equal(t, tier.MethodHint, web.Selection.Method)
	require.NotNil(t, web.Breakdown)

	db := est.Components[1]
	assert.Nil(t, db.Selection)
	require.NotNil(t, db.Breakdown)
	assert.Empty(t, db.Breakdown.Tier)

	// 20 plan base plus 10 GB of storage over the free 1 at 0.25
	assert.True(t, est.TotalMonthly.Equal(decimal.NewFromFloat(22.5)), "got %s", est.TotalMonthly)
	assert.True(t, est.TotalYearly.Equal(decimal.NewFromFloat(270)), "got %s", est.TotalYearly)
	assert.Equal(t, types.CurrencyUSD, est.Currency)
}

// TestEstimateContinuesPastFailingComponent verifies a component whose
// provider has no pricing drops out of the totals while the rest of
// the workload still estimates.
func TestEstimateContinuesPastFailingComponent(t *testing.T) {
	a := newAggregator(t)
	w := &types.Workload{
		Name: "shop",
		Components: []types.Component{
			{
				Name:     "web",
				Kind:     types.ComponentHosting,
				Provider: types.ProviderVercel,
				TierHint: "hobby",
				Usage:    types.UsageVector{Period: types.PeriodMonthly, Bandwidth: qty(10)},
			},
			{
				Name:     "cache",
				Kind:     types.ComponentCache,
				Provider: types.ProviderHeroku,
				Usage:    types.UsageVector{Period: types.PeriodMonthly, Storage: qty(5)},
			},
		},
	}

	est, err := a.Estimate(testSource(), w)
	require.NoError(t, err)

	assert.True(t, est.Degraded())
	require.Len(t, est.Components, 2)
	assert.Nil(t, est.Components[1].Breakdown)
	require.NotNil(t, est.Components[1].Err)
	assert.Equal(t, errors.TypeNotFound, est.Components[1].Err.Type)

	assert.True(t, est.TotalMonthly.Equal(decimal.Zero), "hobby is free, failed cache adds nothing")
	require.NotEmpty(t, est.Warnings)
	assert.Contains(t, est.Warnings[len(est.Warnings)-1], "cache")
}

// TestEstimateValidatesComponents verifies per-component input checks:
// a missing provider or unknown kind fails that component alone.
func TestEstimateValidatesComponents(t *testing.T) {
	a := newAggregator(t)
	w := &types.Workload{
		Name: "shop",
		Components: []types.Component{
			{Name: "orphan", Kind: types.ComponentHosting, Usage: types.UsageVector{Period: types.PeriodMonthly}},
			{Name: "odd", Kind: types.ComponentKind("lambda"), Provider: types.ProviderVercel, Usage: types.UsageVector{Period: types.PeriodMonthly}},
		},
	}

	est, err := a.Estimate(testSource(), w)
	require.NoError(t, err)

	require.Len(t, est.Components, 2)
	for _, ce := range est.Components {
		require.NotNil(t, ce.Err, "component %s", ce.Component)
		assert.Equal(t, errors.TypeValidation, ce.Err.Type)
	}
}

// TestEstimateRejectsEmptyWorkload verifies the only hard failure: no
// workload or no components at all.
func TestEstimateRejectsEmptyWorkload(t *testing.T) {
	a := newAggregator(t)

	_, err := a.Estimate(testSource(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeValidation))

	_, err = a.Estimate(testSource(), &types.Workload{Name: "empty"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeValidation))
}

// TestEstimatePrefixesComponentNotes verifies breakdown warnings and
// assumptions surface on the estimate tagged with their component.
func TestEstimatePrefixesComponentNotes(t *testing.T) {
	a := newAggregator(t)
	source := fakeSource{
		types.ProviderVercel: effective(types.PricingSnapshot{
			Provider:      types.ProviderVercel,
			Currency:      types.CurrencyUSD,
			BillingPeriod: types.PeriodMonthly,
			Tiers:         []types.Tier{{Name: "enterprise", BasePrice: types.CustomPrice()}},
		}),
	}
	w := &types.Workload{
		Name: "shop",
		Components: []types.Component{{
			Name:     "web",
			Kind:     types.ComponentHosting,
			Provider: types.ProviderVercel,
			TierHint: "enterprise",
			Usage:    types.UsageVector{Period: types.PeriodMonthly},
		}},
	}

	est, err := a.Estimate(source, w)
	require.NoError(t, err)

	require.NotEmpty(t, est.Warnings)
	assert.Contains(t, est.Warnings[0], "web: ")
	assert.Contains(t, est.Warnings[0], "custom-priced")
}

// TestEstimateFallsBackToPreferredProvider leaves a component's
// provider unset and expects the first preferred provider with pricing
// to be used, recorded as an assumption.
func TestEstimateFallsBackToPreferredProvider(t *testing.T) {
	a := newAggregator(t).WithPreferredProviders([]types.Provider{
		types.ProviderHeroku,
		types.ProviderVercel,
	})
	w := &types.Workload{
		Name: "shop",
		Components: []types.Component{{
			Name:     "web",
			Kind:     types.ComponentHosting,
			TierHint: "pro",
			Usage:    types.UsageVector{Period: types.PeriodMonthly, Bandwidth: qty(50)},
		}},
	}

	est, err := a.Estimate(testSource(), w)
	require.NoError(t, err)

	require.Len(t, est.Components, 1)
	ce := est.Components[0]
	require.Nil(t, ce.Err)
	assert.Equal(t, types.ProviderVercel, ce.Provider, "heroku has no pricing, vercel is next")
	require.NotNil(t, ce.Breakdown)
	assert.Contains(t, est.Assumptions, "web: no provider pinned, assuming vercel")
}
