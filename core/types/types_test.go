// Package types - Scalar and enum behavior tests
package types

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostcost/core/units"
)

// TestPriceCustomSentinel verifies "custom" decodes to the sentinel and
// numbers decode to amounts
func TestPriceCustomSentinel(t *testing.T) {
	var tier Tier
	doc := `{"name": "enterprise", "basePrice": "custom"}`
	require.NoError(t, json.Unmarshal([]byte(doc), &tier))
	assert.True(t, tier.BasePrice.IsCustom())
	assert.True(t, tier.BasePrice.Decimal().IsZero())

	var plain Tier
	doc = `{"name": "pro", "basePrice": 20}`
	require.NoError(t, json.Unmarshal([]byte(doc), &plain))
	assert.False(t, plain.BasePrice.IsCustom())
	assert.Equal(t, "20", plain.BasePrice.Decimal().String())

	// Custom survives a round trip
	out, err := json.Marshal(tier)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"custom"`)
}

// TestPriceRejectsGarbage verifies non-numeric, non-sentinel prices fail
func TestPriceRejectsGarbage(t *testing.T) {
	var p Price
	assert.Error(t, p.UnmarshalJSON([]byte(`"cheap"`)))
	assert.NoError(t, p.UnmarshalJSON([]byte(`"12.50"`)))
	assert.True(t, p.Decimal().Equal(decimal.NewFromFloat(12.5)))
}

// TestQuantityDefersParseFailures verifies a bad quantity string does
// not fail document decoding, only its own resolution
func TestQuantityDefersParseFailures(t *testing.T) {
	var tier Tier
	doc := `{"name": "starter", "basePrice": 0, "limits": {"bandwidth": "lots"}}`
	require.NoError(t, json.Unmarshal([]byte(doc), &tier))

	q, ok := tier.LimitFor(DimensionBandwidth)
	require.True(t, ok)
	_, err := q.Resolve()
	assert.Error(t, err)
}

// TestQuantityNormalization verifies authored strings normalize and
// keep their authored form on output
func TestQuantityNormalization(t *testing.T) {
	q := ParseQuantity("1tb")
	v, err := q.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 1024.0, v)

	out, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Equal(t, `"1tb"`, string(out))

	assert.True(t, UnlimitedQuantity().IsUnlimited())
	assert.False(t, QuantityOf(5000).IsUnlimited())
}

// TestMonthlyFactor verifies period normalization factors
func TestMonthlyFactor(t *testing.T) {
	tests := []struct {
		period BillingPeriod
		want   float64
	}{
		{PeriodHourly, units.HoursPerMonth},
		{PeriodDaily, units.DaysPerMonth},
		{PeriodMonthly, 1},
		{PeriodYearly, 1.0 / 12.0},
	}
	for _, tt := range tests {
		got, ok := tt.period.MonthlyFactor()
		require.True(t, ok, "period %s", tt.period)
		assert.InDelta(t, tt.want, got, 1e-9)
	}

	_, ok := BillingPeriod("fortnightly").MonthlyFactor()
	assert.False(t, ok)
}

// TestUsageDimensionsOrder verifies dimensions iterate in canonical
// order with unset dimensions skipped
func TestUsageDimensionsOrder(t *testing.T) {
	bw := QuantityOf(50)
	reqs := ParseQuantity("250k")
	usage := UsageVector{
		Period:    PeriodMonthly,
		Bandwidth: &bw,
		Requests:  &reqs,
	}

	dims := usage.Dimensions()
	require.Len(t, dims, 2)
	assert.Equal(t, DimensionRequests, dims[0].Dimension)
	assert.Equal(t, DimensionBandwidth, dims[1].Dimension)
}
