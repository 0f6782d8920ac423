// Package types defines core domain types shared across all layers.
// This package contains NO business logic - only type definitions.
package types

import "hostcost/core/units"

// Provider identifies a hosting provider
type Provider string

// Well-known hosting providers. The set is open; any non-empty string
// is a valid provider id.
const (
	ProviderVercel  Provider = "vercel"
	ProviderNetlify Provider = "netlify"
	ProviderRender  Provider = "render"
	ProviderFly     Provider = "flyio"
	ProviderRailway Provider = "railway"
	ProviderHeroku  Provider = "heroku"
)

// String returns the string representation of the provider
func (p Provider) String() string {
	return string(p)
}

// Currency represents a currency code
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// String returns the string representation
func (c Currency) String() string {
	return string(c)
}

// BillingPeriod is the period a price or usage figure refers to
type BillingPeriod string

const (
	PeriodHourly  BillingPeriod = "hourly"
	PeriodDaily   BillingPeriod = "daily"
	PeriodMonthly BillingPeriod = "monthly"
	PeriodYearly  BillingPeriod = "yearly"
)

// String returns the string representation
func (p BillingPeriod) String() string {
	return string(p)
}

// IsValid checks if the period is a known period
func (p BillingPeriod) IsValid() bool {
	switch p {
	case PeriodHourly, PeriodDaily, PeriodMonthly, PeriodYearly:
		return true
	default:
		return false
	}
}

// MonthlyFactor returns the factor converting a quantity in this period
// to a monthly quantity. The second return is false for unknown periods.
func (p BillingPeriod) MonthlyFactor() (float64, bool) {
	switch p {
	case PeriodHourly:
		return units.HoursPerMonth, true
	case PeriodDaily:
		return units.DaysPerMonth, true
	case PeriodMonthly:
		return 1, true
	case PeriodYearly:
		return 1 / units.MonthsPerYear, true
	default:
		return 0, false
	}
}

// Dimension identifies a billable usage dimension. Dimension names
// double as service-rate names and tier-limit keys, so a usage figure,
// its rate, and its included quota all match by the same string.
type Dimension string

const (
	DimensionRequests  Dimension = "requests"
	DimensionBandwidth Dimension = "bandwidth"
	DimensionStorage   Dimension = "storage"
	DimensionCompute   Dimension = "computeHours"
	DimensionUsers     Dimension = "concurrentUsers"
)

// String returns the string representation
func (d Dimension) String() string {
	return string(d)
}

// AllDimensions lists the billable dimensions in canonical order.
// Billing walks dimensions in this order so breakdown output is stable.
var AllDimensions = []Dimension{
	DimensionRequests,
	DimensionBandwidth,
	DimensionStorage,
	DimensionCompute,
	DimensionUsers,
}
