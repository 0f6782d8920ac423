// Package types - Cost output types
package types

import (
	"github.com/shopspring/decimal"

	"hostcost/internal/errors"
)

// CostBreakdown is the itemized result of billing one usage vector
// against one provider's effective pricing. ServiceCosts hold the raw
// per-dimension overage (quantity beyond quota times rate); TotalCost
// is the base price plus the usage portion scaled by the regional and
// peak multipliers. The base price is never scaled.
type CostBreakdown struct {
	// Provider is the provider the bill was computed for
	Provider Provider `json:"provider"`

	// Tier is the plan the bill was computed against
	Tier string `json:"tier"`

	// BaseCost is the fixed recurring plan price
	BaseCost decimal.Decimal `json:"baseCost"`

	// ServiceCosts itemizes overage cost per dimension, unscaled
	ServiceCosts map[string]decimal.Decimal `json:"serviceCosts"`

	// RegionalMultiplier is the geo-weighted multiplier applied to the
	// usage portion
	RegionalMultiplier float64 `json:"regionalMultiplier"`

	// PeakMultiplier is the damped peak-load multiplier applied to the
	// usage portion
	PeakMultiplier float64 `json:"peakMultiplier"`

	// TotalCost is the monthly total
	TotalCost decimal.Decimal `json:"totalCost"`

	// YearlyCost is twelve months less the provider's annual discount
	YearlyCost decimal.Decimal `json:"yearlyCost"`

	// Currency is the bill currency
	Currency Currency `json:"currency"`

	// Period is the period TotalCost refers to
	Period BillingPeriod `json:"period"`

	// Details are human-readable line item notes
	Details []string `json:"details,omitempty"`

	// Assumptions record dimensions that could not be billed and
	// defaults that were applied
	Assumptions []string `json:"assumptions,omitempty"`

	// Warnings flag degraded results such as custom pricing or
	// unparseable quantities
	Warnings []string `json:"warnings,omitempty"`

	// Issues carries the structured errors behind the warnings, for
	// programmatic inspection
	Issues []*errors.Error `json:"issues,omitempty"`
}

// UsageCost returns the unscaled usage-driven portion of the bill
func (b *CostBreakdown) UsageCost() decimal.Decimal {
	total := decimal.Zero
	for _, c := range b.ServiceCosts {
		total = total.Add(c)
	}
	return total
}
