// Package types - Pricing document types
package types

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// customSentinel is the authored value for contact-us enterprise pricing
const customSentinel = "custom"

// Price is a pricing-document scalar: a plain amount, or the "custom"
// sentinel used by enterprise plans without a published price.
type Price struct {
	// Amount is the published price; zero when Custom is set
	Amount decimal.Decimal

	// Custom marks a contact-us price with no published amount
	Custom bool
}

// PriceOf builds a plain price from a float amount
func PriceOf(v float64) Price {
	return Price{Amount: decimal.NewFromFloat(v)}
}

// CustomPrice builds the custom sentinel price
func CustomPrice() Price {
	return Price{Custom: true}
}

// IsCustom reports whether this is the custom sentinel
func (p Price) IsCustom() bool {
	return p.Custom
}

// Decimal returns the published amount, zero for custom prices
func (p Price) Decimal() decimal.Decimal {
	return p.Amount
}

// Equal compares two prices
func (p Price) Equal(other Price) bool {
	return p.Custom == other.Custom && p.Amount.Equal(other.Amount)
}

// String returns the authored representation
func (p Price) String() string {
	if p.Custom {
		return customSentinel
	}
	return p.Amount.String()
}

// MarshalJSON writes a number, or the quoted sentinel for custom prices
func (p Price) MarshalJSON() ([]byte, error) {
	if p.Custom {
		return []byte(`"` + customSentinel + `"`), nil
	}
	return []byte(p.Amount.String()), nil
}

// UnmarshalJSON accepts a JSON number, a numeric string, or "custom"
func (p *Price) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*p = Price{}
		return nil
	}

	if s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		if strings.EqualFold(strings.TrimSpace(unquoted), customSentinel) {
			*p = Price{Custom: true}
			return nil
		}
		s = unquoted
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	*p = Price{Amount: amount}
	return nil
}

// PricingSnapshot is a point-in-time capture of one provider's
// published pricing. Snapshots are immutable once loaded; a fresh
// ingestion supersedes, never mutates, the prior one.
type PricingSnapshot struct {
	// Provider is the hosting provider this snapshot describes
	Provider Provider `json:"provider"`

	// Currency is the currency all amounts are denominated in
	Currency Currency `json:"currency"`

	// BillingPeriod is the period base prices refer to
	BillingPeriod BillingPeriod `json:"billingPeriod"`

	// LastUpdated is when the pricing data was captured
	LastUpdated time.Time `json:"lastUpdated"`

	// Tiers are the published plans, in ascending price order by
	// convention
	Tiers []Tier `json:"tiers"`

	// Services are pay-per-use rates published alongside the plans
	Services []ServiceRate `json:"services,omitempty"`

	// RegionMultipliers scale usage-driven cost per deployment region
	RegionMultipliers map[string]float64 `json:"regionMultipliers,omitempty"`

	// AnnualDiscount is the fractional discount for yearly commitment
	AnnualDiscount float64 `json:"annualDiscount,omitempty"`

	// Source indicates where the pricing data came from
	Source string `json:"source,omitempty"`
}

// TierByName finds a tier by name, case-insensitively
func (s *PricingSnapshot) TierByName(name string) (Tier, bool) {
	for _, t := range s.Tiers {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Tier{}, false
}

// ServiceByName finds a service rate by name, case-insensitively
func (s *PricingSnapshot) ServiceByName(name string) (ServiceRate, bool) {
	for _, sr := range s.Services {
		if strings.EqualFold(sr.Name, name) {
			return sr, true
		}
	}
	return ServiceRate{}, false
}

// Tier is a named pricing plan bundling a base price, included usage
// limits, and feature tags.
type Tier struct {
	// Name is unique within a snapshot
	Name string `json:"name"`

	// BasePrice is the recurring plan price, or the custom sentinel
	BasePrice Price `json:"basePrice"`

	// Limits maps dimension names to included quotas
	Limits map[string]Quantity `json:"limits,omitempty"`

	// Features are marketing feature tags, uninterpreted
	Features []string `json:"features,omitempty"`
}

// LimitFor returns the tier's included quota for a dimension
func (t Tier) LimitFor(d Dimension) (Quantity, bool) {
	q, ok := t.Limits[d.String()]
	return q, ok
}

// ServiceRate is a pay-per-use rate. Its name matches the usage
// dimension it bills.
type ServiceRate struct {
	// Name matches a usage dimension
	Name string `json:"name"`

	// Unit is the billing unit (e.g. "GB", "request")
	Unit string `json:"unit"`

	// Price is the per-unit price
	Price Price `json:"price"`

	// FreeQuota is the allowance applied when the selected tier
	// declares no limit for this dimension
	FreeQuota *Quantity `json:"freeQuota,omitempty"`
}
