// Package types - Usage description types
package types

import (
	"strconv"
	"strings"

	"hostcost/core/units"
)

// Quantity is a usage or limit scalar that may be authored as a plain
// number or as a string with unit suffixes ("100gb", "250k",
// "unlimited"). String forms normalize on decode; an unparseable string
// is carried rather than failing the whole document, and surfaces when
// the quantity is first resolved.
type Quantity struct {
	// Raw is the authored string form, empty when numeric
	Raw string

	// Value is the normalized quantity in base units
	Value float64

	// Err is the deferred parse failure, nil when Value is usable
	Err error
}

// QuantityOf builds a quantity from a plain number
func QuantityOf(v float64) Quantity {
	return Quantity{Value: v}
}

// ParseQuantity normalizes an authored string. Parse failures are
// deferred into the returned quantity, never returned here.
func ParseQuantity(raw string) Quantity {
	v, err := units.Parse(raw)
	if err != nil {
		return Quantity{Raw: raw, Err: err}
	}
	return Quantity{Raw: raw, Value: v}
}

// UnlimitedQuantity builds the unlimited sentinel
func UnlimitedQuantity() Quantity {
	return Quantity{Raw: "unlimited", Value: units.Unlimited}
}

// Resolve returns the normalized value or the deferred parse error
func (q Quantity) Resolve() (float64, error) {
	if q.Err != nil {
		return 0, q.Err
	}
	return q.Value, nil
}

// IsUnlimited reports whether the quantity is the unlimited sentinel
func (q Quantity) IsUnlimited() bool {
	return q.Err == nil && units.IsUnlimited(q.Value)
}

// String returns the authored representation
func (q Quantity) String() string {
	if q.Raw != "" {
		return q.Raw
	}
	return strconv.FormatFloat(q.Value, 'f', -1, 64)
}

// MarshalJSON preserves the authored form when one exists
func (q Quantity) MarshalJSON() ([]byte, error) {
	if q.Raw != "" {
		return []byte(strconv.Quote(q.Raw)), nil
	}
	return []byte(strconv.FormatFloat(q.Value, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts a JSON number or an authored quantity string
func (q *Quantity) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*q = Quantity{}
		return nil
	}

	if s[0] == '"' {
		raw, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		*q = ParseQuantity(raw)
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*q = Quantity{Value: v}
	return nil
}

// UsageVector describes expected usage for one billing period. It is
// always caller-supplied and never persisted as pricing state.
type UsageVector struct {
	// Period is the period the quantities refer to (required)
	Period BillingPeriod `json:"period"`

	// Requests is request volume per period
	Requests *Quantity `json:"requests,omitempty"`

	// Bandwidth is data transfer per period, in gigabytes
	Bandwidth *Quantity `json:"bandwidth,omitempty"`

	// Storage is data at rest, in gigabytes
	Storage *Quantity `json:"storage,omitempty"`

	// ComputeHours is compute time per period, in hours
	ComputeHours *Quantity `json:"computeHours,omitempty"`

	// ConcurrentUsers is peak concurrent users
	ConcurrentUsers *Quantity `json:"concurrentUsers,omitempty"`

	// Regions weights the deployment's geographic distribution.
	// Weights need not sum to one; they are normalized when applied.
	Regions map[string]float64 `json:"regions,omitempty"`

	// PeakFactor is the peak-to-average load ratio, treated as 1.0
	// when absent or below 1
	PeakFactor float64 `json:"peakFactor,omitempty"`
}

// DimensionQuantity pairs a dimension with its usage quantity
type DimensionQuantity struct {
	Dimension Dimension
	Quantity  Quantity
}

// Dimensions returns the populated usage dimensions in canonical order
func (u *UsageVector) Dimensions() []DimensionQuantity {
	fields := []struct {
		dim Dimension
		q   *Quantity
	}{
		{DimensionRequests, u.Requests},
		{DimensionBandwidth, u.Bandwidth},
		{DimensionStorage, u.Storage},
		{DimensionCompute, u.ComputeHours},
		{DimensionUsers, u.ConcurrentUsers},
	}

	out := make([]DimensionQuantity, 0, len(fields))
	for _, f := range fields {
		if f.q != nil {
			out = append(out, DimensionQuantity{Dimension: f.dim, Quantity: *f.q})
		}
	}
	return out
}

// Get returns the quantity for a dimension
func (u *UsageVector) Get(d Dimension) (Quantity, bool) {
	for _, dq := range u.Dimensions() {
		if dq.Dimension == d {
			return dq.Quantity, true
		}
	}
	return Quantity{}, false
}
