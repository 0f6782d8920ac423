// Package diff detects and classifies changes between two pricing
// snapshots of the same provider. Tiers and services are matched by
// name; anything unmatched is an addition or removal.
package diff

import (
	"fmt"
	"math"
	"strings"
	"time"

	"hostcost/core/types"
)

// Significance grades how disruptive a pricing change is
type Significance int

const (
	SignificanceNone     Significance = iota // no changes
	SignificanceMinor                        // changes below every escalation rule
	SignificanceMajor                        // removals, >5% shifts, or broad structural change
	SignificanceCritical                     // price shift beyond 20%
)

// String returns the significance name
func (s Significance) String() string {
	switch s {
	case SignificanceNone:
		return "none"
	case SignificanceMinor:
		return "minor"
	case SignificanceMajor:
		return "major"
	case SignificanceCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// AtLeast reports whether this significance meets a threshold
func (s Significance) AtLeast(threshold Significance) bool {
	return s >= threshold
}

// TierChange describes one tier present in both snapshots whose
// pricing or quotas moved
type TierChange struct {
	// Name is the tier name as published in the new snapshot
	Name string `json:"name"`

	// OldPrice and NewPrice are the base prices on either side
	OldPrice types.Price `json:"oldPrice"`
	NewPrice types.Price `json:"newPrice"`

	// PercentChange is the base price shift in percent. Shifts from
	// zero count as 100; shifts involving custom pricing count as zero
	// and register as structural instead.
	PercentChange float64 `json:"percentChange"`

	// ChangedLimits names the quota dimensions that moved
	ChangedLimits []string `json:"changedLimits,omitempty"`
}

// ServiceChange describes one pay-per-use rate that moved
type ServiceChange struct {
	// Name is the rate name as published in the new snapshot
	Name string `json:"name"`

	// OldPrice and NewPrice are the per-unit prices on either side
	OldPrice types.Price `json:"oldPrice"`
	NewPrice types.Price `json:"newPrice"`

	// PercentChange is the per-unit price shift in percent
	PercentChange float64 `json:"percentChange"`

	// UnitChanged marks a billing unit redefinition
	UnitChanged bool `json:"unitChanged,omitempty"`

	// QuotaChanged marks a free quota move
	QuotaChanged bool `json:"quotaChanged,omitempty"`
}

// ChangeReport is the complete diff between two snapshots of one
// provider's pricing
type ChangeReport struct {
	// Provider the report refers to
	Provider types.Provider `json:"provider"`

	// OldCaptured and NewCaptured are the snapshot capture times
	OldCaptured time.Time `json:"oldCaptured,omitempty"`
	NewCaptured time.Time `json:"newCaptured,omitempty"`

	// FirstObservation marks a comparison with no prior snapshot. The
	// report counts as changed but itemizes nothing.
	FirstObservation bool `json:"firstObservation,omitempty"`

	// HasChanges reports whether anything differs
	HasChanges bool `json:"hasChanges"`

	// Added, removed and changed tiers, matched by name
	AddedTiers   []string     `json:"addedTiers,omitempty"`
	RemovedTiers []string     `json:"removedTiers,omitempty"`
	ChangedTiers []TierChange `json:"changedTiers,omitempty"`

	// Added, removed and changed pay-per-use rates, matched by name
	AddedServices   []string        `json:"addedServices,omitempty"`
	RemovedServices []string        `json:"removedServices,omitempty"`
	ChangedServices []ServiceChange `json:"changedServices,omitempty"`

	// Document-level redefinitions
	CurrencyChanged bool `json:"currencyChanged,omitempty"`
	PeriodChanged   bool `json:"periodChanged,omitempty"`
	DiscountChanged bool `json:"discountChanged,omitempty"`

	// MaxPercentShift is the signed largest-magnitude price shift
	// across all changed tiers and services
	MaxPercentShift float64 `json:"maxPercentShift,omitempty"`

	// Significance grades the report overall
	Significance Significance `json:"significance"`
}

// ChangeCount returns the number of itemized changes
func (r *ChangeReport) ChangeCount() int {
	return len(r.AddedTiers) + len(r.RemovedTiers) + len(r.ChangedTiers) +
		len(r.AddedServices) + len(r.RemovedServices) + len(r.ChangedServices)
}

// structuralChanges counts the non-price shape changes: entries
// appearing or disappearing, quota and unit moves, and document-level
// redefinitions.
func (r *ChangeReport) structuralChanges() int {
	n := len(r.AddedTiers) + len(r.RemovedTiers) + len(r.AddedServices) + len(r.RemovedServices)
	for _, tc := range r.ChangedTiers {
		n += len(tc.ChangedLimits)
		if tc.OldPrice.IsCustom() != tc.NewPrice.IsCustom() {
			n++
		}
	}
	for _, sc := range r.ChangedServices {
		if sc.UnitChanged {
			n++
		}
		if sc.QuotaChanged {
			n++
		}
		if sc.OldPrice.IsCustom() != sc.NewPrice.IsCustom() {
			n++
		}
	}
	if r.CurrencyChanged {
		n++
	}
	if r.PeriodChanged {
		n++
	}
	if r.DiscountChanged {
		n++
	}
	return n
}

// classify grades the report. The rules apply in strict precedence:
// any shift beyond 20% is critical; a tier removal is major; shifts
// beyond 5% or more than two structural changes are major; anything
// else that changed is minor.
func (r *ChangeReport) classify() Significance {
	if !r.HasChanges {
		return SignificanceNone
	}
	if math.Abs(r.MaxPercentShift) > 20 {
		return SignificanceCritical
	}
	if len(r.RemovedTiers) > 0 {
		return SignificanceMajor
	}
	if math.Abs(r.MaxPercentShift) > 5 || r.structuralChanges() > 2 {
		return SignificanceMajor
	}
	return SignificanceMinor
}

// Summary returns a one-line human-readable description
func (r *ChangeReport) Summary() string {
	if r.FirstObservation {
		return fmt.Sprintf("%s: first pricing observation", r.Provider)
	}
	if !r.HasChanges {
		return fmt.Sprintf("%s: no pricing changes", r.Provider)
	}

	var parts []string
	if n := len(r.AddedTiers); n > 0 {
		parts = append(parts, fmt.Sprintf("%d tiers added", n))
	}
	if n := len(r.RemovedTiers); n > 0 {
		parts = append(parts, fmt.Sprintf("%d tiers removed", n))
	}
	if n := len(r.ChangedTiers); n > 0 {
		parts = append(parts, fmt.Sprintf("%d tiers changed", n))
	}
	if n := len(r.AddedServices); n > 0 {
		parts = append(parts, fmt.Sprintf("%d rates added", n))
	}
	if n := len(r.RemovedServices); n > 0 {
		parts = append(parts, fmt.Sprintf("%d rates removed", n))
	}
	if n := len(r.ChangedServices); n > 0 {
		parts = append(parts, fmt.Sprintf("%d rates changed", n))
	}
	if r.CurrencyChanged {
		parts = append(parts, "currency changed")
	}
	if r.PeriodChanged {
		parts = append(parts, "billing period changed")
	}
	if r.DiscountChanged {
		parts = append(parts, "annual discount changed")
	}
	return fmt.Sprintf("%s: %s (%s)", r.Provider, strings.Join(parts, ", "), r.Significance)
}
