// Package pricing - Effective pricing result
package pricing

import (
	"time"

	"hostcost/core/types"
	"hostcost/internal/errors"
)

// EffectivePricing is the result of applying override layers to a base
// snapshot. It is derived state: recomputed on demand, memoizable per
// (base fingerprint, override-set version), never persisted.
type EffectivePricing struct {
	// Snapshot is the composed pricing
	Snapshot types.PricingSnapshot `json:"snapshot"`

	// BaseFingerprint identifies the base snapshot this was derived
	// from
	BaseFingerprint string `json:"baseFingerprint"`

	// OverrideVersion is the override-set version composed against,
	// zero when composed outside a store
	OverrideVersion uint64 `json:"overrideVersion,omitempty"`

	// OverridesApplied counts the overrides that took effect
	OverridesApplied int `json:"overridesApplied"`

	// Issues lists overrides that were skipped, with the reason
	Issues []*errors.Error `json:"issues,omitempty"`

	// ComposedAt is when the composition ran
	ComposedAt time.Time `json:"composedAt"`
}

// Degraded reports whether any override failed to apply
func (e *EffectivePricing) Degraded() bool {
	return len(e.Issues) > 0
}
