// Package pricing - Structural snapshot validation
package pricing

import (
	"fmt"
	"sort"
	"strings"

	"hostcost/core/types"
)

// ValidationResult collects field-level messages from structural
// validation. Errors make the snapshot unusable; warnings flag soft
// invariant violations that billing tolerates.
type ValidationResult struct {
	// Errors are field-level failures, never a single opaque message
	Errors []string `json:"errors,omitempty"`

	// Warnings are soft invariant violations
	Warnings []string `json:"warnings,omitempty"`
}

// Valid reports whether the snapshot passed
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks a snapshot's structure. Every problem is reported as
// its own field-level message; validation never stops at the first.
func Validate(s *types.PricingSnapshot) ValidationResult {
	var result ValidationResult

	if s == nil {
		result.errorf("snapshot: nil")
		return result
	}

	if strings.TrimSpace(s.Provider.String()) == "" {
		result.errorf("provider: required")
	}
	if strings.TrimSpace(s.Currency.String()) == "" {
		result.errorf("currency: required")
	}
	if !s.BillingPeriod.IsValid() {
		result.errorf("billingPeriod: unknown period %q", s.BillingPeriod)
	}
	if s.LastUpdated.IsZero() {
		result.warnf("lastUpdated: missing capture timestamp")
	}
	if len(s.Tiers) == 0 {
		result.warnf("tiers: snapshot publishes no tiers; tier selection will fail")
	}

	seenTiers := make(map[string]bool)
	for i, tier := range s.Tiers {
		prefix := fmt.Sprintf("tiers[%d]", i)

		name := strings.ToLower(strings.TrimSpace(tier.Name))
		if name == "" {
			result.errorf("%s.name: required", prefix)
		} else if seenTiers[name] {
			result.errorf("%s.name: duplicate tier name %q", prefix, tier.Name)
		}
		seenTiers[name] = true

		if !tier.BasePrice.IsCustom() && tier.BasePrice.Decimal().IsNegative() {
			result.errorf("%s.basePrice: negative price %s", prefix, tier.BasePrice)
		}

		for _, dim := range sortedKeys(tier.Limits) {
			limit := tier.Limits[dim]
			if limit.Err != nil {
				result.errorf("%s.limits.%s: unparseable quantity %q", prefix, dim, limit.Raw)
			} else if limit.Value < 0 {
				result.errorf("%s.limits.%s: negative limit", prefix, dim)
			}
		}
	}

	seenServices := make(map[string]bool)
	for i, svc := range s.Services {
		prefix := fmt.Sprintf("services[%d]", i)

		name := strings.ToLower(strings.TrimSpace(svc.Name))
		if name == "" {
			result.errorf("%s.name: required", prefix)
		} else if seenServices[name] {
			result.errorf("%s.name: duplicate service name %q", prefix, svc.Name)
		}
		seenServices[name] = true

		if !svc.Price.IsCustom() && svc.Price.Decimal().IsNegative() {
			result.errorf("%s.price: negative price %s", prefix, svc.Price)
		}
		if svc.FreeQuota != nil {
			if svc.FreeQuota.Err != nil {
				result.errorf("%s.freeQuota: unparseable quantity %q", prefix, svc.FreeQuota.Raw)
			} else if svc.FreeQuota.Value < 0 {
				result.errorf("%s.freeQuota: negative quota", prefix)
			}
		}
	}

	for _, region := range sortedKeys(s.RegionMultipliers) {
		if mult := s.RegionMultipliers[region]; mult <= 0 {
			result.errorf("regionMultipliers.%s: multiplier must be positive, got %g", region, mult)
		}
	}

	if s.AnnualDiscount < 0 || s.AnnualDiscount >= 1 {
		result.errorf("annualDiscount: must be in [0, 1), got %g", s.AnnualDiscount)
	}

	checkTierMonotonicity(s, &result)

	return result
}

// sortedKeys returns map keys in sorted order so messages come out
// deterministically
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// checkTierMonotonicity flags tiers whose base price decreases relative
// to their predecessor. The published convention is ascending price
// order; violations are warnings, not fatal.
func checkTierMonotonicity(s *types.PricingSnapshot, result *ValidationResult) {
	var prev *types.Tier
	for i := range s.Tiers {
		tier := &s.Tiers[i]
		if tier.BasePrice.IsCustom() {
			// Custom-priced tiers sort last by convention and carry no
			// comparable amount
			prev = nil
			continue
		}
		if prev != nil && tier.BasePrice.Decimal().LessThan(prev.BasePrice.Decimal()) {
			result.warnf("tiers[%d] (%s): base price %s below preceding tier %s",
				i, tier.Name, tier.BasePrice, prev.BasePrice)
		}
		prev = tier
	}
}
