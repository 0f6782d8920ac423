// Package billing turns a selected tier, effective pricing and a usage
// vector into an itemized cost breakdown. All arithmetic happens on
// monthly-normalized figures; only the usage-driven portion of a bill
// is subject to the regional and peak multipliers.
package billing

import "math"

// RegionalMultiplier computes the geo-weighted cost multiplier for a
// deployment spread across regions. Weights are normalized before
// averaging, so they need not sum to one. Regions the snapshot carries
// no multiplier for count as 1.0, and an empty or all-invalid spread
// yields the neutral multiplier.
func RegionalMultiplier(multipliers map[string]float64, regions map[string]float64) float64 {
	var weighted, total float64
	for region, weight := range regions {
		if weight <= 0 {
			continue
		}
		m, ok := multipliers[region]
		if !ok || m <= 0 {
			m = 1.0
		}
		weighted += weight * m
		total += weight
	}
	if total <= 0 {
		return 1.0
	}
	return weighted / total
}

// PeakMultiplier damps a peak-to-average load ratio into a cost
// multiplier. Providers absorb bursts well below linearly, so the ratio
// enters as its square root. Ratios at or below one are neutral.
func PeakMultiplier(factor float64) float64 {
	if factor <= 1 {
		return 1.0
	}
	return math.Sqrt(factor)
}
