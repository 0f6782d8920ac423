// Package tier resolves the applicable pricing tier for a usage
// description: an explicit hint wins, then magnitude-bucket matching
// against the provider's preferred plans, then a cheapest-fit fallback.
package tier

import (
	"hostcost/core/types"
	"hostcost/core/units"
)

// Bucket is a usage magnitude class
type Bucket string

const (
	BucketFree       Bucket = "free"
	BucketLow        Bucket = "low"
	BucketMedium     Bucket = "medium"
	BucketHigh       Bucket = "high"
	BucketEnterprise Bucket = "enterprise"
)

// String returns the string representation
func (b Bucket) String() string {
	return string(b)
}

// Rank orders buckets by magnitude
func (b Bucket) Rank() int {
	switch b {
	case BucketFree:
		return 0
	case BucketLow:
		return 1
	case BucketMedium:
		return 2
	case BucketHigh:
		return 3
	case BucketEnterprise:
		return 4
	default:
		return -1
	}
}

// Fixed monthly classification thresholds. A usage vector classifies
// into the bucket of its heaviest dimension.
const (
	freeRequestsCeiling   = 10_000
	lowRequestsCeiling    = 1_000_000
	mediumRequestsCeiling = 10_000_000
	highRequestsCeiling   = 100_000_000

	freeBandwidthCeilingGB   = 1
	lowBandwidthCeilingGB    = 100
	mediumBandwidthCeilingGB = 1_000
	highBandwidthCeilingGB   = 10_000
)

// Classify places a usage vector into a magnitude bucket using fixed
// thresholds on monthly request volume and bandwidth. Quantities that
// cannot be resolved are ignored here; billing reports them.
func Classify(usage *types.UsageVector) Bucket {
	monthly := monthlyQuantities(usage)

	bucket := BucketFree
	if v, ok := monthly[types.DimensionRequests]; ok {
		bucket = maxBucket(bucket, bucketFor(v,
			freeRequestsCeiling, lowRequestsCeiling, mediumRequestsCeiling, highRequestsCeiling))
	}
	if v, ok := monthly[types.DimensionBandwidth]; ok {
		bucket = maxBucket(bucket, bucketFor(v,
			freeBandwidthCeilingGB, lowBandwidthCeilingGB, mediumBandwidthCeilingGB, highBandwidthCeilingGB))
	}
	return bucket
}

func bucketFor(v, freeCeil, lowCeil, mediumCeil, highCeil float64) Bucket {
	switch {
	case v < freeCeil:
		return BucketFree
	case v < lowCeil:
		return BucketLow
	case v < mediumCeil:
		return BucketMedium
	case v < highCeil:
		return BucketHigh
	default:
		return BucketEnterprise
	}
}

func maxBucket(a, b Bucket) Bucket {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// monthlyQuantities resolves the usable usage dimensions and normalizes
// them to monthly figures. The unlimited sentinel is never scaled.
func monthlyQuantities(usage *types.UsageVector) map[types.Dimension]float64 {
	out := make(map[types.Dimension]float64)
	if usage == nil {
		return out
	}

	factor, ok := usage.Period.MonthlyFactor()
	if !ok {
		factor = 1
	}

	for _, dq := range usage.Dimensions() {
		v, err := dq.Quantity.Resolve()
		if err != nil {
			continue
		}
		if units.IsUnlimited(v) {
			out[dq.Dimension] = v
			continue
		}
		out[dq.Dimension] = v * factor
	}
	return out
}
