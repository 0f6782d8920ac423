package tier

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"hostcost/core/profile"
	"hostcost/core/types"
	"hostcost/core/units"
	"hostcost/internal/errors"
	"hostcost/internal/logging"
)

// Method records how a tier was chosen
type Method string

const (
	// MethodHint means the caller named the tier and it exists
	MethodHint Method = "hint"

	// MethodBucket means the provider's preferred plan for the usage
	// bucket was published
	MethodBucket Method = "bucket"

	// MethodFallback means no preferred plan matched and the cheapest
	// published tier that fits the usage was taken
	MethodFallback Method = "fallback"
)

// Selection is the outcome of tier resolution
type Selection struct {
	// Tier is the chosen pricing tier
	Tier types.Tier

	// Method records which resolution stage produced the choice
	Method Method

	// Bucket is the usage magnitude class, empty for hint selections
	Bucket Bucket

	// Notes carries human-readable remarks about the resolution
	Notes []string
}

// Selector resolves tiers against provider plan profiles
type Selector struct {
	profiles *profile.Catalog
	log      *zap.Logger
}

// NewSelector creates a tier selector backed by a plan profile catalog
func NewSelector(profiles *profile.Catalog) *Selector {
	return &Selector{
		profiles: profiles,
		log:      logging.Named("tier"),
	}
}

// Select resolves the tier to bill for the given usage. A hint naming a
// published tier short-circuits resolution; a hint naming an unknown
// tier is noted and resolution falls through to usage classification.
func (s *Selector) Select(snapshot *types.PricingSnapshot, usage *types.UsageVector, hint string) (*Selection, error) {
	if snapshot == nil || len(snapshot.Tiers) == 0 {
		provider := ""
		if snapshot != nil {
			provider = snapshot.Provider.String()
		}
		return nil, errors.NoTier(provider)
	}

	var notes []string
	if hint != "" {
		if t, ok := snapshot.TierByName(hint); ok {
			return &Selection{Tier: t, Method: MethodHint}, nil
		}
		notes = append(notes, fmt.Sprintf("hinted tier %q is not published by %s, resolving from usage", hint, snapshot.Provider))
		s.log.Warn("Tier hint not published",
			zap.String("hint", hint),
			zap.String("provider", snapshot.Provider.String()))
	}

	if usage != nil && !usage.Period.IsValid() {
		return nil, errors.Validation(fmt.Sprintf("usage period %q is not a known billing period", usage.Period))
	}

	bucket := Classify(usage)
	prof := s.profiles.For(snapshot.Provider)
	for _, name := range prof.Preference {
		if !prof.ServesBucket(name, bucket.String()) {
			continue
		}
		if t, ok := snapshot.TierByName(name); ok {
			return &Selection{Tier: t, Method: MethodBucket, Bucket: bucket, Notes: notes}, nil
		}
	}

	return s.fallback(snapshot, usage, bucket, notes)
}

// fallback walks the published tiers from cheapest to priciest and
// takes the first whose declared limits cover the usage. When nothing
// covers it, the largest tier absorbs the overflow as overage.
func (s *Selector) fallback(snapshot *types.PricingSnapshot, usage *types.UsageVector, bucket Bucket, notes []string) (*Selection, error) {
	ordered := tiersByPrice(snapshot.Tiers)
	monthly := monthlyQuantities(usage)

	for _, t := range ordered {
		if covers(t, monthly) {
			notes = append(notes, fmt.Sprintf("no preferred %s plan published, selected cheapest fitting tier %q", bucket, t.Name))
			return &Selection{Tier: t, Method: MethodFallback, Bucket: bucket, Notes: notes}, nil
		}
	}

	last := ordered[len(ordered)-1]
	notes = append(notes, fmt.Sprintf("no published tier covers the usage, selected largest tier %q", last.Name))
	s.log.Debug("Usage exceeds every published tier",
		zap.String("provider", snapshot.Provider.String()),
		zap.String("tier", last.Name))
	return &Selection{Tier: last, Method: MethodFallback, Bucket: bucket, Notes: notes}, nil
}

// covers reports whether every declared tier limit accommodates the
// corresponding usage dimension. Dimensions the tier does not limit are
// unconstrained.
func covers(t types.Tier, monthly map[types.Dimension]float64) bool {
	for dim, used := range monthly {
		limit, ok := t.LimitFor(dim)
		if !ok {
			continue
		}
		max, err := limit.Resolve()
		if err != nil {
			continue
		}
		if units.IsUnlimited(max) {
			continue
		}
		if used > max {
			return false
		}
	}
	return true
}

// tiersByPrice orders tiers by ascending base price, custom-priced
// tiers last, preserving publication order between equals.
func tiersByPrice(tiers []types.Tier) []types.Tier {
	ordered := make([]types.Tier, len(tiers))
	copy(ordered, tiers)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].BasePrice, ordered[j].BasePrice
		if a.IsCustom() != b.IsCustom() {
			return b.IsCustom()
		}
		if a.IsCustom() {
			return false
		}
		return a.Decimal().LessThan(b.Decimal())
	})
	return ordered
}
