package diff

import (
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"hostcost/core/types"
	"hostcost/internal/logging"
)

// Detector computes change reports between pricing snapshots
type Detector struct {
	log *zap.Logger
}

// NewDetector creates a pricing change detector
func NewDetector() *Detector {
	return &Detector{log: logging.Named("diff")}
}

// Compare diffs two snapshots of one provider's pricing. A nil side
// means no snapshot existed there: comparing nil against anything is a
// first observation, changed but with nothing to itemize.
func (d *Detector) Compare(oldSnap, newSnap *types.PricingSnapshot) *ChangeReport {
	if oldSnap == nil && newSnap == nil {
		return &ChangeReport{Significance: SignificanceNone}
	}
	if oldSnap == nil || newSnap == nil {
		present := oldSnap
		if present == nil {
			present = newSnap
		}
		r := &ChangeReport{
			Provider:         present.Provider,
			FirstObservation: true,
			HasChanges:       true,
		}
		if oldSnap != nil {
			r.OldCaptured = oldSnap.LastUpdated
		}
		if newSnap != nil {
			r.NewCaptured = newSnap.LastUpdated
		}
		r.Significance = r.classify()
		return r
	}

	r := &ChangeReport{
		Provider:    newSnap.Provider,
		OldCaptured: oldSnap.LastUpdated,
		NewCaptured: newSnap.LastUpdated,
	}

	d.compareTiers(oldSnap, newSnap, r)
	d.compareServices(oldSnap, newSnap, r)

	r.CurrencyChanged = oldSnap.Currency != newSnap.Currency
	r.PeriodChanged = oldSnap.BillingPeriod != newSnap.BillingPeriod
	r.DiscountChanged = oldSnap.AnnualDiscount != newSnap.AnnualDiscount

	r.HasChanges = r.ChangeCount() > 0 || r.CurrencyChanged || r.PeriodChanged || r.DiscountChanged
	r.Significance = r.classify()

	d.log.Debug("Compared pricing snapshots",
		zap.String("provider", newSnap.Provider.String()),
		zap.Int("changes", r.ChangeCount()),
		zap.String("significance", r.Significance.String()))
	return r
}

func (d *Detector) compareTiers(oldSnap, newSnap *types.PricingSnapshot, r *ChangeReport) {
	oldByName := make(map[string]types.Tier, len(oldSnap.Tiers))
	for _, t := range oldSnap.Tiers {
		oldByName[strings.ToLower(t.Name)] = t
	}

	seen := make(map[string]bool, len(newSnap.Tiers))
	for _, newTier := range newSnap.Tiers {
		key := strings.ToLower(newTier.Name)
		seen[key] = true

		oldTier, existed := oldByName[key]
		if !existed {
			r.AddedTiers = append(r.AddedTiers, newTier.Name)
			continue
		}
		if change, changed := diffTier(oldTier, newTier); changed {
			r.ChangedTiers = append(r.ChangedTiers, change)
			r.MaxPercentShift = largerShift(r.MaxPercentShift, change.PercentChange)
		}
	}

	for _, oldTier := range oldSnap.Tiers {
		if !seen[strings.ToLower(oldTier.Name)] {
			r.RemovedTiers = append(r.RemovedTiers, oldTier.Name)
		}
	}
}

func (d *Detector) compareServices(oldSnap, newSnap *types.PricingSnapshot, r *ChangeReport) {
	oldByName := make(map[string]types.ServiceRate, len(oldSnap.Services))
	for _, s := range oldSnap.Services {
		oldByName[strings.ToLower(s.Name)] = s
	}

	seen := make(map[string]bool, len(newSnap.Services))
	for _, newRate := range newSnap.Services {
		key := strings.ToLower(newRate.Name)
		seen[key] = true

		oldRate, existed := oldByName[key]
		if !existed {
			r.AddedServices = append(r.AddedServices, newRate.Name)
			continue
		}
		if change, changed := diffService(oldRate, newRate); changed {
			r.ChangedServices = append(r.ChangedServices, change)
			r.MaxPercentShift = largerShift(r.MaxPercentShift, change.PercentChange)
		}
	}

	for _, oldRate := range oldSnap.Services {
		if !seen[strings.ToLower(oldRate.Name)] {
			r.RemovedServices = append(r.RemovedServices, oldRate.Name)
		}
	}
}

func diffTier(oldTier, newTier types.Tier) (TierChange, bool) {
	changedLimits := diffLimits(oldTier.Limits, newTier.Limits)
	if oldTier.BasePrice.Equal(newTier.BasePrice) && len(changedLimits) == 0 {
		return TierChange{}, false
	}
	return TierChange{
		Name:          newTier.Name,
		OldPrice:      oldTier.BasePrice,
		NewPrice:      newTier.BasePrice,
		PercentChange: percentShift(oldTier.BasePrice, newTier.BasePrice),
		ChangedLimits: changedLimits,
	}, true
}

func diffService(oldRate, newRate types.ServiceRate) (ServiceChange, bool) {
	change := ServiceChange{
		Name:        newRate.Name,
		OldPrice:    oldRate.Price,
		NewPrice:    newRate.Price,
		UnitChanged: oldRate.Unit != newRate.Unit,
	}

	switch {
	case oldRate.FreeQuota == nil && newRate.FreeQuota == nil:
	case oldRate.FreeQuota == nil || newRate.FreeQuota == nil:
		change.QuotaChanged = true
	default:
		change.QuotaChanged = !quantityEqual(*oldRate.FreeQuota, *newRate.FreeQuota)
	}

	if oldRate.Price.Equal(newRate.Price) {
		if !change.UnitChanged && !change.QuotaChanged {
			return ServiceChange{}, false
		}
		return change, true
	}
	change.PercentChange = percentShift(oldRate.Price, newRate.Price)
	return change, true
}

// diffLimits returns the sorted dimension names whose quota differs
// between two limit sets, including quotas only one side declares.
func diffLimits(oldLimits, newLimits map[string]types.Quantity) []string {
	names := make(map[string]bool, len(oldLimits)+len(newLimits))
	for name := range oldLimits {
		names[name] = true
	}
	for name := range newLimits {
		names[name] = true
	}

	var changed []string
	for name := range names {
		oldQ, oldOk := oldLimits[name]
		newQ, newOk := newLimits[name]
		if oldOk != newOk || !quantityEqual(oldQ, newQ) {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}

// quantityEqual compares quotas by normalized value, so "100gb" equals
// a plain 100. Unresolvable quantities fall back to their authored form.
func quantityEqual(a, b types.Quantity) bool {
	av, aerr := a.Resolve()
	bv, berr := b.Resolve()
	if aerr != nil || berr != nil {
		return a.String() == b.String()
	}
	return av == bv
}

// percentShift computes the price change in percent. A shift from zero
// counts as 100; shifts involving custom pricing count as zero and
// surface through the structural rules instead.
func percentShift(oldPrice, newPrice types.Price) float64 {
	if oldPrice.IsCustom() || newPrice.IsCustom() {
		return 0
	}
	o := oldPrice.Decimal().InexactFloat64()
	n := newPrice.Decimal().InexactFloat64()
	if o == 0 {
		if n == 0 {
			return 0
		}
		return 100
	}
	return (n - o) / o * 100
}

// largerShift keeps the signed shift of larger magnitude
func largerShift(current, candidate float64) float64 {
	if math.Abs(candidate) > math.Abs(current) {
		return candidate
	}
	return current
}
