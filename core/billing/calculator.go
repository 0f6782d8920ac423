package billing

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hostcost/core/types"
	"hostcost/core/units"
	"hostcost/internal/errors"
	"hostcost/internal/logging"
)

// Calculator computes itemized monthly and yearly cost estimates
type Calculator struct {
	log *zap.Logger
}

// NewCalculator creates a cost calculator
func NewCalculator() *Calculator {
	return &Calculator{log: logging.Named("billing")}
}

// Bill computes the itemized breakdown for usage billed against one
// plan of a provider's pricing. Quantities that cannot be read degrade
// their own dimension and are reported on the breakdown; only a missing
// snapshot, missing usage, or an unknown usage period fail the call.
func (c *Calculator) Bill(snapshot *types.PricingSnapshot, plan types.Tier, usage *types.UsageVector) (*types.CostBreakdown, error) {
	return c.bill(snapshot, &plan, usage)
}

// BillServices bills usage against a snapshot's pay-per-use rates
// alone, with no plan base price and no plan quotas. Ancillary
// components such as managed databases are billed this way.
func (c *Calculator) BillServices(snapshot *types.PricingSnapshot, usage *types.UsageVector) (*types.CostBreakdown, error) {
	return c.bill(snapshot, nil, usage)
}

func (c *Calculator) bill(snapshot *types.PricingSnapshot, plan *types.Tier, usage *types.UsageVector) (*types.CostBreakdown, error) {
	if snapshot == nil {
		return nil, errors.Validation("pricing snapshot required")
	}
	if usage == nil {
		return nil, errors.Validation("usage vector required")
	}
	usageFactor, ok := usage.Period.MonthlyFactor()
	if !ok {
		return nil, errors.Validation(fmt.Sprintf("usage period %q is not a known billing period", usage.Period))
	}

	b := &types.CostBreakdown{
		Provider:           snapshot.Provider,
		ServiceCosts:       map[string]decimal.Decimal{},
		RegionalMultiplier: RegionalMultiplier(snapshot.RegionMultipliers, usage.Regions),
		PeakMultiplier:     PeakMultiplier(usage.PeakFactor),
		Currency:           snapshot.Currency,
		Period:             types.PeriodMonthly,
	}

	if plan != nil {
		b.Tier = plan.Name
		b.BaseCost = c.baseCost(snapshot, plan, b)
	}

	for _, dq := range usage.Dimensions() {
		c.billDimension(snapshot, plan, dq, usageFactor, b)
	}

	scale := decimal.NewFromFloat(b.RegionalMultiplier * b.PeakMultiplier)
	b.TotalCost = b.BaseCost.Add(b.UsageCost().Mul(scale))

	discount := snapshot.AnnualDiscount
	if discount < 0 || discount >= 1 {
		b.Warnings = append(b.Warnings, fmt.Sprintf("annual discount %g is out of range, ignored", discount))
		discount = 0
	}
	b.YearlyCost = b.TotalCost.
		Mul(decimal.NewFromFloat(units.MonthsPerYear)).
		Mul(decimal.NewFromFloat(1 - discount))

	c.log.Debug("Billed usage",
		zap.String("provider", snapshot.Provider.String()),
		zap.String("tier", b.Tier),
		zap.String("total", b.TotalCost.String()))
	return b, nil
}

// baseCost normalizes the plan's recurring price to a monthly figure.
// Custom-priced plans contribute zero and flag the breakdown.
func (c *Calculator) baseCost(snapshot *types.PricingSnapshot, plan *types.Tier, b *types.CostBreakdown) decimal.Decimal {
	if plan.BasePrice.IsCustom() {
		b.Warnings = append(b.Warnings,
			fmt.Sprintf("tier %q is custom-priced, base cost omitted; contact %s for a quote", plan.Name, snapshot.Provider))
		return decimal.Zero
	}

	factor, ok := snapshot.BillingPeriod.MonthlyFactor()
	if !ok {
		b.Assumptions = append(b.Assumptions,
			fmt.Sprintf("billing period %q is unknown, base price treated as monthly", snapshot.BillingPeriod))
		factor = 1
	}
	return plan.BasePrice.Decimal().Mul(decimal.NewFromFloat(factor))
}

// billDimension prices one usage dimension. The included quota comes
// from the plan limit when declared, else the service rate's free
// quota, else zero; only usage beyond the quota is ever charged.
func (c *Calculator) billDimension(snapshot *types.PricingSnapshot, plan *types.Tier, dq types.DimensionQuantity, usageFactor float64, b *types.CostBreakdown) {
	dim := dq.Dimension

	v, err := dq.Quantity.Resolve()
	if err != nil {
		b.Issues = append(b.Issues, errors.InvalidQuantity(dim.String(), dq.Quantity.String(), err))
		b.Warnings = append(b.Warnings,
			fmt.Sprintf("%s usage %q could not be read, dimension skipped", dim, dq.Quantity.String()))
		return
	}
	if units.IsUnlimited(v) {
		b.Assumptions = append(b.Assumptions,
			fmt.Sprintf("%s usage is unlimited and cannot be metered, dimension skipped", dim))
		return
	}
	used := v * usageFactor

	rate, hasRate := snapshot.ServiceByName(dim.String())

	quota := 0.0
	hasQuota := false
	if plan != nil {
		if limit, ok := plan.LimitFor(dim); ok {
			q, err := limit.Resolve()
			if err != nil {
				b.Issues = append(b.Issues, errors.InvalidQuantity(dim.String(), limit.String(), err))
				b.Warnings = append(b.Warnings,
					fmt.Sprintf("%s quota %q on tier %q could not be read, dimension skipped", dim, limit.String(), plan.Name))
				return
			}
			quota, hasQuota = q, true
		}
	}
	if !hasQuota && hasRate && rate.FreeQuota != nil {
		q, err := rate.FreeQuota.Resolve()
		if err != nil {
			b.Issues = append(b.Issues, errors.InvalidQuantity(dim.String(), rate.FreeQuota.String(), err))
			b.Warnings = append(b.Warnings,
				fmt.Sprintf("%s free quota %q could not be read, dimension skipped", dim, rate.FreeQuota.String()))
			return
		}
		quota, hasQuota = q, true
	}

	if !hasRate && !hasQuota {
		b.Assumptions = append(b.Assumptions,
			fmt.Sprintf("%s has no published rate or quota on %s, not billed", dim, snapshot.Provider))
		return
	}
	if hasQuota && units.IsUnlimited(quota) {
		b.Details = append(b.Details, fmt.Sprintf("%s: within unlimited quota", dim))
		return
	}

	over := used - quota
	if over <= 0 {
		if hasQuota {
			b.Details = append(b.Details,
				fmt.Sprintf("%s: %s within the included %s", dim, formatAmount(used), formatAmount(quota)))
		}
		return
	}
	if !hasRate {
		b.Assumptions = append(b.Assumptions,
			fmt.Sprintf("%s exceeds the included %s but %s publishes no overage rate, excess not billed", dim, formatAmount(quota), snapshot.Provider))
		return
	}
	if rate.Price.IsCustom() {
		b.Warnings = append(b.Warnings,
			fmt.Sprintf("%s overage is custom-priced by %s, excess not billed", dim, snapshot.Provider))
		return
	}

	cost := decimal.NewFromFloat(over).Mul(rate.Price.Decimal())
	b.ServiceCosts[dim.String()] = cost

	unit := rate.Unit
	if unit == "" {
		unit = "unit"
	}
	b.Details = append(b.Details,
		fmt.Sprintf("%s: %s over the included %s at %s/%s = %s", dim, formatAmount(over), formatAmount(quota), rate.Price, unit, cost))
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
