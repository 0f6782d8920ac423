// Package aggregate estimates whole workloads: each component is
// resolved and billed against its provider's effective pricing, and the
// per-component breakdowns roll up into one estimate.
package aggregate

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hostcost/core/billing"
	"hostcost/core/pricing"
	"hostcost/core/tier"
	"hostcost/core/types"
	"hostcost/internal/errors"
	"hostcost/internal/logging"
)

// PricingSource yields the effective pricing for a provider. The
// aggregator does not care where pricing comes from or which overrides
// shaped it.
type PricingSource interface {
	Effective(provider types.Provider) (*pricing.EffectivePricing, error)
}

// ComponentEstimate is the priced result for one workload component
type ComponentEstimate struct {
	// Component is the component name
	Component string `json:"component"`

	// Kind is the component classification
	Kind types.ComponentKind `json:"kind"`

	// Provider the component was priced against
	Provider types.Provider `json:"provider"`

	// Selection explains the tier choice, nil for ancillary components
	Selection *tier.Selection `json:"selection,omitempty"`

	// Breakdown is the itemized bill, nil when the component failed
	Breakdown *types.CostBreakdown `json:"breakdown,omitempty"`

	// Err is the failure that excluded this component from the totals
	Err *errors.Error `json:"error,omitempty"`
}

// WorkloadEstimate is the rolled-up estimate for a whole workload
type WorkloadEstimate struct {
	// Workload is the workload name
	Workload string `json:"workload"`

	// Environment is the target environment
	Environment string `json:"environment,omitempty"`

	// Components are the per-component results, in workload order
	Components []ComponentEstimate `json:"components"`

	// TotalMonthly and TotalYearly sum the successful components
	TotalMonthly decimal.Decimal `json:"totalMonthly"`
	TotalYearly  decimal.Decimal `json:"totalYearly"`

	// Currency is the estimate currency, taken from the first priced
	// component
	Currency types.Currency `json:"currency"`

	// Assumptions and Warnings merge the component breakdowns' notes,
	// prefixed with the component name
	Assumptions []string `json:"assumptions,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`

	// GeneratedAt is when the estimate was computed
	GeneratedAt time.Time `json:"generatedAt"`
}

// Degraded reports whether any component failed outright
func (e *WorkloadEstimate) Degraded() bool {
	for _, c := range e.Components {
		if c.Err != nil {
			return true
		}
	}
	return false
}

// Aggregator prices workloads component by component
type Aggregator struct {
	selector  *tier.Selector
	calc      *billing.Calculator
	preferred []types.Provider
	log       *zap.Logger
}

// NewAggregator creates a workload aggregator
func NewAggregator(selector *tier.Selector, calc *billing.Calculator) *Aggregator {
	return &Aggregator{
		selector: selector,
		calc:     calc,
		log:      logging.Named("aggregate"),
	}
}

// WithPreferredProviders sets the providers tried, in order, for
// components that do not pin one
func (a *Aggregator) WithPreferredProviders(providers []types.Provider) *Aggregator {
	a.preferred = providers
	return a
}

// Estimate prices every component of the workload against the pricing
// source. A component that cannot be priced records its failure and
// drops out of the totals; the rest of the workload still estimates.
func (a *Aggregator) Estimate(source PricingSource, w *types.Workload) (*WorkloadEstimate, error) {
	if w == nil || len(w.Components) == 0 {
		return nil, errors.Validation("workload with at least one component required")
	}

	est := &WorkloadEstimate{
		Workload:     w.Name,
		Environment:  w.Environment,
		Components:   make([]ComponentEstimate, 0, len(w.Components)),
		TotalMonthly: decimal.Zero,
		TotalYearly:  decimal.Zero,
		GeneratedAt:  time.Now().UTC(),
	}

	for _, comp := range w.Components {
		ce := a.estimateComponent(source, comp)
		if ce.Breakdown != nil {
			est.TotalMonthly = est.TotalMonthly.Add(ce.Breakdown.TotalCost)
			est.TotalYearly = est.TotalYearly.Add(ce.Breakdown.YearlyCost)
			if est.Currency == "" {
				est.Currency = ce.Breakdown.Currency
			} else if est.Currency != ce.Breakdown.Currency {
				est.Warnings = append(est.Warnings,
					fmt.Sprintf("%s: billed in %s, totals mix currencies without conversion", comp.Name, ce.Breakdown.Currency))
			}
			for _, s := range ce.Breakdown.Assumptions {
				est.Assumptions = append(est.Assumptions, comp.Name+": "+s)
			}
			for _, s := range ce.Breakdown.Warnings {
				est.Warnings = append(est.Warnings, comp.Name+": "+s)
			}
		}
		if ce.Err != nil {
			est.Warnings = append(est.Warnings, comp.Name+": "+ce.Err.Message)
		}
		est.Components = append(est.Components, ce)
	}

	a.log.Info("Estimated workload",
		zap.String("workload", w.Name),
		zap.Int("components", len(est.Components)),
		zap.String("monthly", est.TotalMonthly.String()),
		zap.Bool("degraded", est.Degraded()))
	return est, nil
}

// estimateComponent prices one component. Hosting components resolve a
// tier and bill plan pricing; everything else bills pay-per-use rates.
func (a *Aggregator) estimateComponent(source PricingSource, comp types.Component) ComponentEstimate {
	ce := ComponentEstimate{
		Component: comp.Name,
		Kind:      comp.Kind,
		Provider:  comp.Provider,
	}

	if !comp.Kind.IsValid() {
		ce.Err = errors.Validation(fmt.Sprintf("component %q has unknown kind %q", comp.Name, comp.Kind))
		return ce
	}

	var eff *pricing.EffectivePricing
	var pickedNote string
	if comp.Provider == "" {
		picked, found, pickErr := a.pickProvider(comp.Name, source)
		if pickErr != nil {
			ce.Err = pickErr
			return ce
		}
		ce.Provider = picked
		eff = found
		pickedNote = fmt.Sprintf("no provider pinned, assuming %s", picked)
	} else {
		found, err := source.Effective(comp.Provider)
		if err != nil {
			ce.Err = asDomainError(err, comp.Provider)
			return ce
		}
		eff = found
	}
	snapshot := &eff.Snapshot

	usage := comp.Usage
	if comp.Kind != types.ComponentHosting {
		b, err := a.calc.BillServices(snapshot, &usage)
		if err != nil {
			ce.Err = asDomainError(err, ce.Provider)
			return ce
		}
		if pickedNote != "" {
			b.Assumptions = append(b.Assumptions, pickedNote)
		}
		ce.Breakdown = b
		return ce
	}

	sel, err := a.selector.Select(snapshot, &usage, comp.TierHint)
	if err != nil {
		ce.Err = asDomainError(err, ce.Provider)
		return ce
	}
	ce.Selection = sel

	b, err := a.calc.Bill(snapshot, sel.Tier, &usage)
	if err != nil {
		ce.Err = asDomainError(err, ce.Provider)
		return ce
	}
	if pickedNote != "" {
		b.Assumptions = append(b.Assumptions, pickedNote)
	}
	for _, note := range sel.Notes {
		b.Details = append(b.Details, note)
	}
	ce.Breakdown = b
	return ce
}

// pickProvider walks the preference order and takes the first provider
// that has pricing
func (a *Aggregator) pickProvider(component string, source PricingSource) (types.Provider, *pricing.EffectivePricing, *errors.Error) {
	for _, provider := range a.preferred {
		eff, err := source.Effective(provider)
		if err != nil {
			a.log.Debug("Preferred provider has no pricing",
				zap.String("component", component),
				zap.String("provider", provider.String()),
				zap.Error(err))
			continue
		}
		return provider, eff, nil
	}
	return "", nil, errors.Validation(fmt.Sprintf(
		"component %q pins no provider and no preferred provider has pricing", component))
}

func asDomainError(err error, provider types.Provider) *errors.Error {
	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return errors.Internal("pricing unavailable", err).
		WithContext("provider", provider.String())
}
