// Package cmd - estimate command
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"hostcost/core/aggregate"
	"hostcost/core/billing"
	"hostcost/core/profile"
	"hostcost/core/tier"
	"hostcost/core/types"
	"hostcost/internal/config"
	"hostcost/internal/logging"

	workloadfile "hostcost/adapters/workload"
)

var (
	outputFormat string
	showDetails  bool
)

// estimateCmd represents the estimate command
var estimateCmd = &cobra.Command{
	Use:   "estimate <workload-file>",
	Short: "Estimate hosting costs for a workload",
	Long: `Read a workload definition and estimate what it costs to run.

Every component is billed against its provider's current pricing
snapshot with overrides applied. Components without a pinned provider
fall back to the configured preference order.

Examples:
  hostcost estimate workload.hcl
  hostcost estimate --format json workload.hcl
  hostcost estimate --details=false workload.hcl`,
	Args: cobra.ExactArgs(1),
	RunE: runEstimate,
}

func init() {
	estimateCmd.Flags().StringVarP(&outputFormat, "format", "f", "table", "output format (table, json)")
	estimateCmd.Flags().BoolVarP(&showDetails, "details", "d", true, "show detailed cost breakdown")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	path := args[0]

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("workload file does not exist: %s", path)
	}

	logging.Info("Starting cost estimation")
	cfg := config.Get()

	source, cleanup, err := openPricingSource(cfg)
	if err != nil {
		return fmt.Errorf("failed to open pricing archive: %w", err)
	}
	defer cleanup()

	parsed, err := workloadfile.NewReader().ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read workload: %w", err)
	}
	if parsed.Degraded() {
		fmt.Printf("Warning: %d issues reading %s\n", len(parsed.Issues), path)
		for _, issue := range parsed.Issues {
			fmt.Printf("  %s\n", issue.Message)
		}
		fmt.Println()
	}

	catalog, err := profile.Load()
	if err != nil {
		return fmt.Errorf("failed to load tier profiles: %w", err)
	}

	agg := aggregate.NewAggregator(tier.NewSelector(catalog), billing.NewCalculator()).
		WithPreferredProviders(preferredProviders(cfg))

	est, err := agg.Estimate(source, parsed.Workload)
	if err != nil {
		return fmt.Errorf("estimation failed: %w", err)
	}
	if est.Currency == "" {
		est.Currency = types.Currency(cfg.Estimate.Currency)
	}

	if outputFormat == "json" {
		return printJSON(est)
	}

	printEstimate(est, cfg.Estimate.ShowAssumptions)
	fmt.Printf("\nEstimation completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	return nil
}

func printEstimate(est *aggregate.WorkloadEstimate, showAssumptions bool) {
	sym := currencySymbol(est.Currency)

	fmt.Println("┌─────────────────────────────────────────────────────────────────────────┐")
	fmt.Printf("│ %-71s │\n", fmt.Sprintf("WORKLOAD COST ESTIMATE: %s", truncate(est.Workload, 47)))
	fmt.Println("├─────────────────────────────────────────────────────────────────────────┤")

	for _, ce := range est.Components {
		if ce.Err != nil {
			fmt.Printf("│ ✗ %-69s │\n", truncate(fmt.Sprintf("%s: %s", ce.Component, ce.Err.Message), 69))
			continue
		}

		label := fmt.Sprintf("%s (%s, pay-per-use)", ce.Component, ce.Provider)
		if ce.Selection != nil {
			label = fmt.Sprintf("%s (%s, %s plan)", ce.Component, ce.Provider, ce.Selection.Tier.Name)
		}
		fmt.Printf("│ %-50s %20s │\n",
			truncate(label, 50),
			fmt.Sprintf("%s%s/month", sym, ce.Breakdown.TotalCost.StringFixed(2)))

		if showDetails {
			for _, detail := range ce.Breakdown.Details {
				fmt.Printf("│   └─ %-66s │\n", truncate(detail, 66))
			}
		}
	}

	fmt.Println("├─────────────────────────────────────────────────────────────────────────┤")
	fmt.Printf("│ %-50s %20s │\n",
		"TOTAL MONTHLY ESTIMATE",
		fmt.Sprintf("%s%s", sym, est.TotalMonthly.StringFixed(2)))
	fmt.Printf("│ %-50s %20s │\n",
		"TOTAL YEARLY ESTIMATE",
		fmt.Sprintf("%s%s", sym, est.TotalYearly.StringFixed(2)))
	fmt.Println("└─────────────────────────────────────────────────────────────────────────┘")

	if est.Degraded() {
		fmt.Println("\n⚠ Some components could not be priced; totals exclude them.")
	}
	if showAssumptions && len(est.Assumptions) > 0 {
		fmt.Println("\nAssumptions:")
		for _, a := range est.Assumptions {
			fmt.Printf("  - %s\n", a)
		}
	}
	if len(est.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range est.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}
}

func currencySymbol(c types.Currency) string {
	switch c {
	case types.CurrencyUSD:
		return "$"
	case types.CurrencyEUR:
		return "€"
	case types.CurrencyGBP:
		return "£"
	default:
		return string(c) + " "
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
