// Package cmd - diff command
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hostcost/adapters/archive"
	"hostcost/core/diff"
)

var diffFormat string

// diffCmd compares two pricing snapshot files
var diffCmd = &cobra.Command{
	Use:   "diff <old-snapshot> <new-snapshot>",
	Short: "Compare two pricing snapshots",
	Long: `Compare two pricing snapshot files of the same provider and grade
how disruptive the change is.

Tiers and services are matched by name. Price shifts beyond 20% are
critical; removals, shifts beyond 5%, and broad structural changes are
major; everything else is minor.

Examples:
  hostcost diff vercel-may.json vercel-june.json
  hostcost diff --format json old.json new.json`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "table", "output format (table, json)")
}

func runDiff(cmd *cobra.Command, args []string) error {
	oldSnap, err := archive.ReadSnapshotFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	newSnap, err := archive.ReadSnapshotFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[1], err)
	}
	if oldSnap.Provider != newSnap.Provider {
		return fmt.Errorf("snapshots describe different providers: %s vs %s",
			oldSnap.Provider, newSnap.Provider)
	}

	report := diff.NewDetector().Compare(oldSnap, newSnap)
	if diffFormat == "json" {
		return printJSON(report)
	}

	printChangeReport(report)
	return nil
}

// printChangeReport renders a change report for operators
func printChangeReport(r *diff.ChangeReport) {
	fmt.Printf("Significance: %s\n", r.Significance)
	fmt.Println(r.Summary())

	if !r.HasChanges || r.FirstObservation {
		return
	}

	for _, name := range r.AddedTiers {
		fmt.Printf("  + tier %s\n", name)
	}
	for _, name := range r.RemovedTiers {
		fmt.Printf("  - tier %s\n", name)
	}
	for _, change := range r.ChangedTiers {
		line := fmt.Sprintf("  ~ tier %s: %s → %s", change.Name, change.OldPrice.String(), change.NewPrice.String())
		if change.PercentChange != 0 {
			line += fmt.Sprintf(" (%+.1f%%)", change.PercentChange)
		}
		if len(change.ChangedLimits) > 0 {
			line += fmt.Sprintf(" limits: %v", change.ChangedLimits)
		}
		fmt.Println(line)
	}

	for _, name := range r.AddedServices {
		fmt.Printf("  + service %s\n", name)
	}
	for _, name := range r.RemovedServices {
		fmt.Printf("  - service %s\n", name)
	}
	for _, change := range r.ChangedServices {
		line := fmt.Sprintf("  ~ service %s: %s → %s", change.Name, change.OldPrice.String(), change.NewPrice.String())
		if change.PercentChange != 0 {
			line += fmt.Sprintf(" (%+.1f%%)", change.PercentChange)
		}
		if change.UnitChanged {
			line += " [unit redefined]"
		}
		if change.QuotaChanged {
			line += " [free quota moved]"
		}
		fmt.Println(line)
	}

	if r.CurrencyChanged {
		fmt.Println("  ~ currency redefined")
	}
	if r.PeriodChanged {
		fmt.Println("  ~ billing period redefined")
	}
	if r.DiscountChanged {
		fmt.Println("  ~ annual discount changed")
	}
	if r.MaxPercentShift != 0 {
		fmt.Printf("  largest price shift: %+.1f%%\n", r.MaxPercentShift)
	}
}
