// Package cmd - Canonical CLI for pricing operations
// THIS IS THE ONLY WAY to ingest pricing data
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"hostcost/adapters/archive"
	"hostcost/core/diff"
	"hostcost/core/pricing"
	"hostcost/core/types"
	"hostcost/internal/config"
	"hostcost/internal/errors"
)

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Pricing snapshot management (operator only)",
	Long: `Pricing snapshot management commands.

IMPORTANT: These commands are for operators only.
Never run automatically or in CI/CD pipelines.`,
}

var pricingAdoptCmd = &cobra.Command{
	Use:   "adopt <snapshot-file>",
	Short: "Adopt a pricing snapshot as the snapshot of record",
	Long: `Adopt a provider pricing snapshot as the new snapshot of record.

This command runs a strict adoption lifecycle:
  1. READ      - Decode the snapshot file (no writes)
  2. VALIDATE  - Structural checks (abort on failure)
  3. DIFF      - Compare against the current snapshot of record
  4. CONFIRM   - Major and critical changes require confirmation
  5. ARCHIVE   - Write-once snapshot file plus index update

Archived snapshots are never modified. Re-adopting earlier content
repoints the snapshot of record without rewriting anything.`,
	Args: cobra.ExactArgs(1),
	RunE: runPricingAdopt,
}

var pricingShowCmd = &cobra.Command{
	Use:   "show <provider>",
	Short: "Show a provider's snapshot of record",
	Args:  cobra.ExactArgs(1),
	RunE:  runPricingShow,
}

var pricingValidateCmd = &cobra.Command{
	Use:   "validate <snapshot-file>",
	Short: "Validate a pricing snapshot file",
	Args:  cobra.ExactArgs(1),
	RunE:  runPricingValidate,
}

var pricingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List providers with an adopted snapshot",
	RunE:  runPricingList,
}

var pricingHistoryCmd = &cobra.Command{
	Use:   "history <provider>",
	Short: "List a provider's archived snapshots, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runPricingHistory,
}

var pricingVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify archive integrity against recorded hashes",
	RunE:  runPricingVerify,
}

var (
	pricingDryRun    bool
	pricingYes       bool
	pricingEffective bool
	pricingFormat    string
)

func init() {
	rootCmd.AddCommand(pricingCmd)
	pricingCmd.AddCommand(pricingAdoptCmd)
	pricingCmd.AddCommand(pricingShowCmd)
	pricingCmd.AddCommand(pricingValidateCmd)
	pricingCmd.AddCommand(pricingListCmd)
	pricingCmd.AddCommand(pricingHistoryCmd)
	pricingCmd.AddCommand(pricingVerifyCmd)

	pricingAdoptCmd.Flags().BoolVar(&pricingDryRun, "dry-run", false, "validate and diff only, archive nothing")
	pricingAdoptCmd.Flags().BoolVarP(&pricingYes, "yes", "y", false, "skip confirmation for major changes")

	pricingShowCmd.Flags().BoolVar(&pricingEffective, "effective", false, "apply overrides before showing")
	pricingShowCmd.Flags().StringVarP(&pricingFormat, "format", "f", "table", "output format (table, json)")
}

func runPricingAdopt(cmd *cobra.Command, args []string) error {
	path := args[0]

	snapshot, err := archive.ReadSnapshotFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	fmt.Println("")
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║              PRICING SNAPSHOT ADOPTION                        ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println("")
	fmt.Printf("Provider: %s\n", snapshot.Provider)
	fmt.Printf("File:     %s\n", path)
	fmt.Printf("Captured: %s\n", snapshot.LastUpdated.Format("2006-01-02"))
	fmt.Printf("Dry-run:  %t\n", pricingDryRun)
	fmt.Println("")

	// VALIDATE
	result := pricing.Validate(snapshot)
	for _, warning := range result.Warnings {
		fmt.Printf("⚠ %s\n", warning)
	}
	if !result.Valid() {
		for _, verr := range result.Errors {
			fmt.Printf("✗ %s\n", verr)
		}
		return fmt.Errorf("snapshot failed validation with %d errors", len(result.Errors))
	}
	fmt.Println("✓ Validation passed")

	arch, err := openArchive(config.Get())
	if err != nil {
		return err
	}

	// DIFF against the snapshot of record
	current, err := arch.Current(snapshot.Provider)
	if err != nil {
		if !errors.IsType(err, errors.TypeNotFound) {
			return err
		}
		current = nil
	}
	report := diff.NewDetector().Compare(current, snapshot)
	fmt.Println("")
	printChangeReport(report)

	if pricingDryRun {
		fmt.Println("\n✓ DRY-RUN COMPLETED - nothing archived")
		return nil
	}

	// CONFIRM disruptive changes
	if report.Significance.AtLeast(diff.SignificanceMajor) && !pricingYes {
		if !confirm(fmt.Sprintf("This is a %s pricing change affecting all estimates.", report.Significance)) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	entry, err := arch.Adopt(snapshot)
	if err != nil {
		return fmt.Errorf("adoption failed: %w", err)
	}

	fmt.Printf("\n✓ Adopted %s pricing as the snapshot of record\n", entry.Provider)
	fmt.Printf("  ID:   %s\n", entry.ID)
	fmt.Printf("  File: %s\n", entry.File)
	fmt.Printf("  Hash: %s...\n", entry.Fingerprint[:16])
	return nil
}

func runPricingShow(cmd *cobra.Command, args []string) error {
	provider := types.Provider(strings.ToLower(args[0]))
	cfg := config.Get()

	if pricingEffective {
		source, cleanup, err := openPricingSource(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		eff, err := source.Effective(provider)
		if err != nil {
			return err
		}
		if pricingFormat == "json" {
			return printJSON(eff)
		}

		printSnapshot(&eff.Snapshot)
		fmt.Printf("\nOverrides applied: %d\n", eff.OverridesApplied)
		if eff.Degraded() {
			fmt.Println("Skipped overrides:")
			for _, issue := range eff.Issues {
				fmt.Printf("  ✗ [%s] %s\n", issue.Type, issue.Message)
			}
		}
		return nil
	}

	arch, err := openArchive(cfg)
	if err != nil {
		return err
	}
	snapshot, err := arch.Current(provider)
	if err != nil {
		return err
	}
	if pricingFormat == "json" {
		return printJSON(snapshot)
	}

	printSnapshot(snapshot)
	if entry, err := arch.CurrentEntry(provider); err == nil {
		fmt.Printf("\nSnapshot of record: %s (adopted %s)\n",
			entry.ID, entry.ArchivedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runPricingValidate(cmd *cobra.Command, args []string) error {
	snapshot, err := archive.ReadSnapshotFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	result := pricing.Validate(snapshot)
	for _, warning := range result.Warnings {
		fmt.Printf("⚠ %s\n", warning)
	}
	for _, verr := range result.Errors {
		fmt.Printf("✗ %s\n", verr)
	}
	if !result.Valid() {
		return fmt.Errorf("snapshot failed validation with %d errors", len(result.Errors))
	}

	fmt.Printf("✓ %s pricing snapshot is valid (%d tiers, %d services)\n",
		snapshot.Provider, len(snapshot.Tiers), len(snapshot.Services))
	return nil
}

func runPricingList(cmd *cobra.Command, args []string) error {
	arch, err := openArchive(config.Get())
	if err != nil {
		return err
	}

	providers := arch.Providers()
	if len(providers) == 0 {
		fmt.Println("No pricing snapshots adopted yet.")
		return nil
	}

	fmt.Printf("%-10s %-22s %-18s %s\n", "PROVIDER", "SNAPSHOT", "ADOPTED", "SOURCE")
	for _, provider := range providers {
		entry, err := arch.CurrentEntry(types.Provider(provider))
		if err != nil {
			continue
		}
		fmt.Printf("%-10s %-22s %-18s %s\n",
			provider, entry.ID, entry.ArchivedAt.Format("2006-01-02 15:04"), entry.Source)
	}
	return nil
}

func runPricingHistory(cmd *cobra.Command, args []string) error {
	provider := types.Provider(strings.ToLower(args[0]))
	arch, err := openArchive(config.Get())
	if err != nil {
		return err
	}

	entries := arch.History(provider)
	if len(entries) == 0 {
		fmt.Printf("No snapshots archived for %s.\n", provider)
		return nil
	}

	currentID := ""
	if entry, err := arch.CurrentEntry(provider); err == nil {
		currentID = entry.ID
	}

	fmt.Printf("  %-22s %-18s %-12s %s\n", "SNAPSHOT", "ADOPTED", "CAPTURED", "SIZE")
	for _, entry := range entries {
		marker := " "
		if entry.ID == currentID {
			marker = "*"
		}
		fmt.Printf("%s %-22s %-18s %-12s %d bytes\n",
			marker, entry.ID,
			entry.ArchivedAt.Format("2006-01-02 15:04"),
			entry.CapturedAt.Format("2006-01-02"),
			entry.Size)
	}
	return nil
}

func runPricingVerify(cmd *cobra.Command, args []string) error {
	arch, err := openArchive(config.Get())
	if err != nil {
		return err
	}

	corrupted := arch.VerifyIntegrity()
	if len(corrupted) == 0 {
		fmt.Println("✓ Archive intact: every snapshot matches its recorded hash.")
		return nil
	}

	for _, desc := range corrupted {
		fmt.Printf("✗ %s\n", desc)
	}
	return fmt.Errorf("%d corrupted snapshots", len(corrupted))
}

// printSnapshot renders a pricing document for operators
func printSnapshot(s *types.PricingSnapshot) {
	fmt.Printf("Provider:  %s\n", s.Provider)
	fmt.Printf("Currency:  %s\n", s.Currency)
	fmt.Printf("Period:    %s\n", s.BillingPeriod)
	fmt.Printf("Updated:   %s\n", s.LastUpdated.Format("2006-01-02"))
	if s.Source != "" {
		fmt.Printf("Source:    %s\n", s.Source)
	}
	if s.AnnualDiscount > 0 {
		fmt.Printf("Discount:  %.0f%% for yearly billing\n", s.AnnualDiscount*100)
	}

	if len(s.Tiers) > 0 {
		fmt.Println("\nTiers:")
		fmt.Printf("  %-14s %-12s %s\n", "NAME", "BASE", "LIMITS")
		for _, tier := range s.Tiers {
			fmt.Printf("  %-14s %-12s %s\n", tier.Name, tier.BasePrice.String(), formatLimits(tier.Limits))
		}
	}
	if len(s.Services) > 0 {
		fmt.Println("\nServices:")
		fmt.Printf("  %-14s %-12s %-10s %s\n", "NAME", "PRICE", "UNIT", "FREE QUOTA")
		for _, rate := range s.Services {
			quota := "-"
			if rate.FreeQuota != nil {
				quota = rate.FreeQuota.String()
			}
			fmt.Printf("  %-14s %-12s %-10s %s\n", rate.Name, rate.Price.String(), rate.Unit, quota)
		}
	}
	if len(s.RegionMultipliers) > 0 {
		fmt.Println("\nRegion multipliers:")
		regions := make([]string, 0, len(s.RegionMultipliers))
		for region := range s.RegionMultipliers {
			regions = append(regions, region)
		}
		sort.Strings(regions)
		for _, region := range regions {
			fmt.Printf("  %-14s %.2f\n", region, s.RegionMultipliers[region])
		}
	}
}

func formatLimits(limits map[string]types.Quantity) string {
	if len(limits) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(limits))
	for key := range limits {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", key, limits[key].String()))
	}
	return strings.Join(parts, " ")
}

// confirm prompts the operator for an explicit yes
func confirm(message string) bool {
	fmt.Println("")
	fmt.Printf("⚠ %s\n", message)
	fmt.Print("Type 'yes' to confirm: ")

	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(strings.ToLower(input)) == "yes"
}
