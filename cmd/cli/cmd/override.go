// Package cmd - override management commands
package cmd

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"hostcost/core/override"
	"hostcost/core/types"
	"hostcost/internal/config"
)

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Manage pricing overrides",
	Long: `Manage the layered override collections applied on top of archived
pricing snapshots.

Overrides compose global, then provider, then local. Within a layer,
higher priority wins; adding a second override at an identical path
supersedes the first.

Examples:
  hostcost override add --path "annualDiscount" --value 0.15 --reason "negotiated"
  hostcost override add --path "tiers[1].basePrice" --value 25 --scope provider --provider vercel
  hostcost override list --scope provider --provider vercel
  hostcost override remove --path "annualDiscount"`,
}

var (
	overridePath     string
	overrideValue    string
	overrideScope    string
	overrideProvider string
	overridePriority int
	overrideReason   string
)

var overrideAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a pricing override",
	RunE:  runOverrideAdd,
}

var overrideRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the override at a path",
	RunE:  runOverrideRemove,
}

var overrideListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded overrides",
	RunE:  runOverrideList,
}

func init() {
	rootCmd.AddCommand(overrideCmd)
	overrideCmd.AddCommand(overrideAddCmd)
	overrideCmd.AddCommand(overrideRemoveCmd)
	overrideCmd.AddCommand(overrideListCmd)

	overrideAddCmd.Flags().StringVar(&overridePath, "path", "", "document path to correct [REQUIRED]")
	overrideAddCmd.Flags().StringVar(&overrideValue, "value", "", "replacement value, JSON or plain string [REQUIRED]")
	overrideAddCmd.Flags().StringVar(&overrideScope, "scope", "global", "override scope (global, provider, local)")
	overrideAddCmd.Flags().StringVar(&overrideProvider, "provider", "", "provider for scoped overrides")
	overrideAddCmd.Flags().IntVar(&overridePriority, "priority", 0, "tie-break priority within the layer")
	overrideAddCmd.Flags().StringVar(&overrideReason, "reason", "", "why the correction exists")
	overrideAddCmd.MarkFlagRequired("path")
	overrideAddCmd.MarkFlagRequired("value")

	overrideRemoveCmd.Flags().StringVar(&overridePath, "path", "", "document path to clear [REQUIRED]")
	overrideRemoveCmd.Flags().StringVar(&overrideScope, "scope", "global", "override scope (global, provider, local)")
	overrideRemoveCmd.Flags().StringVar(&overrideProvider, "provider", "", "provider for scoped overrides")
	overrideRemoveCmd.MarkFlagRequired("path")

	overrideListCmd.Flags().StringVar(&overrideScope, "scope", "", "filter to one scope")
	overrideListCmd.Flags().StringVar(&overrideProvider, "provider", "", "filter to one provider")
}

func runOverrideAdd(cmd *cobra.Command, args []string) error {
	scope := override.Scope(strings.ToLower(overrideScope))
	if !scope.IsValid() {
		return fmt.Errorf("unknown scope %q (use global, provider, or local)", overrideScope)
	}

	store, vault, err := openOverrides(config.Get())
	if err != nil {
		return err
	}

	added, err := store.Add(&override.Override{
		Path:     overridePath,
		Value:    parseOverrideValue(overrideValue),
		Scope:    scope,
		Provider: types.Provider(strings.ToLower(overrideProvider)),
		Priority: overridePriority,
		Reason:   overrideReason,
	})
	if err != nil {
		return err
	}
	if err := vault.Flush(store); err != nil {
		return err
	}

	fmt.Printf("✓ Override recorded at %s\n", added.Path)
	fmt.Printf("  ID:    %s\n", added.ID)
	fmt.Printf("  Scope: %s\n", describeScope(added.Scope, added.Provider))
	return nil
}

func runOverrideRemove(cmd *cobra.Command, args []string) error {
	scope := override.Scope(strings.ToLower(overrideScope))
	if !scope.IsValid() {
		return fmt.Errorf("unknown scope %q (use global, provider, or local)", overrideScope)
	}

	store, vault, err := openOverrides(config.Get())
	if err != nil {
		return err
	}

	removed, err := store.Remove(scope, types.Provider(strings.ToLower(overrideProvider)), overridePath)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Printf("No override at %s in the %s collection.\n",
			overridePath, describeScope(scope, types.Provider(overrideProvider)))
		return nil
	}
	if err := vault.Flush(store); err != nil {
		return err
	}

	fmt.Printf("✓ Override removed from %s\n", overridePath)
	return nil
}

func runOverrideList(cmd *cobra.Command, args []string) error {
	store, _, err := openOverrides(config.Get())
	if err != nil {
		return err
	}

	var records []*override.Override
	if overrideScope == "" {
		records = store.All()
	} else {
		scope := override.Scope(strings.ToLower(overrideScope))
		if !scope.IsValid() {
			return fmt.Errorf("unknown scope %q (use global, provider, or local)", overrideScope)
		}
		records = store.List(scope, types.Provider(strings.ToLower(overrideProvider)))
	}

	if len(records) == 0 {
		fmt.Println("No overrides recorded.")
		return nil
	}

	fmt.Printf("%-18s %-28s %-20s %-8s %s\n", "SCOPE", "PATH", "VALUE", "PRIORITY", "REASON")
	for _, o := range records {
		fmt.Printf("%-18s %-28s %-20s %-8d %s\n",
			describeScope(o.Scope, o.Provider),
			o.Path,
			renderValue(o.Value),
			o.Priority,
			o.Reason)
	}
	return nil
}

// parseOverrideValue decodes the --value flag: valid JSON is taken
// typed, anything else is a plain string
func parseOverrideValue(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func renderValue(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func describeScope(scope override.Scope, provider types.Provider) string {
	if scope == override.ScopeGlobal {
		return "global"
	}
	return fmt.Sprintf("%s/%s", scope, provider)
}
