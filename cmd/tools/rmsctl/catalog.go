package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/rms-pricing/internal/pricing"
)

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().String("vendor", "", "Only list promotions of this vendor code")
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the promotion catalog",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	vendor, _ := cmd.Flags().GetString("vendor")
	defs := pricing.DefaultCatalog().Definitions(vendor)
	if len(defs) == 0 {
		return fmt.Errorf("no promotions for vendor %q", vendor)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVENDOR\tGROUP\tNAME\tDEFAULT %\tFLAGS")
	for _, def := range defs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", def.ID, def.Vendor, def.Group, def.Name, defaultPct(def), flags(def))
	}
	return tw.Flush()
}

func defaultPct(def pricing.Definition) string {
	if !def.DefaultPct.Valid {
		return "-"
	}
	return def.DefaultPct.Decimal.String()
}

func flags(def pricing.Definition) string {
	var out []string
	if def.Variable {
		out = append(out, "variable")
	}
	if def.Exclusive {
		out = append(out, "exclusive")
	}
	for _, g := range def.Blocks {
		out = append(out, "blocks:"+g.String())
	}
	for _, tag := range def.Tags {
		out = append(out, strings.ToLower(string(tag)))
	}
	return strings.Join(out, ",")
}
