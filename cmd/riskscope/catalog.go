package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCatalogCmd(g *globalOpts) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List metrics, weights, status bands and thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(cmd.Context(), g, asJSON, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")
	return cmd
}

func runCatalog(_ context.Context, g *globalOpts, asJSON bool, stdout io.Writer) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	cat, err := cfg.Catalog()
	if err != nil {
		return err
	}
	th := cfg.Scoring.Thresholds

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"metrics":     cat.All(),
			"totalWeight": cat.TotalWeight(),
			"thresholds":  th,
		})
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tMETRIC\tWEIGHT\tMODERATE\tHIGH\tCRITICAL")
	for _, d := range cat.All() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%g\t%g\t%g\n",
			d.Key, d.DisplayName, d.Weight, d.Bands.Moderate, d.Bands.High, d.Bands.Critical)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\nTotal weight: %d\n", cat.TotalWeight())
	fmt.Fprintf(stdout, "Verdict: pass < %d <= flag < %d <= reject\n", th.FlagAt, th.RejectAt)
	fmt.Fprintf(stdout, "Tier: LOW < %d <= MODERATE < %d <= ELEVATED < %d <= HIGH\n",
		th.ModerateAt, th.ElevatedAt, th.HighAt)
	return nil
}
