package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/riskscope/riskscope/pkg/export"
	"github.com/riskscope/riskscope/pkg/report"
)

func newHistoryCmd(g *globalOpts) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history <project>",
		Short: "List past reports for a project, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), g, args[0], limit, asJSON, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of reports to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the reports as JSON")

	cmd.AddCommand(newHistoryShowCmd(g), newHistoryRescoreCmd(g))
	return cmd
}

func newHistoryShowCmd(g *globalOpts) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show <report-id>",
		Short: "Print a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			format, err := export.ParseFormat(output)
			if err != nil {
				return err
			}
			e, err := openEnv(ctx, g)
			if err != nil {
				return err
			}
			defer e.Close()

			data, err := e.svc.Export(ctx, args[0], format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "terminal", "Output format: terminal, text, json, csv, html, slack or teams")
	return cmd
}

func newHistoryRescoreCmd(g *globalOpts) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "rescore <report-id>",
		Short: "Score a stored report again with the current weights and thresholds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			renderer, err := rendererFor(output, false)
			if err != nil {
				return err
			}
			e, err := openEnv(ctx, g)
			if err != nil {
				return err
			}
			defer e.Close()

			rep, err := e.svc.Rescore(ctx, args[0])
			if err != nil {
				return err
			}
			return renderer.Render(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "terminal", "Output format")
	return cmd
}

func runHistory(ctx context.Context, g *globalOpts, project string, limit int, asJSON bool, stdout io.Writer) error {
	e, err := openEnv(ctx, g)
	if err != nil {
		return err
	}
	defer e.Close()

	canonical := report.Canonicalize(project)
	reports, err := e.svc.History(ctx, canonical, limit)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	if len(reports) == 0 {
		fmt.Fprintf(stdout, "No reports for %s.\n", canonical)
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCANNED\tSCORE\tVERDICT\tTIER\tID")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			r.Metadata.ScannedAt.Local().Format(time.DateTime),
			r.Metadata.RiskScore, r.Metadata.Verdict, r.Metadata.RiskTier, r.ID)
	}
	return tw.Flush()
}
