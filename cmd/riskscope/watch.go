package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/riskscope/riskscope/internal/store"
	"github.com/riskscope/riskscope/pkg/report"
)

func newWatchCmd(g *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage the watchlist of projects that raise alerts",
		Long: `Watched projects publish a watchlist.alert event whenever a new report scores
at or above the item's alert threshold.`,
	}
	cmd.AddCommand(newWatchAddCmd(g), newWatchListCmd(g), newWatchRemoveCmd(g))
	return cmd
}

func newWatchAddCmd(g *globalOpts) *cobra.Command {
	var (
		alertAt int
		note    string
	)
	cmd := &cobra.Command{
		Use:   "add <project>",
		Short: "Watch a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, g)
			if err != nil {
				return err
			}
			defer e.Close()

			item, err := e.svc.Watch(ctx, store.WatchItem{DisplayName: args[0], AlertAt: alertAt, Note: note})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (alert at %d)\n", item.CanonicalName, item.AlertAt)
			return nil
		},
	}
	cmd.Flags().IntVar(&alertAt, "alert-at", 60, "Alert when a report scores at or above this")
	cmd.Flags().StringVar(&note, "note", "", "Free-form note")
	return cmd
}

func newWatchListCmd(g *globalOpts) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List watched projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, g)
			if err != nil {
				return err
			}
			defer e.Close()

			items, err := e.svc.Watchlist(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			if len(items) == 0 {
				fmt.Fprintln(out, "Watchlist is empty.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PROJECT\tNAME\tALERT AT\tNOTE")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", it.CanonicalName, it.DisplayName, it.AlertAt, it.Note)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the watchlist as JSON")
	return cmd
}

func newWatchRemoveCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <project>",
		Short: "Stop watching a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, g)
			if err != nil {
				return err
			}
			defer e.Close()

			canonical := report.Canonicalize(args[0])
			if err := e.svc.Unwatch(ctx, canonical); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped watching %s\n", canonical)
			return nil
		},
	}
}
