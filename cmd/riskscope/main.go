// Package main provides the riskscope CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var g globalOpts

	rootCmd := &cobra.Command{
		Use:   "riskscope",
		Short: "Composite risk scoring for crypto projects",
		Long: `riskscope turns 13 weighted risk signals about a crypto project into a
pass/flag/reject verdict, a risk tier and an evidence-backed report.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.store, "store", "", "History store: memory, badger or postgres (default: config, else badger)")
	pf.StringVar(&g.dbPath, "db-path", "", "Badger directory (default: ~/.cache/riskscope/db)")
	pf.StringVar(&g.configDir, "config-dir", "", "Directory to search upward for .riskscope/config.yaml (default: cwd)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newScoreCmd(&g),
		newBatchCmd(&g),
		newCatalogCmd(&g),
		newHistoryCmd(&g),
		newWatchCmd(&g),
	)
	return rootCmd
}
