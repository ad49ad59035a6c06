package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/riskscope/riskscope/pkg/export"
	"github.com/riskscope/riskscope/pkg/report"
)

func newScoreCmd(g *globalOpts) *cobra.Command {
	var opts scoreOpts

	cmd := &cobra.Command{
		Use:   "score <input.json|->",
		Short: "Score one project and print its report",
		Long: `Reads one project's identity and 13 metric observations as JSON, computes the
composite score, verdict and tier, and prints the report. The report is kept
in the local history so it can be listed and rescored later.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.input = args[0]
			return runScore(cmd.Context(), g, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "terminal", "Output format: terminal, text, json, csv, html, slack or teams")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show the evidence narrative for every metric")
	cmd.Flags().StringVar(&opts.exportDir, "export-dir", "", "Also write the report into this directory")
	cmd.Flags().StringVar(&opts.exportFmt, "export-format", "html", "Format for --export-dir files")
	cmd.Flags().BoolVar(&opts.webhook, "webhook", false, "Also post the report to the configured webhook")

	return cmd
}

type scoreOpts struct {
	input     string
	output    string
	verbose   bool
	exportDir string
	exportFmt string
	webhook   bool
}

func runScore(ctx context.Context, g *globalOpts, opts scoreOpts, stdin io.Reader, stdout io.Writer) error {
	renderer, err := rendererFor(opts.output, opts.verbose)
	if err != nil {
		return err
	}
	exportFmt, err := export.ParseFormat(opts.exportFmt)
	if err != nil {
		return err
	}

	data, err := readFile(opts.input, stdin)
	if err != nil {
		return err
	}
	inputs, err := decodeInputs(data)
	if err != nil {
		return err
	}
	if len(inputs) != 1 {
		return fmt.Errorf("score takes one project, got %d (use riskscope batch)", len(inputs))
	}

	e, err := openEnv(ctx, g)
	if err != nil {
		return err
	}
	defer e.Close()

	targets, err := e.shareTargets(opts.exportDir, exportFmt, opts.webhook)
	if err != nil {
		return err
	}

	rep, err := e.svc.Analyze(ctx, inputs[0])
	if err != nil {
		return err
	}
	if err := renderer.Render(stdout, rep); err != nil {
		return err
	}

	shareAll(ctx, e, rep, targets)
	return nil
}

// shareAll delivers rep to every target. Share failures are reported but never fail the command.
func shareAll(ctx context.Context, e *env, rep *report.Report, targets []export.Target) {
	for _, t := range targets {
		ok, err := e.svc.Share(ctx, rep.ID, t)
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "Warning: share to %s: %v\n", t.Name(), err)
		case !ok:
			fmt.Fprintf(os.Stderr, "Warning: share to %s failed (see log)\n", t.Name())
		default:
			if ft, isFile := t.(*export.FileTarget); isFile {
				fmt.Fprintf(os.Stderr, "Report written to %s\n", ft.Path)
			} else {
				fmt.Fprintf(os.Stderr, "Report shared to %s\n", t.Name())
			}
		}
	}
}

func rendererFor(name string, verbose bool) (export.Renderer, error) {
	format, err := export.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	if format == export.FormatTerminal {
		return &export.TerminalRenderer{Verbose: verbose}, nil
	}
	return format.Renderer()
}
