package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/riskscope/riskscope/pkg/export"
)

func newBatchCmd(g *globalOpts) *cobra.Command {
	var opts batchOpts

	cmd := &cobra.Command{
		Use:   "batch <projects.json|->",
		Short: "Score up to 100 projects and summarize them",
		Long: `Reads a JSON array of project inputs (or {"projects": [...]}) and scores them
concurrently. Prints a summary with verdict counts, the red flag distribution
and entities shared by several high-risk projects. Ctrl-C stops unstarted
projects; finished ones are still summarized.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.input = args[0]
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runBatch(ctx, g, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "terminal", "Output format: terminal or json")
	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "Write the batch as CSV to this file")
	cmd.Flags().StringVar(&opts.packetPath, "packet", "", "Write the partner packet JSON to this file")
	cmd.Flags().BoolVar(&opts.webhook, "webhook", false, "Post the batch summary to the configured webhook")

	return cmd
}

type batchOpts struct {
	input      string
	output     string
	csvPath    string
	packetPath string
	webhook    bool
}

func runBatch(ctx context.Context, g *globalOpts, opts batchOpts, stdin io.Reader, stdout io.Writer) error {
	if opts.output != "terminal" && opts.output != "json" {
		return fmt.Errorf("unsupported batch output %q (want terminal or json)", opts.output)
	}

	data, err := readFile(opts.input, stdin)
	if err != nil {
		return err
	}
	inputs, err := decodeInputs(data)
	if err != nil {
		return err
	}

	e, err := openEnv(ctx, g)
	if err != nil {
		return err
	}
	defer e.Close()

	if opts.webhook && e.webhook == nil {
		return fmt.Errorf("--webhook needs export.webhook_url in .riskscope/config.yaml")
	}

	fmt.Fprintf(os.Stderr, "Scoring %d projects...\n", len(inputs))
	out, err := e.svc.Batch(ctx, inputs)
	if err != nil {
		return err
	}

	switch opts.output {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	default:
		if err := (&export.TerminalRenderer{}).RenderBatch(stdout, out.Result); err != nil {
			return err
		}
	}

	if opts.csvPath != "" {
		var buf bytes.Buffer
		if err := export.BatchCSV(&buf, out.Result); err != nil {
			return err
		}
		if err := os.WriteFile(opts.csvPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", opts.csvPath, err)
		}
		fmt.Fprintf(os.Stderr, "CSV written to %s\n", opts.csvPath)
	}

	if opts.packetPath != "" {
		var buf bytes.Buffer
		if err := export.PacketJSON(&buf, out.Packet); err != nil {
			return err
		}
		if err := os.WriteFile(opts.packetPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", opts.packetPath, err)
		}
		fmt.Fprintf(os.Stderr, "Partner packet written to %s\n", opts.packetPath)
	}

	if opts.webhook {
		// The run itself succeeded; a failed post is only a warning.
		if err := e.webhook.DeliverBatch(context.WithoutCancel(ctx), out.Result.Summary); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: batch webhook failed: %v\n", err)
		}
	}
	return nil
}
