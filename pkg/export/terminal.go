package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/riskscope/riskscope/pkg/batch"
	"github.com/riskscope/riskscope/pkg/catalog"
	"github.com/riskscope/riskscope/pkg/report"
	"github.com/riskscope/riskscope/pkg/scoring"
)

// TerminalRenderer renders a Report as colored terminal output.
type TerminalRenderer struct {
	// Verbose prints the evidence narrative under every metric.
	Verbose bool
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

func verdictColor(v scoring.Verdict) string {
	switch v {
	case scoring.VerdictPass:
		return colorGreen
	case scoring.VerdictFlag:
		return colorYellow
	case scoring.VerdictReject:
		return colorRed
	default:
		return ""
	}
}

func statusColor(s catalog.Status) string {
	switch s {
	case catalog.StatusLow:
		return colorGreen
	case catalog.StatusModerate:
		return colorYellow
	default:
		return colorRed
	}
}

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func bold(s string) string {
	if noColor() {
		return s
	}
	return colorBold + s + colorReset
}

func dim(s string) string {
	if noColor() {
		return s
	}
	return colorDim + s + colorReset
}

func colored(s, color string) string {
	if noColor() || color == "" {
		return s
	}
	return color + s + colorReset
}

func (t *TerminalRenderer) Render(w io.Writer, r *report.Report) error {
	if r == nil {
		return ErrNilReport
	}
	vc := verdictColor(r.Metadata.Verdict)

	fmt.Fprintf(w, "%s\n\n",
		bold(fmt.Sprintf("riskscope: %s - Score %d/100 (%s, %s)",
			r.Name(), r.Metadata.RiskScore,
			colored(strings.ToUpper(string(r.Metadata.Verdict)), vc), r.Metadata.RiskTier)))

	fmt.Fprintf(w, "Platform: %s  Confidence: %.1f%%  Scanned: %s\n\n",
		r.Metadata.Platform, r.Metadata.Confidence, r.Metadata.ScannedAt.Format("2006-01-02 15:04 MST"))

	fmt.Fprintln(w, "Breakdown:")
	for _, m := range r.Metrics {
		fmt.Fprintf(w, "  (+%5.2f) %-26s %3.0f  %s\n",
			m.Contribution, bold(m.Name), m.Score, colored(string(m.Status), statusColor(m.Status)))
		if m.Contribution > 0 || t.Verbose {
			fmt.Fprintf(w, "           %s\n", dim(m.Evidence.Headline))
		}
		if t.Verbose {
			for _, line := range wrapText(m.Evidence.Summary, 70) {
				fmt.Fprintf(w, "           %s\n", dim(line))
			}
		}
	}
	fmt.Fprintln(w)

	if flags := r.RedFlags(); len(flags) > 0 {
		fmt.Fprintln(w, "Red flags:")
		for _, f := range flags {
			fmt.Fprintf(w, "  %s %s\n", colored("●", colorRed), f)
		}
		fmt.Fprintln(w)
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w, "Recommendations:")
		for _, rec := range r.Recommendations {
			lines := wrapText(rec, 70)
			for i, line := range lines {
				if i == 0 {
					fmt.Fprintf(w, "  • %s\n", line)
				} else {
					fmt.Fprintf(w, "    %s\n", line)
				}
			}
		}
		fmt.Fprintln(w)
	}

	return nil
}

// RenderBatch writes a batch summary table.
func (t *TerminalRenderer) RenderBatch(w io.Writer, res *batch.Result) error {
	s := res.Summary
	fmt.Fprintf(w, "%s\n\n", bold(fmt.Sprintf("riskscope batch: %d projects - average score %d", s.Total, s.AverageRiskScore)))
	fmt.Fprintf(w, "  %s  %s  %s\n\n",
		colored(fmt.Sprintf("%d passed", s.Passed), colorGreen),
		colored(fmt.Sprintf("%d flagged", s.Flagged), colorYellow),
		colored(fmt.Sprintf("%d rejected", s.Rejected), colorRed))

	for _, r := range res.Reports {
		fmt.Fprintf(w, "  %3d  %-8s %s", r.Metadata.RiskScore,
			colored(string(r.Metadata.Verdict), verdictColor(r.Metadata.Verdict)), r.Name())
		if top := r.TopRedFlag(); top != "" {
			fmt.Fprintf(w, "  %s", dim(top))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	if len(s.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s %s: %s\n", colored("✗", colorRed), e.Project, e.Error)
		}
		fmt.Fprintln(w)
	}

	if len(res.Entities) > 0 {
		fmt.Fprintln(w, "Shared high-risk entities:")
		for _, e := range res.Entities {
			fmt.Fprintf(w, "  %s in %d projects (%s), confidence %.0f%%\n",
				bold(e.Name), e.Count, strings.Join(e.Projects, ", "), e.Confidence)
		}
		fmt.Fprintln(w)
	}

	if res.Cancelled {
		fmt.Fprintf(w, "%s\n", dim(fmt.Sprintf("Batch cancelled: %d projects skipped.", res.Skipped)))
	}
	return nil
}

// TextRenderer writes a plain, uncolored rendering. It is also the HTML fallback.
type TextRenderer struct{}

func (t *TextRenderer) Render(w io.Writer, r *report.Report) error {
	if r == nil {
		return ErrNilReport
	}
	fmt.Fprintf(w, "%s\n", orDefault(r.Name(), "Unnamed project"))
	fmt.Fprintf(w, "Risk score: %d/100\nVerdict: %s\nTier: %s\nConfidence: %.1f%%\n\n",
		r.Metadata.RiskScore, orDefault(string(r.Metadata.Verdict), "n/a"),
		orDefault(string(r.Metadata.RiskTier), "n/a"), r.Metadata.Confidence)
	for _, m := range r.Metrics {
		fmt.Fprintf(w, "%s (%s): %s\n", m.Name, formatFloat(m.Score), m.Evidence.PlainText())
	}
	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w)
		for _, rec := range r.Recommendations {
			fmt.Fprintf(w, "- %s\n", rec)
		}
	}
	return nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// wrapText wraps a string at the given width, returning lines.
func wrapText(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]

	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
		} else {
			current += " " + word
		}
	}
	lines = append(lines, current)
	return lines
}
