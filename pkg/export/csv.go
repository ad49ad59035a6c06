package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/riskscope/riskscope/pkg/batch"
	"github.com/riskscope/riskscope/pkg/report"
)

// ReportColumns is the header of a per-metric report CSV.
var ReportColumns = []string{"Metric", "Name", "Score", "Status", "Confidence", "Weight", "Contribution", "Flags", "Evidence"}

// BatchColumns is the header of a per-project batch CSV.
var BatchColumns = []string{"Project", "Risk Score", "Verdict", "Top Red Flag", "Flag Count", "Status", "Processing Time", "Scanned At", "Recommendation"}

// CSVRenderer writes one row per metric.
type CSVRenderer struct{}

func (c *CSVRenderer) Render(w io.Writer, r *report.Report) error {
	return ReportCSV(w, r)
}

// ReportCSV writes the per-metric CSV for a report. Fields are RFC 4180 quoted
// when they contain commas, quotes or newlines.
func ReportCSV(w io.Writer, r *report.Report) error {
	if r == nil {
		return ErrNilReport
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ReportColumns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, m := range r.Metrics {
		row := []string{
			m.Key,
			m.Name,
			formatFloat(m.Score),
			string(m.Status),
			formatFloat(m.Confidence),
			strconv.Itoa(m.Weight),
			formatFloat(m.Contribution),
			strings.Join(m.Flags, "; "),
			m.Evidence.PlainText(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row %s: %w", m.Key, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// BatchCSV writes one row per project. Failed projects are included with
// status "error" and the failure message in the recommendation column.
func BatchCSV(w io.Writer, res *batch.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(BatchColumns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range res.Reports {
		rec := ""
		if len(r.Recommendations) > 0 {
			rec = r.Recommendations[0]
		}
		row := []string{
			r.Name(),
			strconv.Itoa(r.Metadata.RiskScore),
			string(r.Metadata.Verdict),
			r.TopRedFlag(),
			strconv.Itoa(len(r.RedFlags())),
			"completed",
			strconv.FormatInt(r.Metadata.ProcessingTime, 10),
			r.Metadata.ScannedAt.Format(time.RFC3339),
			rec,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row %s: %w", r.Name(), err)
		}
	}
	for _, e := range res.Summary.Errors {
		row := []string{e.Project, "", "", "", "0", "error", "", "", e.Error}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv error row %s: %w", e.Project, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseCSV reads back a CSV written by ReportCSV or BatchCSV, header included.
func ParseCSV(r io.Reader) ([][]string, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	return records, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
