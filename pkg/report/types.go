// Package report assembles a composite score, per-metric evidence and project
// identity into the Report handed to export and persistence collaborators.
package report

import (
	"errors"
	"time"

	"github.com/riskscope/riskscope/pkg/catalog"
	"github.com/riskscope/riskscope/pkg/evidence"
	"github.com/riskscope/riskscope/pkg/scoring"
)

// ErrInvalidIdentity is returned when an input has neither a display nor a canonical name.
var ErrInvalidIdentity = errors.New("project identity requires a name")

// Identity names the project being analysed.
type Identity struct {
	DisplayName   string   `json:"displayName"`
	CanonicalName string   `json:"canonicalName"`
	Platform      string   `json:"platform"`
	Sources       []string `json:"sources"`
}

// Input is one project's identity plus its observation set.
type Input struct {
	Identity     Identity              `json:"identity"`
	Observations []scoring.Observation `json:"observations"`
}

// Name returns the best human name for the input.
func (in Input) Name() string {
	if in.Identity.DisplayName != "" {
		return in.Identity.DisplayName
	}
	return in.Identity.CanonicalName
}

// Report is the complete result of analysing one project.
// Its JSON form is the external report contract.
type Report struct {
	ID              string            `json:"id"`
	Metadata        Metadata          `json:"metadata"`
	OverallRisk     OverallRisk       `json:"overallRisk"`
	Metrics         []MetricReport    `json:"metrics"`
	Sources         []string          `json:"sources"`
	Recommendations []string          `json:"recommendations"`
	Entities        []evidence.Entity `json:"entities"`
}

// Metadata identifies the report and repeats the headline numbers.
type Metadata struct {
	ProjectName    string          `json:"projectName"`
	CanonicalName  string          `json:"canonicalName"`
	Platform       string          `json:"platform"`
	ScannedAt      time.Time       `json:"scannedAt"`
	RiskScore      int             `json:"riskScore"`
	Verdict        scoring.Verdict `json:"verdict"`
	RiskTier       scoring.Tier    `json:"riskTier"`
	Confidence     float64         `json:"confidence"`
	ProcessingTime int64           `json:"processingTime"` // milliseconds
}

// OverallRisk is the composite result with its contribution breakdown.
type OverallRisk struct {
	Score      int                    `json:"score"`
	Verdict    scoring.Verdict        `json:"verdict"`
	Tier       scoring.Tier           `json:"tier"`
	Confidence float64                `json:"confidence"`
	Breakdown  []scoring.Contribution `json:"breakdown"`
}

// MetricReport is one metric's score with its evidence narrative.
type MetricReport struct {
	Key          string         `json:"key"`
	Name         string         `json:"name"`
	Score        float64        `json:"score"`
	Status       catalog.Status `json:"status"`
	Confidence   float64        `json:"confidence"`
	Weight       int            `json:"weight"`
	Contribution float64        `json:"contribution"`
	Flags        []string       `json:"flags"`
	Evidence     evidence.Block `json:"evidence"`
}

// Name returns the display name of the project.
func (r *Report) Name() string {
	if r.Metadata.ProjectName != "" {
		return r.Metadata.ProjectName
	}
	return r.Metadata.CanonicalName
}

// RedFlags returns the distinct flags raised across all metrics, in
// breakdown order (highest contribution first).
func (r *Report) RedFlags() []string {
	seen := make(map[string]bool)
	flags := []string{}
	for _, m := range r.Metrics {
		for _, f := range m.Flags {
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			flags = append(flags, f)
		}
	}
	return flags
}

// TopRedFlag returns the flag from the highest-contributing metric, or "".
func (r *Report) TopRedFlag() string {
	if flags := r.RedFlags(); len(flags) > 0 {
		return flags[0]
	}
	return ""
}

// Metric returns the metric entry for key.
func (r *Report) Metric(key string) (MetricReport, bool) {
	for _, m := range r.Metrics {
		if m.Key == key {
			return m, true
		}
	}
	return MetricReport{}, false
}
