package batch

import (
	"math"
	"sort"
	"time"

	"github.com/riskscope/riskscope/pkg/report"
	"github.com/riskscope/riskscope/pkg/scoring"
)

// Summary is the aggregate over the scored projects of a batch.
// Passed+Flagged+Rejected always equals Total; failed projects are in Errors.
type Summary struct {
	Total               int            `json:"total"`
	Passed              int            `json:"passed"`
	Flagged             int            `json:"flagged"`
	Rejected            int            `json:"rejected"`
	AverageRiskScore    int            `json:"averageRiskScore"`
	ProcessingTime      int64          `json:"processingTime"` // milliseconds
	RedFlagDistribution map[string]int `json:"redFlagDistribution"`
	Errors              []ProjectError `json:"errors,omitempty"`
}

// Summarize computes counts, the rounded mean score and the red flag
// distribution. Each flag is counted once per flagged or rejected project.
func Summarize(reports []*report.Report, elapsed time.Duration) Summary {
	s := Summary{
		ProcessingTime:      elapsed.Milliseconds(),
		RedFlagDistribution: make(map[string]int),
	}

	var sum int
	for _, r := range reports {
		if r == nil {
			continue
		}
		s.Total++
		sum += r.Metadata.RiskScore

		switch r.Metadata.Verdict {
		case scoring.VerdictReject:
			s.Rejected++
		case scoring.VerdictFlag:
			s.Flagged++
		default:
			s.Passed++
			continue
		}
		for _, flag := range r.RedFlags() {
			s.RedFlagDistribution[flag]++
		}
	}

	if s.Total > 0 {
		s.AverageRiskScore = int(math.Round(float64(sum) / float64(s.Total)))
	}
	return s
}

// FlagCount is one entry of a red flag distribution.
type FlagCount struct {
	Flag  string `json:"flag"`
	Count int    `json:"count"`
}

// TopFlags returns the distribution sorted by count descending, then flag.
func (s Summary) TopFlags() []FlagCount {
	out := make([]FlagCount, 0, len(s.RedFlagDistribution))
	for f, c := range s.RedFlagDistribution {
		out = append(out, FlagCount{Flag: f, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Flag < out[j].Flag
	})
	return out
}
