package batch

import (
	"time"

	"github.com/riskscope/riskscope/pkg/scoring"
)

// PartnerPacket is the exportable bundle summarising a batch for external handoff.
type PartnerPacket struct {
	Summary  PacketSummary   `json:"summary"`
	Projects []PacketProject `json:"projects"`
}

// PacketSummary is the summary block of a partner packet.
type PacketSummary struct {
	Total               int            `json:"total"`
	Passed              int            `json:"passed"`
	Flagged             int            `json:"flagged"`
	Rejected            int            `json:"rejected"`
	AverageRiskScore    int            `json:"averageRiskScore"`
	ProcessingTime      int64          `json:"processingTime"`
	RedFlagDistribution map[string]int `json:"redFlagDistribution"`
	GeneratedAt         time.Time      `json:"generatedAt"`
}

// PacketProject is one scored project in a partner packet.
type PacketProject struct {
	Name           string          `json:"name"`
	RiskScore      int             `json:"riskScore"`
	Verdict        scoring.Verdict `json:"verdict"`
	RedFlags       []string        `json:"redFlags"`
	ProcessingTime int64           `json:"processingTime"`
	ScannedAt      time.Time       `json:"scannedAt"`
}

// NewPartnerPacket builds the partner packet for a batch result.
func NewPartnerPacket(res *Result, generatedAt time.Time) PartnerPacket {
	s := res.Summary
	dist := make(map[string]int, len(s.RedFlagDistribution))
	for k, v := range s.RedFlagDistribution {
		dist[k] = v
	}

	p := PartnerPacket{
		Summary: PacketSummary{
			Total:               s.Total,
			Passed:              s.Passed,
			Flagged:             s.Flagged,
			Rejected:            s.Rejected,
			AverageRiskScore:    s.AverageRiskScore,
			ProcessingTime:      s.ProcessingTime,
			RedFlagDistribution: dist,
			GeneratedAt:         generatedAt.UTC().Round(0),
		},
		Projects: make([]PacketProject, 0, len(res.Reports)),
	}
	for _, r := range res.Reports {
		p.Projects = append(p.Projects, PacketProject{
			Name:           r.Name(),
			RiskScore:      r.Metadata.RiskScore,
			Verdict:        r.Metadata.Verdict,
			RedFlags:       r.RedFlags(),
			ProcessingTime: r.Metadata.ProcessingTime,
			ScannedAt:      r.Metadata.ScannedAt,
		})
	}
	return p
}
