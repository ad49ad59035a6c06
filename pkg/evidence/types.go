// Package evidence turns a metric score and the contextual facts gathered for a
// project into a deterministic narrative block. Narratives are selected from a
// registry keyed by (metric, band); identical inputs always yield identical output.
package evidence

import (
	"regexp"
	"strings"
)

// Band selects which narrative template applies to a score.
type Band string

const (
	BandHigh   Band = "high"   // score >= 60
	BandMedium Band = "medium" // 30 <= score < 60
	BandLow    Band = "low"    // score < 30
)

// BandForScore maps a metric score to its narrative band.
func BandForScore(score float64) Band {
	switch {
	case score >= 60:
		return BandHigh
	case score >= 30:
		return BandMedium
	default:
		return BandLow
	}
}

// AnalysisMarker closes every evidence block.
const AnalysisMarker = "Analysis Complete"

// Facts are the contextual observations the collector attached to a metric.
// Every field is optional; templates fall back to boilerplate when one is missing.
type Facts struct {
	ProjectName     string             `json:"projectName,omitempty"`
	TeamMembers     []TeamMember       `json:"teamMembers,omitempty"`
	Associates      []Entity           `json:"associates,omitempty"`
	RepoURL         string             `json:"repoUrl,omitempty"`
	ContractAddress string             `json:"contractAddress,omitempty"`
	Chain           string             `json:"chain,omitempty"`
	TokenSymbol     string             `json:"tokenSymbol,omitempty"`
	TwitterHandle   string             `json:"twitterHandle,omitempty"`
	DiscordServer   string             `json:"discordServer,omitempty"`
	Website         string             `json:"website,omitempty"`
	Keywords        []string           `json:"keywords,omitempty"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
	Sources         []string           `json:"sources,omitempty"`
	AnalyzedAt      string             `json:"analyzedAt,omitempty"`
}

// TeamMember is a person publicly associated with the project.
type TeamMember struct {
	Name          string   `json:"name"`
	Role          string   `json:"role,omitempty"`
	Handle        string   `json:"handle,omitempty"`
	Verified      bool     `json:"verified"`
	PriorProjects []string `json:"priorProjects,omitempty"`
}

// Entity is a person, fund or project linked to the team.
type Entity struct {
	Name       string  `json:"name"`
	Relation   string  `json:"relation,omitempty"` // "advisor", "investor", "former employer"
	Outcome    string  `json:"outcome,omitempty"`  // "rug pull", "abandoned", "exploited"
	RiskScore  float64 `json:"riskScore"`
	Confidence float64 `json:"confidence"`
}

// Section is a titled list of bullet lines inside a block.
type Section struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
}

// Block is the evidence narrative for a single metric.
type Block struct {
	MetricKey string    `json:"metricKey"`
	Headline  string    `json:"headline"`
	Summary   string    `json:"summary"`
	Sections  []Section `json:"sections"`
	Sources   []string  `json:"sources"`
	Band      Band      `json:"band"`
	Marker    string    `json:"marker"`
}

// Markdown renders the block in the light markdown dialect understood by the
// HTML exporter: bold headline, section headers, bullet lines, italic marker.
func (b Block) Markdown() string {
	var sb strings.Builder
	sb.WriteString("**" + b.Headline + "**\n\n")
	if b.Summary != "" {
		sb.WriteString(b.Summary + "\n\n")
	}
	for _, s := range b.Sections {
		sb.WriteString("### " + s.Title + "\n\n")
		for _, line := range s.Bullets {
			sb.WriteString("- " + line + "\n")
		}
		sb.WriteString("\n")
	}
	if b.Marker != "" {
		sb.WriteString("*" + b.Marker + "*\n")
	}
	return sb.String()
}

var emphasis = regexp.MustCompile(`\*{1,2}([^*]+)\*{1,2}`)

// PlainText flattens the block into one line of text without markdown markers.
func (b Block) PlainText() string {
	parts := []string{strings.TrimSuffix(b.Headline, ".") + "."}
	if b.Summary != "" {
		parts = append(parts, b.Summary)
	}
	for _, s := range b.Sections {
		if s.Title == SectionSources || len(s.Bullets) == 0 {
			continue
		}
		lines := make([]string, len(s.Bullets))
		for i, line := range s.Bullets {
			lines[i] = strings.TrimSuffix(line, ".")
		}
		parts = append(parts, s.Title+": "+strings.Join(lines, "; ")+".")
	}
	return emphasis.ReplaceAllString(strings.Join(parts, " "), "$1")
}

// Section titles used by every template.
const (
	SectionFindings = "Findings"
	SectionRedFlags = "Red Flags"
	SectionSources  = "Evidence Sources"
)
