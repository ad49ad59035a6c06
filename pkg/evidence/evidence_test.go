package evidence_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskscope/riskscope/pkg/catalog"
	"github.com/riskscope/riskscope/pkg/evidence"
)

func richFacts() evidence.Facts {
	return evidence.Facts{
		ProjectName: "MoonVault",
		TeamMembers: []evidence.TeamMember{
			{Name: "Alice Chen", Role: "ceo", Handle: "@alice", Verified: true, PriorProjects: []string{"Aave", "Curve"}},
			{Name: "Ghost", Role: "cto"},
		},
		Associates: []evidence.Entity{
			{Name: "RugCo", Relation: "advisor", Outcome: "rug pull", RiskScore: 92, Confidence: 80},
			{Name: "SafeFund", Relation: "investor", RiskScore: 10, Confidence: 90},
		},
		RepoURL:         "https://github.com/moonvault/core",
		ContractAddress: "0x1234567890abcdef1234567890abcdef12345678",
		Chain:           "ethereum",
		TokenSymbol:     "mvt",
		TwitterHandle:   "@moonvault",
		DiscordServer:   "MoonVault",
		Keywords:        []string{"100x", "moon"},
		Metrics: map[string]float64{
			"top10HolderShare": 71,
			"vestingMonths":    0,
			"botRatio":         44,
		},
	}
}

func TestBandForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  evidence.Band
	}{
		{0, evidence.BandLow},
		{29.99, evidence.BandLow},
		{30, evidence.BandMedium},
		{59, evidence.BandMedium},
		{60, evidence.BandHigh},
		{100, evidence.BandHigh},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, evidence.BandForScore(tc.score), "score %v", tc.score)
	}
}

func TestDefaultRegistryCoversCatalog(t *testing.T) {
	reg := evidence.DefaultRegistry()
	for _, def := range catalog.Default().All() {
		for _, band := range []evidence.Band{evidence.BandHigh, evidence.BandMedium, evidence.BandLow} {
			_, ok := reg.Lookup(def.Key, band)
			assert.True(t, ok, "missing template for %s/%s", def.Key, band)
		}
	}
	assert.Len(t, reg.Metrics(), catalog.Default().Len())
}

func TestGenerateEveryCell(t *testing.T) {
	gen := evidence.NewGenerator(nil)
	for _, def := range catalog.Default().All() {
		for _, score := range []float64{5, 45, 85} {
			for name, facts := range map[string]evidence.Facts{"rich": richFacts(), "empty": {}} {
				t.Run(def.Key+"/"+name, func(t *testing.T) {
					b := gen.Generate(def.Key, score, facts)

					assert.Equal(t, def.Key, b.MetricKey)
					assert.Equal(t, evidence.BandForScore(score), b.Band)
					assert.NotEmpty(t, b.Headline)
					assert.Equal(t, evidence.AnalysisMarker, b.Marker)
					require.Len(t, b.Sections, 3)
					assert.Equal(t, evidence.SectionFindings, b.Sections[0].Title)
					assert.Equal(t, evidence.SectionRedFlags, b.Sections[1].Title)
					assert.Equal(t, evidence.SectionSources, b.Sections[2].Title)
					for _, s := range b.Sections {
						assert.NotEmpty(t, s.Bullets, "section %s", s.Title)
					}
					assert.NotEmpty(t, b.Sources)
				})
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	gen := evidence.NewGenerator(nil)
	facts := richFacts()

	first := gen.Generate(catalog.ContaminatedNetwork, 92, facts)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, gen.Generate(catalog.ContaminatedNetwork, 92, facts))
	}
}

func TestGenerateUsesFacts(t *testing.T) {
	gen := evidence.NewGenerator(nil)
	facts := richFacts()

	b := gen.Generate(catalog.ContaminatedNetwork, 92, facts)
	md := b.Markdown()
	assert.Contains(t, md, "RugCo")
	assert.Contains(t, md, "rug pull")
	assert.NotContains(t, md, "SafeFund")

	b = gen.Generate(catalog.Tokenomics, 80, facts)
	assert.Contains(t, b.Headline, "$MVT")
	assert.Contains(t, b.Summary, "0x1234...5678")
	assert.Contains(t, b.Markdown(), "71%")
	assert.Contains(t, b.Markdown(), "No vesting")

	b = gen.Generate(catalog.TeamIdentity, 70, facts)
	assert.Contains(t, b.Summary, "1 of 2")
	assert.Contains(t, b.Markdown(), "Ghost (Cto)")

	b = gen.Generate(catalog.FounderDistraction, 45, evidence.Facts{
		TeamMembers: []evidence.TeamMember{{Name: "élodie"}},
	})
	assert.Contains(t, b.Markdown(), "- Élodie divide time between this project and other work.")
	assert.True(t, utf8.ValidString(b.Markdown()))
}

func TestGenerateUnknownMetricFallsBack(t *testing.T) {
	gen := evidence.NewGenerator(nil)

	b := gen.Generate("moonPotential", 75, evidence.Facts{})
	assert.Equal(t, "moonPotential", b.MetricKey)
	assert.Equal(t, evidence.BandHigh, b.Band)
	assert.Contains(t, b.Headline, "moonPotential")
	assert.Equal(t, []string{"Automated signal analysis"}, b.Sources)
}

func TestGenerateMarkerWithTimestamp(t *testing.T) {
	gen := evidence.NewGenerator(nil)
	b := gen.Generate(catalog.BusFactor, 10, evidence.Facts{AnalyzedAt: "2024-05-01T00:00:00Z"})
	assert.Equal(t, "Analysis Complete: 2024-05-01T00:00:00Z", b.Marker)
}

func TestCollectedSourcesComeFirst(t *testing.T) {
	gen := evidence.NewGenerator(nil)
	b := gen.Generate(catalog.BusFactor, 10, evidence.Facts{Sources: []string{"Manual review", "Repository commit history"}})
	assert.Equal(t, []string{"Manual review", "Repository commit history"}, b.Sources)
}

func TestCustomRegistry(t *testing.T) {
	reg := evidence.NewRegistry()
	reg.Register("custom", evidence.BandLow, func(score float64, f evidence.Facts) evidence.Narrative {
		return evidence.Narrative{Headline: "custom low"}
	})
	gen := evidence.NewGenerator(reg)

	b := gen.Generate("custom", 1, evidence.Facts{})
	assert.Equal(t, "custom low", b.Headline)
	assert.Equal(t, []string{"No notable findings were recorded for this signal."}, b.Sections[0].Bullets)
	assert.Equal(t, []string{"None identified."}, b.Sections[1].Bullets)

	// Other bands for the same metric fall back to the generic template.
	b = gen.Generate("custom", 90, evidence.Facts{})
	assert.Contains(t, b.Headline, "Elevated risk")
}

func TestMarkdownAndPlainText(t *testing.T) {
	b := evidence.Block{
		Headline: "Team A, Team B overlap",
		Summary:  "Two teams share wallets.",
		Sections: []evidence.Section{
			{Title: evidence.SectionFindings, Bullets: []string{"**RugCo** advised both.", "Shared deployer."}},
			{Title: evidence.SectionRedFlags, Bullets: []string{"*Repeat* actors."}},
			{Title: evidence.SectionSources, Bullets: []string{"Explorer"}},
		},
		Marker: evidence.AnalysisMarker,
	}

	md := b.Markdown()
	assert.True(t, strings.HasPrefix(md, "**Team A, Team B overlap**\n\n"))
	assert.Contains(t, md, "### Findings\n\n- **RugCo** advised both.\n- Shared deployer.\n")
	assert.Contains(t, md, "*Analysis Complete*")

	assert.Equal(t,
		"Team A, Team B overlap. Two teams share wallets. Findings: RugCo advised both; Shared deployer. Red Flags: Repeat actors.",
		b.PlainText())
}
