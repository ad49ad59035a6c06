package report_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskscope/riskscope/pkg/catalog"
	"github.com/riskscope/riskscope/pkg/evidence"
	"github.com/riskscope/riskscope/pkg/report"
	"github.com/riskscope/riskscope/pkg/scoring"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testAssembler() *report.Assembler {
	a := report.NewAssembler(nil, nil)
	a.Now = func() time.Time { return fixedTime }
	a.NewID = func() string { return "report-1" }
	return a
}

func scenarioA() report.Input {
	var obs []scoring.Observation
	for _, def := range catalog.Default().All() {
		obs = append(obs, scoring.Observation{Key: def.Key, Confidence: 75})
	}
	obs[0].Score = 92
	obs[0].Flags = []string{"Linked to prior rug pull"}
	obs[0].Facts = evidence.Facts{
		Associates: []evidence.Entity{
			{Name: "RugCo", Relation: "advisor", Outcome: "rug pull", RiskScore: 92, Confidence: 70},
			{Name: "SafeFund", Relation: "investor", RiskScore: 5, Confidence: 90},
		},
	}
	obs[1].Score = 85
	obs[1].Flags = []string{"Anonymous team", "Linked to prior rug pull"}
	obs[1].Facts = evidence.Facts{
		Associates: []evidence.Entity{{Name: "RugCo", RiskScore: 80, Confidence: 85}},
	}
	obs[3].Score = 60
	obs[3].Facts = evidence.Facts{ContractAddress: "0xabc", TokenSymbol: "MVT"}

	return report.Input{
		Identity: report.Identity{
			DisplayName: "Moon Vault",
			Platform:    "ethereum",
			Sources:     []string{"https://moonvault.example"},
		},
		Observations: obs,
	}
}

func TestAssembleScenarioA(t *testing.T) {
	r, err := testAssembler().Assemble(scenarioA())
	require.NoError(t, err)

	assert.Equal(t, "report-1", r.ID)
	assert.Equal(t, "Moon Vault", r.Metadata.ProjectName)
	assert.Equal(t, "moon-vault", r.Metadata.CanonicalName)
	assert.Equal(t, "ethereum", r.Metadata.Platform)
	assert.Equal(t, fixedTime, r.Metadata.ScannedAt)
	assert.Equal(t, int64(0), r.Metadata.ProcessingTime)

	assert.Equal(t, 33, r.Metadata.RiskScore)
	assert.Equal(t, scoring.VerdictFlag, r.Metadata.Verdict)
	assert.Equal(t, scoring.TierModerate, r.Metadata.RiskTier)
	assert.Equal(t, 75.0, r.Metadata.Confidence)
	assert.Equal(t, r.Metadata.RiskScore, r.OverallRisk.Score)

	require.Len(t, r.Metrics, 13)
	assert.Equal(t, catalog.ContaminatedNetwork, r.Metrics[0].Key)
	assert.Equal(t, catalog.TeamIdentity, r.Metrics[1].Key)
	assert.Equal(t, catalog.Tokenomics, r.Metrics[2].Key)
	for i, m := range r.Metrics {
		assert.Equal(t, m.Key, m.Evidence.MetricKey)
		assert.Equal(t, r.OverallRisk.Breakdown[i].Key, m.Key)
	}

	assert.Equal(t, report.Recommendations(33), r.Recommendations)
	assert.Equal(t, "https://moonvault.example", r.Sources[0])
}

func TestAssembleFillsProjectNameInEvidence(t *testing.T) {
	r, err := testAssembler().Assemble(scenarioA())
	require.NoError(t, err)

	m, ok := r.Metric(catalog.BusFactor)
	require.True(t, ok)
	assert.Contains(t, m.Evidence.Headline, "Moon Vault")
}

func TestAssembleEntities(t *testing.T) {
	r, err := testAssembler().Assemble(scenarioA())
	require.NoError(t, err)

	require.Len(t, r.Entities, 2)
	assert.Equal(t, "RugCo", r.Entities[0].Name)
	assert.Equal(t, 92.0, r.Entities[0].RiskScore)
	assert.Equal(t, 85.0, r.Entities[0].Confidence)
	assert.Equal(t, "rug pull", r.Entities[0].Outcome)
	assert.Equal(t, "SafeFund", r.Entities[1].Name)
}

func TestRedFlags(t *testing.T) {
	r, err := testAssembler().Assemble(scenarioA())
	require.NoError(t, err)

	assert.Equal(t, []string{"Linked to prior rug pull", "Anonymous team"}, r.RedFlags())
	assert.Equal(t, "Linked to prior rug pull", r.TopRedFlag())

	empty := &report.Report{}
	assert.Empty(t, empty.RedFlags())
	assert.Equal(t, "", empty.TopRedFlag())
}

func TestAssembleErrors(t *testing.T) {
	a := testAssembler()

	in := scenarioA()
	in.Identity = report.Identity{}
	_, err := a.Assemble(in)
	assert.True(t, errors.Is(err, report.ErrInvalidIdentity))

	in = scenarioA()
	in.Observations = in.Observations[:12]
	_, err = a.Assemble(in)
	assert.True(t, errors.Is(err, scoring.ErrMissingMetric))

	in = scenarioA()
	in.Observations[5].Score = 140
	_, err = a.Assemble(in)
	assert.True(t, errors.Is(err, scoring.ErrScoreOutOfRange))
}

func TestCanonicalNameOnly(t *testing.T) {
	in := scenarioA()
	in.Identity = report.Identity{CanonicalName: "moonvault"}
	r, err := testAssembler().Assemble(in)
	require.NoError(t, err)

	assert.Equal(t, "moonvault", r.Name())
	assert.Equal(t, "unknown", r.Metadata.Platform)
}

func TestJSONRoundTrip(t *testing.T) {
	r, err := testAssembler().Assemble(scenarioA())
	require.NoError(t, err)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded report.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r, &decoded)
}

func TestJSONContract(t *testing.T) {
	r, err := testAssembler().Assemble(scenarioA())
	require.NoError(t, err)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var raw map[string]map[string]any
	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &top))
	for _, key := range []string{"id", "metadata", "overallRisk", "metrics", "sources", "recommendations", "entities"} {
		assert.Contains(t, top, key)
	}

	require.NoError(t, json.Unmarshal([]byte(`{"metadata":`+string(top["metadata"])+`}`), &raw))
	for _, key := range []string{"projectName", "canonicalName", "scannedAt", "riskScore", "verdict", "riskTier", "confidence", "processingTime"} {
		assert.Contains(t, raw["metadata"], key)
	}
	assert.Equal(t, "2024-05-01T12:00:00Z", raw["metadata"]["scannedAt"])
}

func TestRecommendationLadder(t *testing.T) {
	tests := []struct {
		score int
		first string
	}{
		{100, "Avoid this project"},
		{80, "Avoid this project"},
		{79, "Do not invest without"},
		{60, "Do not invest without"},
		{59, "Proceed only after"},
		{40, "Proceed only after"},
		{39, "Risk is modest"},
		{20, "Risk is modest"},
		{19, "No significant risk"},
		{0, "No significant risk"},
	}
	for _, tt := range tests {
		recs := report.Recommendations(tt.score)
		require.NotEmpty(t, recs)
		assert.Contains(t, recs[0], tt.first, "score %d", tt.score)
	}

	recs := report.Recommendations(90)
	recs[0] = "mutated"
	assert.NotEqual(t, "mutated", report.Recommendations(90)[0])
}
