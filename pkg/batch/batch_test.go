package batch_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskscope/riskscope/pkg/batch"
	"github.com/riskscope/riskscope/pkg/catalog"
	"github.com/riskscope/riskscope/pkg/evidence"
	"github.com/riskscope/riskscope/pkg/report"
	"github.com/riskscope/riskscope/pkg/scoring"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// uniformInput gives every metric the same score, so the composite equals score.
func uniformInput(name string, score float64, flags ...string) report.Input {
	var obs []scoring.Observation
	for _, def := range catalog.Default().All() {
		obs = append(obs, scoring.Observation{Key: def.Key, Score: score, Confidence: 80})
	}
	obs[0].Flags = flags
	return report.Input{Identity: report.Identity{DisplayName: name}, Observations: obs}
}

func newRunner(a batch.Assembler) *batch.Runner {
	r := batch.NewRunner(a, nil)
	r.Now = func() time.Time { return fixedTime }
	return r
}

func defaultAssembler() *report.Assembler {
	a := report.NewAssembler(nil, nil)
	a.Now = func() time.Time { return fixedTime }
	return a
}

func TestRunFiftyProjectsInvariant(t *testing.T) {
	var inputs []report.Input
	var sum float64
	for i := 0; i < 50; i++ {
		score := float64((i * 37) % 101)
		sum += score
		inputs = append(inputs, uniformInput(fmt.Sprintf("project-%d", i), score))
	}

	res, err := newRunner(defaultAssembler()).Run(context.Background(), inputs)
	require.NoError(t, err)

	s := res.Summary
	assert.Equal(t, 50, s.Total)
	assert.Equal(t, s.Total, s.Passed+s.Flagged+s.Rejected)
	assert.Equal(t, int(math.Round(sum/50)), s.AverageRiskScore)
	assert.Empty(t, s.Errors)
	assert.False(t, res.Cancelled)

	// Reports stay in input order regardless of completion order.
	for i, r := range res.Reports {
		assert.Equal(t, fmt.Sprintf("project-%d", i), r.Name())
	}
}

func TestRunCapacityExceeded(t *testing.T) {
	inputs := make([]report.Input, 101)
	for i := range inputs {
		inputs[i] = uniformInput(fmt.Sprintf("p%d", i), 10)
	}

	res, err := newRunner(defaultAssembler()).Run(context.Background(), inputs)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, batch.ErrCapacityExceeded))

	_, err = newRunner(defaultAssembler()).Run(context.Background(), inputs[:100])
	assert.NoError(t, err)
}

func TestRunConfiguredCap(t *testing.T) {
	r := newRunner(defaultAssembler())
	r.MaxProjects = 2

	_, err := r.Run(context.Background(), []report.Input{uniformInput("a", 1), uniformInput("b", 1), uniformInput("c", 1)})
	assert.True(t, errors.Is(err, batch.ErrCapacityExceeded))
}

type faultyAssembler struct {
	inner *report.Assembler
}

func (f faultyAssembler) Assemble(in report.Input) (*report.Report, error) {
	switch in.Identity.DisplayName {
	case "panics":
		panic("collector returned garbage")
	case "fails":
		return nil, errors.New("upstream timeout")
	}
	return f.inner.Assemble(in)
}

func TestRunIsolatesFailures(t *testing.T) {
	inputs := []report.Input{
		uniformInput("ok-1", 10),
		uniformInput("panics", 10),
		uniformInput("fails", 10),
		uniformInput("ok-2", 70),
	}
	bad := uniformInput("missing", 10)
	bad.Observations = bad.Observations[:5]
	inputs = append(inputs, bad)

	res, err := newRunner(faultyAssembler{inner: defaultAssembler()}).Run(context.Background(), inputs)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.Total)
	require.Len(t, res.Summary.Errors, 3)
	assert.Equal(t, "panics", res.Summary.Errors[0].Project)
	assert.Contains(t, res.Summary.Errors[0].Error, "panic")
	assert.Equal(t, "fails", res.Summary.Errors[1].Project)
	assert.Equal(t, 4, res.Summary.Errors[2].Index)
	assert.Contains(t, res.Summary.Errors[2].Error, "missing metric")
	assert.Equal(t, 40, res.Summary.AverageRiskScore)
}

type cancellingAssembler struct {
	inner  *report.Assembler
	cancel context.CancelFunc
	after  int32
	calls  atomic.Int32
}

func (c *cancellingAssembler) Assemble(in report.Input) (*report.Report, error) {
	if c.calls.Add(1) == c.after {
		c.cancel()
	}
	return c.inner.Assemble(in)
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := &cancellingAssembler{inner: defaultAssembler(), cancel: cancel, after: 3}
	r := newRunner(a)
	r.Concurrency = 1

	var inputs []report.Input
	for i := 0; i < 10; i++ {
		inputs = append(inputs, uniformInput(fmt.Sprintf("p%d", i), 50))
	}

	res, err := r.Run(ctx, inputs)
	require.NoError(t, err)

	assert.True(t, res.Cancelled)
	assert.Equal(t, 3, res.Summary.Total)
	assert.Equal(t, 7, res.Skipped)
	assert.Equal(t, res.Summary.Total, res.Summary.Passed+res.Summary.Flagged+res.Summary.Rejected)
	assert.Equal(t, 50, res.Summary.AverageRiskScore)
}

func TestRunAcceptRejectsProject(t *testing.T) {
	inputs := []report.Input{
		uniformInput("good-1", 20),
		uniformInput("unsaveable", 90),
		uniformInput("good-2", 40),
	}

	r := newRunner(defaultAssembler())
	var accepted atomic.Int32
	r.Accept = func(i int, in report.Input, rep *report.Report) error {
		if in.Name() == "unsaveable" {
			return errors.New("disk full")
		}
		accepted.Add(1)
		return nil
	}

	res, err := r.Run(context.Background(), inputs)
	require.NoError(t, err)

	assert.Equal(t, int32(2), accepted.Load())
	require.Len(t, res.Reports, 2)
	assert.Equal(t, 2, res.Summary.Total)
	assert.Equal(t, 0, res.Summary.Rejected)
	assert.Equal(t, 30, res.Summary.AverageRiskScore)
	require.Len(t, res.Summary.Errors, 1)
	assert.Equal(t, 1, res.Summary.Errors[0].Index)
	assert.Equal(t, "unsaveable", res.Summary.Errors[0].Project)
	assert.Contains(t, res.Summary.Errors[0].Error, "disk full")
}

func TestRunAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newRunner(defaultAssembler()).Run(ctx, []report.Input{uniformInput("a", 10)})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, 0, res.Summary.Total)
	assert.Equal(t, 1, res.Skipped)
}

func TestSummarizeRedFlagDistribution(t *testing.T) {
	a := defaultAssembler()
	var reports []*report.Report
	for _, in := range []report.Input{
		uniformInput("clean", 10, "Anonymous team"),
		uniformInput("shady", 45, "Anonymous team", "Unlocked supply"),
		uniformInput("scam", 90, "Anonymous team"),
	} {
		r, err := a.Assemble(in)
		require.NoError(t, err)
		reports = append(reports, r)
	}

	s := batch.Summarize(reports, 1500*time.Millisecond)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 1, s.Flagged)
	assert.Equal(t, 1, s.Rejected)
	assert.Equal(t, int64(1500), s.ProcessingTime)
	assert.Equal(t, map[string]int{"Anonymous team": 2, "Unlocked supply": 1}, s.RedFlagDistribution)
	assert.Equal(t, []batch.FlagCount{{Flag: "Anonymous team", Count: 2}, {Flag: "Unlocked supply", Count: 1}}, s.TopFlags())

	empty := batch.Summarize(nil, 0)
	assert.Equal(t, 0, empty.AverageRiskScore)
	assert.NotNil(t, empty.RedFlagDistribution)
}

func reportWithEntities(name string, entities ...evidence.Entity) *report.Report {
	return &report.Report{
		Metadata: report.Metadata{ProjectName: name},
		Entities: entities,
	}
}

func TestFlagEntities(t *testing.T) {
	reports := []*report.Report{
		reportWithEntities("Alpha",
			evidence.Entity{Name: "RugCo", RiskScore: 90, Confidence: 70},
			evidence.Entity{Name: "Borderline", RiskScore: 60, Confidence: 99},
			evidence.Entity{Name: "Loner", RiskScore: 95, Confidence: 99},
		),
		reportWithEntities("Beta",
			evidence.Entity{Name: "RugCo", RiskScore: 75, Confidence: 85},
			evidence.Entity{Name: "RugCo", RiskScore: 75, Confidence: 10},
			evidence.Entity{Name: "Borderline", RiskScore: 60, Confidence: 99},
			evidence.Entity{Name: "ShadyVC", RiskScore: 61, Confidence: 40},
		),
		reportWithEntities("Gamma",
			evidence.Entity{Name: "RugCo", RiskScore: 99, Confidence: 60},
			evidence.Entity{Name: "ShadyVC", RiskScore: 80, Confidence: 55},
		),
		nil,
	}

	got := batch.FlagEntities(reports)
	require.Len(t, got, 2)

	assert.Equal(t, batch.FlaggedEntity{
		Name:       "RugCo",
		Count:      3,
		Projects:   []string{"Alpha", "Beta", "Gamma"},
		Confidence: 85,
	}, got[0])
	assert.Equal(t, batch.FlaggedEntity{
		Name:       "ShadyVC",
		Count:      2,
		Projects:   []string{"Beta", "Gamma"},
		Confidence: 55,
	}, got[1])
}

func TestAggregate(t *testing.T) {
	a := defaultAssembler()
	r1, err := a.Assemble(uniformInput("one", 20))
	require.NoError(t, err)
	r2, err := a.Assemble(uniformInput("two", 41))
	require.NoError(t, err)

	res, err := batch.Aggregate([]*report.Report{r1, nil, r2}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.Total)
	assert.Equal(t, 31, res.Summary.AverageRiskScore)

	_, err = batch.Aggregate(make([]*report.Report, 101), 0)
	assert.True(t, errors.Is(err, batch.ErrCapacityExceeded))
}

func TestNewPartnerPacket(t *testing.T) {
	res, err := newRunner(defaultAssembler()).Run(context.Background(), []report.Input{
		uniformInput("Alpha", 80, "Anonymous team"),
		uniformInput("Beta", 10),
	})
	require.NoError(t, err)

	p := batch.NewPartnerPacket(res, fixedTime)
	assert.Equal(t, 2, p.Summary.Total)
	assert.Equal(t, 1, p.Summary.Rejected)
	assert.Equal(t, 45, p.Summary.AverageRiskScore)
	assert.Equal(t, fixedTime, p.Summary.GeneratedAt)
	require.Len(t, p.Projects, 2)
	assert.Equal(t, batch.PacketProject{
		Name:      "Alpha",
		RiskScore: 80,
		Verdict:   scoring.VerdictReject,
		RedFlags:  []string{"Anonymous team"},
		ScannedAt: fixedTime,
	}, p.Projects[0])
	assert.Equal(t, []string{}, p.Projects[1].RedFlags)

	// The packet owns its distribution map.
	p.Summary.RedFlagDistribution["x"] = 1
	assert.NotContains(t, res.Summary.RedFlagDistribution, "x")
}
