package analysis_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskscope/riskscope/internal/analysis"
	"github.com/riskscope/riskscope/internal/blob"
	"github.com/riskscope/riskscope/internal/notify"
	"github.com/riskscope/riskscope/internal/store"
	"github.com/riskscope/riskscope/internal/testutil"
	"github.com/riskscope/riskscope/pkg/batch"
	"github.com/riskscope/riskscope/pkg/catalog"
	"github.com/riskscope/riskscope/pkg/export"
	"github.com/riskscope/riskscope/pkg/report"
	"github.com/riskscope/riskscope/pkg/scoring"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, events ...notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type failingTarget struct{}

func (failingTarget) Name() string { return "flaky" }
func (failingTarget) Deliver(context.Context, *report.Report) error {
	return errors.New("endpoint down")
}

// flakyHistory fails to save reports for one project.
type flakyHistory struct {
	*store.MemoryHistory
	failFor string
}

func (h *flakyHistory) Save(ctx context.Context, rec store.Record) error {
	if rec.Report.Metadata.CanonicalName == h.failFor {
		return errors.New("connection reset")
	}
	return h.MemoryHistory.Save(ctx, rec)
}

type fixture struct {
	svc     *analysis.Service
	events  *recordingPublisher
	blobs   *blob.LocalStorage
	metrics *analysis.Metrics
}

func newFixture(t *testing.T, targets ...export.Target) fixture {
	t.Helper()
	events := &recordingPublisher{}
	blobs := blob.NewLocalStorage(t.TempDir())
	metrics := analysis.NewMetrics(prometheus.NewRegistry())
	svc := analysis.New(analysis.Options{
		Blobs:        blobs,
		Events:       events,
		ShareTargets: targets,
		Metrics:      metrics,
		Now:          func() time.Time { return testutil.FixedTime },
	})
	return fixture{svc: svc, events: events, blobs: blobs, metrics: metrics}
}

func TestAnalyze(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rep, err := f.svc.Analyze(ctx, testutil.UniformInput("Moon Vault", 45))
	require.NoError(t, err)
	assert.Equal(t, 45, rep.Metadata.RiskScore)
	assert.Equal(t, scoring.VerdictFlag, rep.Metadata.Verdict)

	stored, err := f.svc.Report(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.ID, stored.ID)

	_, err = blob.GetReport(ctx, f.blobs, "moon-vault", rep.ID)
	assert.NoError(t, err, "report JSON should be written to blob storage")

	assert.Equal(t, []string{notify.EventReportCompleted}, f.events.types())
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.ReportsTotal.WithLabelValues("flag")))
}

func TestAnalyzeValidationError(t *testing.T) {
	f := newFixture(t)
	in := testutil.UniformInput("Moon Vault", 45)
	in.Observations = in.Observations[:12]

	_, err := f.svc.Analyze(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, scoring.ErrMissingMetric)
	assert.True(t, analysis.IsValidation(err))
	assert.Empty(t, f.events.types())
}

func TestWatchlistAlert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Watch(ctx, store.WatchItem{DisplayName: "Moon Vault", AlertAt: 60})
	require.NoError(t, err)

	_, err = f.svc.Analyze(ctx, testutil.UniformInput("Moon Vault", 59))
	require.NoError(t, err)
	assert.Equal(t, []string{notify.EventReportCompleted}, f.events.types(), "below threshold: no alert")

	_, err = f.svc.Analyze(ctx, testutil.UniformInput("Moon Vault", 60))
	require.NoError(t, err)
	assert.Equal(t, []string{
		notify.EventReportCompleted,
		notify.EventReportCompleted,
		notify.EventWatchlistAlert,
	}, f.events.types())

	items, err := f.svc.Watchlist(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, f.svc.Unwatch(ctx, "moon-vault"))
	assert.True(t, analysis.IsNotFound(f.svc.Unwatch(ctx, "moon-vault")))
}

func TestHistoryAndRescore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Analyze(ctx, testutil.UniformInput("Moon Vault", 40))
	require.NoError(t, err)

	second, err := f.svc.Rescore(ctx, first.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Metadata.RiskScore, second.Metadata.RiskScore)

	hist, err := f.svc.History(ctx, "moon-vault", 10)
	require.NoError(t, err)
	assert.Len(t, hist, 2)

	_, err = f.svc.Rescore(ctx, "missing")
	assert.True(t, analysis.IsNotFound(err))
}

func TestRescoreUsesCurrentWeights(t *testing.T) {
	ctx := context.Background()
	history := store.NewMemoryHistory()

	// Only contaminatedNetwork is risky, so its weight alone drives the composite.
	in := testutil.UniformInput("Moon Vault", 0)
	in.Observations[0].Score = 100

	before := analysis.New(analysis.Options{History: history})
	rep, err := before.Analyze(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 19, rep.Metadata.RiskScore)

	cat, err := catalog.Default().WithWeights(map[string]int{
		catalog.ContaminatedNetwork: 29,
		catalog.TeamIdentity:        3,
	})
	require.NoError(t, err)
	engine, err := scoring.NewEngine(cat, scoring.DefaultThresholds())
	require.NoError(t, err)

	after := analysis.New(analysis.Options{History: history, Engine: engine})
	rescored, err := after.Rescore(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, 29, rescored.Metadata.RiskScore)
}

func TestBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Watch(ctx, store.WatchItem{DisplayName: "Rug Pull", AlertAt: 50})
	require.NoError(t, err)

	bad := testutil.UniformInput("Broken", 10)
	bad.Observations = nil
	inputs := []report.Input{
		testutil.UniformInput("Alpha", 10),
		testutil.UniformInput("Rug Pull", 80, "Known rug deployer"),
		bad,
	}

	out, err := f.svc.Batch(ctx, inputs)
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, 2, out.Result.Summary.Total)
	require.Len(t, out.Result.Summary.Errors, 1)
	assert.Equal(t, "Broken", out.Result.Summary.Errors[0].Project)
	assert.Equal(t, 2, out.Packet.Summary.Total)
	assert.Equal(t, blob.PacketKey(out.ID), out.PacketKey)

	// Every scored project is persisted with its input, so it can be rescored.
	for _, rep := range out.Result.Reports {
		rescored, err := f.svc.Rescore(ctx, rep.ID)
		require.NoError(t, err)
		assert.Equal(t, rep.Metadata.RiskScore, rescored.Metadata.RiskScore)
	}

	types := f.events.types()
	assert.Contains(t, types, notify.EventBatchCompleted)
	assert.Contains(t, types, notify.EventWatchlistAlert)

	assert.Equal(t, 2.0, promtest.ToFloat64(f.metrics.BatchProjectsTotal.WithLabelValues("scored")))
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.BatchProjectsTotal.WithLabelValues("failed")))
}

func TestBatchSaveFailureIsIsolated(t *testing.T) {
	events := &recordingPublisher{}
	metrics := analysis.NewMetrics(prometheus.NewRegistry())
	svc := analysis.New(analysis.Options{
		History: &flakyHistory{MemoryHistory: store.NewMemoryHistory(), failFor: "bad"},
		Events:  events,
		Metrics: metrics,
		Now:     func() time.Time { return testutil.FixedTime },
	})
	ctx := context.Background()

	out, err := svc.Batch(ctx, []report.Input{
		testutil.UniformInput("Good 1", 20),
		testutil.UniformInput("Bad", 90),
		testutil.UniformInput("Good 2", 40),
	})
	require.NoError(t, err)

	require.Len(t, out.Result.Reports, 2)
	assert.Equal(t, 2, out.Result.Summary.Total)
	assert.Equal(t, 0, out.Result.Summary.Rejected)
	assert.Equal(t, 30, out.Result.Summary.AverageRiskScore)
	require.Len(t, out.Result.Summary.Errors, 1)
	assert.Equal(t, 1, out.Result.Summary.Errors[0].Index)
	assert.Equal(t, "Bad", out.Result.Summary.Errors[0].Project)
	assert.Contains(t, out.Result.Summary.Errors[0].Error, "connection reset")

	assert.Equal(t, 2, out.Packet.Summary.Total)
	for _, p := range out.Packet.Projects {
		assert.NotEqual(t, "Bad", p.Name)
	}

	for _, rep := range out.Result.Reports {
		_, err := svc.Report(ctx, rep.ID)
		assert.NoError(t, err)
	}

	types := events.types()
	assert.Contains(t, types, notify.EventBatchCompleted)
	completed := 0
	for _, typ := range types {
		if typ == notify.EventReportCompleted {
			completed++
		}
	}
	assert.Equal(t, 2, completed, "no report.completed event for the unsaved project")
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.BatchProjectsTotal.WithLabelValues("failed")))
}

func TestBatchCapacity(t *testing.T) {
	f := newFixture(t)
	inputs := make([]report.Input, batch.MaxProjects+1)
	for i := range inputs {
		inputs[i] = testutil.UniformInput("p", 10)
	}
	_, err := f.svc.Batch(context.Background(), inputs)
	assert.ErrorIs(t, err, batch.ErrCapacityExceeded)
	assert.True(t, analysis.IsValidation(err))
}

func TestShareFailuresAreCounted(t *testing.T) {
	f := newFixture(t, failingTarget{})
	ctx := context.Background()

	rep, err := f.svc.Analyze(ctx, testutil.UniformInput("Moon Vault", 45))
	require.NoError(t, err, "share failures do not fail the analysis")
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.ExportFailuresTotal.WithLabelValues("flaky")))

	ok, err := f.svc.Share(ctx, rep.ID, failingTarget{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2.0, promtest.ToFloat64(f.metrics.ExportFailuresTotal.WithLabelValues("flaky")))
}

func TestEventFailureDoesNotFailAnalysis(t *testing.T) {
	events := &recordingPublisher{err: errors.New("broker down")}
	svc := analysis.New(analysis.Options{Events: events})
	_, err := svc.Analyze(context.Background(), testutil.UniformInput("Moon Vault", 45))
	assert.NoError(t, err)
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rep, err := f.svc.Analyze(ctx, testutil.UniformInput("Moon Vault", 45))
	require.NoError(t, err)

	data, err := f.svc.Export(ctx, rep.ID, export.FormatJSON)
	require.NoError(t, err)
	var decoded report.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rep.ID, decoded.ID)

	data, err = f.svc.Export(ctx, rep.ID, export.FormatCSV)
	require.NoError(t, err)
	assert.Contains(t, string(data), catalog.ContaminatedNetwork)

	_, err = f.svc.Export(ctx, rep.ID, export.Format("pdf"))
	assert.True(t, analysis.IsValidation(err))

	_, err = f.svc.Export(ctx, "missing", export.FormatJSON)
	assert.True(t, analysis.IsNotFound(err))
}

func TestCatalog(t *testing.T) {
	view := analysis.New(analysis.Options{}).Catalog()
	assert.Len(t, view.Metrics, 13)
	assert.Equal(t, 100, view.TotalWeight)
	assert.Equal(t, 60, view.Thresholds.RejectAt)
}
