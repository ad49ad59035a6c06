// Package analysis orchestrates scoring with its collaborators: report
// history, the watchlist, blob storage, share targets, events and metrics.
// The HTTP API and the CLI both drive riskscope through a Service.
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/riskscope/riskscope/internal/blob"
	"github.com/riskscope/riskscope/internal/notify"
	"github.com/riskscope/riskscope/internal/store"
	"github.com/riskscope/riskscope/pkg/batch"
	"github.com/riskscope/riskscope/pkg/catalog"
	"github.com/riskscope/riskscope/pkg/export"
	"github.com/riskscope/riskscope/pkg/report"
	"github.com/riskscope/riskscope/pkg/scoring"
)

// Options configures a Service. Zero values select in-memory stores, no
// blob storage, no events and unregistered metrics.
type Options struct {
	Engine       *scoring.Engine
	History      store.HistoryStore
	Watchlist    store.WatchlistStore
	Blobs        blob.Client
	Events       notify.Publisher
	ShareTargets []export.Target
	Metrics      *Metrics
	Logger       *slog.Logger

	Concurrency int
	MaxProjects int
	Now         func() time.Time
}

// Service runs analyses and keeps their side effects consistent.
type Service struct {
	engine    *scoring.Engine
	assembler *report.Assembler
	history   store.HistoryStore
	watchlist store.WatchlistStore
	blobs     blob.Client
	events    notify.Publisher
	targets   []export.Target
	pipeline  *export.Pipeline
	metrics   *Metrics
	logger    *slog.Logger

	concurrency int
	maxProjects int
	now         func() time.Time
}

// New creates a Service.
func New(opts Options) *Service {
	s := &Service{
		engine:      opts.Engine,
		history:     opts.History,
		watchlist:   opts.Watchlist,
		blobs:       opts.Blobs,
		events:      opts.Events,
		targets:     opts.ShareTargets,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		concurrency: opts.Concurrency,
		maxProjects: opts.MaxProjects,
		now:         opts.Now,
	}
	if s.engine == nil {
		s.engine = scoring.Default()
	}
	if s.history == nil {
		s.history = store.NewMemoryHistory()
	}
	if s.watchlist == nil {
		s.watchlist = store.NewMemoryWatchlist()
	}
	if s.events == nil {
		s.events = notify.NopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.assembler = report.NewAssembler(s.engine, nil)
	s.assembler.Now = s.now
	s.pipeline = export.NewPipeline(s.logger)
	s.pipeline.OnFailure = func(target string, _ error) {
		s.metrics.ExportFailuresTotal.WithLabelValues(target).Inc()
	}
	return s
}

// Engine returns the scoring engine in use.
func (s *Service) Engine() *scoring.Engine { return s.engine }

// Analyze scores one project, persists the report and runs its side effects.
// Only scoring and persistence failures are returned; shares and events are
// logged and counted.
func (s *Service) Analyze(ctx context.Context, in report.Input) (*report.Report, error) {
	rep, err := s.assembler.Assemble(in)
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, rep, in); err != nil {
		return nil, err
	}
	s.publish(ctx, s.reportEvents(ctx, rep)...)
	return rep, nil
}

// BatchOutcome is a finished batch with its partner packet.
type BatchOutcome struct {
	ID        string              `json:"id"`
	Result    *batch.Result       `json:"result"`
	Packet    batch.PartnerPacket `json:"packet"`
	PacketKey string              `json:"packetKey,omitempty"`
}

// Batch scores inputs on the bounded worker pool and persists every report.
// A project whose report cannot be saved is recorded as a project error and
// left out of the summary. If ctx is cancelled, the outcome covers the
// projects that finished.
func (s *Service) Batch(ctx context.Context, inputs []report.Input) (*BatchOutcome, error) {
	// Finished projects are kept even when the batch itself was cancelled.
	persistCtx := context.WithoutCancel(ctx)
	perProject := make([][]notify.Event, len(inputs))

	runner := batch.NewRunner(s.assembler, s.logger)
	runner.Concurrency = s.concurrency
	runner.MaxProjects = s.maxProjects
	runner.Now = s.now
	runner.Accept = func(i int, in report.Input, rep *report.Report) error {
		if err := s.record(persistCtx, rep, in); err != nil {
			return err
		}
		perProject[i] = s.reportEvents(persistCtx, rep)
		return nil
	}

	res, err := runner.Run(ctx, inputs)
	if err != nil {
		return nil, err
	}

	var events []notify.Event
	for _, evts := range perProject {
		events = append(events, evts...)
	}

	out := &BatchOutcome{
		ID:     uuid.NewString(),
		Result: res,
		Packet: batch.NewPartnerPacket(res, s.now()),
	}
	if s.blobs != nil {
		key, err := blob.PutPacket(persistCtx, s.blobs, out.ID, out.Packet)
		if err != nil {
			s.logger.Warn("storing partner packet failed", "batch", out.ID, "error", err)
			s.metrics.ExportFailuresTotal.WithLabelValues("blob").Inc()
		} else {
			out.PacketKey = key
		}
	}

	if evt, err := notify.BatchCompleted(out.ID, res, out.PacketKey, s.now()); err == nil {
		events = append(events, evt)
	}
	s.publish(persistCtx, events...)

	s.metrics.observeBatch(len(res.Reports), len(res.Summary.Errors), res.Skipped,
		time.Duration(res.Summary.ProcessingTime)*time.Millisecond)
	return out, nil
}

// Report returns a stored report.
func (s *Service) Report(ctx context.Context, id string) (*report.Report, error) {
	rec, err := s.history.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Report, nil
}

// History returns a project's reports, newest first.
func (s *Service) History(ctx context.Context, canonicalName string, limit int) ([]*report.Report, error) {
	return s.history.History(ctx, canonicalName, limit)
}

// Rescore scores a stored report's observations again with the current
// weights and thresholds. The result is a new report in the project's history.
func (s *Service) Rescore(ctx context.Context, id string) (*report.Report, error) {
	rec, err := s.history.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("rescoring report", "report", id, "project", rec.Report.Name())
	return s.Analyze(ctx, rec.Input)
}

// Export renders a stored report in the requested format.
func (s *Service) Export(ctx context.Context, id string, format export.Format) ([]byte, error) {
	renderer, err := format.Renderer()
	if err != nil {
		return nil, err
	}
	rep, err := s.Report(ctx, id)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := renderer.Render(&buf, rep); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// Share delivers a stored report to target through the share pipeline.
func (s *Service) Share(ctx context.Context, id string, target export.Target) (bool, error) {
	rep, err := s.Report(ctx, id)
	if err != nil {
		return false, err
	}
	return s.pipeline.Share(ctx, rep, target), nil
}

// Watch adds or updates a watchlist item.
func (s *Service) Watch(ctx context.Context, item store.WatchItem) (*store.WatchItem, error) {
	return s.watchlist.Put(ctx, item)
}

// Unwatch removes a watchlist item.
func (s *Service) Unwatch(ctx context.Context, canonicalName string) error {
	return s.watchlist.Remove(ctx, canonicalName)
}

// Watchlist lists watched projects.
func (s *Service) Watchlist(ctx context.Context) ([]store.WatchItem, error) {
	return s.watchlist.List(ctx)
}

// CatalogView describes the active scoring configuration.
type CatalogView struct {
	Metrics     []catalog.Definition `json:"metrics"`
	TotalWeight int                  `json:"totalWeight"`
	Thresholds  scoring.Thresholds   `json:"thresholds"`
}

// Catalog returns the metric definitions and thresholds in use.
func (s *Service) Catalog() CatalogView {
	cat := s.engine.Catalog()
	return CatalogView{
		Metrics:     cat.All(),
		TotalWeight: cat.TotalWeight(),
		Thresholds:  s.engine.Thresholds(),
	}
}

// record persists a report with its input and shares it to blob storage and
// the configured targets.
func (s *Service) record(ctx context.Context, rep *report.Report, in report.Input) error {
	if err := s.history.Save(ctx, store.Record{Report: rep, Input: in}); err != nil {
		return fmt.Errorf("save report %s: %w", rep.ID, err)
	}
	s.metrics.ReportsTotal.WithLabelValues(string(rep.Metadata.Verdict)).Inc()

	if s.blobs != nil {
		s.pipeline.Share(ctx, rep, &blob.Target{Client: s.blobs})
	}
	for _, t := range s.targets {
		s.pipeline.Share(ctx, rep, t)
	}
	return nil
}

// reportEvents builds report.completed and, if the project is watched and
// crossed its threshold, watchlist.alert.
func (s *Service) reportEvents(ctx context.Context, rep *report.Report) []notify.Event {
	var events []notify.Event
	if evt, err := notify.ReportCompleted(rep); err == nil {
		events = append(events, evt)
	}

	item, err := s.watchlist.Get(ctx, rep.Metadata.CanonicalName)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("watchlist lookup failed", "project", rep.Metadata.CanonicalName, "error", err)
		}
		return events
	}
	if rep.Metadata.RiskScore >= item.AlertAt {
		s.logger.Info("watchlist alert",
			"project", rep.Metadata.CanonicalName,
			"score", rep.Metadata.RiskScore,
			"alert_at", item.AlertAt)
		if evt, err := notify.WatchlistAlert(rep, item.AlertAt); err == nil {
			events = append(events, evt)
		}
	}
	return events
}

func (s *Service) publish(ctx context.Context, events ...notify.Event) {
	if len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("publishing events failed", "count", len(events), "error", err)
	}
}
