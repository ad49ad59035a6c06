package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/riskscope/riskscope/internal/analysis"
	"github.com/riskscope/riskscope/internal/blob"
	"github.com/riskscope/riskscope/internal/notify"
	"github.com/riskscope/riskscope/internal/platform"
	"github.com/riskscope/riskscope/internal/store"
	"github.com/riskscope/riskscope/pkg/config"
	"github.com/riskscope/riskscope/pkg/export"
	"github.com/riskscope/riskscope/pkg/report"
)

type globalOpts struct {
	store     string
	dbPath    string
	configDir string
	logLevel  string
}

// env is everything a command needs to drive the analysis service.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	svc     *analysis.Service
	stores  *store.Stores
	webhook *notify.WebhookTarget
	events  notify.Publisher
}

func loadConfig(g *globalOpts) (*config.Config, error) {
	dir := g.configDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		return nil, err
	}

	// The CLI keeps history between runs unless told otherwise.
	if cfg.Store.Backend == "memory" && g.store == "" {
		cfg.Store.Backend = "badger"
	}
	if g.store != "" {
		cfg.Store.Backend = g.store
	}
	if g.dbPath != "" {
		cfg.Store.BadgerPath = g.dbPath
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openEnv(ctx context.Context, g *globalOpts) (*env, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	logger := platform.InitLogger(cfg.Log, os.Stderr)

	engine, err := cfg.Engine()
	if err != nil {
		return nil, err
	}

	stores, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}

	blobs, err := blob.Open(ctx, cfg.Storage)
	if err != nil {
		_ = stores.Close()
		return nil, fmt.Errorf("opening blob storage: %w", err)
	}

	webhook, err := notify.NewWebhookTarget(cfg.Export, logger)
	if err != nil {
		_ = stores.Close()
		return nil, fmt.Errorf("configuring webhook: %w", err)
	}

	events := notify.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix, logger)

	svc := analysis.New(analysis.Options{
		Engine:      engine,
		History:     stores.History,
		Watchlist:   stores.Watchlist,
		Blobs:       blobs,
		Events:      events,
		Logger:      logger,
		Concurrency: cfg.Batch.Concurrency,
		MaxProjects: cfg.Batch.MaxProjects,
	})

	return &env{
		cfg:     cfg,
		logger:  logger,
		svc:     svc,
		stores:  stores,
		webhook: webhook,
		events:  events,
	}, nil
}

func (e *env) Close() error {
	return errors.Join(e.events.Close(), e.stores.Close())
}

// shareTargets returns the targets a finished report should be delivered to.
func (e *env) shareTargets(exportDir string, format export.Format, webhook bool) ([]export.Target, error) {
	var targets []export.Target
	if dir := firstNonEmpty(exportDir, e.cfg.Export.Dir); dir != "" {
		targets = append(targets, &export.FileTarget{Dir: dir, Format: format})
	}
	if webhook {
		if e.webhook == nil {
			return nil, errors.New("--webhook needs export.webhook_url in .riskscope/config.yaml")
		}
		targets = append(targets, e.webhook)
	}
	return targets, nil
}

// readFile reads path, with "-" meaning stdin.
func readFile(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// decodeInputs accepts a single input object, an array of inputs or {"projects": [...]}.
func decodeInputs(data []byte) ([]report.Input, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty input")
	}

	if trimmed[0] == '[' {
		var inputs []report.Input
		if err := json.Unmarshal(trimmed, &inputs); err != nil {
			return nil, fmt.Errorf("parsing input array: %w", err)
		}
		return inputs, nil
	}

	var wrapped struct {
		Projects []report.Input `json:"projects"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	if len(wrapped.Projects) > 0 {
		return wrapped.Projects, nil
	}

	var in report.Input
	if err := json.Unmarshal(trimmed, &in); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	return []report.Input{in}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
