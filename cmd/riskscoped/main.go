// Command riskscoped is the riskscope scoring service.
// It serves the REST API, Prometheus metrics and a health check.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/riskscope/riskscope/internal/analysis"
	"github.com/riskscope/riskscope/internal/api"
	"github.com/riskscope/riskscope/internal/blob"
	"github.com/riskscope/riskscope/internal/notify"
	"github.com/riskscope/riskscope/internal/platform"
	"github.com/riskscope/riskscope/internal/store"
	"github.com/riskscope/riskscope/pkg/config"
	"github.com/riskscope/riskscope/pkg/export"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envOrDefault("RISKSCOPE_CONFIG", "/etc/riskscope/config.yaml"))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := platform.InitLogger(cfg.Log, os.Stderr)

	if err := run(cfg, logger); err != nil {
		logger.Error("riskscoped exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := cfg.Engine()
	if err != nil {
		return err
	}

	stores, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer stores.Close()

	blobs, err := blob.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open blob storage: %w", err)
	}

	var targets []export.Target
	webhook, err := notify.NewWebhookTarget(cfg.Export, logger)
	if err != nil {
		return fmt.Errorf("configure webhook: %w", err)
	}
	if webhook != nil {
		targets = append(targets, webhook)
	}
	if cfg.Export.Dir != "" {
		targets = append(targets, &export.FileTarget{Dir: cfg.Export.Dir, Format: export.FormatHTML})
	}

	events := notify.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix, logger)
	defer events.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := analysis.New(analysis.Options{
		Engine:       engine,
		History:      stores.History,
		Watchlist:    stores.Watchlist,
		Blobs:        blobs,
		Events:       events,
		ShareTargets: targets,
		Metrics:      analysis.NewMetrics(reg),
		Logger:       logger,
		Concurrency:  cfg.Batch.Concurrency,
		MaxProjects:  cfg.Batch.MaxProjects,
	})

	cache, closeCache := newReportCache(cfg, logger)
	defer closeCache()

	handler := api.NewHandler(svc, cache, logger)

	// Set up HTTP routes
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", healthHandler(stores.DB))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.RequestLog(logger)(api.CORS(cfg.Server.CORSOrigins)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting riskscoped",
			"port", cfg.Server.Port,
			"store", cfg.Store.Backend,
			"storage", cfg.Storage.Backend,
			"kafka", len(cfg.Kafka.Brokers) > 0,
			"redis", cfg.Redis.Addr != "",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
	return nil
}

// newReportCache returns a Redis-backed cache when REDIS_ADDR is configured,
// otherwise an in-process LRU.
func newReportCache(cfg *config.Config, logger *slog.Logger) (api.ReportCache, func()) {
	if cfg.Redis.Addr == "" {
		return api.NewLRUCache(cfg.Server.CacheSize), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return api.NewRedisCache(client, cfg.Redis.TTL, logger), func() { _ = client.Close() }
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "database unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
