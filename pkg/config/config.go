// Package config handles riskscope configuration loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/riskscope/riskscope/pkg/catalog"
	"github.com/riskscope/riskscope/pkg/scoring"
)

// Config holds the complete riskscope configuration.
type Config struct {
	Scoring ScoringConfig `yaml:"scoring"`
	Batch   BatchConfig   `yaml:"batch"`
	Export  ExportConfig  `yaml:"export"`
	Storage StorageConfig `yaml:"storage"`
	Store   StoreConfig   `yaml:"store"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Redis   RedisConfig   `yaml:"redis"`
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
}

// ScoringConfig overrides metric weights and the verdict/tier thresholds.
// Unlisted metrics keep their default weight; the result must sum to 100.
type ScoringConfig struct {
	Weights    map[string]int     `yaml:"weights"`
	Thresholds scoring.Thresholds `yaml:"thresholds"`
}

// BatchConfig bounds batch runs.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
	MaxProjects int `yaml:"max_projects"`
}

// ExportConfig configures outbound report sharing.
type ExportConfig struct {
	Dir             string        `yaml:"dir"`
	WebhookURL      string        `yaml:"webhook_url"`
	WebhookPlatform string        `yaml:"webhook_platform"`
	WebhookSecret   string        `yaml:"webhook_secret"`
	Timeout         time.Duration `yaml:"timeout"`
	RatePerSecond   float64       `yaml:"rate_per_second"`
	Retries         int           `yaml:"retries"`
}

// StorageConfig selects the blob backend for report and packet documents.
type StorageConfig struct {
	Backend   string `yaml:"backend"` // local, s3, gcs, or empty to disable
	Dir       string `yaml:"dir"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// StoreConfig selects the history and watchlist backend.
type StoreConfig struct {
	Backend     string `yaml:"backend"` // memory, badger, postgres
	BadgerPath  string `yaml:"badger_path"`
	DatabaseURL string `yaml:"database_url"`
}

// KafkaConfig configures event publishing. No brokers disables it.
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	TopicPrefix string   `yaml:"topic_prefix"`
}

// RedisConfig configures the shared report cache. An empty address uses the in-process cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ServerConfig configures the HTTP daemon.
type ServerConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	CacheSize   int      `yaml:"cache_size"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Scoring: ScoringConfig{
			Thresholds: scoring.DefaultThresholds(),
		},
		Batch: BatchConfig{
			Concurrency: 8,
			MaxProjects: 100,
		},
		Export: ExportConfig{
			WebhookPlatform: "slack",
			Timeout:         10 * time.Second,
			RatePerSecond:   1,
			Retries:         2,
		},
		Store: StoreConfig{
			Backend: "memory",
		},
		Kafka: KafkaConfig{
			TopicPrefix: "riskscope",
		},
		Redis: RedisConfig{
			TTL: 10 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Port:      "8080",
			CacheSize: 1000,
		},
	}
}

// Load reads a config file from the given path. If the file doesn't exist,
// returns the default configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// FindConfigFile walks up from dir looking for .riskscope/config.yaml.
func FindConfigFile(dir string) (string, error) {
	for {
		candidate := filepath.Join(dir, ".riskscope", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no .riskscope/config.yaml found")
		}
		dir = parent
	}
}

// LoadFrom finds the config file above dir and loads it, falling back to defaults.
func LoadFrom(dir string) (*Config, error) {
	path, err := FindConfigFile(dir)
	if err != nil {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// Validate checks the sections whose mistakes would only surface at scoring time.
func (c *Config) Validate() error {
	if err := c.Scoring.Thresholds.Validate(); err != nil {
		return err
	}
	if len(c.Scoring.Weights) > 0 {
		if _, err := c.Catalog(); err != nil {
			return err
		}
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}
	if c.Batch.MaxProjects < 1 {
		return fmt.Errorf("batch max_projects must be at least 1, got %d", c.Batch.MaxProjects)
	}
	switch c.Store.Backend {
	case "memory", "badger", "postgres":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Storage.Backend {
	case "", "local", "s3", "gcs":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// Catalog returns the metric catalog with any configured weight overrides applied.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	base := catalog.Default()
	if len(c.Scoring.Weights) == 0 {
		return base, nil
	}
	cat, err := base.WithWeights(c.Scoring.Weights)
	if err != nil {
		return nil, fmt.Errorf("scoring weights: %w", err)
	}
	return cat, nil
}

// Engine builds a scoring engine from the configured catalog and thresholds.
func (c *Config) Engine() (*scoring.Engine, error) {
	cat, err := c.Catalog()
	if err != nil {
		return nil, err
	}
	return scoring.NewEngine(cat, c.Scoring.Thresholds)
}

// ApplyEnv overrides deployment settings from the environment. The daemon
// calls this after Load so container deployments need no config file.
func (c *Config) ApplyEnv() error {
	setString(&c.Server.Port, "PORT")
	setString(&c.Store.DatabaseURL, "DATABASE_URL")
	setString(&c.Store.Backend, "STORE_BACKEND")
	setString(&c.Store.BadgerPath, "BADGER_PATH")
	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.Dir, "LOCAL_STORAGE_PATH")
	setString(&c.Storage.Bucket, "STORAGE_BUCKET")
	setString(&c.Storage.Prefix, "STORAGE_PREFIX")
	setString(&c.Storage.Region, "AWS_REGION")
	setString(&c.Storage.Endpoint, "S3_ENDPOINT")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Export.WebhookURL, "WEBHOOK_URL")
	setString(&c.Export.WebhookPlatform, "WEBHOOK_PLATFORM")
	setString(&c.Export.WebhookSecret, "WEBHOOK_SECRET")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("BATCH_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BATCH_CONCURRENCY: %w", err)
		}
		c.Batch.Concurrency = n
	}
	// A database URL without an explicit backend implies Postgres.
	if c.Store.DatabaseURL != "" && os.Getenv("STORE_BACKEND") == "" && c.Store.Backend == "memory" {
		c.Store.Backend = "postgres"
	}
	return c.Validate()
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// CacheDir returns the per-user riskscope data directory (~/.cache/riskscope).
func CacheDir() (string, error) {
	if dir := os.Getenv("RISKSCOPE_CACHE_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("cannot determine home directory")
	}
	return filepath.Join(home, ".cache", "riskscope"), nil
}

// DefaultBadgerPath returns where the CLI keeps its embedded store.
func DefaultBadgerPath() (string, error) {
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "db"), nil
}
