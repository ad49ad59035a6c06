// Package platform holds process-level setup shared by the riskscope binaries:
// logger initialisation and database migrations.
package platform

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/riskscope/riskscope/pkg/config"
)

// InitLogger builds the process logger from cfg and installs it as the slog default.
// A nil w writes to stderr so command output on stdout stays clean.
func InitLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
