package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/riskscope/riskscope/pkg/report"
)

// Target is a destination a report can be shared to.
type Target interface {
	// Name identifies the target in logs and metrics.
	Name() string
	// Deliver sends the report. Errors are reported by Pipeline.Share, never raised.
	Deliver(ctx context.Context, r *report.Report) error
}

// Pipeline shares reports to targets and isolates every delivery failure.
type Pipeline struct {
	Logger *slog.Logger
	// OnFailure, if set, is called for every failed delivery.
	OnFailure func(target string, err error)

	mu      sync.Mutex
	lastErr error
}

// NewPipeline creates a share pipeline.
func NewPipeline(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Logger: logger}
}

// Share delivers r to t and reports success. It never panics and never
// returns an error; the failure is logged and kept in LastError.
func (p *Pipeline) Share(ctx context.Context, r *report.Report, t Target) (ok bool) {
	name := "unknown"
	defer func() {
		if rec := recover(); rec != nil {
			p.fail(name, fmt.Errorf("panic during share: %v", rec))
			ok = false
		}
	}()

	if t == nil {
		p.fail(name, errors.New("no share target"))
		return false
	}
	name = t.Name()
	if r == nil {
		p.fail(name, ErrNilReport)
		return false
	}

	if err := t.Deliver(ctx, r); err != nil {
		p.fail(name, err)
		return false
	}

	p.mu.Lock()
	p.lastErr = nil
	p.mu.Unlock()
	p.logger().Info("report shared", "target", name, "report", r.ID)
	return true
}

// LastError returns the error from the most recent failed Share, or nil if
// the most recent Share succeeded.
func (p *Pipeline) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Pipeline) fail(target string, err error) {
	p.mu.Lock()
	p.lastErr = fmt.Errorf("share to %s: %w", target, err)
	p.mu.Unlock()

	p.logger().Warn("report share failed", "target", target, "error", err)
	if p.OnFailure != nil {
		p.OnFailure(target, err)
	}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// WriterTarget renders the report to a writer, such as stdout or a clipboard pipe.
type WriterTarget struct {
	Label  string
	W      io.Writer
	Format Format
}

func (t *WriterTarget) Name() string {
	if t.Label != "" {
		return t.Label
	}
	return "writer"
}

func (t *WriterTarget) Deliver(_ context.Context, r *report.Report) error {
	if t.W == nil {
		return errors.New("writer is nil")
	}
	var buf bytes.Buffer
	if err := render(&buf, r, t.Format); err != nil {
		return err
	}
	if _, err := t.W.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing to %s: %w", t.Name(), err)
	}
	return nil
}

// FileTarget writes the report into Dir, named after the project.
type FileTarget struct {
	Dir    string
	Format Format

	// Path is set to the written file after a successful delivery.
	Path string
}

func (t *FileTarget) Name() string { return "file" }

func (t *FileTarget) Deliver(_ context.Context, r *report.Report) error {
	var buf bytes.Buffer
	if err := render(&buf, r, t.Format); err != nil {
		return err
	}
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	path := filepath.Join(t.Dir, Filename(r.Name(), formatOrDefault(t.Format).Ext()))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	t.Path = path
	return nil
}

func formatOrDefault(f Format) Format {
	if f == "" {
		return FormatJSON
	}
	return f
}

func render(w io.Writer, r *report.Report, f Format) error {
	renderer, err := formatOrDefault(f).Renderer()
	if err != nil {
		return err
	}
	return renderer.Render(w, r)
}
