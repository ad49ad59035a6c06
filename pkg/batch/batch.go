// Package batch scores many projects with a bounded worker pool and
// aggregates the results into summary statistics and cross-project entity flags.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/riskscope/riskscope/pkg/report"
)

const (
	// MaxProjects is the hard cap on projects per batch.
	MaxProjects = 100
	// DefaultConcurrency is the default worker pool size.
	DefaultConcurrency = 8
)

// ErrCapacityExceeded is returned when a batch exceeds its project cap.
// Batches are never silently truncated.
var ErrCapacityExceeded = errors.New("batch capacity exceeded")

// Assembler scores a single project.
type Assembler interface {
	Assemble(in report.Input) (*report.Report, error)
}

// ProjectError records a project that failed to score.
type ProjectError struct {
	Index   int    `json:"index"`
	Project string `json:"project"`
	Error   string `json:"error"`
}

// Result is the outcome of a batch run.
type Result struct {
	// Reports holds successfully scored projects in input order.
	Reports  []*report.Report `json:"reports"`
	Summary  Summary          `json:"summary"`
	Entities []FlaggedEntity  `json:"entities"`
	// Cancelled is set when the context ended before every project started.
	Cancelled bool `json:"cancelled"`
	Skipped   int  `json:"skipped"`
}

// Runner fans a batch out over a fixed-size worker pool.
type Runner struct {
	Assembler   Assembler
	Concurrency int
	MaxProjects int
	Logger      *slog.Logger
	Now         func() time.Time

	// Accept, if set, runs on the worker for every scored project before it
	// counts as finished. An error marks the project failed and drops its report.
	Accept func(index int, in report.Input, rep *report.Report) error
}

// NewRunner creates a runner with the default pool size and cap.
func NewRunner(a Assembler, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		Assembler:   a,
		Concurrency: DefaultConcurrency,
		MaxProjects: MaxProjects,
		Logger:      logger,
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) limit() int {
	if r.MaxProjects <= 0 || r.MaxProjects > MaxProjects {
		return MaxProjects
	}
	return r.MaxProjects
}

// Run scores every input. Per-project failures, including panics, are recorded
// in the summary and do not stop the batch. When ctx is cancelled, projects
// that have not started are skipped and the summary covers those that finished.
func (r *Runner) Run(ctx context.Context, inputs []report.Input) (*Result, error) {
	if limit := r.limit(); len(inputs) > limit {
		return nil, fmt.Errorf("%w: %d projects submitted, limit is %d", ErrCapacityExceeded, len(inputs), limit)
	}

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	start := r.now()
	reports := make([]*report.Report, len(inputs))
	failures := make([]*ProjectError, len(inputs))

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			rep, err := r.scoreOne(in)
			if err != nil {
				r.logger().Warn("batch project failed", "index", i, "project", in.Name(), "error", err)
				failures[i] = &ProjectError{Index: i, Project: in.Name(), Error: err.Error()}
				return nil
			}
			if r.Accept != nil {
				if err := r.Accept(i, in, rep); err != nil {
					r.logger().Warn("batch project rejected after scoring", "index", i, "project", in.Name(), "error", err)
					failures[i] = &ProjectError{Index: i, Project: in.Name(), Error: err.Error()}
					return nil
				}
			}
			reports[i] = rep
			return nil
		})
	}
	// Workers never return errors; failures are collected above.
	_ = g.Wait()

	res := &Result{Reports: []*report.Report{}}
	var errs []ProjectError
	for i := range inputs {
		switch {
		case reports[i] != nil:
			res.Reports = append(res.Reports, reports[i])
		case failures[i] != nil:
			errs = append(errs, *failures[i])
		default:
			res.Skipped++
		}
	}
	res.Cancelled = res.Skipped > 0 && ctx.Err() != nil

	res.Summary = Summarize(res.Reports, r.now().Sub(start))
	res.Summary.Errors = errs
	res.Entities = FlagEntities(res.Reports)

	r.logger().Info("batch completed",
		"total", res.Summary.Total,
		"failed", len(errs),
		"skipped", res.Skipped,
		"cancelled", res.Cancelled,
		"duration_ms", res.Summary.ProcessingTime)
	return res, nil
}

// Aggregate summarises reports that were scored elsewhere.
func Aggregate(reports []*report.Report, elapsed time.Duration) (*Result, error) {
	if len(reports) > MaxProjects {
		return nil, fmt.Errorf("%w: %d projects submitted, limit is %d", ErrCapacityExceeded, len(reports), MaxProjects)
	}
	kept := make([]*report.Report, 0, len(reports))
	for _, rep := range reports {
		if rep != nil {
			kept = append(kept, rep)
		}
	}
	return &Result{
		Reports:  kept,
		Summary:  Summarize(kept, elapsed),
		Entities: FlagEntities(kept),
	}, nil
}

func (r *Runner) scoreOne(in report.Input) (rep *report.Report, err error) {
	defer func() {
		if p := recover(); p != nil {
			rep, err = nil, fmt.Errorf("panic while scoring: %v", p)
		}
	}()
	return r.Assembler.Assemble(in)
}
