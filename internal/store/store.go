// Package store persists analysed reports (with the inputs that produced them)
// and the project watchlist. Each store has memory, Badger and Postgres backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskscope/riskscope/pkg/report"
)

var (
	// ErrNotFound is returned when a report or watchlist item does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidWatchItem is returned for watchlist items without a name or with an out-of-range threshold.
	ErrInvalidWatchItem = errors.New("invalid watchlist item")
)

// DefaultHistoryLimit caps history queries that do not set a limit.
const DefaultHistoryLimit = 50

// Record is a stored report plus the input it was scored from, so it can be rescored.
type Record struct {
	Report *report.Report `json:"report"`
	Input  report.Input   `json:"input"`
}

// HistoryStore keeps every report produced, keyed by id and grouped by canonical project name.
type HistoryStore interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (*Record, error)
	// History returns the newest reports for a project first.
	History(ctx context.Context, canonicalName string, limit int) ([]*report.Report, error)
	Close() error
}

// WatchItem marks a project for alerting when a new report scores at or above AlertAt.
type WatchItem struct {
	CanonicalName string    `json:"canonicalName"`
	DisplayName   string    `json:"displayName"`
	AlertAt       int       `json:"alertAt"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// WatchlistStore keeps watchlist items keyed by canonical project name.
type WatchlistStore interface {
	// Put adds or replaces an item.
	Put(ctx context.Context, item WatchItem) (*WatchItem, error)
	Get(ctx context.Context, canonicalName string) (*WatchItem, error)
	List(ctx context.Context) ([]WatchItem, error)
	Remove(ctx context.Context, canonicalName string) error
	Close() error
}

// Normalize validates an item and fills the canonical name and display name from each other.
func (w WatchItem) Normalize() (WatchItem, error) {
	w.DisplayName = strings.TrimSpace(w.DisplayName)
	w.CanonicalName = strings.TrimSpace(w.CanonicalName)
	if w.CanonicalName == "" {
		w.CanonicalName = report.Canonicalize(w.DisplayName)
	}
	if w.CanonicalName == "" {
		return w, fmt.Errorf("%w: name is required", ErrInvalidWatchItem)
	}
	if w.DisplayName == "" {
		w.DisplayName = w.CanonicalName
	}
	if w.AlertAt < 0 || w.AlertAt > 100 {
		return w, fmt.Errorf("%w: alert threshold %d outside [0, 100]", ErrInvalidWatchItem, w.AlertAt)
	}
	return w, nil
}

func validateRecord(rec Record) error {
	if rec.Report == nil || rec.Report.ID == "" {
		return errors.New("record has no report id")
	}
	return nil
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}

// sortNewestFirst orders reports by scan time descending, then id for stability.
func sortNewestFirst(reports []*report.Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		a, b := reports[i].Metadata.ScannedAt, reports[j].Metadata.ScannedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return reports[i].ID > reports[j].ID
	})
}
