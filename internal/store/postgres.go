package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/lib/pq"

	"github.com/riskscope/riskscope/internal/platform"
	"github.com/riskscope/riskscope/pkg/report"
)

// Postgres backs both stores with a shared database. The schema is managed
// by platform.AutoMigrate.
type Postgres struct {
	db   *sql.DB
	once sync.Once
	err  error
}

// OpenPostgres connects to databaseURL, verifies the connection and migrates the schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := platform.AutoMigrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return NewPostgres(db), nil
}

// NewPostgres wraps an existing, migrated database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// DB exposes the handle for health checks.
func (p *Postgres) DB() *sql.DB { return p.db }

// Close closes the database handle. It is safe to call more than once.
func (p *Postgres) Close() error {
	p.once.Do(func() { p.err = p.db.Close() })
	return p.err
}

// History returns the report history view.
func (p *Postgres) History() *PostgresHistory { return &PostgresHistory{db: p.db, closer: p} }

// Watchlist returns the watchlist view.
func (p *Postgres) Watchlist() *PostgresWatchlist { return &PostgresWatchlist{db: p.db, closer: p} }

// PostgresHistory is a HistoryStore over the reports table.
type PostgresHistory struct {
	db     *sql.DB
	closer *Postgres
}

func (h *PostgresHistory) Save(ctx context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	reportJSON, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", rec.Report.ID, err)
	}
	inputJSON, err := json.Marshal(rec.Input)
	if err != nil {
		return fmt.Errorf("encode input %s: %w", rec.Report.ID, err)
	}

	m := rec.Report.Metadata
	_, err = h.db.ExecContext(ctx,
		`INSERT INTO reports (id, canonical_name, display_name, risk_score, verdict, risk_tier, scanned_at, report, input)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE
		   SET canonical_name = EXCLUDED.canonical_name,
		       display_name = EXCLUDED.display_name,
		       risk_score = EXCLUDED.risk_score,
		       verdict = EXCLUDED.verdict,
		       risk_tier = EXCLUDED.risk_tier,
		       scanned_at = EXCLUDED.scanned_at,
		       report = EXCLUDED.report,
		       input = EXCLUDED.input`,
		rec.Report.ID, m.CanonicalName, m.ProjectName, m.RiskScore, string(m.Verdict), string(m.RiskTier),
		m.ScannedAt, reportJSON, inputJSON,
	)
	if err != nil {
		return fmt.Errorf("save report %s: %w", rec.Report.ID, err)
	}
	return nil
}

func (h *PostgresHistory) Get(ctx context.Context, id string) (*Record, error) {
	var reportJSON, inputJSON []byte
	err := h.db.QueryRowContext(ctx,
		`SELECT report, input FROM reports WHERE id = $1`, id,
	).Scan(&reportJSON, &inputJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}

	rec := &Record{}
	if err := json.Unmarshal(reportJSON, &rec.Report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	if err := json.Unmarshal(inputJSON, &rec.Input); err != nil {
		return nil, fmt.Errorf("decode input %s: %w", id, err)
	}
	return rec, nil
}

func (h *PostgresHistory) History(ctx context.Context, canonicalName string, limit int) ([]*report.Report, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT report FROM reports WHERE canonical_name = $1
		 ORDER BY scanned_at DESC, id DESC LIMIT $2`,
		canonicalName, historyLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list history %s: %w", canonicalName, err)
	}
	defer rows.Close()

	reports := []*report.Report{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		var r report.Report
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		reports = append(reports, &r)
	}
	return reports, rows.Err()
}

func (h *PostgresHistory) Close() error { return h.closer.Close() }

// PostgresWatchlist is a WatchlistStore over the watchlist table.
type PostgresWatchlist struct {
	db     *sql.DB
	closer *Postgres
}

const watchColumns = `canonical_name, display_name, alert_at, note, created_at`

func (w *PostgresWatchlist) Put(ctx context.Context, item WatchItem) (*WatchItem, error) {
	item, err := item.Normalize()
	if err != nil {
		return nil, err
	}
	out := &WatchItem{}
	err = w.db.QueryRowContext(ctx,
		`INSERT INTO watchlist (canonical_name, display_name, alert_at, note)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (canonical_name) DO UPDATE
		   SET display_name = EXCLUDED.display_name,
		       alert_at = EXCLUDED.alert_at,
		       note = EXCLUDED.note
		 RETURNING `+watchColumns,
		item.CanonicalName, item.DisplayName, item.AlertAt, item.Note,
	).Scan(&out.CanonicalName, &out.DisplayName, &out.AlertAt, &out.Note, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("put watchlist item %s: %w", item.CanonicalName, err)
	}
	out.CreatedAt = out.CreatedAt.UTC()
	return out, nil
}

func (w *PostgresWatchlist) Get(ctx context.Context, canonicalName string) (*WatchItem, error) {
	item := &WatchItem{}
	err := w.db.QueryRowContext(ctx,
		`SELECT `+watchColumns+` FROM watchlist WHERE canonical_name = $1`, canonicalName,
	).Scan(&item.CanonicalName, &item.DisplayName, &item.AlertAt, &item.Note, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("watchlist item %s: %w", canonicalName, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get watchlist item %s: %w", canonicalName, err)
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return item, nil
}

func (w *PostgresWatchlist) List(ctx context.Context) ([]WatchItem, error) {
	rows, err := w.db.QueryContext(ctx,
		`SELECT `+watchColumns+` FROM watchlist ORDER BY canonical_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	defer rows.Close()

	items := []WatchItem{}
	for rows.Next() {
		var item WatchItem
		if err := rows.Scan(&item.CanonicalName, &item.DisplayName, &item.AlertAt, &item.Note, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan watchlist item: %w", err)
		}
		item.CreatedAt = item.CreatedAt.UTC()
		items = append(items, item)
	}
	return items, rows.Err()
}

func (w *PostgresWatchlist) Remove(ctx context.Context, canonicalName string) error {
	res, err := w.db.ExecContext(ctx, `DELETE FROM watchlist WHERE canonical_name = $1`, canonicalName)
	if err != nil {
		return fmt.Errorf("remove watchlist item %s: %w", canonicalName, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("watchlist item %s: %w", canonicalName, ErrNotFound)
	}
	return nil
}

func (w *PostgresWatchlist) Close() error { return w.closer.Close() }
