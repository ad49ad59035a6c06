package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/riskscope/riskscope/pkg/config"
)

// Stores bundles the history and watchlist backends opened from config.
type Stores struct {
	History   HistoryStore
	Watchlist WatchlistStore

	// DB is set for the Postgres backend so callers can health-check it.
	DB *sql.DB

	close func() error
}

// Close releases the backend.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open builds the stores selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig) (*Stores, error) {
	switch cfg.Backend {
	case "", "memory":
		return &Stores{History: NewMemoryHistory(), Watchlist: NewMemoryWatchlist()}, nil
	case "badger":
		path := cfg.BadgerPath
		if path == "" {
			var err error
			if path, err = config.DefaultBadgerPath(); err != nil {
				return nil, err
			}
		}
		b, err := OpenBadger(path)
		if err != nil {
			return nil, err
		}
		return &Stores{History: b.History(), Watchlist: b.Watchlist(), close: b.Close}, nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("postgres store requires a database url")
		}
		p, err := OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &Stores{History: p.History(), Watchlist: p.Watchlist(), DB: p.DB(), close: p.Close}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
