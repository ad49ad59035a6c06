package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/riskscope/riskscope/pkg/report"
)

const (
	reportTable    = "rep_"
	historyTable   = "hist_"
	watchlistTable = "watch_"
)

// Badger is an embedded key-value backend for the CLI. One database holds
// both the report history and the watchlist.
type Badger struct {
	db   *badger.DB
	once sync.Once
	err  error
	now  func() time.Time
}

// OpenBadger opens (creating if needed) a Badger database in dir.
func OpenBadger(dir string) (*Badger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create badger dir: %w", err)
	}
	return openBadger(badger.DefaultOptions(dir).WithLogger(nil))
}

// OpenBadgerInMemory opens a Badger database that lives only in memory.
func OpenBadgerInMemory() (*Badger, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func openBadger(opts badger.Options) (*Badger, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db, now: time.Now}, nil
}

// Close closes the database. It is safe to call more than once.
func (b *Badger) Close() error {
	b.once.Do(func() { b.err = b.db.Close() })
	return b.err
}

// History returns the report history view of the database.
func (b *Badger) History() *BadgerHistory { return &BadgerHistory{b: b} }

// Watchlist returns the watchlist view of the database.
func (b *Badger) Watchlist() *BadgerWatchlist { return &BadgerWatchlist{b: b} }

func reportKey(id string) []byte { return []byte(reportTable + id) }

func historyPrefix(canonicalName string) []byte {
	return []byte(historyTable + canonicalName + "\x00")
}

// historyKey sorts newest first under a forward scan by inverting the scan time.
func historyKey(r *report.Report) []byte {
	inverted := math.MaxInt64 - r.Metadata.ScannedAt.UnixNano()
	return append(historyPrefix(r.Metadata.CanonicalName), []byte(fmt.Sprintf("%020d_%s", inverted, r.ID))...)
}

func watchKey(canonicalName string) []byte { return []byte(watchlistTable + canonicalName) }

// BadgerHistory is a HistoryStore over a Badger database.
type BadgerHistory struct {
	b *Badger
}

func (h *BadgerHistory) Save(_ context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return h.b.db.Update(func(txn *badger.Txn) error {
		// Replacing a record moves its history entry.
		if item, err := txn.Get(reportKey(rec.Report.ID)); err == nil {
			old, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			prev, err := decodeRecord(old)
			if err != nil {
				return err
			}
			if err := txn.Delete(historyKey(prev.Report)); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(reportKey(rec.Report.ID), data); err != nil {
			return err
		}
		return txn.Set(historyKey(rec.Report), []byte(rec.Report.ID))
	})
}

func (h *BadgerHistory) Get(_ context.Context, id string) (*Record, error) {
	var data []byte
	err := h.b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(reportKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return decodeRecord(data)
}

func (h *BadgerHistory) History(_ context.Context, canonicalName string, limit int) ([]*report.Report, error) {
	limit = historyLimit(limit)
	var reports []*report.Report
	err := h.b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := historyPrefix(canonicalName)
		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(reports) < limit; it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			item, err := txn.Get(reportKey(string(id)))
			if err != nil {
				return fmt.Errorf("history entry %s: %w", id, err)
			}
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := decodeRecord(data)
			if err != nil {
				return err
			}
			reports = append(reports, rec.Report)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", canonicalName, err)
	}
	if reports == nil {
		reports = []*report.Report{}
	}
	return reports, nil
}

func (h *BadgerHistory) Close() error { return h.b.Close() }

// BadgerWatchlist is a WatchlistStore over a Badger database.
type BadgerWatchlist struct {
	b *Badger
}

func (w *BadgerWatchlist) Put(ctx context.Context, item WatchItem) (*WatchItem, error) {
	item, err := item.Normalize()
	if err != nil {
		return nil, err
	}
	err = w.b.db.Update(func(txn *badger.Txn) error {
		item.CreatedAt = w.b.now().UTC().Round(0)
		if existing, err := txn.Get(watchKey(item.CanonicalName)); err == nil {
			data, err := existing.ValueCopy(nil)
			if err != nil {
				return err
			}
			prev, err := decodeItem(data)
			if err != nil {
				return err
			}
			item.CreatedAt = prev.CreatedAt
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		data, err := encodeItem(item)
		if err != nil {
			return err
		}
		return txn.Set(watchKey(item.CanonicalName), data)
	})
	if err != nil {
		return nil, fmt.Errorf("put watchlist item %s: %w", item.CanonicalName, err)
	}
	return &item, nil
}

func (w *BadgerWatchlist) Get(_ context.Context, canonicalName string) (*WatchItem, error) {
	var data []byte
	err := w.b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(watchKey(canonicalName))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("watchlist item %s: %w", canonicalName, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get watchlist item %s: %w", canonicalName, err)
	}
	item, err := decodeItem(data)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (w *BadgerWatchlist) List(_ context.Context) ([]WatchItem, error) {
	items := []WatchItem{}
	err := w.b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(watchlistTable)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			item, err := decodeItem(data)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CanonicalName < items[j].CanonicalName })
	return items, nil
}

func (w *BadgerWatchlist) Remove(_ context.Context, canonicalName string) error {
	err := w.b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(watchKey(canonicalName)); err != nil {
			return err
		}
		return txn.Delete(watchKey(canonicalName))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("watchlist item %s: %w", canonicalName, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("remove watchlist item %s: %w", canonicalName, err)
	}
	return nil
}

func (w *BadgerWatchlist) Close() error { return w.b.Close() }
