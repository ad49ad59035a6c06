package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskscope/riskscope/pkg/report"
)

// MemoryHistory is an in-process HistoryStore. Records are deep-copied through
// JSON on the way in and out so callers cannot mutate stored state.
type MemoryHistory struct {
	mu        sync.RWMutex
	records   map[string][]byte
	byProject map[string][]string
}

// NewMemoryHistory creates an empty in-memory history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{
		records:   make(map[string][]byte),
		byProject: make(map[string][]string),
	}
}

func (m *MemoryHistory) Save(_ context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := rec.Report.ID
	if _, exists := m.records[id]; !exists {
		canonical := rec.Report.Metadata.CanonicalName
		m.byProject[canonical] = append(m.byProject[canonical], id)
	}
	m.records[id] = data
	return nil
}

func (m *MemoryHistory) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	data, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return decodeRecord(data)
}

func (m *MemoryHistory) History(_ context.Context, canonicalName string, limit int) ([]*report.Report, error) {
	m.mu.RLock()
	ids := m.byProject[canonicalName]
	blobs := make([][]byte, 0, len(ids))
	for _, id := range ids {
		blobs = append(blobs, m.records[id])
	}
	m.mu.RUnlock()

	reports := make([]*report.Report, 0, len(blobs))
	for _, data := range blobs {
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rec.Report)
	}
	sortNewestFirst(reports)
	if n := historyLimit(limit); len(reports) > n {
		reports = reports[:n]
	}
	return reports, nil
}

func (m *MemoryHistory) Close() error { return nil }

// MemoryWatchlist is an in-process WatchlistStore.
type MemoryWatchlist struct {
	mu    sync.RWMutex
	items map[string]WatchItem
	now   func() time.Time
}

// NewMemoryWatchlist creates an empty in-memory watchlist.
func NewMemoryWatchlist() *MemoryWatchlist {
	return &MemoryWatchlist{items: make(map[string]WatchItem), now: time.Now}
}

func (m *MemoryWatchlist) Put(_ context.Context, item WatchItem) (*WatchItem, error) {
	item, err := item.Normalize()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.items[item.CanonicalName]; ok {
		item.CreatedAt = prev.CreatedAt
	} else {
		item.CreatedAt = m.now().UTC().Round(0)
	}
	m.items[item.CanonicalName] = item
	return &item, nil
}

func (m *MemoryWatchlist) Get(_ context.Context, canonicalName string) (*WatchItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[canonicalName]
	if !ok {
		return nil, fmt.Errorf("watchlist item %s: %w", canonicalName, ErrNotFound)
	}
	return &item, nil
}

func (m *MemoryWatchlist) List(_ context.Context) ([]WatchItem, error) {
	m.mu.RLock()
	items := make([]WatchItem, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].CanonicalName < items[j].CanonicalName })
	return items, nil
}

func (m *MemoryWatchlist) Remove(_ context.Context, canonicalName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[canonicalName]; !ok {
		return fmt.Errorf("watchlist item %s: %w", canonicalName, ErrNotFound)
	}
	delete(m.items, canonicalName)
	return nil
}

func (m *MemoryWatchlist) Close() error { return nil }
