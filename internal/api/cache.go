package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/riskscope/riskscope/pkg/report"
)

// ReportCache keeps recently served reports in front of the history store.
// Reports are immutable once assembled, so entries never need invalidation.
type ReportCache interface {
	Get(ctx context.Context, id string) (*report.Report, bool)
	Put(ctx context.Context, r *report.Report)
}

// LRUCache is a thread-safe in-process LRU cache of reports.
type LRUCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*report.Report
	order   []string // oldest first
}

// NewLRUCache creates a cache with the given maximum number of entries.
// If maxSize <= 0, it defaults to 1000.
func NewLRUCache(maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &LRUCache{
		maxSize: maxSize,
		entries: make(map[string]*report.Report),
	}
}

// Get retrieves a report from the cache.
func (c *LRUCache) Get(_ context.Context, id string) (*report.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.entries[id]
	if !ok {
		return nil, false
	}

	// Move to end (most recently used)
	c.moveToEnd(id)
	return r, true
}

// Put adds a report to the cache, evicting the oldest if full.
func (c *LRUCache) Put(_ context.Context, r *report.Report) {
	if r == nil || r.ID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[r.ID]; ok {
		c.entries[r.ID] = r
		c.moveToEnd(r.ID)
		return
	}

	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[r.ID] = r
	c.order = append(c.order, r.ID)
}

// Len returns the number of cached reports.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRUCache) moveToEnd(id string) {
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, id)
			return
		}
	}
}

// RedisCache shares cached reports between daemon replicas. Redis errors
// degrade to cache misses.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewRedisCache wraps a Redis client. A zero ttl keeps entries until evicted.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, ttl: ttl, prefix: "riskscope:report:", logger: logger}
}

// Get retrieves a report from Redis.
func (c *RedisCache) Get(ctx context.Context, id string) (*report.Report, bool) {
	data, err := c.client.Get(ctx, c.prefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis cache get failed", "report", id, "error", err)
		}
		return nil, false
	}
	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		c.logger.Warn("redis cache entry corrupt", "report", id, "error", err)
		return nil, false
	}
	return &r, true
}

// Put stores a report in Redis.
func (c *RedisCache) Put(ctx context.Context, r *report.Report) {
	if r == nil || r.ID == "" {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		c.logger.Warn("redis cache encode failed", "report", r.ID, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+r.ID, data, c.ttl).Err(); err != nil {
		c.logger.Warn("redis cache put failed", "report", r.ID, "error", err)
	}
}
