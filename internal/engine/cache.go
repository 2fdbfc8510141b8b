package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SecondTier is a durable cache level behind the in-memory LRU.
// L1 is fast but lost on restart. L2 survives restarts.
// Get reports the entry's remaining lifetime alongside its value.
type SecondTier interface {
	Get(ctx context.Context, key string) ([]byte, time.Duration, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// ResponseCache is a bounded TTL cache with hit/miss accounting.
// Entries expire ttl after insertion regardless of access; at capacity
// the least recently used entry is evicted.
type ResponseCache struct {
	l1      *expirable.LRU[string, cacheEntry]
	l2      SecondTier // nil if no durable tier configured
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	enabled atomic.Bool
	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
}

// cacheEntry carries its own deadline so entries promoted from L2 keep the
// lifetime they had left there.
type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// CacheOption customises a ResponseCache.
type CacheOption func(*ResponseCache)

// WithSecondTier attaches a durable tier consulted on L1 misses.
func WithSecondTier(t SecondTier) CacheOption {
	return func(c *ResponseCache) { c.l2 = t }
}

// WithCacheClock overrides the clock used for entry deadlines.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *ResponseCache) { c.now = now }
}

// NewResponseCache creates an enabled cache holding at most maxSize entries for ttl each.
func NewResponseCache(maxSize int, ttl time.Duration, opts ...CacheOption) (*ResponseCache, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("cache: max size must be positive, got %d", maxSize)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache: ttl must be positive, got %s", ttl)
	}
	c := &ResponseCache{
		l1:      expirable.NewLRU[string, cacheEntry](maxSize, nil, ttl),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.enabled.Store(true)
	slog.Info("cache: initialized", slog.Duration("ttl", ttl), slog.Int("max_size", maxSize), slog.Bool("l2", c.l2 != nil))
	return c, nil
}

// CacheKey builds a deterministic key by colon-joining the stringified parts in order.
func CacheKey(parts ...any) string {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = fmt.Sprint(p)
	}
	return strings.Join(strs, ":")
}

// Get tries L1, then L2. On L2 hit, populates L1 for the entry's remaining
// lifetime only. A disabled cache reports absent without touching the counters.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.enabled.Load() {
		return nil, false
	}

	now := c.now()
	if e, ok := c.l1.Get(key); ok {
		if now.Before(e.expiresAt) {
			slog.Debug("cache: L1 hit", slog.String("key", key))
			c.hits.Add(1)
			return e.data, true
		}
		c.l1.Remove(key)
	}

	if c.l2 != nil {
		data, remaining, ok, err := c.l2.Get(ctx, key)
		if err != nil {
			slog.Debug("cache: L2 get failed", slog.String("key", key), slog.Any("error", err))
		} else if ok {
			slog.Debug("cache: L2 hit", slog.String("key", key), slog.Duration("remaining", remaining))
			c.hits.Add(1)
			if remaining > 0 {
				c.l1.Add(key, cacheEntry{data: data, expiresAt: now.Add(min(remaining, c.ttl))})
			}
			return data, true
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Set stores value in both tiers. A disabled cache ignores the call.
func (c *ResponseCache) Set(ctx context.Context, key string, value []byte) {
	if !c.enabled.Load() {
		return
	}
	c.l1.Add(key, cacheEntry{data: value, expiresAt: c.now().Add(c.ttl)})
	c.sets.Add(1)

	if c.l2 != nil {
		if err := c.l2.Set(ctx, key, value, c.ttl); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

// Delete removes key from both tiers and reports whether L1 held it.
func (c *ResponseCache) Delete(ctx context.Context, key string) bool {
	ok := c.l1.Remove(key)
	if c.l2 != nil {
		if err := c.l2.Delete(ctx, key); err != nil {
			slog.Debug("cache: L2 delete failed", slog.Any("error", err))
		}
	}
	return ok
}

// Clear drops every entry. Counters are kept.
func (c *ResponseCache) Clear(ctx context.Context) {
	c.l1.Purge()
	if c.l2 != nil {
		if err := c.l2.Clear(ctx); err != nil {
			slog.Warn("cache: L2 clear failed", slog.Any("error", err))
		}
	}
	slog.Info("cache: cleared")
}

// Enable turns caching back on.
func (c *ResponseCache) Enable() { c.enabled.Store(true) }

// Disable makes Get always miss and Set a no-op.
func (c *ResponseCache) Disable() { c.enabled.Store(false) }

// Enabled reports whether the cache is active.
func (c *ResponseCache) Enabled() bool { return c.enabled.Load() }

// Tier names the durable tier actually attached: "redis", "sqlite", "custom"
// for any other SecondTier, or "memory" when there is none.
func (c *ResponseCache) Tier() string {
	switch c.l2.(type) {
	case nil:
		return "memory"
	case *RedisTier:
		return "redis"
	case *SQLiteTier:
		return "sqlite"
	default:
		return "custom"
	}
}

// Close releases the durable tier, if any.
func (c *ResponseCache) Close() error {
	if c.l2 == nil {
		return nil
	}
	return c.l2.Close()
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Enabled bool    `json:"enabled"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	HitRate float64 `json:"hit_rate"`
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
}

// Stats returns current counters. HitRate is 0 until the first lookup.
func (c *ResponseCache) Stats() CacheStats {
	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = math.Round(float64(hits)/float64(total)*1000) / 1000
	}
	return CacheStats{
		Enabled: c.enabled.Load(),
		Hits:    hits,
		Misses:  misses,
		Sets:    c.sets.Load(),
		HitRate: rate,
		Size:    c.l1.Len(),
		MaxSize: c.maxSize,
	}
}

// CacheLoadJSON tries to load a cached value of type T.
// Returns the decoded value and true on hit; zero value and false on miss or decode error.
func CacheLoadJSON[T any](ctx context.Context, c *ResponseCache, key string) (T, bool) {
	var zero T
	data, ok := c.Get(ctx, key)
	if !ok {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		c.Delete(ctx, key) // corrupt
		return zero, false
	}
	return out, true
}

// CacheStoreJSON marshals v and stores it under key.
func CacheStoreJSON[T any](ctx context.Context, c *ResponseCache, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, data)
}
