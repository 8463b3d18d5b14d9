package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/jonwraymond/coursecache/observe"
)

// BoundedCache is an in-memory cache with a fixed entry limit, LRU eviction
// and lazily checked per-entry expiry.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: Get never errors; it returns (nil, false) on miss or expiry.
// - Capacity: Len() <= MaxSize after every Set.
type BoundedCache struct {
	mu      sync.Mutex
	name    string
	maxSize int
	policy  Policy
	now     func() time.Time
	metrics observe.CacheMetrics

	// Oldest entries sit at the back; Get and Set move an entry to the front.
	lru *simplelru.LRU[string, *entry]

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64
}

type entry struct {
	value     any
	createdAt time.Time
	expiresAt time.Time
	hasExpiry bool
}

func (e *entry) expired(now time.Time) bool {
	return e.hasExpiry && !now.Before(e.expiresAt)
}

// EntryInfo describes a stored entry without its value.
type EntryInfo struct {
	CreatedAt time.Time
	ExpiresAt time.Time // zero when the entry never expires
}

// Option configures a BoundedCache.
type Option func(*BoundedCache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *BoundedCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithName labels the cache in metrics.
func WithName(name string) Option {
	return func(c *BoundedCache) { c.name = name }
}

// WithMetrics records hits, misses and evictions.
func WithMetrics(m observe.CacheMetrics) Option {
	return func(c *BoundedCache) { c.metrics = m }
}

// New creates a cache holding at most maxSize entries.
// A non-positive maxSize falls back to DefaultMaxSize.
func New(maxSize int, policy Policy, opts ...Option) *BoundedCache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	policy.DefaultTTL = max(policy.DefaultTTL, 0)
	policy.MaxTTL = max(policy.MaxTTL, 0)

	c := &BoundedCache{
		name:    "default",
		maxSize: maxSize,
		policy:  policy,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Eviction is driven explicitly in Set, so no callback is registered.
	// NewLRU only fails for a non-positive size.
	c.lru, _ = simplelru.NewLRU[string, *entry](maxSize, nil)
	return c
}

// Get returns the value for key and marks it most recently used.
// Expired entries are removed and reported as a miss.
func (c *BoundedCache) Get(key string) (any, bool) {
	c.mu.Lock()
	now := c.now()
	e, ok := c.lru.Peek(key)
	expired := ok && e.expired(now)
	switch {
	case !ok:
		c.misses++
	case expired:
		c.lru.Remove(key)
		c.expirations++
		c.misses++
	default:
		c.lru.Get(key)
		c.hits++
	}
	c.mu.Unlock()

	hit := ok && !expired
	c.recordAccess(hit, expired)
	if !hit {
		return nil, false
	}
	return e.value, true
}

// peek returns a live value without touching recency or counters.
func (c *BoundedCache) peek(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Peek(key)
	if !ok || e.expired(c.now()) {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key using the policy's default TTL.
func (c *BoundedCache) Set(key string, value any) {
	c.store(key, value, c.policy.EffectiveTTL(c.policy.DefaultTTL))
}

// SetWithTTL stores value under key with an explicit lifetime, clamped to
// the policy's MaxTTL. A ttl <= 0 expires the value immediately: nothing is
// stored and any existing entry for key is removed.
func (c *BoundedCache) SetWithTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		c.Invalidate(key)
		return
	}
	c.store(key, value, c.policy.EffectiveTTL(ttl))
}

// store inserts or replaces key. ttl == 0 means the entry never expires.
func (c *BoundedCache) store(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	now := c.now()
	e := &entry{value: value, createdAt: now}
	if ttl > 0 {
		e.hasExpiry = true
		e.expiresAt = now.Add(ttl)
	}

	evicted := false
	if !c.lru.Contains(key) && c.lru.Len() >= c.maxSize {
		_, _, evicted = c.lru.RemoveOldest()
		if evicted {
			c.evictions++
		}
	}
	c.lru.Add(key, e)

	if c.lru.Len() > c.maxSize {
		c.mu.Unlock()
		panic(ErrCapacityInvariant)
	}
	c.mu.Unlock()

	if evicted && c.metrics != nil {
		c.metrics.RecordEviction(context.Background(), c.name, observe.EvictCapacity)
	}
}

// Invalidate removes key and reports whether it was present.
func (c *BoundedCache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Remove(key)
}

// Clear removes every entry and resets all counters.
func (c *BoundedCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Purge()
	c.hits, c.misses, c.evictions, c.expirations = 0, 0, 0, 0
}

// CleanupExpired removes every expired entry regardless of access and
// returns how many were removed. It is the only operation that reclaims
// entries that are never read again.
func (c *BoundedCache) CleanupExpired() int {
	c.mu.Lock()
	now := c.now()
	removed := 0
	for _, key := range c.lru.Keys() {
		if e, ok := c.lru.Peek(key); ok && e.expired(now) {
			c.lru.Remove(key)
			removed++
		}
	}
	c.expirations += uint64(removed)
	c.mu.Unlock()

	if c.metrics != nil {
		for range removed {
			c.metrics.RecordEviction(context.Background(), c.name, observe.EvictExpired)
		}
	}
	return removed
}

// Inspect returns entry timestamps without marking key as used.
// Expired entries are reported as absent.
func (c *BoundedCache) Inspect(key string) (EntryInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Peek(key)
	if !ok || e.expired(c.now()) {
		return EntryInfo{}, false
	}
	info := EntryInfo{CreatedAt: e.createdAt}
	if e.hasExpiry {
		info.ExpiresAt = e.expiresAt
	}
	return info, true
}

// Len returns the number of stored entries, including expired entries that
// have not been removed yet.
func (c *BoundedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Keys returns keys from most to least recently used.
func (c *BoundedCache) Keys() []string {
	c.mu.Lock()
	keys := c.lru.Keys()
	c.mu.Unlock()

	slices.Reverse(keys)
	return keys
}

// Stats returns a snapshot of the cache counters.
func (c *BoundedCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:          c.lru.Len(),
		MaxSize:       c.maxSize,
		Hits:          c.hits,
		Misses:        c.misses,
		TotalRequests: c.hits + c.misses,
		Evictions:     c.evictions,
		Expirations:   c.expirations,
	}
	if s.TotalRequests > 0 {
		s.HitRate = float64(s.Hits) / float64(s.TotalRequests)
	}
	return s
}

func (c *BoundedCache) recordAccess(hit, expired bool) {
	if c.metrics == nil {
		return
	}
	ctx := context.Background()
	if expired {
		c.metrics.RecordEviction(ctx, c.name, observe.EvictExpired)
	}
	c.metrics.RecordAccess(ctx, c.name, hit)
}
