package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EvictReason says why an entry left a cache without being invalidated.
type EvictReason string

const (
	// EvictCapacity is an LRU eviction to make room for a new key.
	EvictCapacity EvictReason = "capacity"
	// EvictExpired is a removal of an entry whose TTL elapsed.
	EvictExpired EvictReason = "expired"
)

// CacheMetrics records cache access outcomes.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type CacheMetrics interface {
	RecordAccess(ctx context.Context, cache string, hit bool)
	RecordEviction(ctx context.Context, cache string, reason EvictReason)
}

// LoadMetrics records deferred loads and memoized computations.
type LoadMetrics interface {
	RecordLoad(ctx context.Context, meta OpMeta, duration time.Duration, err error)
}

type cacheMetrics struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	evictions metric.Int64Counter
}

// NewCacheMetrics creates CacheMetrics backed by meter.
func NewCacheMetrics(meter metric.Meter) (CacheMetrics, error) {
	hits, err := meter.Int64Counter(
		"cache.hits",
		metric.WithDescription("Number of cache lookups that returned a live entry"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"cache.misses",
		metric.WithDescription("Number of cache lookups that found nothing or an expired entry"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"cache.evictions",
		metric.WithDescription("Number of entries removed by capacity or expiry"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &cacheMetrics{hits: hits, misses: misses, evictions: evictions}, nil
}

func (m *cacheMetrics) RecordAccess(ctx context.Context, cache string, hit bool) {
	opt := metric.WithAttributes(attribute.String("cache.name", cache))
	if hit {
		m.hits.Add(ctx, 1, opt)
		return
	}
	m.misses.Add(ctx, 1, opt)
}

func (m *cacheMetrics) RecordEviction(ctx context.Context, cache string, reason EvictReason) {
	m.evictions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.name", cache),
		attribute.String("cache.evict_reason", string(reason)),
	))
}

type loadMetrics struct {
	total        metric.Int64Counter
	errors       metric.Int64Counter
	durationHist metric.Float64Histogram
}

func newLoadMetrics(meter metric.Meter) (*loadMetrics, error) {
	total, err := meter.Int64Counter(
		"coursecache.load.total",
		metric.WithDescription("Total number of loader and memoized function invocations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errCount, err := meter.Int64Counter(
		"coursecache.load.errors",
		metric.WithDescription("Total number of failed loader and memoized function invocations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"coursecache.load.duration_ms",
		metric.WithDescription("Invocation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &loadMetrics{total: total, errors: errCount, durationHist: durationHist}, nil
}

func (m *loadMetrics) RecordLoad(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(
		attribute.String("op.kind", meta.Kind),
		attribute.String("op.name", meta.Name),
	)

	m.total.Add(ctx, 1, opt)
	if err != nil {
		m.errors.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}
