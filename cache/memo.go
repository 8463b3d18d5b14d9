package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/coursecache/observe"
)

// Func is a function that can be memoized. It is assumed to be
// referentially transparent for its arguments; caching a function with
// side effects is the caller's responsibility.
type Func[T any] func(ctx context.Context, args Args) (T, error)

// MemoOption configures a Memoized function.
type MemoOption func(*memoConfig)

type memoConfig struct {
	cache  *BoundedCache
	keyer  Keyer
	ttl    time.Duration
	hasTTL bool
	mw     *observe.Middleware
}

// WithCache injects the cache that stores results. Without it every
// Memoized function gets a private cache of DefaultMaxSize entries.
func WithCache(c *BoundedCache) MemoOption {
	return func(cfg *memoConfig) { cfg.cache = c }
}

// WithMemoTTL stores results with an explicit lifetime instead of the
// cache's default. A ttl <= 0 disables storing results.
func WithMemoTTL(ttl time.Duration) MemoOption {
	return func(cfg *memoConfig) {
		cfg.ttl = ttl
		cfg.hasTTL = true
	}
}

// WithKeyer replaces the DefaultKeyer.
func WithKeyer(k Keyer) MemoOption {
	return func(cfg *memoConfig) { cfg.keyer = k }
}

// WithMemoMiddleware instruments each underlying invocation.
func WithMemoMiddleware(mw *observe.Middleware) MemoOption {
	return func(cfg *memoConfig) { cfg.mw = mw }
}

// Memoized wraps a Func with a result cache.
//
// Contract:
// - Concurrency: Call is safe for concurrent use; concurrent misses for the
//   same fingerprint run the function once and share the result.
// - Errors: errors are returned to every waiting caller and never cached.
//   A panic in the function is returned as ErrFuncPanic.
type Memoized[T any] struct {
	id    string
	fn    Func[T]
	cfg   memoConfig
	group singleflight.Group
}

// Memoize wraps fn. The id is part of every fingerprint, so two functions
// sharing one cache never see each other's results.
func Memoize[T any](id string, fn Func[T], opts ...MemoOption) *Memoized[T] {
	var cfg memoConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cache == nil {
		cfg.cache = New(DefaultMaxSize, NoExpiryPolicy(), WithName(id))
	}
	if cfg.keyer == nil {
		cfg.keyer = NewDefaultKeyer()
	}
	return &Memoized[T]{id: id, fn: fn, cfg: cfg}
}

// Call returns the cached result for args, invoking the function on a miss.
// Arguments that cannot be fingerprinted return ErrUnkeyableArgs without
// invoking the function. The function runs with a context that keeps ctx's
// values but not its cancellation; a cancelled caller returns ctx.Err()
// and the invocation still completes for the other waiters.
func (m *Memoized[T]) Call(ctx context.Context, args Args) (T, error) {
	var zero T

	key, err := m.cfg.keyer.Key(m.id, args)
	if err != nil {
		return zero, err
	}

	if v, ok := m.cfg.cache.Get(key); ok {
		out, _ := v.(T)
		return out, nil
	}

	flight := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		// A flight that finished just before this one may have stored it.
		if v, ok := m.cfg.cache.peek(key); ok {
			return v, nil
		}

		result, err := m.cfg.mw.Run(flight, observe.OpMeta{Kind: observe.KindMemo, Name: m.id},
			func(ctx context.Context) (v any, err error) {
				defer func() {
					if p := recover(); p != nil {
						err = fmt.Errorf("%w: %s: %v", ErrFuncPanic, m.id, p)
					}
				}()
				return m.fn(ctx, args)
			})
		if err != nil {
			return nil, err
		}

		if m.cfg.hasTTL {
			m.cfg.cache.SetWithTTL(key, result, m.cfg.ttl)
		} else {
			m.cfg.cache.Set(key, result)
		}
		return result, nil
	})

	var v any
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v = res.Val
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	out, _ := v.(T)
	return out, nil
}

// InvalidateFor drops the cached result for args and reports whether one
// was present.
func (m *Memoized[T]) InvalidateFor(args Args) (bool, error) {
	key, err := m.cfg.keyer.Key(m.id, args)
	if err != nil {
		return false, err
	}
	return m.cfg.cache.Invalidate(key), nil
}

// ClearCache empties the underlying cache. With an injected cache this also
// drops entries stored by other users of that cache.
func (m *Memoized[T]) ClearCache() {
	m.cfg.cache.Clear()
}

// CacheStats returns the underlying cache's counters.
func (m *Memoized[T]) CacheStats() Stats {
	return m.cfg.cache.Stats()
}

// Cache returns the cache backing m.
func (m *Memoized[T]) Cache() *BoundedCache {
	return m.cfg.cache
}
