package config

import (
	"context"
	"fmt"

	"github.com/jonwraymond/coursecache/cache"
	"github.com/jonwraymond/coursecache/filecache"
	"github.com/jonwraymond/coursecache/lazy"
	"github.com/jonwraymond/coursecache/observe"
)

// Stack is every component built from one Config, sharing one Observer.
type Stack struct {
	Observer   observe.Observer
	Middleware *observe.Middleware
	Memory     *cache.BoundedCache
	Files      *filecache.FileCache
	Registry   *lazy.Registry
}

// NewStack builds the observer first and instruments the rest with it.
func (c *Config) NewStack(ctx context.Context) (*Stack, error) {
	obs, err := observe.NewObserver(ctx, c.ObserveConfig())
	if err != nil {
		return nil, fmt.Errorf("config: observer: %w", err)
	}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("config: middleware: %w", err)
	}
	metrics, err := observe.NewCacheMetrics(obs.Meter())
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("config: cache metrics: %w", err)
	}

	files, err := c.NewFileCache(filecache.WithLogger(obs.Logger()), filecache.WithMetrics(metrics))
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	return &Stack{
		Observer:   obs,
		Middleware: mw,
		Memory:     c.NewBoundedCache(cache.WithName("memory"), cache.WithMetrics(metrics)),
		Files:      files,
		Registry:   lazy.NewRegistry(lazy.WithLogger(obs.Logger()), lazy.WithMiddleware(mw)),
	}, nil
}

// Shutdown flushes telemetry.
func (s *Stack) Shutdown(ctx context.Context) error {
	return s.Observer.Shutdown(ctx)
}
