package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace/noop"
)

// LoadFunc is the signature of an instrumented computation.
type LoadFunc func(ctx context.Context) (any, error)

// Middleware wraps loads with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: Run may be called concurrently.
//   - Context: the span context is passed to fn.
//   - Errors: errors from fn are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics LoadMetrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components fall back to no-ops.
func NewMiddleware(tracer Tracer, metrics LoadMetrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewTracer(noop.NewTracerProvider().Tracer("noop"))
	}
	if metrics == nil {
		metrics = nopLoadMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := newLoadMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Run executes fn inside a span and records its duration and outcome.
// A nil Middleware runs fn directly.
func (m *Middleware) Run(ctx context.Context, meta OpMeta, fn LoadFunc) (any, error) {
	if m == nil {
		return fn(ctx)
	}

	ctx, span := m.tracer.StartSpan(ctx, meta)
	start := time.Now()

	result, err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordLoad(ctx, meta, duration, err)

	logger := m.logger.With(F("op.kind", meta.Kind), F("op.name", meta.Name))
	fields := []Field{F("duration_ms", float64(duration.Microseconds())/1000)}
	if err != nil {
		logger.Warn(ctx, "load failed", append(fields, F("error", err))...)
	} else {
		logger.Debug(ctx, "load completed", fields...)
	}

	return result, err
}

// Wrap returns fn instrumented under meta.
func (m *Middleware) Wrap(meta OpMeta, fn LoadFunc) LoadFunc {
	return func(ctx context.Context) (any, error) {
		return m.Run(ctx, meta, fn)
	}
}

type nopLoadMetrics struct{}

func (nopLoadMetrics) RecordLoad(context.Context, OpMeta, time.Duration, error) {}
