package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestMiddleware(t *testing.T, buf *bytes.Buffer) (*Middleware, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := newLoadMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("newLoadMetrics failed: %v", err)
	}

	return NewMiddleware(NewTracer(tp.Tracer("test")), metrics, NewLoggerWithWriter("debug", buf)), recorder, reader
}

func TestMiddleware_SuccessPath(t *testing.T) {
	var buf bytes.Buffer
	mw, recorder, reader := newTestMiddleware(t, &buf)

	got, err := mw.Run(context.Background(), OpMeta{Kind: KindMemo, Name: "fib"}, func(context.Context) (any, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("Run() = %v, %v; want ok, nil", got, err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "coursecache.memo.fib" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("span status = %v, want Ok", spans[0].Status().Code)
	}

	if got := sumValue(t, collect(t, reader), "coursecache.load.total"); got != 1 {
		t.Errorf("load.total = %d, want 1", got)
	}

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0]["msg"] != "load completed" || entries[0]["op.name"] != "fib" {
		t.Errorf("unexpected log entries: %v", entries)
	}
}

func TestMiddleware_ErrorPath(t *testing.T) {
	var buf bytes.Buffer
	mw, recorder, _ := newTestMiddleware(t, &buf)
	wantErr := errors.New("connection refused")

	fn := mw.Wrap(OpMeta{Kind: KindLazy, Name: "db"}, func(context.Context) (any, error) {
		return nil, wantErr
	})
	_, err := fn(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}

	span := recorder.Ended()[0]
	if span.Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", span.Status().Code)
	}
	entries := decodeLines(t, &buf)
	if entries[0]["level"] != "warn" || entries[0]["error"] != "connection refused" {
		t.Errorf("unexpected log entry: %v", entries[0])
	}
}

func TestMiddleware_NilRunsDirectly(t *testing.T) {
	var mw *Middleware
	got, err := mw.Run(context.Background(), OpMeta{Name: "x"}, func(context.Context) (any, error) {
		return 1, nil
	})
	if err != nil || got != 1 {
		t.Errorf("Run() = %v, %v", got, err)
	}
}

func TestOpMeta(t *testing.T) {
	if got := (OpMeta{Kind: KindLazy, Name: "db"}).SpanName(); got != "coursecache.lazy.db" {
		t.Errorf("SpanName() = %q", got)
	}
	if got := (OpMeta{Name: "db"}).SpanName(); got != "coursecache.db" {
		t.Errorf("SpanName() = %q", got)
	}
	if err := (OpMeta{}).Validate(); !errors.Is(err, ErrMissingOpName) {
		t.Errorf("Validate() = %v, want ErrMissingOpName", err)
	}
}
