// Package log configures apex/log for the command line tool and adapts it to
// observe.Logger so library components log through the same handler.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/jonwraymond/coursecache/observe"
)

// EnvLogLevel selects the log level; unset means ERROR.
const EnvLogLevel = "COURSECACHE_LOG"

// InitLogger sets up apex/log with a CustomHandler writing to stderr and a
// level from COURSECACHE_LOG.
func InitLogger() {
	level := strings.ToUpper(os.Getenv(EnvLogLevel))
	if level == "" {
		level = "ERROR"
	}
	log.SetHandler(&CustomHandler{Writer: os.Stderr})
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.ErrorLevel
	}
	log.SetLevel(lvl)
}

// CustomHandler formats entries as "<time> <L> <message> key=value...".
type CustomHandler struct {
	Writer io.Writer
}

// HandleLog implements the log.Handler interface
func (h *CustomHandler) HandleLog(e *log.Entry) error {
	timestamp := e.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	level := strings.ToUpper(e.Level.String())

	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1s %s", timestamp.Format("2006-01-02 15:04:05"), level, e.Message)
	for _, k := range names {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	b.WriteByte('\n')

	w := h.Writer
	if w == nil {
		w = os.Stderr
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Adapter implements observe.Logger on top of an apex/log entry.
type Adapter struct {
	entry *log.Entry
}

// NewAdapter wraps l. A nil l uses the package-level apex logger.
func NewAdapter(l *log.Logger) *Adapter {
	if l == nil {
		return &Adapter{entry: log.WithFields(log.Fields{})}
	}
	return &Adapter{entry: l.WithFields(log.Fields{})}
}

func (a *Adapter) Debug(_ context.Context, msg string, fields ...observe.Field) {
	a.with(fields).Debug(msg)
}

func (a *Adapter) Info(_ context.Context, msg string, fields ...observe.Field) {
	a.with(fields).Info(msg)
}

func (a *Adapter) Warn(_ context.Context, msg string, fields ...observe.Field) {
	a.with(fields).Warn(msg)
}

func (a *Adapter) Error(_ context.Context, msg string, fields ...observe.Field) {
	a.with(fields).Error(msg)
}

// With returns an adapter that adds fields to every entry.
func (a *Adapter) With(fields ...observe.Field) observe.Logger {
	return &Adapter{entry: a.with(fields)}
}

func (a *Adapter) with(fields []observe.Field) *log.Entry {
	if len(fields) == 0 {
		return a.entry
	}
	f := make(log.Fields, len(fields))
	for _, fld := range fields {
		switch v := fld.Value.(type) {
		case error:
			f[fld.Key] = v.Error()
		default:
			f[fld.Key] = v
		}
		if slices.Contains(observe.RedactedFields, fld.Key) {
			f[fld.Key] = "[REDACTED]"
		}
	}
	return a.entry.WithFields(f)
}

var _ observe.Logger = (*Adapter)(nil)
