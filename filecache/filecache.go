package filecache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/coursecache/observe"
)

const metricsName = "file"

// FileCache persists values as files in one directory.
//
// Contract:
// - Concurrency: safe for concurrent use within one process. Separate
//   processes sharing a directory see whole files only.
// - Errors: Get, GetInto and Set never return errors; failures are logged.
type FileCache struct {
	mu      sync.Mutex
	dir     string
	format  Format
	maxAge  time.Duration
	now     func() time.Time
	logger  observe.Logger
	metrics observe.CacheMetrics
}

// Entry describes one cache file.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
	Expired bool
}

// Option configures a FileCache.
type Option func(*FileCache)

// WithFormat selects the encoding. Default: FormatJSON
// New fails with ErrUnknownFormat for anything ParseFormat rejects.
func WithFormat(f Format) Option {
	return func(c *FileCache) { c.format = f }
}

// WithMaxAge expires entries whose file is older than d. Zero disables expiry.
func WithMaxAge(d time.Duration) Option {
	return func(c *FileCache) { c.maxAge = max(d, 0) }
}

// WithLogger sets the logger for failures and purges.
func WithLogger(l observe.Logger) Option {
	return func(c *FileCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now when comparing file ages.
func WithClock(now func() time.Time) Option {
	return func(c *FileCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMetrics records hits, misses and expirations under the name "file".
func WithMetrics(m observe.CacheMetrics) Option {
	return func(c *FileCache) { c.metrics = m }
}

// New creates a cache rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*FileCache, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("filecache: directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("filecache: resolve directory: %w", err)
	}
	c := &FileCache{
		dir:    abs,
		format: FormatJSON,
		now:    time.Now,
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	format, err := ParseFormat(string(c.format))
	if err != nil {
		return nil, err
	}
	c.format = format

	if err := os.MkdirAll(abs, 0o755); err != nil { //nolint:mnd
		return nil, fmt.Errorf("filecache: create directory: %w", err)
	}
	return c, nil
}

// Dir returns the absolute cache directory.
func (c *FileCache) Dir() string { return c.dir }

// Format returns the configured encoding.
func (c *FileCache) Format() Format { return c.format }

// Path returns the file that holds key.
func (c *FileCache) Path(key string) (string, error) {
	p := filepath.Join(c.dir, fileName(key, c.format))
	if err := within(c.dir, p); err != nil {
		return "", err
	}
	return p, nil
}

// Get decodes the value stored for key into a generic value: maps, slices,
// strings, numbers and booleans as produced by the format's decoder.
func (c *FileCache) Get(key string) (any, bool) {
	var v any
	if !c.GetInto(key, &v) {
		return nil, false
	}
	return v, true
}

// GetInto decodes the value stored for key into dst, which must be a
// pointer. Missing, expired and undecodable entries report false.
func (c *FileCache) GetInto(key string, dst any) bool {
	ctx := context.Background()
	data, p, ok := c.raw(ctx, key)
	if ok {
		if err := c.format.unmarshal(data, dst); err != nil {
			c.logger.Debug(ctx, "cache file unreadable",
				observe.F("path", p), observe.F("error", fmt.Errorf("%w: %w", ErrSerialization, err)))
			ok = false
		}
	}
	c.recordAccess(ctx, ok)
	return ok
}

// Raw returns the encoded bytes stored for key without decoding them.
func (c *FileCache) Raw(key string) ([]byte, bool) {
	ctx := context.Background()
	data, _, ok := c.raw(ctx, key)
	c.recordAccess(ctx, ok)
	return data, ok
}

func (c *FileCache) raw(ctx context.Context, key string) ([]byte, string, bool) {
	p, err := c.Path(key)
	if err != nil {
		c.logger.Warn(ctx, "rejected cache key", observe.F("error", err))
		return nil, "", false
	}

	c.mu.Lock()
	data, ok, expired := c.read(p)
	c.mu.Unlock()

	if expired {
		c.logger.Debug(ctx, "cache file expired", observe.F("path", p))
		if c.metrics != nil {
			c.metrics.RecordEviction(ctx, metricsName, observe.EvictExpired)
		}
	}
	return data, p, ok
}

// read returns the file contents. Expired files are removed. Callers hold mu.
func (c *FileCache) read(p string) (data []byte, ok, expired bool) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, false, false
	}
	if c.isExpired(info.ModTime()) {
		_ = os.Remove(p)
		return nil, false, true
	}
	data, err = os.ReadFile(p)
	if err != nil {
		return nil, false, false
	}
	return data, true, false
}

// Set encodes value and stores it under key, replacing any previous file
// atomically. It reports whether the value was written.
func (c *FileCache) Set(key string, value any) bool {
	ctx := context.Background()
	p, err := c.Path(key)
	if err != nil {
		c.logger.Warn(ctx, "rejected cache key", observe.F("error", err))
		return false
	}

	data, err := c.format.marshal(value)
	if err != nil {
		c.logger.Debug(ctx, "cache value not encodable",
			observe.F("path", p), observe.F("error", fmt.Errorf("%w: %w", ErrSerialization, err)))
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writeAtomic(p, data); err != nil {
		c.logger.Warn(ctx, "cache write failed", observe.F("path", p), observe.F("error", err))
		return false
	}
	return true
}

func (c *FileCache) writeAtomic(p string, data []byte) (err error) {
	tmp, err := os.CreateTemp(c.dir, "."+filepath.Base(p)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o600); err != nil { //nolint:mnd
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Invalidate removes the file for key and reports whether one existed.
func (c *FileCache) Invalidate(key string) bool {
	p, err := c.Path(key)
	if err != nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return os.Remove(p) == nil
}

// Clear removes every entry in the format's extension and returns how many
// were removed. Other files in the directory are left alone.
func (c *FileCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, name := range c.entryNames() {
		if err := os.Remove(filepath.Join(c.dir, name)); err == nil {
			removed++
		} else if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn(context.Background(), "failed to remove cache file",
				observe.F("file", name), observe.F("error", err))
		}
	}
	return removed
}

// PurgeExpired removes entries older than the max age and returns how many
// were removed. It is a no-op when no max age is set.
func (c *FileCache) PurgeExpired() int {
	ctx := context.Background()
	if c.maxAge <= 0 {
		c.logger.Debug(ctx, "cache purge disabled")
		return 0
	}

	c.mu.Lock()
	removed := 0
	for _, name := range c.entryNames() {
		p := filepath.Join(c.dir, name)
		info, err := os.Stat(p)
		if err != nil || !c.isExpired(info.ModTime()) {
			continue
		}
		if err := os.Remove(p); err == nil {
			removed++
			c.logger.Debug(ctx, "removed cache file", observe.F("file", name))
		} else {
			c.logger.Warn(ctx, "failed to remove cache file", observe.F("file", name), observe.F("error", err))
		}
	}
	c.mu.Unlock()

	if c.metrics != nil {
		for range removed {
			c.metrics.RecordEviction(ctx, metricsName, observe.EvictExpired)
		}
	}
	return removed
}

// Entries lists cache files sorted by name.
func (c *FileCache) Entries() ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("filecache: read directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if !c.isEntry(d) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    d.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Expired: c.isExpired(info.ModTime()),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// entryNames lists entry files. Callers hold mu.
func (c *FileCache) entryNames() []string {
	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, d := range dirents {
		if c.isEntry(d) {
			names = append(names, d.Name())
		}
	}
	return names
}

func (c *FileCache) isEntry(d fs.DirEntry) bool {
	return d.Type().IsRegular() && !strings.HasPrefix(d.Name(), ".") && filepath.Ext(d.Name()) == c.format.Ext()
}

func (c *FileCache) isExpired(mod time.Time) bool {
	return c.maxAge > 0 && c.now().Sub(mod) > c.maxAge
}

func (c *FileCache) recordAccess(ctx context.Context, hit bool) {
	if c.metrics != nil {
		c.metrics.RecordAccess(ctx, metricsName, hit)
	}
}
