package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/coursecache/cache"
	"github.com/jonwraymond/coursecache/filecache"
	"github.com/jonwraymond/coursecache/observe"
)

// EnvConfigPath names the config file when Load is called with an empty path.
const EnvConfigPath = "COURSECACHE_CONFIG"

// Sentinel errors for configuration.
var (
	ErrMissingDirectory = errors.New("config: file_cache.directory is required")
	ErrInvalidFormat    = errors.New("config: file_cache.format must be json or yaml")
	ErrInvalidMaxSize   = errors.New("config: cache.max_size must be positive")
	ErrInvalidTTL       = errors.New("config: durations must not be negative")
	ErrMissingEnv       = errors.New("config: missing required environment variables")
)

// Config is the root of the YAML document.
type Config struct {
	// Source is the file the config was read from, empty for defaults.
	Source string `yaml:"-"`

	Cache     CacheConfig     `yaml:"cache"`
	FileCache FileCacheConfig `yaml:"file_cache"`
	Observe   ObserveConfig   `yaml:"observe"`
}

// CacheConfig configures the in-memory BoundedCache.
type CacheConfig struct {
	MaxSize           int `yaml:"max_size"`
	DefaultTTLSeconds int `yaml:"default_ttl_seconds"` // 0 = never expires unless max_ttl_seconds caps it
	MaxTTLSeconds     int `yaml:"max_ttl_seconds"`     // 0 = no cap; otherwise caps every entry
}

// FileCacheConfig configures the on-disk cache.
type FileCacheConfig struct {
	Directory     string `yaml:"directory"`
	Format        string `yaml:"format"`
	MaxAgeSeconds int    `yaml:"max_age_seconds"` // 0 = never expires
}

// ObserveConfig mirrors observe.Config with YAML names.
type ObserveConfig struct {
	ServiceName string `yaml:"service_name"`
	Version     string `yaml:"version"`
	Logging     struct {
		Enabled bool   `yaml:"enabled"`
		Level   string `yaml:"level"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled  bool   `yaml:"enabled"`
		Exporter string `yaml:"exporter"`
	} `yaml:"metrics"`
	Tracing struct {
		Enabled   bool    `yaml:"enabled"`
		Exporter  string  `yaml:"exporter"`
		SamplePct float64 `yaml:"sample_pct"`
	} `yaml:"tracing"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.Cache = CacheConfig{
		MaxSize:           cache.DefaultMaxSize,
		DefaultTTLSeconds: int(cache.DefaultPolicy().DefaultTTL / time.Second),
		MaxTTLSeconds:     int(cache.DefaultPolicy().MaxTTL / time.Second),
	}
	cfg.FileCache = FileCacheConfig{
		Directory:     DefaultDirectory(),
		Format:        string(filecache.FormatJSON),
		MaxAgeSeconds: int((24 * time.Hour) / time.Second),
	}
	cfg.Observe.ServiceName = "coursecache"
	cfg.Observe.Logging.Enabled = true
	cfg.Observe.Logging.Level = "info"
	cfg.Observe.Metrics.Exporter = "none"
	cfg.Observe.Tracing.Exporter = "none"
	cfg.Observe.Tracing.SamplePct = 1.0
	return cfg
}

// DefaultDirectory resolves os.UserCacheDir()/coursecache, or "" when the
// platform has no user cache directory.
func DefaultDirectory() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "coursecache")
	}
	return ""
}

// Load reads the config at path, falling back to $COURSECACHE_CONFIG and
// then to Default when both are empty, and validates the result.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read is Load without validation, for callers that override fields first.
// Fields absent from the file keep their defaults; unknown fields are an
// error.
func Read(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config file not found: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// Parse expands environment references in data and decodes it over cfg.
func Parse(data []byte, cfg *Config) error {
	var root yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse yaml: %w", err)
	}
	if err := expandNode(&root); err != nil {
		return err
	}

	expanded, err := yaml.Marshal(&root)
	if err != nil {
		return fmt.Errorf("re-encode yaml: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("%w, got: %d", ErrInvalidMaxSize, c.Cache.MaxSize)
	}
	if c.Cache.DefaultTTLSeconds < 0 || c.Cache.MaxTTLSeconds < 0 || c.FileCache.MaxAgeSeconds < 0 {
		return ErrInvalidTTL
	}
	if strings.TrimSpace(c.FileCache.Directory) == "" {
		return ErrMissingDirectory
	}
	if _, err := filecache.ParseFormat(c.FileCache.Format); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.FileCache.Format)
	}
	obs := c.ObserveConfig()
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("config: observe: %w", err)
	}
	return nil
}

// Policy returns the TTL policy for the in-memory cache.
func (c *Config) Policy() cache.Policy {
	return cache.Policy{
		DefaultTTL: time.Duration(c.Cache.DefaultTTLSeconds) * time.Second,
		MaxTTL:     time.Duration(c.Cache.MaxTTLSeconds) * time.Second,
	}
}

// ObserveConfig converts the observe section.
func (c *Config) ObserveConfig() observe.Config {
	o := c.Observe
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     o.Version,
		Tracing: observe.TracingConfig{
			Enabled:   o.Tracing.Enabled,
			Exporter:  o.Tracing.Exporter,
			SamplePct: o.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.Metrics.Enabled,
			Exporter: o.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: o.Logging.Enabled,
			Level:   o.Logging.Level,
		},
	}
}

// NewBoundedCache builds the in-memory cache.
func (c *Config) NewBoundedCache(opts ...cache.Option) *cache.BoundedCache {
	return cache.New(c.Cache.MaxSize, c.Policy(), opts...)
}

// NewFileCache builds the on-disk cache. Options given here override the
// configured ones.
func (c *Config) NewFileCache(opts ...filecache.Option) (*filecache.FileCache, error) {
	format, err := filecache.ParseFormat(c.FileCache.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, c.FileCache.Format)
	}
	base := []filecache.Option{
		filecache.WithFormat(format),
		filecache.WithMaxAge(time.Duration(c.FileCache.MaxAgeSeconds) * time.Second),
	}
	return filecache.New(c.FileCache.Directory, append(base, opts...)...)
}
