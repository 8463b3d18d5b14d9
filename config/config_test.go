package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/coursecache/cache"
	"github.com/jonwraymond/coursecache/filecache"
)

func testdataPath(t *testing.T, name string) string {
	t.Helper()
	p, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err, "failed to get absolute path for test config")
	return p
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		testFile  string
		env       map[string]string
		wantErr   error
		checkFunc func(*testing.T, Config)
	}{
		{
			name:     "full file",
			testFile: "full.yaml",
			env:      map[string]string{"COURSECACHE_TEST_DIR": "/srv/course"},
			checkFunc: func(t *testing.T, cfg Config) {
				assert.NotEmpty(t, cfg.Source)
				assert.Equal(t, 64, cfg.Cache.MaxSize)
				assert.Equal(t, 0, cfg.Cache.DefaultTTLSeconds, "explicit zero must override the default")
				assert.Equal(t, 600, cfg.Cache.MaxTTLSeconds)
				assert.Equal(t, "/srv/course/artifacts", cfg.FileCache.Directory)
				assert.Equal(t, "yaml", cfg.FileCache.Format)
				assert.Equal(t, 120, cfg.FileCache.MaxAgeSeconds)
				assert.Equal(t, "course-runner", cfg.Observe.ServiceName)
				assert.Equal(t, "debug", cfg.Observe.Logging.Level)
				assert.True(t, cfg.Observe.Metrics.Enabled)
				assert.InDelta(t, 0.5, cfg.Observe.Tracing.SamplePct, 1e-9)
			},
		},
		{
			name:     "partial file keeps defaults",
			testFile: "partial.yaml",
			env:      map[string]string{"COURSECACHE_TEST_SIZE": "32"},
			checkFunc: func(t *testing.T, cfg Config) {
				assert.Equal(t, 32, cfg.Cache.MaxSize, "expanded plain scalar should decode as int")
				assert.Equal(t, 300, cfg.Cache.DefaultTTLSeconds)
				assert.Equal(t, 3600, cfg.Cache.MaxTTLSeconds)
				assert.Equal(t, "/tmp/price$tag", cfg.FileCache.Directory)
				assert.Equal(t, "json", cfg.FileCache.Format)
				assert.Equal(t, "coursecache", cfg.Observe.ServiceName)
			},
		},
		{
			name:     "empty file is all defaults",
			testFile: "empty.yaml",
			checkFunc: func(t *testing.T, cfg Config) {
				assert.Equal(t, 128, cfg.Cache.MaxSize)
				assert.NotEmpty(t, cfg.FileCache.Directory)
			},
		},
		{
			name:     "missing environment variable",
			testFile: "missing-env.yaml",
			wantErr:  ErrMissingEnv,
		},
		{
			name:     "unknown field",
			testFile: "unknown-field.yaml",
		},
		{
			name:     "invalid format",
			testFile: "invalid-format.yaml",
			wantErr:  ErrInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CACHE_HOME", t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(testdataPath(t, tt.testFile))

			if tt.checkFunc == nil {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			tt.checkFunc(t, cfg)
		})
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("COURSECACHE_TEST_SIZE", "16")
	t.Setenv(EnvConfigPath, testdataPath(t, "partial.yaml"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Cache.MaxSize)
	assert.Contains(t, cfg.Source, "partial.yaml")
}

func TestLoad_NoPathUsesDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CACHE_HOME", "/var/cache/test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Source)
	assert.Equal(t, "/var/cache/test/coursecache", cfg.FileCache.Directory)
}

func TestLoad_NoConfigFile(t *testing.T) {
	_, err := Load("/nonexistent/path/coursecache.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"defaults", func(*Config) {}, nil},
		{"zero max size", func(c *Config) { c.Cache.MaxSize = 0 }, ErrInvalidMaxSize},
		{"negative ttl", func(c *Config) { c.Cache.DefaultTTLSeconds = -1 }, ErrInvalidTTL},
		{"negative max age", func(c *Config) { c.FileCache.MaxAgeSeconds = -5 }, ErrInvalidTTL},
		{"blank directory", func(c *Config) { c.FileCache.Directory = "  " }, ErrMissingDirectory},
		{"bad format", func(c *Config) { c.FileCache.Format = "xml" }, ErrInvalidFormat},
		{"yml alias", func(c *Config) { c.FileCache.Format = "yml" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.FileCache.Directory = "/tmp/coursecache"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ObserveSection(t *testing.T) {
	cfg := Default()
	cfg.FileCache.Directory = "/tmp/coursecache"
	cfg.Observe.ServiceName = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observe")
}

func TestConfig_Policy(t *testing.T) {
	cfg := Default()
	p := cfg.Policy()
	assert.Equal(t, 5*time.Minute, p.DefaultTTL)
	assert.Equal(t, time.Hour, p.MaxTTL)
	assert.NoError(t, p.Validate())
}

func TestConfig_ZeroDefaultTTLIsCappedByMaxTTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	cfg := Default()
	cfg.Cache.DefaultTTLSeconds = 0

	c := cfg.NewBoundedCache(cache.WithClock(clock))
	c.Set("k", 1)
	info, ok := c.Inspect("k")
	require.True(t, ok)
	assert.Equal(t, now.Add(time.Hour), info.ExpiresAt, "max_ttl_seconds caps a zero default ttl")

	cfg.Cache.MaxTTLSeconds = 0
	c = cfg.NewBoundedCache(cache.WithClock(clock))
	c.Set("k", 1)
	info, ok = c.Inspect("k")
	require.True(t, ok)
	assert.True(t, info.ExpiresAt.IsZero(), "zero default ttl without a cap never expires")
}

func TestConfig_NewBoundedCache(t *testing.T) {
	cfg := Default()
	cfg.Cache.MaxSize = 3

	c := cfg.NewBoundedCache()
	for _, k := range []string{"a", "b", "c", "d"} {
		c.Set(k, k)
	}
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 3, c.Stats().MaxSize)
}

func TestConfig_NewFileCache(t *testing.T) {
	cfg := Default()
	cfg.FileCache.Directory = filepath.Join(t.TempDir(), "nested", "cache")
	cfg.FileCache.Format = "yaml"

	fc, err := cfg.NewFileCache()
	require.NoError(t, err)
	assert.Equal(t, filecache.FormatYAML, fc.Format())
	assert.DirExists(t, cfg.FileCache.Directory)

	assert.True(t, fc.Set("k", "v"))
	v, ok := fc.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestConfig_NewStack(t *testing.T) {
	cfg := Default()
	cfg.FileCache.Directory = t.TempDir()
	cfg.Observe.Logging.Enabled = false
	cfg.Observe.Metrics.Enabled = true
	cfg.Observe.Tracing.Enabled = true

	ctx := context.Background()
	stack, err := cfg.NewStack(ctx)
	require.NoError(t, err)
	defer func() { assert.NoError(t, stack.Shutdown(ctx)) }()

	require.NoError(t, stack.Registry.Register("syllabus", func(context.Context) (any, error) {
		return "week 1", nil
	}))
	v, err := stack.Registry.Get(ctx, "syllabus")
	require.NoError(t, err)
	assert.Equal(t, "week 1", v)

	stack.Memory.Set("k", 1)
	_, ok := stack.Memory.Get("k")
	assert.True(t, ok)

	assert.True(t, stack.Files.Set("k", 1))
}
