// Package command implements the coursecache command line.
package command

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/jonwraymond/coursecache/config"
	"github.com/jonwraymond/coursecache/filecache"
	"github.com/jonwraymond/coursecache/lazy"
	mylog "github.com/jonwraymond/coursecache/internal/log"
)

const (
	resConfig = "config"
	resFiles  = "files"
)

// session carries state shared by every subcommand of one run. The config
// and file cache are opened on first use, so --help never touches the disk.
type session struct {
	root     *cli.Command
	registry *lazy.Registry
}

// NewApp builds the root command.
func NewApp() *cli.Command {
	s := &session{}

	app := &cli.Command{
		Name:   "coursecache",
		Usage:  "inspect and maintain a course file cache",
		Writer: os.Stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to a coursecache.yaml",
				Sources: cli.NewValueSourceChain(cli.EnvVar(config.EnvConfigPath)),
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "cache directory, overrides file_cache.directory",
				Sources: cli.NewValueSourceChain(cli.EnvVar("COURSECACHE_DIR")),
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "entry format (json|yaml), overrides file_cache.format",
				Validator: func(value string) error {
					_, err := filecache.ParseFormat(value)
					return err
				},
			},
			&cli.DurationFlag{
				Name:  "max-age",
				Usage: "entry lifetime, overrides file_cache.max_age_seconds (0 disables expiry)",
			},
		},
		Before: s.before,
		Commands: []*cli.Command{
			listCommand(s),
			getCommand(s),
			purgeCommand(s),
			clearCommand(s),
			statsCommand(s),
		},
	}

	// Make sure flags are sorted for the --help text.
	sort.Slice(app.Flags, func(i, j int) bool {
		return app.Flags[i].Names()[0] < app.Flags[j].Names()[0]
	})

	return app
}

func (s *session) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	s.root = cmd
	s.registry = lazy.NewRegistry(lazy.WithLogger(mylog.NewAdapter(nil)))
	if err := s.registry.Register(resConfig, s.loadConfig); err != nil {
		return ctx, err
	}
	if err := s.registry.Register(resFiles, s.openFiles); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// loadConfig reads the config file and applies flag overrides.
func (s *session) loadConfig(context.Context) (any, error) {
	cfg, err := config.Read(s.root.String("config"))
	if err != nil {
		return nil, err
	}
	if s.root.IsSet("dir") && s.root.String("dir") != "" {
		cfg.FileCache.Directory = s.root.String("dir")
	}
	if s.root.IsSet("format") && s.root.String("format") != "" {
		cfg.FileCache.Format = s.root.String("format")
	}
	if s.root.IsSet("max-age") {
		cfg.FileCache.MaxAgeSeconds = int(s.root.Duration("max-age") / time.Second)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Debugf("using cache directory %s (%s)", cfg.FileCache.Directory, cfg.FileCache.Format)
	return cfg, nil
}

func (s *session) openFiles(ctx context.Context) (any, error) {
	cfg, err := lazy.GetAs[config.Config](ctx, s.registry, resConfig)
	if err != nil {
		return nil, err
	}
	return cfg.NewFileCache(filecache.WithLogger(mylog.NewAdapter(nil)))
}

func (s *session) files(ctx context.Context) (*filecache.FileCache, error) {
	return lazy.GetAs[*filecache.FileCache](ctx, s.registry, resFiles)
}
