package command

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/jonwraymond/coursecache/config"
	"github.com/jonwraymond/coursecache/lazy"
)

func statsCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "summarize the cache directory",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fc, err := s.files(ctx)
			if err != nil {
				return err
			}
			cfg, err := lazy.GetAs[config.Config](ctx, s.registry, resConfig)
			if err != nil {
				return err
			}
			entries, err := fc.Entries()
			if err != nil {
				return err
			}

			var total uint64
			var expired int
			var oldest, newest time.Time
			for _, e := range entries {
				total += uint64(e.Size)
				if e.Expired {
					expired++
				}
				if oldest.IsZero() || e.ModTime.Before(oldest) {
					oldest = e.ModTime
				}
				if e.ModTime.After(newest) {
					newest = e.ModTime
				}
			}

			maxAge := "never"
			if cfg.FileCache.MaxAgeSeconds > 0 {
				maxAge = (time.Duration(cfg.FileCache.MaxAgeSeconds) * time.Second).String()
			}

			rows := [][]string{
				{"directory:", fc.Dir()},
				{"format:", string(fc.Format())},
				{"expires after:", maxAge},
				{"entries:", fmt.Sprintf("%s (%s expired)",
					humanize.Comma(int64(len(entries))), humanize.Comma(int64(expired)))},
				{"size:", humanize.Bytes(total)},
			}
			if len(entries) > 0 {
				rows = append(rows,
					[]string{"oldest:", humanize.Time(oldest)},
					[]string{"newest:", humanize.Time(newest)})
			}
			return writeTable(cmd.Root().Writer, nil, rows)
		},
	}
}
