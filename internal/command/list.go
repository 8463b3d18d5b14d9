package command

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

func listCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "list cache entries",
		UsageText: "coursecache [global options] list [--expired]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "expired",
				Usage: "only show entries older than the max age",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fc, err := s.files(ctx)
			if err != nil {
				return err
			}
			entries, err := fc.Entries()
			if err != nil {
				return err
			}

			var rows [][]string
			for _, e := range entries {
				if cmd.Bool("expired") && !e.Expired {
					continue
				}
				status := "live"
				if e.Expired {
					status = "expired"
				}
				rows = append(rows, []string{
					e.Name, humanize.Bytes(uint64(e.Size)), humanize.Time(e.ModTime), status,
				})
			}
			return writeTable(cmd.Root().Writer, []string{"NAME", "SIZE", "MODIFIED", "STATUS"}, rows)
		},
	}
}
