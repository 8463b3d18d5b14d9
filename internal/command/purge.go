package command

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

func purgeCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "remove entries older than the max age",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fc, err := s.files(ctx)
			if err != nil {
				return err
			}
			n := fc.PurgeExpired()
			log.Debugf("purged %d entries from %s", n, fc.Dir())
			_, err = fmt.Fprintf(cmd.Root().Writer, "removed %s expired entries\n", humanize.Comma(int64(n)))
			return err
		},
	}
}

func clearCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "remove every entry",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "required; clear cannot be undone",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fc, err := s.files(ctx)
			if err != nil {
				return err
			}
			if !cmd.Bool("force") {
				return fmt.Errorf("refusing to clear %s without --force", fc.Dir())
			}
			n := fc.Clear()
			log.Infof("cleared %s", fc.Dir())
			_, err = fmt.Fprintf(cmd.Root().Writer, "removed %s entries\n", humanize.Comma(int64(n)))
			return err
		},
	}
}
