package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"
)

// ErrNotCached is returned by get for a key with no live entry.
var ErrNotCached = errors.New("not cached")

func getCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "print the stored value for a key",
		ArgsUsage: "KEY",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "print only the value at a gjson `PATH`, e.g. modules.0.title",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("get expects exactly one KEY, got %d arguments", cmd.Args().Len())
			}
			key := cmd.Args().First()

			fc, err := s.files(ctx)
			if err != nil {
				return err
			}

			var data []byte
			if path := cmd.String("path"); path != "" {
				v, ok := fc.Get(key)
				if !ok {
					return fmt.Errorf("%q: %w", key, ErrNotCached)
				}
				doc, err := json.Marshal(v)
				if err != nil {
					return fmt.Errorf("%q: %w", key, err)
				}
				r := gjson.GetBytes(doc, path)
				if !r.Exists() {
					return fmt.Errorf("%q has no value at %q", key, path)
				}
				data = []byte(r.String())
			} else {
				var ok bool
				if data, ok = fc.Raw(key); !ok {
					return fmt.Errorf("%q: %w", key, ErrNotCached)
				}
			}

			w := cmd.Root().Writer
			if _, err := w.Write(data); err != nil {
				return err
			}
			if len(data) > 0 && data[len(data)-1] != '\n' {
				_, err = fmt.Fprintln(w)
			}
			return err
		},
	}
}
