package main

import (
	"context"
	"encoding/json"

	"github.com/urfave/cli/v3"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
	"github.com/keithlinneman/linnemanlabs-sections/internal/xerrors"
)

func filterCommand() *cli.Command {
	return &cli.Command{
		Name:  "filter",
		Usage: "print the items carrying every --tag as JSON",
		Flags: []cli.Flag{
			fileFlag(),
			&cli.StringSliceFlag{Name: "tag", Usage: "required tag, repeatable"},
			&cli.IntFlag{Name: "max", Value: 10, Usage: "at most N items"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			snap, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			c := catalog.Criteria{MaxItems: cmd.Int("max"), RequiredTags: cmd.StringSlice("tag")}
			enc := json.NewEncoder(cmd.Root().Writer)
			enc.SetIndent("", "  ")
			if err := enc.Encode(catalog.Filter(snap.Items, c)); err != nil {
				return xerrors.Wrap(err, "encode items")
			}
			return nil
		},
	}
}
