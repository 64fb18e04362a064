package main

import (
	"context"
	"fmt"
	"html/template"

	"github.com/urfave/cli/v3"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
	"github.com/keithlinneman/linnemanlabs-sections/internal/section"
	"github.com/keithlinneman/linnemanlabs-sections/internal/slideshow"
	"github.com/keithlinneman/linnemanlabs-sections/internal/viewer"
	"github.com/keithlinneman/linnemanlabs-sections/internal/xerrors"
)

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "render items as HTML to stdout",
		Flags: []cli.Flag{
			fileFlag(),
			&cli.StringFlag{Name: "layout", Value: "cards", Usage: "cards|strip|detail|slideshow"},
			&cli.StringFlag{Name: "ref", Usage: "item slug or id (detail)"},
			&cli.StringFlag{Name: "title", Usage: "section title"},
			&cli.StringFlag{Name: "path", Usage: "read-more path pattern with {id} or {slug}"},
			&cli.BoolFlag{Name: "read-more", Usage: "link each item to its page"},
			&cli.BoolFlag{Name: "media-left", Usage: "strip: media always on the left"},
			&cli.BoolFlag{Name: "media-right", Usage: "strip: media always on the right"},
			&cli.IntFlag{Name: "content-length", Value: section.DefaultContentLength, Usage: "truncate content to N characters"},
			&cli.StringSliceFlag{Name: "tag", Usage: "only items carrying every given tag"},
			&cli.IntFlag{Name: "max", Usage: "at most N items (0 for all)"},
			&cli.BoolFlag{Name: "admin", Usage: "detail: render admin controls"},
			&cli.IntFlag{Name: "index", Value: -1, Usage: "slideshow: show slide N"},
		},
		Action: runRender,
	}
}

func runRender(ctx context.Context, cmd *cli.Command) error {
	snap, err := loadCatalog(cmd)
	if err != nil {
		return err
	}
	items := snap.Items
	if tags, n := cmd.StringSlice("tag"), cmd.Int("max"); len(tags) > 0 || n > 0 {
		if n <= 0 {
			n = len(items)
		}
		items = catalog.Filter(items, catalog.Criteria{MaxItems: n, RequiredTags: tags})
	}

	var out template.HTML
	switch layout := cmd.String("layout"); layout {
	case "cards":
		out, err = section.Cards{
			Title:         cmd.String("title"),
			ContentLength: cmd.Int("content-length"),
			ReadMore:      cmd.Bool("read-more"),
			ReadMorePath:  cmd.String("path"),
		}.Render(ctx, items)
	case "strip":
		out, err = section.Strip{
			Title:         cmd.String("title"),
			MediaLeft:     cmd.Bool("media-left"),
			MediaRight:    cmd.Bool("media-right"),
			ReadMore:      cmd.Bool("read-more"),
			ReadMorePath:  cmd.String("path"),
			ContentLength: cmd.Int("content-length"),
		}.Render(ctx, items)
	case "detail":
		out, err = renderDetail(ctx, cmd, snap.Items)
	case "slideshow":
		s := slideshow.New(items, slideshow.Options{})
		if k := cmd.Int("index"); k >= 0 {
			if err := s.Select(k); err != nil {
				return err
			}
		}
		out, err = s.Render(ctx)
	default:
		return xerrors.Newf("unknown layout %q", layout)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.Root().Writer, out)
	return err
}

func renderDetail(ctx context.Context, cmd *cli.Command, all []catalog.Item) (template.HTML, error) {
	ref := cmd.String("ref")
	if ref == "" {
		return "", xerrors.New("detail needs --ref")
	}
	var item *catalog.Item
	for i := range all {
		if all[i].Ref() == ref || all[i].ID == ref {
			item = &all[i]
			break
		}
	}
	d := section.Detail{Options: section.Options{EmptyTitle: "Not found", EmptyMessage: "No item " + ref}}
	view, err := d.Render(ctx, item, viewer.Viewer{IsAdmin: cmd.Bool("admin")}, all)
	if err != nil {
		return "", err
	}
	return view.HTML, nil
}
