package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/keithlinneman/linnemanlabs-sections/internal/apiclient"
	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
	"github.com/keithlinneman/linnemanlabs-sections/internal/section"
	"github.com/keithlinneman/linnemanlabs-sections/internal/xerrors"
)

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "delete an item through the content API and drop it from the catalog file",
		Flags: []cli.Flag{
			fileFlag(),
			&cli.StringFlag{Name: "ref", Usage: "item slug or id", Required: true},
			&cli.StringFlag{Name: "api-base-url", Usage: "content API base `URL`", Required: true, Sources: cli.EnvVars("LMLABS_API_BASE_URL")},
			&cli.StringFlag{Name: "api-token", Usage: "bearer token for the content API", Sources: cli.EnvVars("LMLABS_API_TOKEN")},
			&cli.StringFlag{Name: "api-path", Value: section.DefaultAPIPath, Usage: "collection endpoint"},
			&cli.StringFlag{Name: "redirect", Value: section.DefaultRedirectRoute, Usage: "route reported after the delete"},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
		},
		Action: runDelete,
	}
}

func runDelete(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	path := cmd.String("file")
	snap, err := loadCatalog(cmd)
	if err != nil {
		return err
	}
	store := &fileStore{Store: catalog.NewStore(), path: path, version: snap.Meta.Version}
	store.Set(*snap)

	ref := cmd.String("ref")
	item, ok := store.Lookup(ref)
	if !ok {
		return xerrors.Newf("no item %q in %s", ref, path)
	}

	client, err := apiclient.New(apiclient.Options{
		BaseURL: cmd.String("api-base-url"),
		Token:   cmd.String("api-token"),
	})
	if err != nil {
		return err
	}

	root := cmd.Root()
	d := section.Detail{
		Options: section.Options{APIPath: cmd.String("api-path"), RedirectRoute: cmd.String("redirect")},
		Logger:  logger,
	}
	res := d.Delete(ctx, &item, section.Ports{
		Confirm: &ttyConfirm{
			yes:         cmd.Bool("yes"),
			interactive: isTerminal(root.Reader),
			in:          root.Reader,
			out:         root.ErrWriter,
		},
		API:       client,
		Store:     store,
		Navigator: printNavigator{w: root.Writer},
	}).Wait(ctx)

	switch {
	case res.Stage == section.StageDeclined:
		return xerrors.New("delete declined")
	case res.Err != nil:
		return res.Err
	case store.err != nil:
		return xerrors.Wrap(store.err, "item deleted remotely but the catalog file was not updated")
	}
	return nil
}

// fileStore rewrites the catalog file after each removal.
type fileStore struct {
	*catalog.Store
	path    string
	version string
	err     error
}

func (s *fileStore) Remove(id string) bool {
	if !s.Store.Remove(id) {
		return false
	}
	s.err = catalog.WriteFile(s.path, s.version, s.Items())
	return true
}

type printNavigator struct{ w io.Writer }

func (n printNavigator) Navigate(_ context.Context, route string) {
	fmt.Fprintln(n.w, route)
}

// ttyConfirm prompts on the terminal. Without a terminal it only accepts
// when --yes was given.
type ttyConfirm struct {
	yes         bool
	interactive bool
	in          io.Reader
	out         io.Writer
}

func (c *ttyConfirm) Confirm(_ context.Context, message string) bool {
	if c.yes {
		return true
	}
	if !c.interactive {
		fmt.Fprintln(c.out, "stdin is not a terminal, pass --yes to delete")
		return false
	}
	fmt.Fprintf(c.out, "%s [y/N]: ", message)
	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
