// Command sectionctl renders, filters and deletes catalog items from a
// local catalog file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
	"github.com/keithlinneman/linnemanlabs-sections/internal/log"
	v "github.com/keithlinneman/linnemanlabs-sections/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "sectionctl:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "sectionctl",
		Usage:   "work with a sections catalog file",
		Version: v.Get().String(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "debug|info|warn|error", Sources: cli.EnvVars("LMLABS_LOG_LEVEL")},
		},
		Commands: []*cli.Command{
			renderCommand(),
			filterCommand(),
			deleteCommand(),
		},
	}
}

func fileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "catalog `FILE`",
		Required: true,
		Sources:  cli.EnvVars("LMLABS_CATALOG_FILE"),
	}
}

func loadCatalog(cmd *cli.Command) (*catalog.Snapshot, error) {
	return catalog.LoadFile(cmd.String("file"), catalog.SourceFile, catalog.ValidationOptions{})
}

// newLogger writes logfmt to stderr so stdout stays clean for output.
func newLogger(cmd *cli.Command) (log.Logger, error) {
	lvl, err := log.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return nil, err
	}
	return log.New(log.Options{App: "sectionctl", Version: v.Version, Level: lvl, Writer: cmd.Root().ErrWriter})
}
