// Command nus3free builds, inspects and serves nus3audio containers
// assembled from directories of loose audio files.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

const appVersion = "0.1.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "nus3free",
		Usage: "assemble nus3audio containers from loose files",
		Before: func(c *cli.Context) error {
			configureLogging(c.Bool("verbose"))
			return nil
		},
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 5 * time.Minute,
				Usage: "operation timeout",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "verbose output",
			},
		},
		Commands: []*cli.Command{
			estimateCmd(),
			buildCmd(),
			inspectCmd(),
			catalogCmd(),
			serveCmd(),
			fetchCmd(),
			benchCmd(),
			{
				Name:  "version",
				Usage: "print version",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, appVersion)
					return nil
				},
			},
		},
	}
}

func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	))
}

func contextWithTimeout(
	c *cli.Context,
) (context.Context, context.CancelFunc) {
	return context.WithTimeout(
		c.Context,
		c.Duration("timeout"),
	)
}

func humanBytes(n uint64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf(
			"%.1f MB", float64(n)/(1<<20),
		)
	case n >= 1<<10:
		return fmt.Sprintf(
			"%.1f KB", float64(n)/(1<<10),
		)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
