package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/meigma/nus3free/cache/disk"
	"github.com/meigma/nus3free/catalog"
	nushttp "github.com/meigma/nus3free/http"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "serve a catalog and its containers over HTTP",
		ArgsUsage: "[root]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address",
			},
			&cli.StringFlag{
				Name:  "cache-dir",
				Usage: "keep built containers in this directory",
			},
			&cli.StringFlag{
				Name:  "snapshot",
				Usage: "catalog snapshot to load instead of walking the root",
			},
		},
		Action: serveAction,
	}
}

// serveSettings merges the config file, flags and arguments.
func serveSettings(c *cli.Context) (serveConfig, error) {
	cfg := defaultServeConfig()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = loadServeConfig(path); err != nil {
			return cfg, err
		}
	}
	if c.NArg() > 0 {
		cfg.Root = c.Args().Get(0)
	}
	if c.IsSet("addr") {
		cfg.Addr = c.String("addr")
	}
	if c.IsSet("cache-dir") {
		cfg.Cache.Dir = c.String("cache-dir")
	}
	if c.IsSet("snapshot") {
		cfg.Snapshot = c.String("snapshot")
	}
	return cfg, cfg.validate()
}

func serveAction(c *cli.Context) error {
	cfg, err := serveSettings(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(ctx, cfg.Root, cfg.Snapshot, cfg.MaxDepth)
	if err != nil {
		return err
	}

	logger := slog.Default()
	ropts := []catalog.ResolverOption{
		catalog.ResolverWithLogger(logger),
		catalog.ResolverWithReadConcurrency(cfg.ReadConcurrency),
		catalog.ResolverWithMaxFileSize(cfg.MaxFileSize),
	}
	if cfg.Cache.Dir != "" {
		dc, err := disk.New(cfg.Cache.Dir, disk.WithMaxBytes(cfg.Cache.MaxBytes))
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer dc.Close()
		ropts = append(ropts, catalog.ResolverWithCache(dc))
	}
	resolver := catalog.NewResolver(cat, ropts...)

	handlerOpts := []nushttp.HandlerOption{nushttp.HandlerWithLogger(logger)}
	if cfg.RateLimit.PerSecond > 0 {
		handlerOpts = append(handlerOpts, nushttp.HandlerWithRateLimit(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst))
	}

	srv := &nethttp.Server{
		Addr:              cfg.Addr,
		Handler:           nushttp.NewHandler(cat, resolver, handlerOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("serving", "addr", cfg.Addr, "root", cfg.Root, "directories", cat.Len())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, nethttp.ErrServerClosed) {
		return err
	}
	return nil
}

// loadCatalog reads a snapshot when one is given and exists, and walks root
// otherwise.
func loadCatalog(ctx context.Context, root, snapshot string, maxDepth int) (*catalog.Catalog, error) {
	fsys := os.DirFS(root)
	if snapshot != "" {
		data, err := os.ReadFile(snapshot)
		switch {
		case err == nil:
			cat, err := catalog.LoadSnapshot(data, fsys)
			if err != nil {
				return nil, err
			}
			slog.Debug("loaded snapshot", "path", snapshot, "directories", cat.Len())
			return cat, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		slog.Debug("snapshot missing, walking root", "path", snapshot)
	}
	return catalog.Discover(ctx, fsys,
		catalog.DiscoverWithMaxDepth(maxDepth),
		catalog.DiscoverWithLogger(slog.Default()),
	)
}

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "download a container from a running server",
		ArgsUsage: "<key|logical path>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "remote",
				Usage:    "server base URL",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output file",
			},
			&cli.StringFlag{
				Name:  "entry",
				Usage: "write only the payload of this entry",
			},
		},
		Action: fetchAction,
	}
}

// parseKeyArg accepts a 0x-prefixed key, a logical path or a path relative
// to the source root.
func parseKeyArg(s string) (catalog.Key, error) {
	if strings.HasPrefix(s, "0x") {
		return catalog.ParseKey(s)
	}
	return catalog.KeyForPath(catalog.NormalizeLogicalPath(s)), nil
}

func fetchAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: nus3free fetch --remote <url> <key|logical path>")
	}
	key, err := parseKeyArg(c.Args().Get(0))
	if err != nil {
		return err
	}

	client, err := nushttp.NewClient(c.String("remote"))
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	var data []byte
	if name := c.String("entry"); name != "" {
		data, err = client.Entry(ctx, key, name)
	} else {
		data, _, err = client.Fetch(ctx, key)
	}
	if err != nil {
		return err
	}

	out := c.String("output")
	if out == "" {
		_, err = c.App.Writer.Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil { //nolint:gosec // containers are not secret
		return err
	}
	slog.Info("fetched", "key", key, "path", out, "size", len(data))
	return nil
}
