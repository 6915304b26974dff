package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/meigma/nus3free/catalog"
)

func catalogCmd() *cli.Command {
	return &cli.Command{
		Name:      "catalog",
		Usage:     "discover source directories below a root",
		ArgsUsage: "<root>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max-depth",
				Usage: "directory levels searched below the root (0 = unlimited)",
			},
			&cli.StringFlag{
				Name:  "snapshot",
				Usage: "write a catalog snapshot to this file",
			},
			&cli.StringFlag{
				Name:  "from-snapshot",
				Usage: "load the catalog from a snapshot instead of walking the root",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "JSON output",
			},
		},
		Action: catalogAction,
	}
}

type catalogJSON struct {
	Key          string `json:"key"`
	LogicalPath  string `json:"logical_path"`
	Mode         string `json:"mode"`
	Files        int    `json:"files"`
	ExpectedSize uint64 `json:"expected_size"`
}

func catalogAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: nus3free catalog <root>")
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	cat, err := loadCatalog(ctx, c.Args().Get(0), c.String("from-snapshot"), c.Int("max-depth"))
	if err != nil {
		return err
	}

	if out := c.String("snapshot"); out != "" {
		if err := os.WriteFile(out, catalog.WriteSnapshot(cat), 0o644); err != nil { //nolint:gosec // snapshot holds no secrets
			return fmt.Errorf("write snapshot: %w", err)
		}
		slog.Info("wrote snapshot", "path", out, "directories", cat.Len())
	}

	if c.Bool("json") {
		rows := make([]catalogJSON, 0, cat.Len())
		for d := range cat.Directories() {
			rows = append(rows, catalogJSON{
				Key:          d.Key.String(),
				LogicalPath:  d.LogicalPath,
				Mode:         d.Mode.String(),
				Files:        d.Manifest.Len(),
				ExpectedSize: d.EstimatedSize(),
			})
		}
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	var total uint64
	for d := range cat.Directories() {
		fmt.Fprintf(c.App.Writer, "%-14s %-6s %4d files %10s  %s\n",
			d.Key, d.Mode, d.Manifest.Len(), humanBytes(d.EstimatedSize()), d.LogicalPath)
		total += d.EstimatedSize()
	}
	fmt.Fprintf(c.App.Writer, "%d directories, %s\n", cat.Len(), humanBytes(total))
	return nil
}
