package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/urfave/cli/v2"

	"github.com/meigma/nus3free/catalog"
	nus3 "github.com/meigma/nus3free/core"
)

func estimateCmd() *cli.Command {
	return &cli.Command{
		Name:      "estimate",
		Usage:     "predict the container size of a source directory",
		ArgsUsage: "<dir.nus3audio>",
		Flags: []cli.Flag{
			rootFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "JSON output",
			},
		},
		Action: estimateAction,
	}
}

type estimateJSON struct {
	Key          string   `json:"key"`
	LogicalPath  string   `json:"logical_path"`
	Mode         string   `json:"mode"`
	Files        []string `json:"files"`
	ExpectedSize uint64   `json:"expected_size"`
}

func estimateAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: nus3free estimate <dir.nus3audio>")
	}
	_, dir, err := openSource(c.Args().Get(0), c.String("root"))
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(estimateJSON{
			Key:          dir.Key.String(),
			LogicalPath:  dir.LogicalPath,
			Mode:         dir.Mode.String(),
			Files:        dir.Manifest.Names(),
			ExpectedSize: dir.EstimatedSize(),
		})
	}
	for i, e := range dir.Manifest.Entries() {
		fmt.Fprintf(c.App.Writer, "  %3d %s (%s)\n", i, e.Name, humanBytes(e.Size))
	}
	fmt.Fprintf(c.App.Writer, "%s %s: %d bytes\n", dir.Key, dir.LogicalPath, dir.EstimatedSize())
	return nil
}

func buildCmd() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "assemble a container from a source directory",
		ArgsUsage: "<dir.nus3audio>",
		Flags: []cli.Flag{
			rootFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output file (default: <dir name> in the working directory)",
			},
			&cli.Uint64Flag{
				Name:  "max-file-size",
				Usage: "reject payload files larger than this many bytes (0 = unlimited)",
			},
		},
		Action: buildAction,
	}
}

func buildAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: nus3free build <dir.nus3audio>")
	}
	cat, dir, err := openSource(c.Args().Get(0), c.String("root"))
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	r := catalog.NewResolver(cat, catalog.ResolverWithMaxFileSize(c.Uint64("max-file-size")))
	data, err := r.Fetch(ctx, dir.Key)
	if err != nil {
		return err
	}

	out := c.String("output")
	if out == "" {
		out = filepath.Base(dir.Dir)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil { //nolint:gosec // containers are not secret
		return fmt.Errorf("write %s: %w", out, err)
	}

	fmt.Fprintf(c.App.Writer, "%s %s %d bytes (expected %d)\n",
		digest.FromBytes(data), out, len(data), dir.EstimatedSize())
	return nil
}

func rootFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "root",
		Usage: "mod root the logical path is relative to (default: the directory's parent)",
	}
}

// openSource opens a single source directory on disk. With a root, the
// logical path, and so the key and mode, is the directory's path below it.
func openSource(p, root string) (*catalog.Catalog, *catalog.Directory, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, nil, err
	}
	if root == "" {
		return catalog.FromDirectory(os.DirFS(filepath.Dir(abs)), filepath.Base(abs))
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, err
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil {
		return nil, nil, err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return nil, nil, fmt.Errorf("%s is not below root %s", p, root)
	}
	return catalog.FromDirectory(os.DirFS(absRoot), rel)
}

func inspectCmd() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "list the entries of a container file",
		ArgsUsage: "<file.nus3audio>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "extract",
				Usage: "write every entry payload into this directory",
			},
		},
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: nus3free inspect <file.nus3audio>")
	}
	data, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return err
	}
	ctr, err := nus3.Open(data)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "%s  %d entries, %d bytes, junk %d, pack %d\n",
		digest.FromBytes(data), ctr.Len(), ctr.Size(), ctr.JunkPadding(), ctr.PackSize())
	for e := range ctr.Entries() {
		fmt.Fprintf(w, "  %3d id=%-3d 0x%08x %8d %s\n", e.Index, e.ID, e.Offset, len(e.Data), e.Name)
	}

	dest := c.String("extract")
	if dest == "" {
		return nil
	}
	if err := os.MkdirAll(dest, 0o755); err != nil { //nolint:gosec // extracted payloads are not secret
		return err
	}
	for e := range ctr.Entries() {
		if e.Name != filepath.Base(e.Name) || e.Name == "." || e.Name == ".." {
			return fmt.Errorf("refusing to extract entry %q", e.Name)
		}
		if err := os.WriteFile(filepath.Join(dest, e.Name), e.Data, 0o644); err != nil { //nolint:gosec // extracted payloads are not secret
			return err
		}
	}
	return nil
}
