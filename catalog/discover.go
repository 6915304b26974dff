package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
)

// SourceSuffix is the directory name suffix that marks a container source.
const SourceSuffix = ".nus3audio"

// discoverConfig holds configuration for discovery.
type discoverConfig struct {
	maxDepth int
	logger   *slog.Logger
}

// DiscoverOption configures Discover.
type DiscoverOption func(*discoverConfig)

// DiscoverWithMaxDepth limits how many directory levels below the root are
// searched for source directories. 1 considers only immediate children of
// the root. Zero or negative means no limit.
func DiscoverWithMaxDepth(n int) DiscoverOption {
	return func(cfg *discoverConfig) {
		cfg.maxDepth = n
	}
}

// DiscoverWithLogger sets the logger for discovery events.
func DiscoverWithLogger(logger *slog.Logger) DiscoverOption {
	return func(cfg *discoverConfig) {
		cfg.logger = logger
	}
}

// IsSourceDir reports whether a directory name marks a container source.
func IsSourceDir(name string) bool {
	return len(name) > len(SourceSuffix) && strings.HasSuffix(name, SourceSuffix)
}

// Discover walks fsys and registers every source directory it finds.
//
// Source directories are not descended into; only their immediate regular
// files are listed. Symbolic links are not followed. Any unreadable entry
// aborts discovery with a *DiscoveryError.
func Discover(ctx context.Context, fsys fs.FS, opts ...DiscoverOption) (*Catalog, error) {
	cfg := discoverConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	cat := newCatalog(fsys)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return &DiscoveryError{Path: p, Err: walkErr}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == "." || !d.IsDir() {
			return nil
		}

		if !IsSourceDir(d.Name()) {
			if cfg.maxDepth > 0 && depth(p) >= cfg.maxDepth {
				return fs.SkipDir
			}
			return nil
		}

		m, err := ReadManifest(fsys, p)
		if err != nil {
			return err
		}
		dir := newDirectory(p, m)
		if prev := cat.add(dir); prev != nil {
			log.Warn("duplicate container key", "key", dir.Key, "path", dir.LogicalPath, "replaced", prev.LogicalPath)
		}
		log.Debug("discovered container source",
			"key", dir.Key,
			"path", dir.LogicalPath,
			"mode", dir.Mode.String(),
			"files", m.Len(),
			"estimated_size", dir.EstimatedSize(),
		)
		return fs.SkipDir
	})
	if err != nil {
		return nil, err
	}

	log.Info("catalog discovered", "directories", cat.Len())
	return cat, nil
}

// depth returns the number of path elements in a slash-separated path.
func depth(p string) int {
	return strings.Count(path.Clean(p), "/") + 1
}

// FromDirectory returns a catalog holding only dir, which must be a source
// directory within fsys. Its logical path is dir itself.
func FromDirectory(fsys fs.FS, dir string) (*Catalog, *Directory, error) {
	if !IsSourceDir(path.Base(dir)) {
		return nil, nil, &DiscoveryError{Path: dir, Err: fmt.Errorf("name does not end in %s", SourceSuffix)}
	}
	m, err := ReadManifest(fsys, dir)
	if err != nil {
		return nil, nil, err
	}
	cat := newCatalog(fsys)
	d := newDirectory(dir, m)
	cat.add(d)
	return cat, d, nil
}
