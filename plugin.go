package nus3free

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/meigma/nus3free/cache"
	"github.com/meigma/nus3free/cache/disk"
	"github.com/meigma/nus3free/catalog"
)

// Plugin serves containers built from a discovered source tree.
// It is safe for concurrent use once constructed.
type Plugin struct {
	catalog  *catalog.Catalog
	resolver *catalog.Resolver
	fallback FallbackLoader
	logger   *slog.Logger

	cache           cache.Cache
	ownedCache      *disk.Cache // created from cacheDir, closed by Close
	cacheDir        string
	cacheMaxBytes   int64
	readConcurrency int
	maxFileSize     uint64
	maxDepth        int
}

// New discovers every source directory in fsys.
//
// Discovery failures are fatal: no Plugin is returned for a partially
// readable tree.
func New(ctx context.Context, fsys fs.FS, opts ...Option) (*Plugin, error) {
	p := &Plugin{cacheMaxBytes: DefaultCacheSize}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.cache == nil && p.cacheDir != "" {
		c, err := disk.New(p.cacheDir, disk.WithMaxBytes(p.cacheMaxBytes))
		if err != nil {
			return nil, fmt.Errorf("nus3free: open cache: %w", err)
		}
		p.cache = c
		p.ownedCache = c
	}

	cat, err := catalog.Discover(ctx, fsys,
		catalog.DiscoverWithMaxDepth(p.maxDepth),
		catalog.DiscoverWithLogger(p.logger),
	)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.catalog = cat

	ropts := []catalog.ResolverOption{
		catalog.ResolverWithMaxFileSize(p.maxFileSize),
		catalog.ResolverWithLogger(p.logger),
	}
	if p.cache != nil {
		ropts = append(ropts, catalog.ResolverWithCache(p.cache))
	}
	if p.readConcurrency > 0 {
		ropts = append(ropts, catalog.ResolverWithReadConcurrency(p.readConcurrency))
	}
	p.resolver = catalog.NewResolver(cat, ropts...)
	return p, nil
}

// Open discovers every source directory below the directory root.
func Open(ctx context.Context, root string, opts ...Option) (*Plugin, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &catalog.DiscoveryError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &catalog.DiscoveryError{Path: root, Err: errors.New("not a directory")}
	}
	return New(ctx, os.DirFS(root), opts...)
}

// Close releases the cache created by WithCacheDir. A cache passed with
// WithCache is left to its owner.
func (p *Plugin) Close() error {
	if p.ownedCache == nil {
		return nil
	}
	return p.ownedCache.Close()
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Plugin) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// Catalog returns the discovered catalog.
func (p *Plugin) Catalog() *catalog.Catalog {
	return p.catalog
}

// Resolver returns the resolver that builds containers.
func (p *Plugin) Resolver() *catalog.Resolver {
	return p.resolver
}

// Install registers a hook for every discovered directory.
func (p *Plugin) Install(reg Registrar) {
	var fixed, stream int
	for d := range p.catalog.Directories() {
		switch d.Mode {
		case catalog.ModeStream:
			reg.InstallStream(d.Key, p.LoadStream)
			stream++
		default:
			reg.InstallFixed(d.Key, d.EstimatedSize(), p.LoadFixed)
			fixed++
		}
		p.log().Debug("installed hook",
			"key", d.Key,
			"path", d.LogicalPath,
			"mode", d.Mode.String(),
			"expected_size", d.EstimatedSize(),
		)
	}
	p.log().Info("hooks installed", "fixed", fixed, "stream", stream)
}

// LoadFixed writes the container for key into buf.
//
// If the container cannot be built, or is larger than buf, nothing is
// written and the request is delegated to the fallback loader.
func (p *Plugin) LoadFixed(key catalog.Key, buf []byte) (int, bool) {
	data, err := p.resolver.Fetch(context.Background(), key)
	if err != nil {
		p.logFetchError(key, err)
		return p.loadOriginal(key, buf)
	}

	res := WriteBounded(buf, data)
	if res.Overflow() {
		p.log().Error("container exceeds reserved size",
			"key", key,
			"path", p.logicalPath(key),
			"size", res.Actual,
			"expected_size", res.Capacity,
		)
		return p.loadOriginal(key, buf)
	}
	p.log().Debug("served container", "key", key, "size", res.Written, "expected_size", res.Capacity)
	return res.Written, true
}

// LoadStream returns the container for key. On failure it returns false so
// the host serves the original resource.
func (p *Plugin) LoadStream(key catalog.Key) ([]byte, bool) {
	data, err := p.resolver.Fetch(context.Background(), key)
	if err != nil {
		p.logFetchError(key, err)
		return nil, false
	}
	p.log().Debug("served stream container", "key", key, "size", len(data))
	return data, true
}

func (p *Plugin) loadOriginal(key catalog.Key, buf []byte) (int, bool) {
	if p.fallback == nil {
		p.log().Error("no fallback loader", "key", key, "path", p.logicalPath(key))
		return 0, false
	}
	n, err := p.fallback.LoadOriginal(key, buf)
	if err != nil {
		p.log().Error("load original failed", "key", key, "path", p.logicalPath(key), "error", err)
		return 0, false
	}
	return n, true
}

func (p *Plugin) logFetchError(key catalog.Key, err error) {
	var pe *catalog.PayloadError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		p.log().Warn("no source directory for key", "key", key)
	case errors.As(err, &pe):
		p.log().Error("payload read failed", "key", key, "path", p.logicalPath(key), "file", pe.Path, "error", pe.Err)
	default:
		p.log().Error("container build failed", "key", key, "path", p.logicalPath(key), "error", err)
	}
}

func (p *Plugin) logicalPath(key catalog.Key) string {
	if d, ok := p.catalog.Lookup(key); ok {
		return d.LogicalPath
	}
	return ""
}
