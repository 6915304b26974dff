package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/meigma/nus3free/cache"
	nus3 "github.com/meigma/nus3free/core"
	"github.com/meigma/nus3free/internal/sizing"
)

// Resolver materializes catalog directories into containers.
// It is safe for concurrent use.
type Resolver struct {
	catalog         *Catalog
	cache           cache.Cache // nil = no caching
	group           singleflight.Group
	readConcurrency int
	maxFileSize     uint64
	logger          *slog.Logger
}

// NewResolver creates a Resolver over cat.
func NewResolver(cat *Catalog, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		catalog:         cat,
		readConcurrency: defaultReadConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// log returns the logger, falling back to a discard logger if nil.
func (r *Resolver) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// Catalog returns the catalog the resolver reads from.
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Fetch builds the container registered under key.
//
// It returns an error wrapping ErrNotFound when key is unknown. Every
// manifest file is read; if any one cannot be read the fetch fails with a
// *PayloadError and no bytes are returned. Concurrent fetches of the same
// key share a single build, which is not canceled with any caller's ctx.
func (r *Resolver) Fetch(ctx context.Context, key Key) ([]byte, error) {
	dir, ok := r.catalog.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	// The build outlives any one caller; a canceled caller stops waiting
	// but callers sharing the build still get its result.
	ch := r.group.DoChan(key.String(), func() (any, error) {
		return r.build(context.WithoutCancel(ctx), dir)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		data := res.Val.([]byte) //nolint:errcheck // build always returns []byte
		if res.Shared {
			data = bytes.Clone(data)
		}
		return data, nil
	}
}

// build produces the container for dir, consulting the cache first.
func (r *Resolver) build(ctx context.Context, dir *Directory) ([]byte, error) {
	var fp digest.Digest
	if r.cache != nil {
		fp = dir.Fingerprint()
		if data, ok := r.cache.Get(fp); ok {
			r.log().Debug("container cache hit", "key", dir.Key, "path", dir.LogicalPath)
			return data, nil
		}
		r.log().Debug("container cache miss", "key", dir.Key, "path", dir.LogicalPath)
	}

	files, err := r.readPayloads(ctx, dir)
	if err != nil {
		return nil, err
	}

	data, err := nus3.Build(files)
	if err != nil {
		return nil, fmt.Errorf("catalog: build %s: %w", dir.LogicalPath, err)
	}
	r.log().Debug("container built",
		"key", dir.Key,
		"path", dir.LogicalPath,
		"files", len(files),
		"size", len(data),
		"estimated_size", dir.EstimatedSize(),
	)

	if r.cache != nil {
		if err := r.cache.Put(fp, data); err != nil {
			r.log().Warn("container cache store failed", "key", dir.Key, "fingerprint", fp, "error", err)
		}
	}
	return data, nil
}

// readPayloads reads every manifest file, assigning ids by manifest position.
func (r *Resolver) readPayloads(ctx context.Context, dir *Directory) ([]nus3.AudioFile, error) {
	files := make([]nus3.AudioFile, dir.Manifest.Len())

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.readConcurrency)
	for i, e := range dir.Manifest.Entries() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := readPayload(r.catalog.fsys, e.Path, r.maxFileSize)
			if err != nil {
				return &PayloadError{Key: dir.Key, Path: e.Path, Err: err}
			}
			files[i] = nus3.AudioFile{
				ID:   uint32(i), //nolint:gosec // manifest length is far below MaxUint32
				Name: e.Name,
				Data: data,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func readPayload(fsys fs.FS, name string, maxSize uint64) ([]byte, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return sizing.ReadAllWithLimit(f, maxSize, nus3.ErrSizeOverflow)
}
