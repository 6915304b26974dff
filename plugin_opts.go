package nus3free

import (
	"errors"
	"log/slog"

	"github.com/meigma/nus3free/cache"
)

// Option configures a Plugin.
type Option func(*Plugin) error

// DefaultCacheSize is the size limit of the cache created by WithCacheDir
// when WithCacheMaxBytes is not given.
const DefaultCacheSize int64 = 256 << 20 // 256 MB

// WithLogger sets the logger for discovery, installation and load events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Plugin) error {
		p.logger = logger
		return nil
	}
}

// WithFallback sets the loader used when a fixed hook cannot serve a
// container. Without one, such requests are reported as unhandled.
func WithFallback(f FallbackLoader) Option {
	return func(p *Plugin) error {
		p.fallback = f
		return nil
	}
}

// WithCache stores built containers in c. It takes precedence over
// WithCacheDir.
func WithCache(c cache.Cache) Option {
	return func(p *Plugin) error {
		p.cache = c
		return nil
	}
}

// WithCacheDir stores built containers zstd-compressed under dir.
func WithCacheDir(dir string) Option {
	return func(p *Plugin) error {
		if dir == "" {
			return errors.New("nus3free: cache directory is empty")
		}
		p.cacheDir = dir
		return nil
	}
}

// WithCacheMaxBytes limits the size of the cache created by WithCacheDir.
// Zero disables the limit.
func WithCacheMaxBytes(n int64) Option {
	return func(p *Plugin) error {
		if n < 0 {
			return errors.New("nus3free: cache size must be non-negative")
		}
		p.cacheMaxBytes = n
		return nil
	}
}

// WithReadConcurrency sets how many payload files of one container are read
// in parallel.
func WithReadConcurrency(n int) Option {
	return func(p *Plugin) error {
		if n < 1 {
			return errors.New("nus3free: read concurrency must be at least 1")
		}
		p.readConcurrency = n
		return nil
	}
}

// WithMaxFileSize rejects payload files larger than n bytes at fetch time.
// Zero disables the limit.
func WithMaxFileSize(n uint64) Option {
	return func(p *Plugin) error {
		p.maxFileSize = n
		return nil
	}
}

// WithMaxDepth limits how deep below the root source directories are
// searched for. 1 considers only immediate children of the root.
func WithMaxDepth(n int) Option {
	return func(p *Plugin) error {
		if n < 0 {
			return errors.New("nus3free: max depth must be non-negative")
		}
		p.maxDepth = n
		return nil
	}
}
