package catalog

import (
	"log/slog"

	"github.com/meigma/nus3free/cache"
)

// defaultReadConcurrency is used when no ResolverWithReadConcurrency option is set.
const defaultReadConcurrency = 4

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// ResolverWithCache enables caching of built containers.
//
// Cached containers are keyed by the directory fingerprint; a hit skips
// payload reads entirely.
func ResolverWithCache(c cache.Cache) ResolverOption {
	return func(r *Resolver) {
		r.cache = c
	}
}

// ResolverWithReadConcurrency sets how many payload files are read in
// parallel during one fetch. Values <= 0 use the default (4).
func ResolverWithReadConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		if n <= 0 {
			n = defaultReadConcurrency
		}
		r.readConcurrency = n
	}
}

// ResolverWithMaxFileSize limits the size of any single payload file.
// Set limit to 0 to disable the limit.
func ResolverWithMaxFileSize(limit uint64) ResolverOption {
	return func(r *Resolver) {
		r.maxFileSize = limit
	}
}

// ResolverWithLogger sets the logger for fetch events.
func ResolverWithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}
