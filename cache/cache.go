// Package cache provides optional caching of built containers.
//
// Building a container reads every payload in a manifest. When the same
// directory is requested repeatedly, a cache lets the resolver serve the
// previously built bytes instead. Keys are digests of a directory's manifest
// fingerprint (names, sizes and modification times), so a changed source
// directory naturally misses.
package cache

import "github.com/opencontainers/go-digest"

// Cache stores built containers keyed by manifest fingerprint.
//
// Implementations should handle their own size limits and eviction policies.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached container for key.
	// Returns nil, false if nothing is cached.
	Get(key digest.Digest) ([]byte, bool)

	// Put stores a container under key.
	// Callers must not modify data after calling Put.
	Put(key digest.Digest, data []byte) error

	// Delete removes the container cached under key.
	// Implementations should treat missing entries as a no-op.
	Delete(key digest.Digest) error

	// MaxBytes returns the configured cache size limit (0 = unlimited).
	MaxBytes() int64

	// SizeBytes returns the current cache size in bytes.
	SizeBytes() int64

	// Prune removes cached entries until the cache is at or below targetBytes.
	// Returns the number of bytes freed.
	Prune(targetBytes int64) (int64, error)
}
