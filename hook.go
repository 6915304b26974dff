package nus3free

import "github.com/meigma/nus3free/catalog"

// FixedCallback fills buf with the container for key. It returns the number
// of bytes written and whether the request was handled. The host supplies a
// buffer of the size passed to [Registrar.InstallFixed].
type FixedCallback func(key catalog.Key, buf []byte) (int, bool)

// StreamCallback returns the container for key. When ok is false the host
// loads the original resource.
type StreamCallback func(key catalog.Key) (data []byte, ok bool)

// Registrar installs load hooks in the host.
type Registrar interface {
	// InstallFixed registers cb for key with a buffer of size bytes.
	InstallFixed(key catalog.Key, size uint64, cb FixedCallback)

	// InstallStream registers cb for key with a dynamically sized buffer.
	InstallStream(key catalog.Key, cb StreamCallback)
}

// FallbackLoader loads the unmodified resource for key into buf.
type FallbackLoader interface {
	LoadOriginal(key catalog.Key, buf []byte) (int, error)
}

// WriteResult describes a bounded write.
type WriteResult struct {
	// Written is the number of bytes copied into the destination.
	Written int

	// Actual is the length of the source.
	Actual int

	// Capacity is the length of the destination.
	Capacity int
}

// Overflow reports whether the source did not fit the destination.
func (r WriteResult) Overflow() bool {
	return r.Actual > r.Capacity
}

// WriteBounded copies src into dst only if it fits entirely. An oversized
// src leaves dst untouched.
func WriteBounded(dst, src []byte) WriteResult {
	res := WriteResult{Actual: len(src), Capacity: len(dst)}
	if res.Overflow() {
		return res
	}
	res.Written = copy(dst, src)
	return res
}
