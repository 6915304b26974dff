// Package sizing provides the rounding, padding and overflow-checked
// conversions shared by the container estimator, builder and reader.
package sizing

import (
	"io"
	"math"
)

// Alignment is the payload alignment used by the PACK section.
const Alignment = 0x10

// RoundUp16 rounds size up to the next multiple of Alignment.
func RoundUp16(size uint64) uint64 {
	return (size + Alignment - 1) / Alignment * Alignment
}

// JunkPadding returns the number of zero bytes needed after offset so that
// offset+padding lands on 8 modulo 16.
//
// The arithmetic is signed to match the reference rounding rule
// ((0x18 - offset % 0x10) % 0x10).
func JunkPadding(offset uint64) uint64 {
	off := int64(offset) //nolint:gosec // container offsets are far below MaxInt64
	return uint64((0x18 - off%Alignment) % Alignment) //nolint:gosec // result is in [0, 15]
}

// ToUint32 converts a uint64 to uint32, returning overflowErr if it doesn't fit.
func ToUint32(size uint64, overflowErr error) (uint32, error) {
	if size > math.MaxUint32 {
		return 0, overflowErr
	}
	return uint32(size), nil
}

// ToInt converts a uint64 to int, returning overflowErr if it doesn't fit.
func ToInt(size uint64, overflowErr error) (int, error) {
	if size > uint64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(size), nil
}

// AddUint64 adds two uint64 values, returning (result, false) on overflow.
func AddUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// ReadAllWithLimit reads up to maxSize bytes from r.
// Returns overflowErr if more than maxSize bytes are available.
// A maxSize of zero disables the limit.
func ReadAllWithLimit(r io.Reader, maxSize uint64, overflowErr error) ([]byte, error) {
	if maxSize == 0 {
		return io.ReadAll(r)
	}
	if maxSize > uint64(math.MaxInt-1) {
		return nil, overflowErr
	}
	limit := int64(maxSize) + 1 //nolint:gosec // checked above
	lr := &io.LimitedReader{R: r, N: limit}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > maxSize { //nolint:gosec // len is always non-negative
		return nil, overflowErr
	}
	return data, nil
}
