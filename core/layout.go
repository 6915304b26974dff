package nus3

import (
	"encoding/binary"
	"errors"

	"github.com/meigma/nus3free/internal/sizing"
)

// Section magics.
const (
	magicNUS3     = "NUS3"
	magicAudiIndx = "AUDIINDX"
	magicTNID     = "TNID"
	magicNMOF     = "NMOF"
	magicADOF     = "ADOF"
	magicTNNM     = "TNNM"
	magicJUNK     = "JUNK"
	magicPACK     = "PACK"
)

// Fixed section sizes in bytes.
const (
	u32Size         = 4
	sectionHeader   = 4 + u32Size   // 4-byte magic + u32 length
	fileHeaderSize  = 4 + u32Size   // "NUS3" + u32 length
	audiIndexSize   = 8 + 2*u32Size // "AUDIINDX" + u32 length + u32 count
	adofRecordSize  = 2 * u32Size
	audiIndexLength = u32Size
)

var le = binary.LittleEndian

// Sentinel errors.
var (
	// ErrSizeOverflow is returned when an offset or length does not fit the
	// container's 32-bit fields.
	ErrSizeOverflow = errors.New("nus3: size overflow")

	// ErrInvalidContainer is returned when parsed bytes do not form a valid container.
	ErrInvalidContainer = errors.New("nus3: invalid container")

	// ErrInvalidName is returned when an entry name cannot be stored in the names table.
	ErrInvalidName = errors.New("nus3: invalid entry name")
)

// layout holds the offsets shared by the estimator and the builder. How the
// PACK section is filled is left to each of them.
type layout struct {
	count      int
	namesStart uint64
	namesSize  uint64
	junkPad    uint64
	packStart  uint64 // first payload byte, after the PACK header
}

// planLayout computes every offset up to the first payload byte for count
// entries whose names occupy namesSize bytes including terminators.
func planLayout(count int, namesSize uint64) layout {
	n := uint64(count) //nolint:gosec // count is a slice length

	tnidSize := sectionHeader + u32Size*n
	nmofSize := tnidSize
	adofSize := sectionHeader + adofRecordSize*n

	namesStart := fileHeaderSize + audiIndexSize + tnidSize + nmofSize + adofSize + sectionHeader
	junkPad := sizing.JunkPadding(namesStart + namesSize + sectionHeader)
	junkSize := sectionHeader + junkPad

	return layout{
		count:      count,
		namesStart: namesStart,
		namesSize:  namesSize,
		junkPad:    junkPad,
		packStart:  namesStart + namesSize + junkSize + sectionHeader,
	}
}

// payloadSpan is the number of PACK bytes a payload of size occupies.
// A container holding a single entry stores it unpadded.
func (l layout) payloadSpan(size uint64) uint64 {
	if l.count == 1 {
		return size
	}
	return sizing.RoundUp16(size)
}
