package nus3

import (
	"fmt"
	"strings"

	"github.com/meigma/nus3free/internal/sizing"
)

// AudioFile is one named payload to be stored in a container.
type AudioFile struct {
	// ID is written to the TNID table. Callers conventionally use the
	// entry's zero-based position.
	ID uint32

	// Name is the entry name, usually the source file's base name.
	Name string

	// Data is the opaque payload.
	Data []byte
}

// placement is where an entry's payload lives inside the container.
type placement struct {
	offset uint64
	size   uint64
}

// Build serializes files into a container, preserving their order.
//
// An entry whose name repeats an earlier entry's name stores no payload of its
// own; its ADOF record points at the first payload with that name. For
// distinct names the result is exactly [EstimateSize] bytes long.
func Build(files []AudioFile) ([]byte, error) {
	var namesSize uint64
	for i := range files {
		if strings.IndexByte(files[i].Name, 0) >= 0 {
			return nil, fmt.Errorf("%w: %q contains NUL", ErrInvalidName, files[i].Name)
		}
		namesSize += uint64(len(files[i].Name)) + 1
	}

	l := planLayout(len(files), namesSize)

	placements := make([]placement, len(files))
	stored := make([]int, 0, len(files))
	firstByName := make(map[string]int, len(files))
	var packSize uint64
	for i := range files {
		if j, ok := firstByName[files[i].Name]; ok {
			placements[i] = placements[j]
			continue
		}
		firstByName[files[i].Name] = i
		size := uint64(len(files[i].Data))
		placements[i] = placement{offset: l.packStart + packSize, size: size}
		stored = append(stored, i)

		span := l.payloadSpan(size)
		var ok bool
		if packSize, ok = sizing.AddUint64(packSize, span); !ok {
			return nil, ErrSizeOverflow
		}
	}

	total, ok := sizing.AddUint64(l.packStart, packSize)
	if !ok {
		return nil, ErrSizeOverflow
	}
	bodyLen, err := sizing.ToUint32(total-fileHeaderSize, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	capacity, err := sizing.ToInt(total, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}

	n := uint32(len(files)) //nolint:gosec // bounded by bodyLen check above
	buf := make([]byte, 0, capacity)

	buf = appendHeader(buf, magicNUS3, bodyLen)

	buf = append(buf, magicAudiIndx...)
	buf = le.AppendUint32(buf, audiIndexLength)
	buf = le.AppendUint32(buf, n)

	buf = appendHeader(buf, magicTNID, u32Size*n)
	for i := range files {
		buf = le.AppendUint32(buf, files[i].ID)
	}

	buf = appendHeader(buf, magicNMOF, u32Size*n)
	nameOffset := l.namesStart
	for i := range files {
		buf = le.AppendUint32(buf, uint32(nameOffset)) //nolint:gosec // below total, checked above
		nameOffset += uint64(len(files[i].Name)) + 1
	}

	buf = appendHeader(buf, magicADOF, adofRecordSize*n)
	for _, p := range placements {
		buf = le.AppendUint32(buf, uint32(p.offset)) //nolint:gosec // below total, checked above
		buf = le.AppendUint32(buf, uint32(p.size))   //nolint:gosec // below total, checked above
	}

	buf = appendHeader(buf, magicTNNM, uint32(namesSize)) //nolint:gosec // below total, checked above
	for i := range files {
		buf = append(buf, files[i].Name...)
		buf = append(buf, 0)
	}

	buf = appendHeader(buf, magicJUNK, uint32(l.junkPad)) //nolint:gosec // junk padding is below 16
	buf = appendZeros(buf, l.junkPad)

	buf = appendHeader(buf, magicPACK, uint32(packSize)) //nolint:gosec // below total, checked above
	for _, i := range stored {
		data := files[i].Data
		buf = append(buf, data...)
		buf = appendZeros(buf, l.payloadSpan(uint64(len(data)))-uint64(len(data)))
	}

	return buf, nil
}

func appendHeader(buf []byte, magic string, length uint32) []byte {
	buf = append(buf, magic...)
	return le.AppendUint32(buf, length)
}

func appendZeros(buf []byte, n uint64) []byte {
	for ; n > 0; n-- {
		buf = append(buf, 0)
	}
	return buf
}
