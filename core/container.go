package nus3

import (
	"bytes"
	"fmt"
	"iter"

	"github.com/meigma/nus3free/internal/sizing"
)

// Entry is one entry of a parsed container.
type Entry struct {
	// Index is the entry's position in the container tables.
	Index int

	// ID is the value stored in the TNID table.
	ID uint32

	// Name is the entry name from the names table.
	Name string

	// Offset is the absolute offset of the payload within the container.
	Offset uint32

	// Data aliases the container bytes and must be treated as immutable.
	Data []byte
}

// Container provides read-only access to a serialized container.
type Container struct {
	data    []byte
	entries []Entry
	junkPad uint32
	packLen uint32
}

// Open parses a serialized container.
//
// The provided data is retained; callers must not modify it after calling Open.
func Open(data []byte) (*Container, error) {
	p := parser{data: data}

	bodyLen, err := p.section(magicNUS3)
	if err != nil {
		return nil, err
	}
	if uint64(bodyLen)+fileHeaderSize != uint64(len(data)) {
		return nil, fmt.Errorf("%w: header declares %d bytes, have %d", ErrInvalidContainer, uint64(bodyLen)+fileHeaderSize, len(data))
	}

	if !p.magic(magicAudiIndx) {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidContainer, magicAudiIndx)
	}
	indexLen, ok := p.u32()
	if !ok || indexLen != audiIndexLength {
		return nil, fmt.Errorf("%w: bad %s length", ErrInvalidContainer, magicAudiIndx)
	}
	count32, ok := p.u32()
	if !ok {
		return nil, fmt.Errorf("%w: truncated %s", ErrInvalidContainer, magicAudiIndx)
	}
	count, err := sizing.ToInt(uint64(count32), ErrInvalidContainer)
	if err != nil {
		return nil, err
	}
	if uint64(count)*u32Size > uint64(len(data)) {
		return nil, fmt.Errorf("%w: entry count %d exceeds container size", ErrInvalidContainer, count)
	}

	ids, err := p.table(magicTNID, count, 1)
	if err != nil {
		return nil, err
	}
	nameOffsets, err := p.table(magicNMOF, count, 1)
	if err != nil {
		return nil, err
	}
	adof, err := p.table(magicADOF, count, 2)
	if err != nil {
		return nil, err
	}

	namesLen, err := p.section(magicTNNM)
	if err != nil {
		return nil, err
	}
	namesStart := p.off
	names, ok := p.bytes(uint64(namesLen))
	if !ok {
		return nil, fmt.Errorf("%w: truncated %s", ErrInvalidContainer, magicTNNM)
	}

	junkPad, err := p.section(magicJUNK)
	if err != nil {
		return nil, err
	}
	if _, ok := p.bytes(uint64(junkPad)); !ok {
		return nil, fmt.Errorf("%w: truncated %s", ErrInvalidContainer, magicJUNK)
	}

	packLen, err := p.section(magicPACK)
	if err != nil {
		return nil, err
	}
	packStart := p.off
	packEnd := packStart + uint64(packLen)
	if packEnd != uint64(len(data)) {
		return nil, fmt.Errorf("%w: %s length %d does not reach end of container", ErrInvalidContainer, magicPACK, packLen)
	}

	entries := make([]Entry, count)
	for i := range count {
		nameOff := uint64(nameOffsets[i])
		if nameOff < namesStart || nameOff >= namesStart+uint64(namesLen) {
			return nil, fmt.Errorf("%w: entry %d name offset 0x%x out of range", ErrInvalidContainer, i, nameOff)
		}
		nameOff -= namesStart
		end := bytes.IndexByte(names[nameOff:], 0)
		if end < 0 {
			return nil, fmt.Errorf("%w: entry %d name is not terminated", ErrInvalidContainer, i)
		}

		off, size := uint64(adof[2*i]), uint64(adof[2*i+1])
		if off < packStart || off+size > packEnd {
			return nil, fmt.Errorf("%w: entry %d payload [0x%x, 0x%x) outside %s", ErrInvalidContainer, i, off, off+size, magicPACK)
		}

		entries[i] = Entry{
			Index:  i,
			ID:     ids[i],
			Name:   string(names[nameOff : nameOff+uint64(end)]),
			Offset: adof[2*i],
			Data:   data[off : off+size : off+size],
		}
	}

	return &Container{
		data:    data,
		entries: entries,
		junkPad: junkPad,
		packLen: packLen,
	}, nil
}

// Len returns the number of entries.
func (c *Container) Len() int {
	return len(c.entries)
}

// Size returns the container length in bytes.
func (c *Container) Size() int {
	return len(c.data)
}

// Entry returns the i-th entry.
func (c *Container) Entry(i int) (Entry, bool) {
	if i < 0 || i >= len(c.entries) {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Lookup returns the first entry with the given name.
func (c *Container) Lookup(name string) (Entry, bool) {
	for _, e := range c.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns an iterator over all entries in table order.
func (c *Container) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range c.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// JunkPadding returns the length of the alignment padding section.
func (c *Container) JunkPadding() uint32 {
	return c.junkPad
}

// PackSize returns the declared length of the payload section.
func (c *Container) PackSize() uint32 {
	return c.packLen
}

// parser walks a container front to back.
type parser struct {
	data []byte
	off  uint64
}

func (p *parser) bytes(n uint64) ([]byte, bool) {
	end, ok := sizing.AddUint64(p.off, n)
	if !ok || end > uint64(len(p.data)) {
		return nil, false
	}
	b := p.data[p.off:end]
	p.off = end
	return b, true
}

func (p *parser) magic(m string) bool {
	b, ok := p.bytes(uint64(len(m)))
	return ok && string(b) == m
}

func (p *parser) u32() (uint32, bool) {
	b, ok := p.bytes(u32Size)
	if !ok {
		return 0, false
	}
	return le.Uint32(b), true
}

// section consumes a 4-byte magic and its u32 length.
func (p *parser) section(m string) (uint32, error) {
	if !p.magic(m) {
		return 0, fmt.Errorf("%w: missing %s at 0x%x", ErrInvalidContainer, m, p.off)
	}
	n, ok := p.u32()
	if !ok {
		return 0, fmt.Errorf("%w: truncated %s header", ErrInvalidContainer, m)
	}
	return n, nil
}

// table consumes a section of count records of width u32 values each.
func (p *parser) table(m string, count, width int) ([]uint32, error) {
	n, err := p.section(m)
	if err != nil {
		return nil, err
	}
	want := uint64(count) * uint64(width) * u32Size //nolint:gosec // count and width are non-negative
	if uint64(n) != want {
		return nil, fmt.Errorf("%w: %s length %d, want %d", ErrInvalidContainer, m, n, want)
	}
	raw, ok := p.bytes(want)
	if !ok {
		return nil, fmt.Errorf("%w: truncated %s", ErrInvalidContainer, m)
	}
	vals := make([]uint32, count*width)
	for i := range vals {
		vals[i] = le.Uint32(raw[i*u32Size:])
	}
	return vals, nil
}
