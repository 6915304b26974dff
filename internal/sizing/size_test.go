package sizing

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOverflow = errors.New("overflow")

func TestRoundUp16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want uint64
	}{
		{0, 0},
		{1, 16},
		{15, 16},
		{16, 16},
		{17, 32},
		{30, 32},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundUp16(tt.in), "RoundUp16(%d)", tt.in)
	}
}

func TestJunkPadding(t *testing.T) {
	t.Parallel()

	for off := uint64(0); off < 64; off++ {
		pad := JunkPadding(off)
		assert.Less(t, pad, uint64(16))
		assert.Equal(t, uint64(8), (off+pad)%16, "offset %d", off)
	}
	assert.Equal(t, uint64(0), JunkPadding(0x58))
	assert.Equal(t, uint64(15), JunkPadding(0x59))
}

func TestToUint32(t *testing.T) {
	t.Parallel()

	v, err := ToUint32(math.MaxUint32, errOverflow)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), v)

	_, err = ToUint32(math.MaxUint32+1, errOverflow)
	assert.ErrorIs(t, err, errOverflow)
}

func TestAddUint64(t *testing.T) {
	t.Parallel()

	sum, ok := AddUint64(1, 2)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), sum)

	_, ok = AddUint64(math.MaxUint64, 1)
	assert.False(t, ok)
}

func TestReadAllWithLimit(t *testing.T) {
	t.Parallel()

	data, err := ReadAllWithLimit(bytes.NewReader([]byte("hello")), 5, errOverflow)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = ReadAllWithLimit(bytes.NewReader([]byte("hello!")), 5, errOverflow)
	assert.ErrorIs(t, err, errOverflow)

	data, err = ReadAllWithLimit(bytes.NewReader([]byte("unlimited")), 0, errOverflow)
	require.NoError(t, err)
	assert.Equal(t, []byte("unlimited"), data)
}
