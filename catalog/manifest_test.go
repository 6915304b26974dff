package catalog

import (
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/nus3free/internal/testutil"
)

func TestReadManifest_SortedByName(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"se.nus3audio/b.wav": {Data: testutil.Payload('b', 20)},
		"se.nus3audio/a.wav": {Data: testutil.Payload('a', 10)},
		"se.nus3audio/c.wav": {Data: testutil.Payload('c', 30)},
	}

	m, err := ReadManifest(fsys, "se.nus3audio")
	require.NoError(t, err)

	assert.Equal(t, []string{"a.wav", "b.wav", "c.wav"}, m.Names())
	var ids []int
	for id, e := range m.Entries() {
		ids = append(ids, id)
		assert.Equal(t, "se.nus3audio/"+e.Name, e.Path)
	}
	assert.Equal(t, []int{0, 1, 2}, ids)

	e, ok := m.Entry(1)
	require.True(t, ok)
	assert.Equal(t, uint64(20), e.Size)
}

func TestReadManifest_SkipsNonRegular(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"x.nus3audio/track.idsp":         {Data: []byte("idsp")},
		"x.nus3audio/link.idsp":          {Data: []byte("track.idsp"), Mode: fs.ModeSymlink},
		"x.nus3audio/nested/deep.idsp":   {Data: []byte("deep")},
		"x.nus3audio/nested.nus3audio/q": {Data: []byte("q")},
	}

	m, err := ReadManifest(fsys, "x.nus3audio")
	require.NoError(t, err)
	assert.Equal(t, []string{"track.idsp"}, m.Names())
}

func TestReadManifest_Unreadable(t *testing.T) {
	t.Parallel()

	_, err := ReadManifest(fstest.MapFS{}, "missing.nus3audio")
	require.ErrorIs(t, err, ErrDiscovery)

	var de *DiscoveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "missing.nus3audio", de.Path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestNewManifest_DoesNotRetainInput(t *testing.T) {
	t.Parallel()

	in := []FileEntry{
		{Name: "z", Size: 1, ModTime: time.Unix(1, 0)},
		{Name: "m", Size: 2, ModTime: time.Unix(2, 0)},
	}
	m := NewManifest(in)
	in[0].Name = "mutated"

	assert.Equal(t, []string{"m", "z"}, m.Names())
}

func TestManifest_EstimatedSize(t *testing.T) {
	t.Parallel()

	m := NewManifest([]FileEntry{
		{Name: "ccc", Size: 30},
		{Name: "a", Size: 10},
		{Name: "bb", Size: 20},
	})
	assert.Equal(t, uint64(224), m.EstimatedSize())
}
