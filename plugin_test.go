package nus3free

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/nus3free/catalog"
	nus3 "github.com/meigma/nus3free/core"
	"github.com/meigma/nus3free/internal/testutil"
)

// fakeRegistrar records installed hooks.
type fakeRegistrar struct {
	fixed  map[catalog.Key]fixedHook
	stream map[catalog.Key]StreamCallback
}

type fixedHook struct {
	size uint64
	cb   FixedCallback
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{
		fixed:  make(map[catalog.Key]fixedHook),
		stream: make(map[catalog.Key]StreamCallback),
	}
}

func (r *fakeRegistrar) InstallFixed(key catalog.Key, size uint64, cb FixedCallback) {
	r.fixed[key] = fixedHook{size: size, cb: cb}
}

func (r *fakeRegistrar) InstallStream(key catalog.Key, cb StreamCallback) {
	r.stream[key] = cb
}

// fakeFallback writes a fixed marker and records calls.
type fakeFallback struct {
	mu    sync.Mutex
	calls []catalog.Key
	err   error
}

var originalMarker = []byte("ORIGINAL")

func (f *fakeFallback) LoadOriginal(key catalog.Key, buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)
	if f.err != nil {
		return 0, f.err
	}
	return copy(buf, originalMarker), nil
}

func pluginTree() fstest.MapFS {
	return fstest.MapFS{
		"se_mario.nus3audio/b.wav":                   {Data: testutil.Payload('b', 20)},
		"se_mario.nus3audio/a.wav":                   {Data: testutil.Payload('a', 10)},
		"se_mario.nus3audio/c.wav":                   {Data: testutil.Payload('c', 30)},
		"stream;/sound/bgm/bgm_01.nus3audio/l.lopus": {Data: testutil.Payload('l', 100)},
	}
}

func TestPlugin_Install(t *testing.T) {
	t.Parallel()

	p, err := New(context.Background(), pluginTree())
	require.NoError(t, err)

	reg := newFakeRegistrar()
	p.Install(reg)

	require.Len(t, reg.fixed, 1)
	require.Len(t, reg.stream, 1)

	hook, ok := reg.fixed[catalog.Hash40("se_mario.nus3audio")]
	require.True(t, ok)
	assert.Equal(t, nus3.EstimateSize([]nus3.FileSize{
		{Name: "a.wav", Size: 10},
		{Name: "b.wav", Size: 20},
		{Name: "c.wav", Size: 30},
	}), hook.size)

	_, ok = reg.stream[catalog.Hash40("stream:/sound/bgm/bgm_01.nus3audio")]
	assert.True(t, ok)
}

func TestPlugin_LoadFixed(t *testing.T) {
	t.Parallel()

	fallback := &fakeFallback{}
	p, err := New(context.Background(), pluginTree(), WithFallback(fallback))
	require.NoError(t, err)

	reg := newFakeRegistrar()
	p.Install(reg)
	key := catalog.Hash40("se_mario.nus3audio")
	hook := reg.fixed[key]

	buf := make([]byte, hook.size)
	n, ok := hook.cb(key, buf)
	require.True(t, ok)
	assert.Equal(t, int(hook.size), n)
	assert.Empty(t, fallback.calls)

	c, err := nus3.Open(buf[:n])
	require.NoError(t, err)
	e, ok := c.Entry(1)
	require.True(t, ok)
	assert.Equal(t, uint32(1), e.ID)
	assert.Equal(t, "b.wav", e.Name)
	assert.Equal(t, testutil.Payload('b', 20), e.Data)
}

func TestPlugin_LoadFixedOversized(t *testing.T) {
	t.Parallel()

	fsys := pluginTree()
	fallback := &fakeFallback{}
	p, err := New(context.Background(), fsys, WithFallback(fallback))
	require.NoError(t, err)

	reg := newFakeRegistrar()
	p.Install(reg)
	key := catalog.Hash40("se_mario.nus3audio")
	hook := reg.fixed[key]

	// The file grows after discovery, so the built container no longer fits.
	fsys["se_mario.nus3audio/c.wav"].Data = testutil.Payload('c', 300)

	buf := bytes.Repeat([]byte{0xaa}, int(hook.size))
	n, ok := hook.cb(key, buf)
	require.True(t, ok)
	assert.Equal(t, len(originalMarker), n)
	assert.Equal(t, []catalog.Key{key}, fallback.calls)

	assert.Equal(t, originalMarker, buf[:n])
	assert.Equal(t, bytes.Repeat([]byte{0xaa}, len(buf)-n), buf[n:], "container bytes must not be written")
}

func TestPlugin_LoadFixedPayloadError(t *testing.T) {
	t.Parallel()

	fsys := testutil.NewFaultFS(pluginTree())
	fallback := &fakeFallback{}
	p, err := New(context.Background(), fsys, WithFallback(fallback))
	require.NoError(t, err)

	key := catalog.Hash40("se_mario.nus3audio")
	fsys.Fail("se_mario.nus3audio/a.wav", testutil.ErrInjected)

	buf := make([]byte, 256)
	n, ok := p.LoadFixed(key, buf)
	require.True(t, ok)
	assert.Equal(t, originalMarker, buf[:n])
	assert.Equal(t, []catalog.Key{key}, fallback.calls)
}

func TestPlugin_LoadFixedNotFound(t *testing.T) {
	t.Parallel()

	fallback := &fakeFallback{}
	p, err := New(context.Background(), pluginTree(), WithFallback(fallback))
	require.NoError(t, err)

	key := catalog.Hash40("unknown.nus3audio")
	buf := make([]byte, 16)
	n, ok := p.LoadFixed(key, buf)
	require.True(t, ok)
	assert.Equal(t, len(originalMarker), n)
	assert.Equal(t, []catalog.Key{key}, fallback.calls)
}

func TestPlugin_LoadFixedFallbackFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fallback FallbackLoader
	}{
		{name: "no fallback"},
		{name: "fallback error", fallback: &fakeFallback{err: errors.New("boom")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var opts []Option
			if tt.fallback != nil {
				opts = append(opts, WithFallback(tt.fallback))
			}
			p, err := New(context.Background(), pluginTree(), opts...)
			require.NoError(t, err)

			n, ok := p.LoadFixed(catalog.Hash40("unknown.nus3audio"), make([]byte, 16))
			assert.False(t, ok)
			assert.Zero(t, n)
		})
	}
}

func TestPlugin_LoadStream(t *testing.T) {
	t.Parallel()

	fsys := testutil.NewFaultFS(pluginTree())
	p, err := New(context.Background(), fsys)
	require.NoError(t, err)

	reg := newFakeRegistrar()
	p.Install(reg)
	key := catalog.Hash40("stream:/sound/bgm/bgm_01.nus3audio")
	cb := reg.stream[key]
	require.NotNil(t, cb)

	data, ok := cb(key)
	require.True(t, ok)
	dir, _ := p.Catalog().Lookup(key)
	assert.Equal(t, dir.EstimatedSize(), uint64(len(data)))

	fsys.Fail("stream;/sound/bgm/bgm_01.nus3audio/l.lopus", testutil.ErrInjected)
	data, ok = cb(key)
	assert.False(t, ok)
	assert.Nil(t, data)

	data, ok = p.LoadStream(catalog.Hash40("stream:/missing.nus3audio"))
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string][]byte{
		"se_link.nus3audio/b.idsp": testutil.Payload('b', 17),
		"se_link.nus3audio/a.idsp": testutil.Payload('a', 5),
	})
	cacheDir := t.TempDir()

	p, err := Open(context.Background(), root, WithCacheDir(cacheDir), WithReadConcurrency(1))
	require.NoError(t, err)
	require.Equal(t, 1, p.Catalog().Len())

	key := catalog.Hash40("se_link.nus3audio")
	data, ok := p.LoadStream(key)
	require.True(t, ok)
	assert.Len(t, data, 176)

	var cached int
	err = filepath.WalkDir(cacheDir, func(_ string, d os.DirEntry, err error) error {
		if err == nil && filepath.Ext(d.Name()) == ".zst" {
			cached++
		}
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cached)

	// Closing the owned cache leaves the plugin serving uncached builds.
	require.NoError(t, p.Close())
	data, ok = p.LoadStream(key)
	require.True(t, ok)
	assert.Len(t, data, 176)
}

func TestNew_DiscoveryErrorReleasesCache(t *testing.T) {
	t.Parallel()

	faulty := testutil.NewFaultFS(pluginTree())
	faulty.Fail(".", testutil.ErrInjected)

	p, err := New(context.Background(), faulty, WithCacheDir(t.TempDir()))
	require.ErrorIs(t, err, ErrDiscovery)
	assert.Nil(t, p)
}

func TestClose_ExternalCacheUntouched(t *testing.T) {
	t.Parallel()

	mc := testutil.NewMemoryCache()
	p, err := New(context.Background(), pluginTree(), WithCache(mc))
	require.NoError(t, err)
	require.NoError(t, p.Close())

	key := catalog.Hash40("se_mario.nus3audio")
	buf := make([]byte, 4096)
	_, ok := p.LoadFixed(key, buf)
	require.True(t, ok)
	assert.Equal(t, int64(1), mc.Puts())
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "missing")
	_, err := Open(context.Background(), missing)
	assert.ErrorIs(t, err, ErrDiscovery)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Open(context.Background(), file)
	assert.ErrorIs(t, err, ErrDiscovery)
}

func TestNew_InvalidOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opt     Option
		wantErr string
	}{
		{"empty cache dir", WithCacheDir(""), "cache directory is empty"},
		{"negative cache size", WithCacheMaxBytes(-1), "cache size must be non-negative"},
		{"zero read concurrency", WithReadConcurrency(0), "read concurrency must be at least 1"},
		{"negative depth", WithMaxDepth(-1), "max depth must be non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := New(context.Background(), pluginTree(), tt.opt)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
