// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/opencontainers/go-digest"
)

// WriteTree creates files under dir. Keys are slash-separated relative paths.
func WriteTree(t testing.TB, dir string, files map[string][]byte) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(full, content, 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

// Payload returns n deterministic bytes seeded by b.
func Payload(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

// FaultFS wraps an fs.FS and fails operations on selected paths.
type FaultFS struct {
	fs.FS

	mu     sync.RWMutex
	faults map[string]error
	holds  map[string]*hold
	opens  atomic.Int64
}

type hold struct {
	entered chan struct{}
	once    sync.Once
	gate    chan struct{}
}

// NewFaultFS wraps fsys with no faults configured.
func NewFaultFS(fsys fs.FS) *FaultFS {
	return &FaultFS{FS: fsys, faults: make(map[string]error), holds: make(map[string]*hold)}
}

// Fail makes every Open and ReadDir of name return err.
func (f *FaultFS) Fail(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[name] = err
}

// Hold makes every Open of name block until release is called. entered is
// closed once the first such Open is waiting.
func (f *FaultFS) Hold(name string) (entered <-chan struct{}, release func()) {
	h := &hold{entered: make(chan struct{}), gate: make(chan struct{})}
	f.mu.Lock()
	f.holds[name] = h
	f.mu.Unlock()

	var releaseOnce sync.Once
	return h.entered, func() {
		releaseOnce.Do(func() { close(h.gate) })
	}
}

// Opens returns the number of successful Open calls.
func (f *FaultFS) Opens() int64 {
	return f.opens.Load()
}

func (f *FaultFS) fault(name string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.faults[name]
}

func (f *FaultFS) wait(name string) {
	f.mu.RLock()
	h := f.holds[name]
	f.mu.RUnlock()
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.entered) })
	<-h.gate
}

// Open implements fs.FS.
func (f *FaultFS) Open(name string) (fs.File, error) {
	if err := f.fault(name); err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	f.wait(name)
	file, err := f.FS.Open(name)
	if err == nil {
		f.opens.Add(1)
	}
	return file, err
}

// ReadDir implements fs.ReadDirFS.
func (f *FaultFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if err := f.fault(name); err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	return fs.ReadDir(f.FS, name)
}

// ErrInjected is the default error injected by tests.
var ErrInjected = errors.New("testutil: injected fault")

// MemoryCache implements cache.Cache in memory.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[digest.Digest][]byte
	puts atomic.Int64
}

// NewMemoryCache constructs an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[digest.Digest][]byte)}
}

// Get returns a copy of the cached container.
func (c *MemoryCache) Get(key digest.Digest) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.data[key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(data), true
}

// Put stores a copy of data.
func (c *MemoryCache) Put(key digest.Digest, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = bytes.Clone(data)
	c.puts.Add(1)
	return nil
}

// Delete removes a cached container.
func (c *MemoryCache) Delete(key digest.Digest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// MaxBytes returns 0 (unlimited).
func (c *MemoryCache) MaxBytes() int64 { return 0 }

// SizeBytes returns the total size of cached containers.
func (c *MemoryCache) SizeBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total int64
	for _, d := range c.data {
		total += int64(len(d))
	}
	return total
}

// Prune drops every entry when the cache exceeds targetBytes.
func (c *MemoryCache) Prune(targetBytes int64) (int64, error) {
	size := c.SizeBytes()
	if size <= targetBytes {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.data)
	return size, nil
}

// Puts returns the number of Put calls.
func (c *MemoryCache) Puts() int64 {
	return c.puts.Load()
}
