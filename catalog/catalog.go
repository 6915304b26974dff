package catalog

import (
	"fmt"
	"io/fs"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/opencontainers/go-digest"
)

// StreamPrefix marks logical paths the host streams instead of loading into
// a fixed buffer.
const StreamPrefix = "stream"

// Mode selects how a directory's container is handed to the host.
type Mode uint8

const (
	// ModeFixed containers are copied into a caller buffer sized from the estimate.
	ModeFixed Mode = iota

	// ModeStream containers are returned as a dynamically sized byte slice.
	ModeStream
)

// String returns the human-readable name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeStream:
		return "stream"
	default:
		return "unknown"
	}
}

// ModeForPath returns the mode for a logical path.
func ModeForPath(logicalPath string) Mode {
	if strings.HasPrefix(logicalPath, StreamPrefix) {
		return ModeStream
	}
	return ModeFixed
}

// Directory is one discovered source directory.
type Directory struct {
	// Key is Hash40 of LogicalPath.
	Key Key

	// LogicalPath is the host-side path of the container.
	LogicalPath string

	// Dir is the directory path within the catalog's file system.
	Dir string

	// Mode is derived from LogicalPath.
	Mode Mode

	// Manifest lists the payload files.
	Manifest Manifest
}

// newDirectory derives key, logical path and mode for dir.
func newDirectory(dir string, m Manifest) *Directory {
	logical := LogicalPath(dir)
	return &Directory{
		Key:         Hash40(logical),
		LogicalPath: logical,
		Dir:         dir,
		Mode:        ModeForPath(logical),
		Manifest:    m,
	}
}

// EstimatedSize returns the predicted container length.
func (d *Directory) EstimatedSize() uint64 {
	return d.Manifest.EstimatedSize()
}

// Fingerprint digests the key and every entry's name, size and modification
// time. It changes whenever discovery would observe a different directory.
func (d *Directory) Fingerprint() digest.Digest {
	digester := digest.Canonical.Digester()
	h := digester.Hash()
	fmt.Fprintf(h, "%s\n", d.Key)
	for _, e := range d.Manifest.entries {
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", e.Name, e.Size, e.ModTime.UnixNano())
	}
	return digester.Digest()
}

// Catalog maps keys to discovered directories.
//
// A Catalog is populated before it is shared and is read-only afterwards.
// It is safe for concurrent use.
type Catalog struct {
	fsys fs.FS

	mu   sync.RWMutex
	dirs map[Key]*Directory
}

func newCatalog(fsys fs.FS) *Catalog {
	return &Catalog{
		fsys: fsys,
		dirs: make(map[Key]*Directory),
	}
}

// FS returns the file system payload paths are resolved against.
func (c *Catalog) FS() fs.FS {
	return c.fsys
}

// Lookup returns the directory registered under key.
func (c *Catalog) Lookup(key Key) (*Directory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.dirs[key]
	return d, ok
}

// Len returns the number of directories.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.dirs)
}

// Directories returns an iterator over all directories in logical path order.
func (c *Catalog) Directories() iter.Seq[*Directory] {
	c.mu.RLock()
	dirs := make([]*Directory, 0, len(c.dirs))
	for _, d := range c.dirs {
		dirs = append(dirs, d)
	}
	c.mu.RUnlock()

	slices.SortFunc(dirs, func(a, b *Directory) int {
		return strings.Compare(a.LogicalPath, b.LogicalPath)
	})
	return slices.Values(dirs)
}

// add registers d, returning the directory it replaced, if any.
func (c *Catalog) add(d *Directory) *Directory {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.dirs[d.Key]
	c.dirs[d.Key] = d
	return prev
}
