package catalog

import (
	"io/fs"
	"iter"
	"path"
	"slices"
	"strings"
	"time"

	nus3 "github.com/meigma/nus3free/core"
)

// FileEntry describes one payload file of a manifest.
type FileEntry struct {
	// Name is the file's base name. It becomes the container entry name.
	Name string

	// Size is the file size recorded at discovery time.
	Size uint64

	// Path locates the payload within the catalog's file system.
	Path string

	// ModTime is the modification time recorded at discovery time.
	ModTime time.Time
}

// Manifest is the name-sorted list of files in one source directory.
//
// The order is a public contract: entry i becomes container id i.
// A Manifest is never modified after creation.
type Manifest struct {
	entries []FileEntry
}

// NewManifest returns a manifest of entries sorted by name.
// The input slice is not retained.
func NewManifest(entries []FileEntry) Manifest {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b FileEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return Manifest{entries: sorted}
}

// ReadManifest lists the regular files directly inside dir.
// Subdirectories, symlinks and other special files are ignored.
func ReadManifest(fsys fs.FS, dir string) (Manifest, error) {
	dirEntries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return Manifest{}, &DiscoveryError{Path: dir, Err: err}
	}

	entries := make([]FileEntry, 0, len(dirEntries))
	for _, d := range dirEntries {
		if !d.Type().IsRegular() {
			continue
		}
		p := path.Join(dir, d.Name())
		info, err := d.Info()
		if err != nil {
			return Manifest{}, &DiscoveryError{Path: p, Err: err}
		}
		entries = append(entries, FileEntry{
			Name:    d.Name(),
			Size:    uint64(info.Size()), //nolint:gosec // file sizes are non-negative
			Path:    p,
			ModTime: info.ModTime(),
		})
	}
	return NewManifest(entries), nil
}

// Len returns the number of entries.
func (m Manifest) Len() int {
	return len(m.entries)
}

// Entry returns the i-th entry.
func (m Manifest) Entry(i int) (FileEntry, bool) {
	if i < 0 || i >= len(m.entries) {
		return FileEntry{}, false
	}
	return m.entries[i], true
}

// Entries returns an iterator over (id, entry) pairs in manifest order.
func (m Manifest) Entries() iter.Seq2[int, FileEntry] {
	return func(yield func(int, FileEntry) bool) {
		for i, e := range m.entries {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Names returns the entry names in manifest order.
func (m Manifest) Names() []string {
	names := make([]string, len(m.entries))
	for i, e := range m.entries {
		names[i] = e.Name
	}
	return names
}

// Sizes returns the (name, size) pairs the size estimator consumes.
func (m Manifest) Sizes() []nus3.FileSize {
	sizes := make([]nus3.FileSize, len(m.entries))
	for i, e := range m.entries {
		sizes[i] = nus3.FileSize{Name: e.Name, Size: e.Size}
	}
	return sizes
}

// EstimatedSize returns the container length predicted from recorded sizes.
func (m Manifest) EstimatedSize() uint64 {
	return nus3.EstimateSize(m.Sizes())
}
