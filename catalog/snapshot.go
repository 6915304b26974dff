package catalog

import (
	"fmt"
	"io/fs"
	"slices"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/meigma/nus3free/catalog/internal/fb"
)

// SnapshotVersion is the snapshot format version written by WriteSnapshot.
const SnapshotVersion = 1

// WriteSnapshot serializes every directory of c and its manifest to
// FlatBuffers, in logical path order.
//
// A snapshot lets a host reload the catalog with LoadSnapshot instead of
// walking the source tree again.
func WriteSnapshot(c *Catalog) []byte {
	dirs := slices.Collect(c.Directories())
	builder := flatbuffers.NewBuilder(1024)

	// Build tables in reverse order (FlatBuffers requirement)
	dirOffsets := make([]flatbuffers.UOffsetT, len(dirs))
	for i := len(dirs) - 1; i >= 0; i-- {
		d := dirs[i]

		fileOffsets := make([]flatbuffers.UOffsetT, d.Manifest.Len())
		for j := len(d.Manifest.entries) - 1; j >= 0; j-- {
			e := d.Manifest.entries[j]
			nameOffset := builder.CreateString(e.Name)
			fb.FileStart(builder)
			fb.FileAddName(builder, nameOffset)
			fb.FileAddSize(builder, e.Size)
			fb.FileAddMtimeNs(builder, e.ModTime.UnixNano())
			fileOffsets[j] = fb.FileEnd(builder)
		}
		fb.DirectoryStartFilesVector(builder, len(fileOffsets))
		for j := len(fileOffsets) - 1; j >= 0; j-- {
			builder.PrependUOffsetT(fileOffsets[j])
		}
		filesOffset := builder.EndVector(len(fileOffsets))

		logicalOffset := builder.CreateString(d.LogicalPath)
		dirOffset := builder.CreateString(d.Dir)

		fb.DirectoryStart(builder)
		fb.DirectoryAddKey(builder, uint64(d.Key))
		fb.DirectoryAddLogicalPath(builder, logicalOffset)
		fb.DirectoryAddDir(builder, dirOffset)
		fb.DirectoryAddMode(builder, byte(d.Mode))
		fb.DirectoryAddFiles(builder, filesOffset)
		dirOffsets[i] = fb.DirectoryEnd(builder)
	}

	fb.SnapshotStartDirectoriesVector(builder, len(dirs))
	for i := len(dirOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(dirOffsets[i])
	}
	dirsOffset := builder.EndVector(len(dirs))

	fb.SnapshotStart(builder)
	fb.SnapshotAddVersion(builder, SnapshotVersion)
	fb.SnapshotAddDirectories(builder, dirsOffset)
	builder.Finish(fb.SnapshotEnd(builder))
	return builder.FinishedBytes()
}

// LoadSnapshot rebuilds a catalog from WriteSnapshot output. Payload paths
// are resolved against fsys, which should be the file system the snapshot
// was discovered from.
//
// Keys and modes are recomputed from logical paths; a snapshot whose stored
// key or mode disagrees is rejected.
func LoadSnapshot(data []byte, fsys fs.FS) (cat *Catalog, err error) {
	defer func() {
		if r := recover(); r != nil {
			cat = nil
			err = fmt.Errorf("%w: %v", ErrInvalidSnapshot, r)
		}
	}()
	if len(data) < flatbuffers.SizeUOffsetT {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSnapshot, len(data))
	}

	root := fb.GetRootAsSnapshot(data, 0)
	if v := root.Version(); v != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, v)
	}

	cat = newCatalog(fsys)
	var fbDir fb.Directory
	var fbFile fb.File
	for i := range root.DirectoriesLength() {
		if !root.Directories(&fbDir, i) {
			return nil, fmt.Errorf("%w: directory %d", ErrInvalidSnapshot, i)
		}

		entries := make([]FileEntry, fbDir.FilesLength())
		dirPath := string(fbDir.Dir())
		for j := range entries {
			if !fbDir.Files(&fbFile, j) {
				return nil, fmt.Errorf("%w: file %d of %s", ErrInvalidSnapshot, j, dirPath)
			}
			name := string(fbFile.Name())
			entries[j] = FileEntry{
				Name:    name,
				Size:    fbFile.Size(),
				Path:    dirPath + "/" + name,
				ModTime: time.Unix(0, fbFile.MtimeNs()),
			}
		}

		dir := &Directory{
			Key:         Key(fbDir.Key()),
			LogicalPath: string(fbDir.LogicalPath()),
			Dir:         dirPath,
			Mode:        Mode(fbDir.Mode()),
			Manifest:    NewManifest(entries),
		}
		if want := Hash40(dir.LogicalPath); dir.Key != want {
			return nil, fmt.Errorf("%w: %s stored with key %s, want %s", ErrInvalidSnapshot, dir.LogicalPath, dir.Key, want)
		}
		if want := ModeForPath(dir.LogicalPath); dir.Mode != want {
			return nil, fmt.Errorf("%w: %s stored with mode %d, want %s", ErrInvalidSnapshot, dir.LogicalPath, fbDir.Mode(), want)
		}
		cat.add(dir)
	}
	return cat, nil
}
