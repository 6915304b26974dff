package http

import (
	"strconv"

	"github.com/meigma/nus3free/catalog"
)

// Response headers set on container responses.
const (
	HeaderExpectedSize = "X-Expected-Size"
	HeaderMode         = "X-Container-Mode"
	HeaderLogicalPath  = "X-Logical-Path"
)

// FileInfo describes one manifest entry.
type FileInfo struct {
	Name string `json:"name"`
	Size uint64 `json:"size"`
}

// DirectoryInfo describes one source directory in a catalog listing.
type DirectoryInfo struct {
	Key          string     `json:"key"`
	LogicalPath  string     `json:"logical_path"`
	Mode         string     `json:"mode"`
	ExpectedSize uint64     `json:"expected_size"`
	Fingerprint  string     `json:"fingerprint"`
	Files        []FileInfo `json:"files"`
}

func newDirectoryInfo(d *catalog.Directory) DirectoryInfo {
	files := make([]FileInfo, 0, d.Manifest.Len())
	for _, e := range d.Manifest.Entries() {
		files = append(files, FileInfo{Name: e.Name, Size: e.Size})
	}
	return DirectoryInfo{
		Key:          d.Key.String(),
		LogicalPath:  d.LogicalPath,
		Mode:         d.Mode.String(),
		ExpectedSize: d.EstimatedSize(),
		Fingerprint:  d.Fingerprint().String(),
		Files:        files,
	}
}

// ContainerInfo is the metadata of a container response.
type ContainerInfo struct {
	Key         catalog.Key
	LogicalPath string
	Mode        catalog.Mode
	Size        int64

	// ExpectedSize is zero for stream containers.
	ExpectedSize uint64
	ETag         string
}

func formatSize(n uint64) string {
	return strconv.FormatUint(n, 10)
}
