package nus3

// FileSize is the name and payload length of one container entry.
type FileSize struct {
	Name string
	Size uint64
}

// EstimateSize returns the byte length [Build] produces for entries with the
// given names and payload sizes, in order.
//
// The estimate assumes every name is distinct. Build stores a payload only
// once per name, so when names repeat the real container is shorter and the
// estimate is an upper bound.
func EstimateSize(files []FileSize) uint64 {
	var namesSize uint64
	for _, f := range files {
		namesSize += uint64(len(f.Name)) + 1
	}

	l := planLayout(len(files), namesSize)

	var packSize uint64
	for _, f := range files {
		packSize += l.payloadSpan(f.Size)
	}
	return l.packStart + packSize
}
