package nus3free

import (
	"github.com/meigma/nus3free/catalog"
	nus3 "github.com/meigma/nus3free/core"
)

// Errors re-exported from core.
var (
	// ErrSizeOverflow is returned when a container or payload exceeds format limits.
	ErrSizeOverflow = nus3.ErrSizeOverflow

	// ErrInvalidName is returned when an entry name cannot be stored.
	ErrInvalidName = nus3.ErrInvalidName

	// ErrInvalidContainer is returned when container bytes cannot be parsed.
	ErrInvalidContainer = nus3.ErrInvalidContainer
)

// Errors re-exported from catalog.
var (
	// ErrNotFound is returned when no source directory is registered for a key.
	ErrNotFound = catalog.ErrNotFound

	// ErrDiscovery is returned when the source tree cannot be read.
	ErrDiscovery = catalog.ErrDiscovery

	// ErrPayloadRead is returned when a payload file cannot be read at fetch time.
	ErrPayloadRead = catalog.ErrPayloadRead

	// ErrInvalidSnapshot is returned when a catalog snapshot cannot be decoded.
	ErrInvalidSnapshot = catalog.ErrInvalidSnapshot
)
