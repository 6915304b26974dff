package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when no directory is registered under a key.
	ErrNotFound = errors.New("catalog: not found")

	// ErrDiscovery is matched by every *DiscoveryError.
	ErrDiscovery = errors.New("catalog: discovery failed")

	// ErrPayloadRead is matched by every *PayloadError.
	ErrPayloadRead = errors.New("catalog: payload read failed")

	// ErrInvalidSnapshot is returned when snapshot data cannot be decoded.
	ErrInvalidSnapshot = errors.New("catalog: invalid snapshot")
)

// DiscoveryError reports an unreadable entry while building a catalog.
// Discovery stops at the first such error; no partial catalog is returned.
type DiscoveryError struct {
	Path string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("catalog: discover %s: %v", e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrDiscovery.
func (e *DiscoveryError) Is(target error) bool {
	return target == ErrDiscovery
}

// PayloadError reports a manifest file that could not be read during a fetch.
type PayloadError struct {
	Key  Key
	Path string
	Err  error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("catalog: read %s for %s: %v", e.Path, e.Key, e.Err)
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrPayloadRead.
func (e *PayloadError) Is(target error) bool {
	return target == ErrPayloadRead
}
