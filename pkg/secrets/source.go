package secrets

import (
	"context"
	"errors"
	"fmt"
)

// Source is one origin from which a candidate bundle may be loaded.
//
// Available reports whether the source can be attempted at all on this host
// (capability detection, performed once at startup by the resolution chain).
// Load returns the raw JSON-encoded candidate bundle. A source that is
// reachable but holds no bundle returns an error wrapping ErrNotFound; a
// source that cannot be reached returns an UnavailableError. Neither is
// fatal; the chain falls through to the next source.
type Source interface {
	Name() string
	Available(ctx context.Context) bool
	Load(ctx context.Context) ([]byte, error)
}

// ErrNotFound indicates a source was reachable but held no bundle.
var ErrNotFound = errors.New("secret bundle not found")

// UnavailableError indicates a source could not be reached due to a true
// I/O or platform fault. The resolution chain logs it and continues.
type UnavailableError struct {
	Source string
	Reason string
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source %s unavailable: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("source %s unavailable: %s", e.Source, e.Reason)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}
