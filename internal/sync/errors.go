package sync

import (
	"errors"
	"fmt"
)

// Error kinds returned by Engine.Run. Every run error wraps exactly one of
// these or manifest.ErrMalformed, and all of them abort the run. A run
// stopped by its context returns the context's error instead.
var (
	// ErrIO reports a failed open, read, write, stat, rename, create or
	// remove.
	ErrIO = errors.New("i/o failure")

	// ErrIntegrity reports fetched content whose digest differs from the
	// declared one.
	ErrIntegrity = errors.New("integrity failure")

	// ErrExhausted reports an exhausted bounded resource: the temporary
	// name retry budget or the path length limit for live entries.
	ErrExhausted = errors.New("resource exhausted")
)

func ioError(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrIO, op, path, err)
}
