package database

import "errors"

var (
	// ErrNotFound indicates the requested booking does not exist.
	ErrNotFound = errors.New("booking not found")

	// ErrVersionConflict indicates a concurrent modification: the stored
	// version no longer matches the one the caller read.
	ErrVersionConflict = errors.New("booking was modified concurrently")
)
