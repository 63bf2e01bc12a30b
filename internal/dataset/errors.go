package dataset

import "errors"

var (
	// ErrNotFound marks a dataset root that does not exist on disk.
	ErrNotFound = errors.New("dataset not found")
	// ErrMetadataMissing marks a required metadata table that is absent or
	// unreadable.
	ErrMetadataMissing = errors.New("metadata table missing")
)
