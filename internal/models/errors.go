package models

import "errors"

// Error kinds surfaced by the viewer. Callers match them with errors.Is.
var (
	// ErrNotInitialized means no position has been loaded into the session yet.
	ErrNotInitialized = errors.New("viewer not initialized")

	// ErrNotFound means a required artifact (track table, label container,
	// image plane) is missing.
	ErrNotFound = errors.New("not found")

	// ErrInvalidData means an artifact exists but lacks required content.
	ErrInvalidData = errors.New("invalid data")

	// ErrOutOfRange means an index exceeds the declared bounds of a source.
	ErrOutOfRange = errors.New("index out of range")

	// ErrIO means a storage read or write failed.
	ErrIO = errors.New("storage failure")
)
