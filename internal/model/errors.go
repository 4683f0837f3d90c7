package model

import "errors"

// Sentinel errors returned by store implementations. Services translate
// these into typed domain failures with caller-facing context.
var (
	// ErrNotFound means the row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a compare-and-set mutation matched no row: the
	// entity moved on concurrently or was not in the expected state.
	ErrConflict = errors.New("conflict")
)
