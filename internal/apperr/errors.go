// Package apperr defines the sentinel errors shared across the repository
// and its API surface.
package apperr

import "errors"

var (
	// ErrOpenFailed means the store file could not be created or opened.
	// It is fatal; the caller must abort startup.
	ErrOpenFailed = errors.New("store open failed")
	// ErrQueryFailed means an individual read or write failed. Callers
	// degrade (empty result, false return) rather than abort.
	ErrQueryFailed = errors.New("query failed")
	// ErrNotFound means a lookup by id matched nothing.
	ErrNotFound = errors.New("not found")
	// ErrRejected means the operation was refused before touching storage,
	// e.g. a field outside the mutable set.
	ErrRejected = errors.New("rejected")
)
