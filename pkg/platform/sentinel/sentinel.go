// Package sentinel holds infrastructure errors shared across stores and sinks.
// Callers wrap them with context and the HTTP layer maps them to status codes.
package sentinel

import "errors"

var (
	// ErrNotFound means the requested snapshot date or entity key is not stored.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a write was refused because it collides with stored data.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable means a backing service such as the database or cache is down.
	ErrUnavailable = errors.New("unavailable")
)
