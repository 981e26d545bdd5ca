// Package storage defines errors shared by every persistence backend.
package storage

import "errors"

var (
	// ErrNotFound is returned when a record does not exist. Repos return
	// it verbatim so callers can branch with errors.Is.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a uniqueness constraint would be
	// violated (cookie value, authorization code, refresh token).
	ErrDuplicate = errors.New("duplicate record")

	// ErrConflict is returned when a conditional write lost its race,
	// e.g. consuming an already-consumed code or rotating an already
	// rotated refresh token.
	ErrConflict = errors.New("conditional write conflict")
)
