// Package autherr defines the error taxonomy shared across the identity
// provider. Handlers match these categories with errors.Is and keep the
// wrapped detail for logs only; external responses stay generic so a
// caller cannot distinguish which check failed.
package autherr

import "errors"

var (
	// ErrClientParameter marks missing or malformed request fields.
	// Details are safe to show to the caller.
	ErrClientParameter = errors.New("invalid request parameter")

	// ErrIdentityRequired marks requests with no usable identity cookie
	// and no access path that could establish one. Surfaced distinctly
	// so a client UI can prompt for re-authentication.
	ErrIdentityRequired = errors.New("identity required")

	// ErrAccessPathRequired marks a missing or unknown game access path
	// reference, prompting the player to scan or enter a join code.
	ErrAccessPathRequired = errors.New("access path required")

	// ErrInvalidGrant covers every expired, consumed, mismatched, or
	// revoked credential. External responses must not reveal which.
	ErrInvalidGrant = errors.New("invalid grant")

	// ErrSigning marks unavailable or misconfigured key material. Fatal
	// to the request, not to the process.
	ErrSigning = errors.New("signing unavailable")

	// ErrStore marks persistence failures. Callers may retry.
	ErrStore = errors.New("store unavailable")
)
