package token

import (
	"context"
	"time"
)

// RefreshToken is a long-lived, revocable, opaque credential. Validity
// is stateful: a revoked token never again yields an access token.
type RefreshToken struct {
	Token     string
	UserID    string
	ClientID  string
	Scope     string
	EventID   string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// RefreshTokenRepo persists refresh tokens.
type RefreshTokenRepo interface {
	Insert(ctx context.Context, rt *RefreshToken) error
	Get(ctx context.Context, token string) (*RefreshToken, error)

	// Revoke marks a token revoked. Revoking an already-revoked or
	// non-existent token is a no-op, not an error.
	Revoke(ctx context.Context, token string) error

	// Rotate atomically revokes oldToken and inserts replacement. The
	// revocation is conditional on the old token still being active at
	// now; a lost race returns storage.ErrConflict so at most one
	// concurrent rotation wins.
	Rotate(ctx context.Context, oldToken string, replacement *RefreshToken, now time.Time) error
}
