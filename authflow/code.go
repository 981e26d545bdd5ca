package authflow

import (
	"context"
	"time"

	"github.com/michaellperry/gamehub-identity/pkce"
)

// AuthorizationCode is a single-use, short-lived credential binding one
// authorization grant to the client, redirect target, PKCE challenge,
// user, and event it was issued for.
type AuthorizationCode struct {
	Code                string
	ClientID            string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod pkce.Method
	UserID              string
	EventID             string
	Scope               string
	ExpiresAt           time.Time
	CreatedAt           time.Time
}

// CodeRepo persists authorization codes.
type CodeRepo interface {
	Insert(ctx context.Context, code *AuthorizationCode) error

	// Consume atomically deletes the code and returns its record. Among
	// concurrent exchanges for the same code exactly one caller gets the
	// record; every other caller gets storage.ErrNotFound. The record is
	// returned (and deleted) even when already expired so a failed
	// exchange can never be retried.
	Consume(ctx context.Context, code string) (*AuthorizationCode, error)

	// DeleteExpired removes codes that expired before the cutoff. This
	// is hygiene only; expiry is enforced at use time.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
