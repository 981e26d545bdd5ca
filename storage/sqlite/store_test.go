package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/michaellperry/gamehub-identity/authflow"
	"github.com/michaellperry/gamehub-identity/gap"
	"github.com/michaellperry/gamehub-identity/identity"
	"github.com/michaellperry/gamehub-identity/pkce"
	"github.com/michaellperry/gamehub-identity/storage"
	"github.com/michaellperry/gamehub-identity/storage/sqlite"
	"github.com/michaellperry/gamehub-identity/token"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "identity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := sqlite.Open("  ")
	require.Error(t, err)
}

func TestUserRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	users := store.Users()

	user := &identity.User{ID: "user-1", CreatedAt: testTime, UpdatedAt: testTime}
	require.NoError(t, users.Insert(ctx, user))

	got, err := users.GetByID(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.True(t, got.CreatedAt.Equal(testTime))

	_, err = users.GetByID(ctx, "user-2")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.ErrorIs(t, users.Insert(ctx, user), storage.ErrDuplicate)
}

func TestCookieBindingRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	cookies := store.Cookies()

	users := store.Users()
	require.NoError(t, users.Insert(ctx, &identity.User{ID: "user-1", CreatedAt: testTime, UpdatedAt: testTime}))
	require.NoError(t, users.Insert(ctx, &identity.User{ID: "user-2", CreatedAt: testTime, UpdatedAt: testTime}))

	binding := &identity.CookieBinding{Value: "cookie-1", UserID: "user-1", CreatedAt: testTime}
	require.NoError(t, cookies.Insert(ctx, binding))

	got, err := cookies.GetByValue(ctx, "cookie-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", got.UserID)

	_, err = cookies.GetByValue(ctx, "cookie-2")
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Cookie values are globally unique.
	dup := &identity.CookieBinding{Value: "cookie-1", UserID: "user-2", CreatedAt: testTime}
	require.ErrorIs(t, cookies.Insert(ctx, dup), storage.ErrDuplicate)
}

func newTestCode(code string) *authflow.AuthorizationCode {
	return &authflow.AuthorizationCode{
		Code:                code,
		ClientID:            "web-client",
		RedirectURI:         "https://game.example/callback",
		CodeChallenge:       "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		CodeChallengeMethod: pkce.MethodS256,
		UserID:              "user-1",
		EventID:             "event-42",
		Scope:               "play",
		ExpiresAt:           testTime.Add(5 * time.Minute),
		CreatedAt:           testTime,
	}
}

func TestCodeConsumeIsSingleUse(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	codes := store.Codes()

	require.NoError(t, codes.Insert(ctx, newTestCode("code-1")))

	record, err := codes.Consume(ctx, "code-1")
	require.NoError(t, err)
	require.Equal(t, "web-client", record.ClientID)
	require.Equal(t, pkce.MethodS256, record.CodeChallengeMethod)
	require.Equal(t, "event-42", record.EventID)
	require.True(t, record.ExpiresAt.Equal(testTime.Add(5*time.Minute)))

	_, err = codes.Consume(ctx, "code-1")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// Consume returns expired records too; the flow controller decides what
// an expired code means, and the delete must happen regardless.
func TestCodeConsumeReturnsExpiredRecords(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	codes := store.Codes()

	expired := newTestCode("code-old")
	expired.ExpiresAt = testTime.Add(-time.Minute)
	require.NoError(t, codes.Insert(ctx, expired))

	record, err := codes.Consume(ctx, "code-old")
	require.NoError(t, err)
	require.True(t, record.ExpiresAt.Before(testTime))

	_, err = codes.Consume(ctx, "code-old")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCodeConcurrentConsumeHasOneWinner(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	codes := store.Codes()

	require.NoError(t, codes.Insert(ctx, newTestCode("code-1")))

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := codes.Consume(ctx, "code-1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, storage.ErrNotFound)
		}
	}
	require.Equal(t, 1, winners)
}

func TestDeleteExpiredCodes(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	codes := store.Codes()

	stale := newTestCode("code-stale")
	stale.ExpiresAt = testTime.Add(-time.Hour)
	require.NoError(t, codes.Insert(ctx, stale))
	require.NoError(t, codes.Insert(ctx, newTestCode("code-live")))

	deleted, err := codes.DeleteExpired(ctx, testTime)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	_, err = codes.Consume(ctx, "code-live")
	require.NoError(t, err)
}

func newTestRefreshToken(value string) *token.RefreshToken {
	return &token.RefreshToken{
		Token:     value,
		UserID:    "user-1",
		ClientID:  "web-client",
		Scope:     "play",
		EventID:   "event-42",
		ExpiresAt: testTime.Add(7 * 24 * time.Hour),
		CreatedAt: testTime,
	}
}

func TestRefreshTokenRotate(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	tokens := store.RefreshTokens()

	require.NoError(t, tokens.Insert(ctx, newTestRefreshToken("rt-1")))

	replacement := newTestRefreshToken("rt-2")
	require.NoError(t, tokens.Rotate(ctx, "rt-1", replacement, testTime))

	old, err := tokens.Get(ctx, "rt-1")
	require.NoError(t, err)
	require.True(t, old.Revoked)

	fresh, err := tokens.Get(ctx, "rt-2")
	require.NoError(t, err)
	require.False(t, fresh.Revoked)
	require.Equal(t, "user-1", fresh.UserID)

	// Losing rotations see a conflict, not a second winner.
	require.ErrorIs(t, tokens.Rotate(ctx, "rt-1", newTestRefreshToken("rt-3"), testTime), storage.ErrConflict)
}

func TestRefreshTokenConcurrentRotateHasOneWinner(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	tokens := store.RefreshTokens()

	require.NoError(t, tokens.Insert(ctx, newTestRefreshToken("rt-contested")))

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			replacement := newTestRefreshToken(fmt.Sprintf("rt-replacement-%d", n))
			results <- tokens.Rotate(ctx, "rt-contested", replacement, testTime)
		}(i)
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, storage.ErrConflict)
		}
	}
	require.Equal(t, 1, winners, "exactly one concurrent rotation may succeed")

	old, err := tokens.Get(ctx, "rt-contested")
	require.NoError(t, err)
	require.True(t, old.Revoked)
}

func TestRotateRejectsExpiredAndUnknownTokens(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	tokens := store.RefreshTokens()

	expired := newTestRefreshToken("rt-old")
	expired.ExpiresAt = testTime.Add(-time.Minute)
	require.NoError(t, tokens.Insert(ctx, expired))

	err := tokens.Rotate(ctx, "rt-old", newTestRefreshToken("rt-new"), testTime)
	require.ErrorIs(t, err, storage.ErrConflict)

	err = tokens.Rotate(ctx, "rt-missing", newTestRefreshToken("rt-new"), testTime)
	require.ErrorIs(t, err, storage.ErrConflict)
}

func TestRevokeIsIdempotent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	tokens := store.RefreshTokens()

	require.NoError(t, tokens.Insert(ctx, newTestRefreshToken("rt-1")))
	require.NoError(t, tokens.Revoke(ctx, "rt-1"))
	require.NoError(t, tokens.Revoke(ctx, "rt-1"))
	require.NoError(t, tokens.Revoke(ctx, "rt-unknown"))

	got, err := tokens.Get(ctx, "rt-1")
	require.NoError(t, err)
	require.True(t, got.Revoked)
}

func TestGAPRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	gaps := store.GAPs()

	path := &gap.GAP{
		ID:        "gap-1",
		EventID:   "event-42",
		Type:      gap.TypeOpen,
		Policy:    gap.PolicyCookieBased,
		CreatedAt: testTime,
	}
	require.NoError(t, gaps.Insert(ctx, path))

	got, err := gaps.GetByID(ctx, "gap-1")
	require.NoError(t, err)
	require.Equal(t, gap.TypeOpen, got.Type)
	require.Equal(t, gap.PolicyCookieBased, got.Policy)
	require.True(t, got.CreatedAt.Equal(testTime))

	_, err = gaps.GetByID(ctx, "gap-2")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.ErrorIs(t, gaps.Insert(ctx, path), storage.ErrDuplicate)
}
