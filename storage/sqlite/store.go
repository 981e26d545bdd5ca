// Package sqlite provides SQLite-backed persistence for the identity
// provider: users, cookie bindings, authorization codes, refresh tokens,
// and game access paths, with the conditional-write guarantees the flow
// controller relies on.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/michaellperry/gamehub-identity/authflow"
	"github.com/michaellperry/gamehub-identity/gap"
	"github.com/michaellperry/gamehub-identity/identity"
	"github.com/michaellperry/gamehub-identity/pkce"
	"github.com/michaellperry/gamehub-identity/storage"
	"github.com/michaellperry/gamehub-identity/token"
	_ "modernc.org/sqlite"
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements every repository over a single SQLite file so all
// flows share the same transaction and visibility boundaries.
type Store struct {
	db *sql.DB
}

// Open opens the identity SQLite store and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	// modernc.org/sqlite takes pragmas as _pragma=name(value) pairs.
	// busy_timeout must be active or concurrent writers surface
	// SQLITE_BUSY instead of waiting for the lock.
	dsn := filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Users returns the user repository view of the store.
func (s *Store) Users() identity.UserRepo { return (*userRepo)(s) }

// Cookies returns the cookie binding repository view of the store.
func (s *Store) Cookies() identity.CookieRepo { return (*cookieRepo)(s) }

// Codes returns the authorization code repository view of the store.
func (s *Store) Codes() authflow.CodeRepo { return (*codeRepo)(s) }

// RefreshTokens returns the refresh token repository view of the store.
func (s *Store) RefreshTokens() token.RefreshTokenRepo { return (*refreshRepo)(s) }

// GAPs returns the access path repository view of the store.
func (s *Store) GAPs() gap.Repo { return (*gapRepo)(s) }

// mapErr normalizes driver errors into the shared storage sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return storage.ErrDuplicate
	}
	return err
}

type userRepo Store

func (r *userRepo) Insert(ctx context.Context, user *identity.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, created_at, updated_at) VALUES (?, ?, ?)`,
		user.ID, toMillis(user.CreatedAt), toMillis(user.UpdatedAt))
	return mapErr(err)
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*identity.User, error) {
	var user identity.User
	var createdAt, updatedAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM users WHERE id = ?`, id).
		Scan(&user.ID, &createdAt, &updatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return &user, nil
}

type cookieRepo Store

func (r *cookieRepo) Insert(ctx context.Context, binding *identity.CookieBinding) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cookie_bindings (value, user_id, created_at) VALUES (?, ?, ?)`,
		binding.Value, binding.UserID, toMillis(binding.CreatedAt))
	return mapErr(err)
}

func (r *cookieRepo) GetByValue(ctx context.Context, value string) (*identity.CookieBinding, error) {
	var binding identity.CookieBinding
	var createdAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT value, user_id, created_at FROM cookie_bindings WHERE value = ?`, value).
		Scan(&binding.Value, &binding.UserID, &createdAt)
	if err != nil {
		return nil, mapErr(err)
	}
	binding.CreatedAt = fromMillis(createdAt)
	return &binding, nil
}

type codeRepo Store

func (r *codeRepo) Insert(ctx context.Context, code *authflow.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_codes
			(code, client_id, redirect_uri, code_challenge, code_challenge_method,
			 user_id, event_id, scope, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		code.Code, code.ClientID, code.RedirectURI, code.CodeChallenge,
		string(code.CodeChallengeMethod), code.UserID, code.EventID, code.Scope,
		toMillis(code.ExpiresAt), toMillis(code.CreatedAt))
	return mapErr(err)
}

// Consume deletes the code and returns its row in a single statement.
// DELETE ... RETURNING makes the delete the commit point, so concurrent
// exchanges of the same code produce exactly one winner.
func (r *codeRepo) Consume(ctx context.Context, code string) (*authflow.AuthorizationCode, error) {
	var record authflow.AuthorizationCode
	var method string
	var expiresAt, createdAt int64
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM auth_codes WHERE code = ?
		 RETURNING code, client_id, redirect_uri, code_challenge, code_challenge_method,
			user_id, event_id, scope, expires_at, created_at`, code).
		Scan(&record.Code, &record.ClientID, &record.RedirectURI, &record.CodeChallenge,
			&method, &record.UserID, &record.EventID, &record.Scope, &expiresAt, &createdAt)
	if err != nil {
		return nil, mapErr(err)
	}
	record.CodeChallengeMethod = pkce.Method(method)
	record.ExpiresAt = fromMillis(expiresAt)
	record.CreatedAt = fromMillis(createdAt)
	return &record, nil
}

func (r *codeRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_codes WHERE expires_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

type refreshRepo Store

func (r *refreshRepo) Insert(ctx context.Context, rt *token.RefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens
			(token, user_id, client_id, scope, event_id, expires_at, revoked, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.Token, rt.UserID, rt.ClientID, rt.Scope, rt.EventID,
		toMillis(rt.ExpiresAt), boolToInt(rt.Revoked), toMillis(rt.CreatedAt))
	return mapErr(err)
}

func (r *refreshRepo) Get(ctx context.Context, tokenValue string) (*token.RefreshToken, error) {
	var rt token.RefreshToken
	var expiresAt, createdAt int64
	var revoked int
	err := r.db.QueryRowContext(ctx,
		`SELECT token, user_id, client_id, scope, event_id, expires_at, revoked, created_at
		 FROM refresh_tokens WHERE token = ?`, tokenValue).
		Scan(&rt.Token, &rt.UserID, &rt.ClientID, &rt.Scope, &rt.EventID,
			&expiresAt, &revoked, &createdAt)
	if err != nil {
		return nil, mapErr(err)
	}
	rt.ExpiresAt = fromMillis(expiresAt)
	rt.CreatedAt = fromMillis(createdAt)
	rt.Revoked = revoked != 0
	return &rt, nil
}

func (r *refreshRepo) Revoke(ctx context.Context, tokenValue string) error {
	// Unconditional update keeps revocation idempotent: zero affected
	// rows (unknown or already revoked) is still success.
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1 WHERE token = ?`, tokenValue)
	return mapErr(err)
}

// Rotate revokes the old token and inserts its replacement in one
// transaction. The conditional update is the winner check: a concurrent
// rotation that lost the race affects zero rows and gets ErrConflict.
func (r *refreshRepo) Rotate(ctx context.Context, oldToken string, replacement *token.RefreshToken, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1
		 WHERE token = ? AND revoked = 0 AND expires_at > ?`,
		oldToken, toMillis(now))
	if err != nil {
		return mapErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrConflict
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens
			(token, user_id, client_id, scope, event_id, expires_at, revoked, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		replacement.Token, replacement.UserID, replacement.ClientID, replacement.Scope,
		replacement.EventID, toMillis(replacement.ExpiresAt), toMillis(replacement.CreatedAt)); err != nil {
		return mapErr(err)
	}
	return tx.Commit()
}

type gapRepo Store

func (r *gapRepo) Insert(ctx context.Context, g *gap.GAP) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO gaps (id, event_id, type, policy, created_at) VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.EventID, string(g.Type), string(g.Policy), toMillis(g.CreatedAt))
	return mapErr(err)
}

func (r *gapRepo) GetByID(ctx context.Context, id string) (*gap.GAP, error) {
	var g gap.GAP
	var gapType, policy string
	var createdAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, event_id, type, policy, created_at FROM gaps WHERE id = ?`, id).
		Scan(&g.ID, &g.EventID, &gapType, &policy, &createdAt)
	if err != nil {
		return nil, mapErr(err)
	}
	g.Type = gap.Type(gapType)
	g.Policy = gap.Policy(policy)
	g.CreatedAt = fromMillis(createdAt)
	return &g, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
