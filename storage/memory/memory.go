// Package memory provides a thread-safe, in-memory implementation of
// every repository, with the same conditional-write semantics as the
// SQLite store. Used by tests and by development bootstrap.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/michaellperry/gamehub-identity/authflow"
	"github.com/michaellperry/gamehub-identity/gap"
	"github.com/michaellperry/gamehub-identity/identity"
	"github.com/michaellperry/gamehub-identity/storage"
	"github.com/michaellperry/gamehub-identity/token"
)

// Store holds all entity maps behind a single mutex so multi-record
// operations (consume, rotate) stay atomic.
type Store struct {
	mu      sync.Mutex
	users   map[string]*identity.User
	cookies map[string]*identity.CookieBinding
	codes   map[string]*authflow.AuthorizationCode
	refresh map[string]*token.RefreshToken
	gaps    map[string]*gap.GAP
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:   make(map[string]*identity.User),
		cookies: make(map[string]*identity.CookieBinding),
		codes:   make(map[string]*authflow.AuthorizationCode),
		refresh: make(map[string]*token.RefreshToken),
		gaps:    make(map[string]*gap.GAP),
	}
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

type userRepo Store

func (r *userRepo) Insert(_ context.Context, user *identity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.ID]; exists {
		return storage.ErrDuplicate
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*identity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

type cookieRepo Store

func (r *cookieRepo) Insert(_ context.Context, binding *identity.CookieBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cookies[binding.Value]; exists {
		return storage.ErrDuplicate
	}
	copied := *binding
	r.cookies[binding.Value] = &copied
	return nil
}

func (r *cookieRepo) GetByValue(_ context.Context, value string) (*identity.CookieBinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	binding, ok := r.cookies[value]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *binding
	return &copied, nil
}

type codeRepo Store

func (r *codeRepo) Insert(_ context.Context, code *authflow.AuthorizationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.codes[code.Code]; exists {
		return storage.ErrDuplicate
	}
	copied := *code
	r.codes[code.Code] = &copied
	return nil
}

func (r *codeRepo) Consume(_ context.Context, code string) (*authflow.AuthorizationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.codes[code]
	if !ok {
		return nil, storage.ErrNotFound
	}
	delete(r.codes, code)
	copied := *record
	return &copied, nil
}

func (r *codeRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for value, record := range r.codes {
		if record.ExpiresAt.Before(cutoff) {
			delete(r.codes, value)
			removed++
		}
	}
	return removed, nil
}

type refreshRepo Store

func (r *refreshRepo) Insert(_ context.Context, rt *token.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.refresh[rt.Token]; exists {
		return storage.ErrDuplicate
	}
	copied := *rt
	r.refresh[rt.Token] = &copied
	return nil
}

func (r *refreshRepo) Get(_ context.Context, tokenValue string) (*token.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.refresh[tokenValue]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *rt
	return &copied, nil
}

func (r *refreshRepo) Revoke(_ context.Context, tokenValue string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rt, ok := r.refresh[tokenValue]; ok {
		rt.Revoked = true
	}
	return nil
}

func (r *refreshRepo) Rotate(_ context.Context, oldToken string, replacement *token.RefreshToken, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.refresh[oldToken]
	if !ok || old.Revoked || !now.Before(old.ExpiresAt) {
		return storage.ErrConflict
	}
	if _, exists := r.refresh[replacement.Token]; exists {
		return storage.ErrDuplicate
	}

	old.Revoked = true
	copied := *replacement
	r.refresh[replacement.Token] = &copied
	return nil
}

type gapRepo Store

func (r *gapRepo) Insert(_ context.Context, g *gap.GAP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.gaps[g.ID]; exists {
		return storage.ErrDuplicate
	}
	copied := *g
	r.gaps[g.ID] = &copied
	return nil
}

func (r *gapRepo) GetByID(_ context.Context, id string) (*gap.GAP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gaps[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *g
	return &copied, nil
}
