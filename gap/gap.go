// Package gap models Game Access Paths: named, policy-governed entry
// points into ephemeral multiplayer sessions.
package gap

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Type classifies who may enter through an access path.
type Type string

const (
	// TypeOpen admits anyone the path's policy can resolve an identity for.
	TypeOpen Type = "OPEN"

	// TypeRestricted is a reserved extension point (invite-only,
	// signed-link). Always denies until explicitly implemented.
	TypeRestricted Type = "RESTRICTED"
)

// Policy describes how an identity is established at the path.
type Policy string

const (
	// PolicyCookieBased admits any resolvable or freshly created cookie
	// identity.
	PolicyCookieBased Policy = "COOKIE_BASED"

	// PolicyInviteOnly is reserved and denies.
	PolicyInviteOnly Policy = "INVITE_ONLY"
)

// GAP describes how an ephemeral session for an event may be entered.
// GAPs are immutable once created; a policy change means a new GAP.
type GAP struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Type      Type      `json:"type"`
	Policy    Policy    `json:"policy"`
	CreatedAt time.Time `json:"created_at"`
}

// Repo persists access paths.
type Repo interface {
	Insert(ctx context.Context, g *GAP) error
	GetByID(ctx context.Context, id string) (*GAP, error)
}

// Identity is the caller's view of who wants in. A zero Identity means
// nobody could be resolved yet.
type Identity struct {
	// UserID is set when a cookie already resolved to a user.
	UserID string

	// CanEstablish is true when the HTTP layer is able to mint a fresh
	// cookie identity for the caller (i.e. a browser that accepts
	// cookies), letting cookie-based open paths admit first contact.
	CanEstablish bool
}

// Engine evaluates access path policies.
type Engine struct {
	repo    Repo
	nowTime func() time.Time
}

// EngineOption modifies an Engine instance.
type EngineOption func(*Engine)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowTime = nowFunc
	}
}

// NewEngine initializes an Engine with required dependencies.
func NewEngine(repo Repo, options ...EngineOption) (*Engine, error) {
	if repo == nil {
		return nil, errors.New("[NewEngine] gap repo is required")
	}
	e := &Engine{repo: repo, nowTime: time.Now}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// Create registers a new access path for an event.
func (e *Engine) Create(ctx context.Context, eventID string, t Type, p Policy) (*GAP, error) {
	if eventID == "" {
		return nil, errors.New("[Engine.Create] event id is required")
	}
	g := &GAP{
		ID:        uuid.New().String(),
		EventID:   eventID,
		Type:      t,
		Policy:    p,
		CreatedAt: e.nowTime(),
	}
	if err := e.repo.Insert(ctx, g); err != nil {
		return nil, errors.Wrap(err, "[Engine.Create] Insert")
	}
	return g, nil
}

// Get looks up an access path by id.
func (e *Engine) Get(ctx context.Context, id string) (*GAP, error) {
	g, err := e.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "[Engine.Get] GetByID")
	}
	return g, nil
}

// Authorize decides whether the presented identity may enter through the
// access path. Only OPEN + COOKIE_BASED admits anyone; every other
// type/policy combination fails closed.
func Authorize(g *GAP, id Identity) bool {
	if g == nil {
		return false
	}
	if g.Type != TypeOpen || g.Policy != PolicyCookieBased {
		return false
	}
	return id.UserID != "" || id.CanEstablish
}
