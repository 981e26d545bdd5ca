package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const cookieValueBytes = 32 // 256 bits of entropy

// CookieManager issues anonymous identity cookies and resolves them back
// to durable user records.
type CookieManager struct {
	users   UserRepo
	cookies CookieRepo
	nowTime func() time.Time
}

// CookieManagerOption modifies a CookieManager instance.
type CookieManagerOption func(*CookieManager)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) CookieManagerOption {
	return func(cm *CookieManager) {
		cm.nowTime = nowFunc
	}
}

// NewCookieManager initializes a CookieManager with required dependencies.
func NewCookieManager(users UserRepo, cookies CookieRepo, options ...CookieManagerOption) (*CookieManager, error) {
	if users == nil {
		return nil, errors.New("[NewCookieManager] users repo is required")
	}
	if cookies == nil {
		return nil, errors.New("[NewCookieManager] cookies repo is required")
	}

	cm := &CookieManager{
		users:   users,
		cookies: cookies,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(cm)
	}
	return cm, nil
}

// GenerateCookieValue returns a cryptographically random, URL-safe cookie
// value carrying 256 bits of entropy.
func GenerateCookieValue() (string, error) {
	buf := make([]byte, cookieValueBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "[GenerateCookieValue] rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Resolve maps a presented cookie value to the bound user. A missing or
// unknown cookie resolves to the repo's not-found error.
func (cm *CookieManager) Resolve(ctx context.Context, cookieValue string) (*User, error) {
	binding, err := cm.cookies.GetByValue(ctx, cookieValue)
	if err != nil {
		return nil, errors.Wrap(err, "[CookieManager.Resolve] GetByValue")
	}
	user, err := cm.users.GetByID(ctx, binding.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "[CookieManager.Resolve] GetByID")
	}
	return user, nil
}

// Bind attaches an existing cookie value to a user. Used when a device
// re-authenticates with a fresh cookie for an already-known player.
func (cm *CookieManager) Bind(ctx context.Context, cookieValue, userID string) error {
	if err := cm.cookies.Insert(ctx, &CookieBinding{
		Value:     cookieValue,
		UserID:    userID,
		CreatedAt: cm.nowTime(),
	}); err != nil {
		return errors.Wrap(err, "[CookieManager.Bind] Insert")
	}
	return nil
}

// Establish creates a brand-new anonymous user together with a fresh
// cookie binding, returning both. This is the entry point for open,
// cookie-based game access.
func (cm *CookieManager) Establish(ctx context.Context) (*User, string, error) {
	now := cm.nowTime()
	user := &User{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := cm.users.Insert(ctx, user); err != nil {
		return nil, "", errors.Wrap(err, "[CookieManager.Establish] users.Insert")
	}

	cookieValue, err := GenerateCookieValue()
	if err != nil {
		return nil, "", errors.Wrap(err, "[CookieManager.Establish] GenerateCookieValue")
	}
	if err := cm.Bind(ctx, cookieValue, user.ID); err != nil {
		return nil, "", errors.Wrap(err, "[CookieManager.Establish] Bind")
	}
	return user, cookieValue, nil
}
