package identity

import "context"

// UserRepo persists player records.
type UserRepo interface {
	Insert(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
}

// CookieRepo persists cookie-to-user bindings. Insert must fail with
// storage.ErrDuplicate when the cookie value already exists.
type CookieRepo interface {
	Insert(ctx context.Context, binding *CookieBinding) error
	GetByValue(ctx context.Context, value string) (*CookieBinding, error)
}
