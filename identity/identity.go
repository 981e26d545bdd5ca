// Package identity manages durable player records and the anonymous
// identity cookies that bind a browser to them.
package identity

import "time"

// User identifies a player. Players are created on first anonymous
// contact and are never deleted in normal operation.
type User struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CookieBinding maps a random, high-entropy cookie value to exactly one
// user. A user may hold several bindings (one per device); a binding is
// never mutated, only superseded by issuing a new one.
type CookieBinding struct {
	Value     string    `json:"-"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
