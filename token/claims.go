package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the fixed claim set carried by every signed access
// token. Unknown or missing required claims fail verification rather
// than being tolerated.
type AccessClaims struct {
	jwt.RegisteredClaims

	// EventID binds the token to the event/tenant whose sessions it may
	// access. Empty for service tokens, which carry no event scope.
	EventID string `json:"event_id,omitempty"`
}

// validate checks the required claims beyond what the JWT parser already
// enforces (signature, exp, iss).
func (c *AccessClaims) validate() error {
	if c.Subject == "" {
		return errMissingClaim("sub")
	}
	if len(c.Audience) == 0 {
		return errMissingClaim("aud")
	}
	if c.IssuedAt == nil {
		return errMissingClaim("iat")
	}
	if c.ExpiresAt == nil {
		return errMissingClaim("exp")
	}
	return nil
}

// HasAudience reports whether the token was minted for the given audience.
func (c *AccessClaims) HasAudience(audience string) bool {
	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}
	return false
}

type missingClaimError string

func errMissingClaim(name string) error {
	return missingClaimError(name)
}

func (e missingClaimError) Error() string {
	return "missing required claim: " + string(e)
}
