// Package clients holds the registry of pre-provisioned OAuth2 clients:
// public game frontends (PKCE mandatory) and confidential backend
// services (client-credentials grant).
package clients

import (
	"golang.org/x/crypto/bcrypt"
)

// ClientType splits clients by their ability to keep a secret.
type ClientType string

const (
	ClientTypeConfidential ClientType = "confidential" // Backend services holding a secret
	ClientTypePublic       ClientType = "public"       // Browser game frontends, no secret
)

// Client is a registered OAuth2 client. Confidential clients carry a
// bcrypt hash of their secret, never the secret itself.
type Client struct {
	ID           string     `json:"id"`
	Type         ClientType `json:"type"`
	Description  string     `json:"description,omitempty"`
	SecretHash   string     `json:"secret_hash,omitempty"`
	RedirectURIs []string   `json:"redirect_uris,omitempty"`
}

// IsPublic returns true if the client is a public client.
func (c *Client) IsPublic() bool {
	return c.Type == ClientTypePublic
}

// RedirectAllowed checks a redirect URI against the client's allow-list.
// Exact match only, preventing open redirects.
func (c *Client) RedirectAllowed(redirectURI string) bool {
	for _, uri := range c.RedirectURIs {
		if redirectURI == uri {
			return true
		}
	}
	return false
}

// CheckSecret verifies a presented secret against the stored bcrypt hash.
// Public clients have no secret and always fail this check.
func (c *Client) CheckSecret(secret string) bool {
	if c.SecretHash == "" || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.SecretHash), []byte(secret)) == nil
}

// HashSecret produces the bcrypt hash stored in the registry file for a
// confidential client's secret.
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}
