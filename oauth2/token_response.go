package oauth2

// TokenResponse is the standard OAuth2 token endpoint response (RFC 6749
// §5.1), returned for all grant types.
type TokenResponse struct {
	// AccessToken is the signed JWT presented to resource servers as
	// "Authorization: Bearer <access_token>".
	AccessToken string `json:"access_token"`

	// TokenType is always "bearer" in this implementation.
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds. A hint only;
	// the authoritative expiry is the JWT's exp claim.
	ExpiresIn int `json:"expires_in"`

	// RefreshToken is the opaque, rotating credential used to obtain new
	// access tokens. Absent for service tokens.
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope echoes the granted scope.
	Scope string `json:"scope,omitempty"`
}

// ErrorResponse is the structured error body of a failed token or
// authorization call (RFC 6749 §5.2). Error codes come from the RFC
// registry plus this provider's identity/access-path extensions; the
// description never reveals which specific grant check failed.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// Error codes surfaced by the provider.
const (
	ErrorInvalidRequest     = "invalid_request"
	ErrorInvalidClient      = "invalid_client"
	ErrorInvalidGrant       = "invalid_grant"
	ErrorUnsupportedGrant   = "unsupported_grant_type"
	ErrorServerError        = "server_error"
	ErrorUnavailable        = "temporarily_unavailable"
	ErrorIdentityRequired   = "identity_required"
	ErrorAccessPathRequired = "access_path_required"
)
