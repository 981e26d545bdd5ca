// Package oauth2 holds the wire-level request and response shapes of the
// OAuth2 endpoints, as defined in RFC 6749.
package oauth2

// ResponseType represents the OAuth 2.0 response type requested at the
// authorization endpoint.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow, the only
	// flow this provider supports.
	CodeResponseType ResponseType = "code"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code plus PKCE
	// verifier for tokens.
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for new tokens.
	RefreshTokenGrant GrantType = "refresh_token"

	// ClientCredentialsGrant mints service tokens for backend-to-backend
	// calls using pre-provisioned client credentials.
	ClientCredentialsGrant GrantType = "client_credentials"
)

// TokenRequest holds parameters of a token endpoint call. Which fields
// are required depends on the grant type.
type TokenRequest struct {
	GrantType    GrantType
	ClientID     string
	ClientSecret string

	// Authorization code grant.
	Code         string
	RedirectURI  string
	CodeVerifier string

	// Refresh token grant.
	RefreshToken string
}
