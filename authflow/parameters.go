package authflow

import (
	"strings"

	"github.com/michaellperry/gamehub-identity/internal/autherr"
	"github.com/michaellperry/gamehub-identity/oauth2"
	"github.com/michaellperry/gamehub-identity/pkce"
	"github.com/pkg/errors"
)

// AuthorizationParameters holds the query parameters of an authorization
// request.
type AuthorizationParameters struct {
	ClientID            string
	ResponseType        oauth2.ResponseType
	RedirectURI         string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod pkce.Method

	// GapID optionally references the game access path the player is
	// entering through. When no identity cookie is usable, an OPEN
	// cookie-based path can establish one on the fly.
	GapID string
}

// Validate enforces the presence and shape of every required parameter.
// Failures are client errors and must not be retried automatically.
func (p *AuthorizationParameters) Validate() error {
	if strings.TrimSpace(p.ClientID) == "" {
		return errors.Wrap(autherr.ErrClientParameter, "client_id is required")
	}
	if strings.TrimSpace(p.RedirectURI) == "" {
		return errors.Wrap(autherr.ErrClientParameter, "redirect_uri is required")
	}
	if p.ResponseType != oauth2.CodeResponseType {
		return errors.Wrap(autherr.ErrClientParameter, "response_type must be \"code\"")
	}
	if strings.TrimSpace(p.CodeChallenge) == "" {
		return errors.Wrap(autherr.ErrClientParameter, "code_challenge is required")
	}
	if !pkce.ValidMethod(p.CodeChallengeMethod) {
		return errors.Wrap(autherr.ErrClientParameter, "code_challenge_method must be \"S256\" or \"plain\"")
	}
	// RFC 7636 bounds for the S256 challenge encoding.
	if len(p.CodeChallenge) < 43 || len(p.CodeChallenge) > 128 {
		return errors.Wrap(autherr.ErrClientParameter, "code_challenge length must be between 43 and 128 characters")
	}
	return nil
}

// validateExchange checks the token request fields of an authorization
// code exchange before any store access.
func validateExchange(req *oauth2.TokenRequest) error {
	if req.GrantType != oauth2.AuthorizationCodeGrant {
		return errors.Wrap(autherr.ErrClientParameter, "grant_type must be \"authorization_code\"")
	}
	if strings.TrimSpace(req.Code) == "" {
		return errors.Wrap(autherr.ErrClientParameter, "code is required")
	}
	if strings.TrimSpace(req.ClientID) == "" {
		return errors.Wrap(autherr.ErrClientParameter, "client_id is required")
	}
	if strings.TrimSpace(req.RedirectURI) == "" {
		return errors.Wrap(autherr.ErrClientParameter, "redirect_uri is required")
	}
	if strings.TrimSpace(req.CodeVerifier) == "" {
		return errors.Wrap(autherr.ErrClientParameter, "code_verifier is required")
	}
	return nil
}

// validateRefresh checks the token request fields of a refresh grant.
func validateRefresh(req *oauth2.TokenRequest) error {
	if req.GrantType != oauth2.RefreshTokenGrant {
		return errors.Wrap(autherr.ErrClientParameter, "grant_type must be \"refresh_token\"")
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		return errors.Wrap(autherr.ErrClientParameter, "refresh_token is required")
	}
	if strings.TrimSpace(req.ClientID) == "" {
		return errors.Wrap(autherr.ErrClientParameter, "client_id is required")
	}
	return nil
}

// validateClientCredentials checks the token request fields of a
// client-credentials grant.
func validateClientCredentials(req *oauth2.TokenRequest) error {
	if req.GrantType != oauth2.ClientCredentialsGrant {
		return errors.Wrap(autherr.ErrClientParameter, "grant_type must be \"client_credentials\"")
	}
	if strings.TrimSpace(req.ClientID) == "" {
		return errors.Wrap(autherr.ErrClientParameter, "client_id is required")
	}
	if strings.TrimSpace(req.ClientSecret) == "" {
		return errors.Wrap(autherr.ErrClientParameter, "client_secret is required")
	}
	return nil
}
