package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/michaellperry/gamehub-identity/authflow"
	"github.com/michaellperry/gamehub-identity/oauth2"
	"github.com/michaellperry/gamehub-identity/pkce"
)

// handleAuthorize begins the authorization code flow. On success the
// caller is redirected to its registered redirect URI carrying the code
// and echoed state; when the flow established a fresh anonymous
// identity, the identity cookie is set alongside.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := &authflow.AuthorizationParameters{
		ClientID:            q.Get("client_id"),
		ResponseType:        oauth2.ResponseType(q.Get("response_type")),
		RedirectURI:         q.Get("redirect_uri"),
		Scope:               q.Get("scope"),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: pkce.Method(q.Get("code_challenge_method")),
		GapID:               q.Get("gap_id"),
	}

	grant, err := s.flow.Authorize(r.Context(), params, s.presentedCookie(r))
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}

	if grant.NewCookieValue != "" {
		s.setIdentityCookie(w, grant.NewCookieValue)
	}

	redirect, err := url.Parse(grant.RedirectURI)
	if err != nil {
		// Registered URIs are validated at provisioning time; an
		// unparsable one here is a registry problem, not a client error.
		s.log.Error().Err(err).Str("redirect_uri", grant.RedirectURI).Msg("registered redirect URI unparsable")
		writeJSON(w, http.StatusInternalServerError, oauth2.ErrorResponse{Error: oauth2.ErrorServerError})
		return
	}
	values := redirect.Query()
	values.Set("code", grant.Code)
	if grant.State != "" {
		values.Set("state", grant.State)
	}
	redirect.RawQuery = values.Encode()

	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

// handleToken serves the token endpoint for all three grant types.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, oauth2.ErrorResponse{
			Error:       oauth2.ErrorInvalidRequest,
			Description: "malformed form body",
		})
		return
	}

	req := &oauth2.TokenRequest{
		GrantType:    oauth2.GrantType(r.FormValue("grant_type")),
		ClientID:     r.FormValue("client_id"),
		ClientSecret: r.FormValue("client_secret"),
		Code:         r.FormValue("code"),
		RedirectURI:  r.FormValue("redirect_uri"),
		CodeVerifier: r.FormValue("code_verifier"),
		RefreshToken: r.FormValue("refresh_token"),
	}

	var response *oauth2.TokenResponse
	var err error
	switch req.GrantType {
	case oauth2.AuthorizationCodeGrant:
		response, err = s.flow.Exchange(r.Context(), req)
	case oauth2.RefreshTokenGrant:
		response, err = s.flow.Refresh(r.Context(), req)
	case oauth2.ClientCredentialsGrant:
		response, err = s.flow.ServiceToken(r.Context(), req)
	default:
		writeJSON(w, http.StatusBadRequest, oauth2.ErrorResponse{
			Error: oauth2.ErrorUnsupportedGrant,
		})
		return
	}
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	writeJSON(w, http.StatusOK, response)
}

// handleRevoke invalidates a refresh token (RFC 7009). Revocation is
// idempotent, so unknown tokens still return 200.
func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, oauth2.ErrorResponse{
			Error:       oauth2.ErrorInvalidRequest,
			Description: "malformed form body",
		})
		return
	}

	if err := s.flow.Revoke(r.Context(), r.FormValue("token")); err != nil {
		s.writeFlowError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleJWKS serves the public signing keys for stateless verification.
func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	jwks, err := s.tokens.JWKS()
	if err != nil {
		s.log.Error().Err(err).Msg("JWKS unavailable")
		writeJSON(w, http.StatusNotFound, oauth2.ErrorResponse{
			Error:       oauth2.ErrorInvalidRequest,
			Description: "no public key set for the active signing algorithm",
		})
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, jwks)
}

// handleDiscovery serves the OIDC-style discovery document so backend
// callers can locate the token endpoint and key set.
func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	issuer := strings.TrimSuffix(s.cfg.Issuer, "/")
	doc := map[string]any{
		"issuer":                 issuer,
		"authorization_endpoint": issuer + "/oauth2/authorize",
		"token_endpoint":         issuer + "/oauth2/token",
		"revocation_endpoint":    issuer + "/oauth2/revoke",
		"jwks_uri":               issuer + "/.well-known/jwks.json",

		"response_types_supported": []string{"code"},
		"subject_types_supported":  []string{"public"},
		"grant_types_supported": []string{
			"authorization_code",
			"refresh_token",
			"client_credentials",
		},
		"code_challenge_methods_supported": []string{"S256", "plain"},
		"id_token_signing_alg_values_supported": []string{
			s.cfg.SigningAlg,
		},
		"token_endpoint_auth_methods_supported": []string{
			"client_secret_post",
			"none",
		},
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) presentedCookie(r *http.Request) string {
	cookie, err := r.Cookie(s.cfg.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// setIdentityCookie sets the anonymous identity cookie with attributes
// suited to cross-site browser use. SameSite=None because game frontends
// are served from their own origins.
func (s *Server) setIdentityCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
}
