package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/michaellperry/gamehub-identity/oauth2"
	"github.com/michaellperry/gamehub-identity/token"
)

type contextKey string

const claimsContextKey contextKey = "gamehub.claims"

// requireServiceToken guards endpoints reserved for backend services. A
// valid bearer token minted for the service audience is required; the
// verified claims are stored on the request context.
func (s *Server) requireServiceToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeJSON(w, http.StatusUnauthorized, oauth2.ErrorResponse{
				Error:       oauth2.ErrorInvalidRequest,
				Description: "bearer token required",
			})
			return
		}

		claims, err := s.tokens.VerifyAccessTokenForAudience(raw, s.cfg.ServiceAudience)
		if err != nil {
			s.log.Warn().Err(err).Str("path", r.URL.Path).Msg("service token rejected")
			writeJSON(w, http.StatusUnauthorized, oauth2.ErrorResponse{
				Error: oauth2.ErrorInvalidGrant,
			})
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the verified claims stored by the service
// token middleware, or nil when the request was not authenticated.
func ClaimsFromContext(ctx context.Context) *token.AccessClaims {
	claims, _ := ctx.Value(claimsContextKey).(*token.AccessClaims)
	return claims
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
