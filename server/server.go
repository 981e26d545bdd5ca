// Package server exposes the identity provider over HTTP: the OAuth2
// authorization and token endpoints, key discovery, and the game access
// path API.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/michaellperry/gamehub-identity/authflow"
	"github.com/michaellperry/gamehub-identity/gap"
	"github.com/michaellperry/gamehub-identity/internal/config"
	"github.com/michaellperry/gamehub-identity/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Server wires the flow controller, token manager, and GAP engine to
// their HTTP surfaces.
type Server struct {
	cfg    *config.Config
	flow   *authflow.Service
	gaps   *gap.Engine
	tokens *token.Manager
	log    zerolog.Logger
	router chi.Router
}

// New initializes the HTTP server with required dependencies.
func New(cfg *config.Config, flow *authflow.Service, gaps *gap.Engine, tokens *token.Manager, log zerolog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[server.New] config is required")
	}
	if flow == nil {
		return nil, errors.New("[server.New] flow controller is required")
	}
	if gaps == nil {
		return nil, errors.New("[server.New] gap engine is required")
	}
	if tokens == nil {
		return nil, errors.New("[server.New] token manager is required")
	}

	s := &Server{
		cfg:    cfg,
		flow:   flow,
		gaps:   gaps,
		tokens: tokens,
		log:    log,
	}
	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/.well-known/openid-configuration", s.handleDiscovery)
	r.Get("/.well-known/jwks.json", s.handleJWKS)

	r.Get("/oauth2/authorize", s.handleAuthorize)
	r.Post("/oauth2/token", s.handleToken)
	r.Post("/oauth2/revoke", s.handleRevoke)

	r.Route("/gaps", func(r chi.Router) {
		r.With(s.requireServiceToken).Post("/", s.handleCreateGAP)
		r.Get("/{gapID}", s.handleGetGAP)
	})

	return r
}

// requestLogger emits one structured line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
