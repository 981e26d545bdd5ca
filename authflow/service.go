// Package authflow orchestrates the OAuth2 Authorization Code + PKCE
// exchange end to end: identity resolution, code issuance, single-use
// exchange, refresh, and service-token grants.
package authflow

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/michaellperry/gamehub-identity/clients"
	"github.com/michaellperry/gamehub-identity/gap"
	"github.com/michaellperry/gamehub-identity/identity"
	"github.com/michaellperry/gamehub-identity/internal/autherr"
	"github.com/michaellperry/gamehub-identity/oauth2"
	"github.com/michaellperry/gamehub-identity/pkce"
	"github.com/michaellperry/gamehub-identity/storage"
	"github.com/michaellperry/gamehub-identity/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const codeGenerationLength = 32

// AuthorizationGrant is the result of a successful authorization step:
// the code to hand back to the client and the echoed state. When the
// flow established a fresh anonymous identity it also carries the new
// cookie value the HTTP layer must set.
type AuthorizationGrant struct {
	Code        string
	State       string
	RedirectURI string
	UserID      string
	EventID     string

	// NewCookieValue is non-empty when an identity was established on
	// the fly through an open, cookie-based access path.
	NewCookieValue string
}

// Service is the authorization flow controller. It holds no per-request
// state beyond what it reads and writes through the injected repos.
type Service struct {
	cookies  *identity.CookieManager
	gaps     *gap.Engine
	codes    CodeRepo
	registry *clients.Registry
	tokens   *token.Manager

	playerAudience string
	codeTTL        time.Duration
	nowTime        func() time.Time
	log            zerolog.Logger
}

// ServiceOption modifies a Service instance.
type ServiceOption func(*Service)

// WithCodeTTL sets the authorization code lifetime.
func WithCodeTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.codeTTL = ttl
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithPlayerAudience sets the audience stamped on player access tokens.
func WithPlayerAudience(audience string) ServiceOption {
	return func(s *Service) {
		s.playerAudience = audience
	}
}

// WithLogger sets the structured logger used for internal failure detail.
func WithLogger(log zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.log = log
	}
}

// NewService initializes the flow controller with required dependencies.
func NewService(
	cookies *identity.CookieManager,
	gaps *gap.Engine,
	codes CodeRepo,
	registry *clients.Registry,
	tokens *token.Manager,
	options ...ServiceOption,
) (*Service, error) {
	if cookies == nil {
		return nil, errors.New("[NewService] cookie manager is required")
	}
	if gaps == nil {
		return nil, errors.New("[NewService] gap engine is required")
	}
	if codes == nil {
		return nil, errors.New("[NewService] code repo is required")
	}
	if registry == nil {
		return nil, errors.New("[NewService] client registry is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewService] token manager is required")
	}

	s := &Service{
		cookies:        cookies,
		gaps:           gaps,
		codes:          codes,
		registry:       registry,
		tokens:         tokens,
		playerAudience: "gamehub-players",
		codeTTL:        5 * time.Minute,
		nowTime:        time.Now,
		log:            zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Authorize runs the authorization step: validate parameters, resolve or
// establish an identity, and issue a bound single-use code.
//
// presentedCookie is the raw identity cookie value from the request, or
// empty when the browser sent none.
func (s *Service) Authorize(ctx context.Context, params *AuthorizationParameters, presentedCookie string) (*AuthorizationGrant, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	client, err := s.registry.Get(params.ClientID)
	if err != nil {
		return nil, errors.Wrap(autherr.ErrClientParameter, "unknown client_id")
	}
	if !client.IsPublic() {
		return nil, errors.Wrap(autherr.ErrClientParameter, "authorization code flow is for public clients")
	}
	if !client.RedirectAllowed(params.RedirectURI) {
		return nil, errors.Wrap(autherr.ErrClientParameter, "redirect_uri not registered for client")
	}
	if params.CodeChallengeMethod == pkce.MethodPlain {
		s.log.Warn().Str("client_id", params.ClientID).Msg("plain PKCE method in use; S256 recommended")
	}

	resolved, newCookieValue, eventID, err := s.resolveIdentity(ctx, params, presentedCookie)
	if err != nil {
		return nil, err
	}

	code, err := generateCode()
	if err != nil {
		return nil, errors.Wrap(autherr.ErrSigning, err.Error())
	}

	now := s.nowTime()
	record := &AuthorizationCode{
		Code:                code,
		ClientID:            params.ClientID,
		RedirectURI:         params.RedirectURI,
		CodeChallenge:       params.CodeChallenge,
		CodeChallengeMethod: params.CodeChallengeMethod,
		UserID:              resolved.ID,
		EventID:             eventID,
		Scope:               params.Scope,
		ExpiresAt:           now.Add(s.codeTTL),
		CreatedAt:           now,
	}
	if err := s.codes.Insert(ctx, record); err != nil {
		return nil, errors.Wrap(autherr.ErrStore, err.Error())
	}

	s.log.Info().
		Str("client_id", params.ClientID).
		Str("user_id", resolved.ID).
		Str("event_id", eventID).
		Msg("authorization code issued")

	return &AuthorizationGrant{
		Code:           code,
		State:          params.State,
		RedirectURI:    params.RedirectURI,
		UserID:         resolved.ID,
		EventID:        eventID,
		NewCookieValue: newCookieValue,
	}, nil
}

// resolveIdentity maps the presented cookie and optional GAP reference
// to a user, establishing a fresh anonymous identity when an open,
// cookie-based access path permits it.
func (s *Service) resolveIdentity(ctx context.Context, params *AuthorizationParameters, presentedCookie string) (user *identity.User, newCookieValue, eventID string, err error) {
	if presentedCookie != "" {
		resolved, resolveErr := s.cookies.Resolve(ctx, presentedCookie)
		switch {
		case resolveErr == nil:
			user = resolved
		case errors.Is(resolveErr, storage.ErrNotFound):
			// Stale cookie: fall through to the access path, which may
			// establish a fresh identity.
			s.log.Debug().Msg("presented identity cookie did not resolve")
		default:
			return nil, "", "", errors.Wrap(autherr.ErrStore, resolveErr.Error())
		}
	}

	if params.GapID == "" {
		if user == nil {
			return nil, "", "", errors.Wrap(autherr.ErrIdentityRequired, "no usable identity cookie and no access path")
		}
		return user, "", "", nil
	}

	path, gapErr := s.gaps.Get(ctx, params.GapID)
	if gapErr != nil {
		if errors.Is(gapErr, storage.ErrNotFound) {
			return nil, "", "", errors.Wrap(autherr.ErrAccessPathRequired, "unknown access path")
		}
		return nil, "", "", errors.Wrap(autherr.ErrStore, gapErr.Error())
	}

	presented := gap.Identity{CanEstablish: true}
	if user != nil {
		presented.UserID = user.ID
	}
	if !gap.Authorize(path, presented) {
		if user == nil {
			return nil, "", "", errors.Wrap(autherr.ErrIdentityRequired, "access path does not grant an identity")
		}
		return nil, "", "", errors.Wrap(autherr.ErrIdentityRequired, "access path denies this identity")
	}

	if user == nil {
		established, cookieValue, establishErr := s.cookies.Establish(ctx)
		if establishErr != nil {
			return nil, "", "", errors.Wrap(autherr.ErrStore, establishErr.Error())
		}
		s.log.Info().Str("user_id", established.ID).Str("gap_id", path.ID).Msg("anonymous identity established via access path")
		return established, cookieValue, path.EventID, nil
	}
	return user, "", path.EventID, nil
}

// Exchange runs the token step of the authorization code grant: consume
// the code exactly once, verify PKCE and the client/redirect binding,
// and mint access plus refresh tokens. Every failure is a generic
// invalid grant and the code is already gone, so retries cannot succeed.
func (s *Service) Exchange(ctx context.Context, req *oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	if err := validateExchange(req); err != nil {
		return nil, err
	}

	record, err := s.codes.Consume(ctx, req.Code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Str("client_id", req.ClientID).Msg("exchange of unknown or already consumed code")
			return nil, errors.Wrap(autherr.ErrInvalidGrant, "code unknown or already consumed")
		}
		return nil, errors.Wrap(autherr.ErrStore, err.Error())
	}

	// The code is deleted at this point no matter what follows.
	switch {
	case !s.nowTime().Before(record.ExpiresAt):
		s.log.Warn().Str("client_id", req.ClientID).Msg("exchange of expired code")
		return nil, errors.Wrap(autherr.ErrInvalidGrant, "code expired")
	case record.ClientID != req.ClientID:
		s.log.Warn().Str("client_id", req.ClientID).Msg("exchange client mismatch")
		return nil, errors.Wrap(autherr.ErrInvalidGrant, "client mismatch")
	case record.RedirectURI != req.RedirectURI:
		s.log.Warn().Str("client_id", req.ClientID).Msg("exchange redirect mismatch")
		return nil, errors.Wrap(autherr.ErrInvalidGrant, "redirect mismatch")
	case !pkce.Verify(req.CodeVerifier, record.CodeChallenge, record.CodeChallengeMethod):
		s.log.Warn().Str("client_id", req.ClientID).Msg("PKCE verification failed")
		return nil, errors.Wrap(autherr.ErrInvalidGrant, "PKCE verification failed")
	}

	accessToken, err := s.tokens.IssueAccessToken(record.UserID, record.EventID, s.playerAudience)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.IssueRefreshToken(ctx, record.UserID, record.ClientID, record.Scope, record.EventID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("client_id", req.ClientID).Str("user_id", record.UserID).Msg("authorization code exchanged")

	return &oauth2.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		ExpiresIn:    int(s.tokens.AccessTokenTTL().Seconds()),
		RefreshToken: refreshToken.Token,
		Scope:        record.Scope,
	}, nil
}

// Refresh runs the refresh token grant: validate the presented token,
// rotate it when rotation is enabled, and mint a new access token.
func (s *Service) Refresh(ctx context.Context, req *oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	if err := validateRefresh(req); err != nil {
		return nil, err
	}

	rt, err := s.tokens.RedeemRefreshToken(ctx, req.RefreshToken, req.ClientID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.IssueAccessToken(rt.UserID, rt.EventID, s.playerAudience)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("client_id", req.ClientID).Str("user_id", rt.UserID).Msg("access token refreshed")

	return &oauth2.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		ExpiresIn:    int(s.tokens.AccessTokenTTL().Seconds()),
		RefreshToken: rt.Token,
		Scope:        rt.Scope,
	}, nil
}

// ServiceToken runs the client-credentials grant for backend callers.
// Only confidential clients with a matching secret receive a token; no
// refresh token is issued.
func (s *Service) ServiceToken(_ context.Context, req *oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	if err := validateClientCredentials(req); err != nil {
		return nil, err
	}

	client, err := s.registry.Get(req.ClientID)
	if err != nil {
		s.log.Warn().Str("client_id", req.ClientID).Msg("client credentials for unknown client")
		return nil, errors.Wrap(autherr.ErrInvalidGrant, "unknown client")
	}
	if client.IsPublic() {
		return nil, errors.Wrap(autherr.ErrInvalidGrant, "client credentials grant requires a confidential client")
	}
	if !client.CheckSecret(req.ClientSecret) {
		s.log.Warn().Str("client_id", req.ClientID).Msg("client secret mismatch")
		return nil, errors.Wrap(autherr.ErrInvalidGrant, "client secret mismatch")
	}

	serviceToken, err := s.tokens.IssueServiceToken(client.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("client_id", client.ID).Msg("service token issued")

	return &oauth2.TokenResponse{
		AccessToken: serviceToken,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokens.AccessTokenTTL().Seconds()),
	}, nil
}

// Revoke invalidates a refresh token (logout). Revoking an unknown or
// already-revoked token succeeds.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	return s.tokens.RevokeRefreshToken(ctx, refreshToken)
}

func generateCode() (string, error) {
	buf := make([]byte, codeGenerationLength)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "[generateCode] rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
