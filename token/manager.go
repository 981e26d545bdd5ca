// Package token mints and validates signed access tokens and manages
// the lifecycle of opaque, rotating refresh tokens.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/michaellperry/gamehub-identity/internal/autherr"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const refreshTokenBytes = 32 // 256 bits

// Manager is the token service: stateless signed access tokens on one
// side, stateful refresh tokens on the other.
type Manager struct {
	signer             Signer
	refreshRepo        RefreshTokenRepo
	issuer             string
	serviceAudience    string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	rotateRefresh      bool
	nowFunc            func() time.Time
	log                zerolog.Logger
}

// ManagerOption modifies a Manager instance.
type ManagerOption func(*Manager)

// WithTokenExpiry sets access and refresh token lifetimes.
func WithTokenExpiry(accessTokenExpiry, refreshTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
		m.refreshTokenExpiry = refreshTokenExpiry
	}
}

// WithNowFunc sets the now time function (primarily for testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithRotation toggles refresh token rotation. When disabled a redeemed
// token stays valid and is simply re-validated.
func WithRotation(rotate bool) ManagerOption {
	return func(m *Manager) {
		m.rotateRefresh = rotate
	}
}

// WithServiceAudience sets the audience stamped on service tokens.
func WithServiceAudience(audience string) ManagerOption {
	return func(m *Manager) {
		m.serviceAudience = audience
	}
}

// WithLogger sets the structured logger used for internal failure detail.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// New initializes a Manager with required dependencies.
func New(signer Signer, refreshRepo RefreshTokenRepo, issuer string, options ...ManagerOption) (*Manager, error) {
	if signer == nil {
		return nil, errors.New("[token.New] signer is required")
	}
	if refreshRepo == nil {
		return nil, errors.New("[token.New] refresh token repo is required")
	}
	if issuer == "" {
		return nil, errors.New("[token.New] issuer is required")
	}

	m := &Manager{
		signer:             signer,
		refreshRepo:        refreshRepo,
		issuer:             issuer,
		serviceAudience:    "gamehub-services",
		accessTokenExpiry:  30 * time.Minute,
		refreshTokenExpiry: 7 * 24 * time.Hour,
		rotateRefresh:      true,
		nowFunc:            time.Now,
		log:                zerolog.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// AccessTokenTTL returns the configured access token lifetime, used for
// the expires_in hint in token responses.
func (m *Manager) AccessTokenTTL() time.Duration {
	return m.accessTokenExpiry
}

// IssueAccessToken mints a signed access token for a user within an
// event, addressed to the given audience.
func (m *Manager) IssueAccessToken(userID, eventID, audience string) (string, error) {
	if userID == "" {
		return "", errors.Wrap(autherr.ErrSigning, "[Manager.IssueAccessToken] user id is required")
	}
	now := m.nowFunc()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenExpiry)),
			ID:        uuid.New().String(),
		},
		EventID: eventID,
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		m.log.Error().Err(err).Str("kid", m.signer.KeyID()).Msg("access token signing failed")
		return "", errors.Wrap(autherr.ErrSigning, err.Error())
	}
	return signed, nil
}

// IssueServiceToken mints a signed token for a backend service caller.
// Service tokens carry the service audience, no event binding, and are
// never paired with a refresh token.
func (m *Manager) IssueServiceToken(clientID string) (string, error) {
	if clientID == "" {
		return "", errors.Wrap(autherr.ErrSigning, "[Manager.IssueServiceToken] client id is required")
	}
	now := m.nowFunc()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   clientID,
			Audience:  jwt.ClaimStrings{m.serviceAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenExpiry)),
			ID:        uuid.New().String(),
		},
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		m.log.Error().Err(err).Str("kid", m.signer.KeyID()).Msg("service token signing failed")
		return "", errors.Wrap(autherr.ErrSigning, err.Error())
	}
	return signed, nil
}

// VerifyAccessToken parses and validates a signed access token. The
// accepted algorithm is pinned to the active signer's, so tokens signed
// with a different (or "none") algorithm are rejected outright. All
// failures map to the generic invalid-grant category; the precise reason
// stays in the wrapped message for logging.
func (m *Manager) VerifyAccessToken(rawToken string) (*AccessClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.nowFunc),
	)

	claims := &AccessClaims{}
	parsed, err := parser.ParseWithClaims(rawToken, claims, m.signer.GetVerificationKey)
	if err != nil {
		m.log.Debug().Err(err).Msg("access token rejected")
		return nil, errors.Wrap(autherr.ErrInvalidGrant, err.Error())
	}
	if !parsed.Valid {
		return nil, errors.Wrap(autherr.ErrInvalidGrant, "token marked invalid by parser")
	}
	if err := claims.validate(); err != nil {
		m.log.Debug().Err(err).Msg("access token claims incomplete")
		return nil, errors.Wrap(autherr.ErrInvalidGrant, err.Error())
	}
	return claims, nil
}

// VerifyAccessTokenForAudience validates a token and additionally checks
// it was minted for the expected audience.
func (m *Manager) VerifyAccessTokenForAudience(rawToken, audience string) (*AccessClaims, error) {
	claims, err := m.VerifyAccessToken(rawToken)
	if err != nil {
		return nil, err
	}
	if !claims.HasAudience(audience) {
		m.log.Debug().Str("want", audience).Msg("access token audience mismatch")
		return nil, errors.Wrap(autherr.ErrInvalidGrant, "audience mismatch")
	}
	return claims, nil
}

// IssueRefreshToken generates a high-entropy opaque refresh token and
// persists it with the computed expiry.
func (m *Manager) IssueRefreshToken(ctx context.Context, userID, clientID, scope, eventID string) (*RefreshToken, error) {
	rt, err := m.newRefreshToken(userID, clientID, scope, eventID)
	if err != nil {
		return nil, err
	}
	if err := m.refreshRepo.Insert(ctx, rt); err != nil {
		return nil, errors.Wrap(autherr.ErrStore, err.Error())
	}
	return rt, nil
}

// RedeemRefreshToken validates a presented refresh token and, when
// rotation is enabled, atomically revokes it and returns a replacement
// bound to the same user, client, scope, and event. Exactly one of any
// set of concurrent redemptions of the same token succeeds. clientID is
// mandatory and checked before rotation so a mismatched client cannot
// burn someone else's token.
func (m *Manager) RedeemRefreshToken(ctx context.Context, presented, clientID string) (*RefreshToken, error) {
	if clientID == "" {
		return nil, errors.Wrap(autherr.ErrInvalidGrant, "client id is required to redeem a refresh token")
	}

	rt, err := m.refreshRepo.Get(ctx, presented)
	if err != nil {
		m.log.Warn().Err(err).Msg("refresh token lookup failed")
		return nil, errors.Wrap(autherr.ErrInvalidGrant, "unknown refresh token")
	}

	now := m.nowFunc()
	if rt.ClientID != clientID {
		m.log.Warn().Str("user_id", rt.UserID).Msg("refresh token client mismatch")
		return nil, errors.Wrap(autherr.ErrInvalidGrant, "refresh token client mismatch")
	}
	if rt.Revoked {
		m.log.Warn().Str("user_id", rt.UserID).Msg("revoked refresh token presented")
		return nil, errors.Wrap(autherr.ErrInvalidGrant, "refresh token revoked")
	}
	if !now.Before(rt.ExpiresAt) {
		m.log.Debug().Str("user_id", rt.UserID).Time("expired_at", rt.ExpiresAt).Msg("expired refresh token presented")
		return nil, errors.Wrap(autherr.ErrInvalidGrant, "refresh token expired")
	}

	if !m.rotateRefresh {
		return rt, nil
	}

	replacement, err := m.newRefreshToken(rt.UserID, rt.ClientID, rt.Scope, rt.EventID)
	if err != nil {
		return nil, err
	}
	if err := m.refreshRepo.Rotate(ctx, rt.Token, replacement, now); err != nil {
		m.log.Warn().Err(err).Str("user_id", rt.UserID).Msg("refresh token rotation lost race")
		return nil, errors.Wrap(autherr.ErrInvalidGrant, "refresh token no longer active")
	}
	return replacement, nil
}

// RevokeRefreshToken marks a refresh token revoked. Idempotent: revoking
// an already-revoked or unknown token is a no-op.
func (m *Manager) RevokeRefreshToken(ctx context.Context, presented string) error {
	if err := m.refreshRepo.Revoke(ctx, presented); err != nil {
		return errors.Wrap(autherr.ErrStore, err.Error())
	}
	return nil
}

// JWKS returns the public key set when the active signer is asymmetric.
func (m *Manager) JWKS() (*JWKS, error) {
	keyPairSigner, ok := m.signer.(*KeyPairSigner)
	if !ok {
		return nil, errors.New("JWKS only supported for asymmetric signing")
	}
	return keyPairSigner.GetJWKS()
}

func (m *Manager) newRefreshToken(userID, clientID, scope, eventID string) (*RefreshToken, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, errors.Wrap(err, "[Manager.newRefreshToken] rand.Read")
	}
	now := m.nowFunc()
	return &RefreshToken{
		Token:     hex.EncodeToString(buf),
		UserID:    userID,
		ClientID:  clientID,
		Scope:     scope,
		EventID:   eventID,
		ExpiresAt: now.Add(m.refreshTokenExpiry),
		CreatedAt: now,
	}, nil
}
