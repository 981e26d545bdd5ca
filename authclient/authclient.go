// Package authclient is the backend caller's side of the identity
// provider: obtaining service tokens with pre-provisioned client
// credentials and verifying presented access tokens against the
// provider's published keys.
package authclient

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ServiceTokenSource returns an oauth2.TokenSource that mints service
// tokens from the provider's token endpoint via the client-credentials
// grant. Tokens are cached and renewed transparently.
func ServiceTokenSource(ctx context.Context, issuer, clientID, clientSecret string) oauth2.TokenSource {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     issuer + "/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return cfg.TokenSource(ctx)
}

// Verifier validates access tokens issued by the provider using its
// discovery document and JWKS, so resource servers never need the
// signing key material itself.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the provider at issuer and prepares a verifier
// for tokens minted for the given audience.
func NewVerifier(ctx context.Context, issuer, audience string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, errors.Wrap(err, "[NewVerifier] provider discovery")
	}
	return &Verifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: audience}),
	}, nil
}

// Claims is the verified view of a presented access token.
type Claims struct {
	Subject string `json:"sub"`
	EventID string `json:"event_id"`
}

// Verify checks signature, issuer, audience, and expiry of a raw token
// and returns its claims.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	verified, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Verifier.Verify] token rejected")
	}

	var claims Claims
	if err := verified.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[Verifier.Verify] claims decode")
	}
	if claims.Subject == "" {
		return nil, errors.New("[Verifier.Verify] token missing subject")
	}
	return &claims, nil
}
