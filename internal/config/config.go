// Package config loads provider configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Signing algorithm names accepted by SigningAlg.
const (
	AlgRS256 = "RS256"
	AlgHS256 = "HS256"
)

// Config holds every tunable of the identity provider. Values come from
// GAMEHUB_* environment variables with defaults suitable for local
// development (except secrets, which must be provided explicitly when
// HMAC signing is selected).
type Config struct {
	AppName string `env:"GAMEHUB_APP_NAME" envDefault:"GameHub Identity"`
	Env     string `env:"GAMEHUB_ENV" envDefault:"DEV"`
	Port    string `env:"GAMEHUB_PORT" envDefault:"8080"`

	// Issuer is the external base URL of this provider. It is embedded
	// in every token's iss claim and in the discovery document.
	Issuer string `env:"GAMEHUB_ISSUER" envDefault:"http://localhost:8080"`

	// Audiences. Player tokens and service tokens are verified against
	// different audiences so a service token can never pass a player
	// resource check and vice versa.
	PlayerAudience  string `env:"GAMEHUB_PLAYER_AUDIENCE" envDefault:"gamehub-players"`
	ServiceAudience string `env:"GAMEHUB_SERVICE_AUDIENCE" envDefault:"gamehub-services"`

	AuthCodeTTL     time.Duration `env:"GAMEHUB_AUTH_CODE_TTL" envDefault:"5m"`
	AccessTokenTTL  time.Duration `env:"GAMEHUB_ACCESS_TOKEN_TTL" envDefault:"30m"`
	RefreshTokenTTL time.Duration `env:"GAMEHUB_REFRESH_TOKEN_TTL" envDefault:"168h"`

	// RotateRefreshTokens controls whether redeeming a refresh token
	// revokes it and issues a replacement. When false the presented
	// token stays valid and is re-validated on each use.
	RotateRefreshTokens bool `env:"GAMEHUB_ROTATE_REFRESH_TOKENS" envDefault:"true"`

	// SigningAlg selects the token signature scheme: RS256 (default,
	// public keys served via JWKS) or HS256 (shared secret).
	SigningAlg    string `env:"GAMEHUB_SIGNING_ALG" envDefault:"RS256"`
	SigningKeyID  string `env:"GAMEHUB_SIGNING_KEY_ID" envDefault:"gamehub-key-1"`
	HMACSecret    string `env:"GAMEHUB_HMAC_SECRET"`
	SigningKeyPEM string `env:"GAMEHUB_SIGNING_KEY_PEM"`

	// CookieName is the identity cookie set on the authorize endpoint.
	CookieName   string `env:"GAMEHUB_COOKIE_NAME" envDefault:"gamehub_identity"`
	CookieSecure bool   `env:"GAMEHUB_COOKIE_SECURE" envDefault:"true"`

	DatabasePath string `env:"GAMEHUB_DATABASE_PATH" envDefault:"./data/identity.db"`

	// ClientsFile points at the JSON registry of pre-provisioned OAuth2
	// clients. Empty means no clients beyond what tests register.
	ClientsFile string `env:"GAMEHUB_CLIENTS_FILE"`
}

// Load parses configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.SigningAlg {
	case AlgRS256:
	case AlgHS256:
		if strings.TrimSpace(c.HMACSecret) == "" {
			return fmt.Errorf("config.Validate: GAMEHUB_HMAC_SECRET is required when GAMEHUB_SIGNING_ALG=HS256")
		}
	default:
		return fmt.Errorf("config.Validate: unsupported signing algorithm %q", c.SigningAlg)
	}
	if c.AuthCodeTTL <= 0 || c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("config.Validate: all TTLs must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// IsDev reports whether the provider runs in the development environment.
func (c *Config) IsDev() bool {
	return strings.EqualFold(c.Env, "DEV")
}
