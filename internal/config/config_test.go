package config_test

import (
	"testing"
	"time"

	"github.com/michaellperry/gamehub-identity/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "RS256", cfg.SigningAlg)
	require.Equal(t, "gamehub-players", cfg.PlayerAudience)
	require.Equal(t, "gamehub-services", cfg.ServiceAudience)
	require.Equal(t, 5*time.Minute, cfg.AuthCodeTTL)
	require.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 168*time.Hour, cfg.RefreshTokenTTL)
	require.True(t, cfg.RotateRefreshTokens)
	require.Equal(t, "gamehub_identity", cfg.CookieName)
}

func TestLoadHMACRequiresSecret(t *testing.T) {
	t.Setenv("GAMEHUB_SIGNING_ALG", "HS256")
	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("GAMEHUB_HMAC_SECRET", "long-shared-secret")
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, config.AlgHS256, cfg.SigningAlg)
}

func TestLoadRejectsUnknownAlgorithm(t *testing.T) {
	t.Setenv("GAMEHUB_SIGNING_ALG", "ES512")
	_, err := config.Load()
	require.Error(t, err)
}

func TestLoadRejectsNonPositiveTTL(t *testing.T) {
	t.Setenv("GAMEHUB_AUTH_CODE_TTL", "0s")
	_, err := config.Load()
	require.Error(t, err)
}

func TestAddr(t *testing.T) {
	cfg := &config.Config{Port: "9090"}
	require.Equal(t, ":9090", cfg.Addr())

	cfg.Port = ":9090"
	require.Equal(t, ":9090", cfg.Addr())
}

func TestIsDev(t *testing.T) {
	require.True(t, (&config.Config{Env: "dev"}).IsDev())
	require.True(t, (&config.Config{Env: "DEV"}).IsDev())
	require.False(t, (&config.Config{Env: "PROD"}).IsDev())
}
