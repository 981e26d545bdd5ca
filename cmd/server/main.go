package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/michaellperry/gamehub-identity/authflow"
	"github.com/michaellperry/gamehub-identity/clients"
	"github.com/michaellperry/gamehub-identity/gap"
	"github.com/michaellperry/gamehub-identity/identity"
	"github.com/michaellperry/gamehub-identity/internal/config"
	"github.com/michaellperry/gamehub-identity/server"
	"github.com/michaellperry/gamehub-identity/storage/sqlite"
	"github.com/michaellperry/gamehub-identity/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func run() error {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	displayAppName(cfg.AppName)

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return err
	}
	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	signer, err := newSigner(cfg, logger)
	if err != nil {
		return err
	}

	tokens, err := token.New(signer, store.RefreshTokens(), cfg.Issuer,
		token.WithTokenExpiry(cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		token.WithRotation(cfg.RotateRefreshTokens),
		token.WithServiceAudience(cfg.ServiceAudience),
		token.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	cookies, err := identity.NewCookieManager(store.Users(), store.Cookies())
	if err != nil {
		return err
	}

	gaps, err := gap.NewEngine(store.GAPs())
	if err != nil {
		return err
	}

	registry, err := loadClients(cfg, logger)
	if err != nil {
		return err
	}

	flow, err := authflow.NewService(cookies, gaps, store.Codes(), registry, tokens,
		authflow.WithCodeTTL(cfg.AuthCodeTTL),
		authflow.WithPlayerAudience(cfg.PlayerAudience),
		authflow.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, flow, gaps, tokens, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("listen failed")
		}
	}()

	waitForStopSignal()
	return shutdown(httpServer)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// newSigner builds the configured signer. RS256 key material comes from
// GAMEHUB_SIGNING_KEY_PEM; in development a fresh key pair is generated
// when none is supplied, which invalidates outstanding tokens across
// restarts.
func newSigner(cfg *config.Config, logger zerolog.Logger) (token.Signer, error) {
	if cfg.SigningAlg == config.AlgHS256 {
		return token.NewHMACSigner(cfg.SigningKeyID, cfg.HMACSecret), nil
	}

	if cfg.SigningKeyPEM != "" {
		keyPair, err := token.LoadRSAKeyPairFromPEM(cfg.SigningKeyID, cfg.SigningKeyPEM)
		if err != nil {
			return nil, err
		}
		return token.NewKeyPairSigner(keyPair), nil
	}

	if !cfg.IsDev() {
		return nil, fmt.Errorf("GAMEHUB_SIGNING_KEY_PEM is required outside development")
	}
	logger.Warn().Msg("generating ephemeral RSA signing key; tokens will not survive a restart")
	keyPair, err := token.GenerateRSAKeyPair(cfg.SigningKeyID, 2048)
	if err != nil {
		return nil, err
	}
	return token.NewKeyPairSigner(keyPair), nil
}

func loadClients(cfg *config.Config, logger zerolog.Logger) (*clients.Registry, error) {
	if cfg.ClientsFile == "" {
		logger.Warn().Msg("no clients file configured; no OAuth2 clients are provisioned")
		return clients.NewRegistry(), nil
	}
	return clients.LoadRegistry(cfg.ClientsFile)
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

func displayAppName(appName string) {
	myFigure := figure.NewFigure(appName, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
