// Command api serves the identity HTTP API.
//
// @title                      Identity API
// @version                    1.0
// @description                Account registration, course ownership and token lifecycle for the education platform.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eduplatform/identity-api/internal/api"
	"github.com/eduplatform/identity-api/internal/core/service"
	"github.com/eduplatform/identity-api/internal/infrastructure/db"
	"github.com/eduplatform/identity-api/internal/pkg/config"
	"github.com/eduplatform/identity-api/internal/pkg/security"
	"github.com/eduplatform/identity-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{Service: "identity-api"})
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Service: "identity-api",
		Pretty:  !cfg.IsProduction(),
	})

	stores, err := db.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open stores")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := stores.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("failed to close stores")
		}
	}()

	hasher := security.NewHasher(security.HashParams{
		MemoryKiB:   cfg.Hash.MemoryKiB,
		Iterations:  cfg.Hash.Iterations,
		Parallelism: cfg.Hash.Parallelism,
	})
	signer := security.NewTokenSigner(cfg.JWTSecret, cfg.AccessTokenTTL)
	refresh := service.NewRefreshTokenService(stores.RefreshTokens, cfg.RefreshTokenTTL, logger.Component("refresh_tokens"))

	e := api.NewRouter(api.Dependencies{
		Registrar: service.NewAccountService(stores.Accounts, hasher, logger.Component("accounts")),
		Courses: service.NewCourseService(
			stores.Courses,
			service.NewCredentialLinker(stores.Accounts),
			logger.Component("courses"),
		),
		Auth: service.NewAuthService(
			stores.Accounts, hasher, signer, refresh, logger.Component("auth"),
			service.NewClaimsAugmenter(signer),
		),
		Tokens:       signer,
		Health:       stores.Health,
		CookieSecure: cfg.CookieSecure,
		Logger:       logger.Component("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("identity api listening")
		errCh <- e.Start(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
