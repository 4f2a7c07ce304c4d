// Command tokenpurge deletes refresh tokens that are past their validity and
// exits. Run it from cron or a scheduled job.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eduplatform/identity-api/internal/core/service"
	"github.com/eduplatform/identity-api/internal/infrastructure/db"
	"github.com/eduplatform/identity-api/internal/pkg/config"
	"github.com/eduplatform/identity-api/pkg/logger"
)

func main() {
	grace := flag.Duration("grace", 0, "keep tokens that expired less than this long ago")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{Service: "tokenpurge"})
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Service: "tokenpurge", Pretty: !cfg.IsProduction()})

	stores, err := db.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open stores")
	}

	refresh := service.NewRefreshTokenService(stores.RefreshTokens, cfg.RefreshTokenTTL, log)
	cutoff := time.Now().UTC().Add(-*grace)

	n, err := refresh.PurgeExpired(ctx, cutoff)
	closeErr := stores.Close(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("purge failed")
	}
	if closeErr != nil {
		log.Warn().Err(closeErr).Msg("failed to close stores")
	}

	log.Info().Int64("deleted", n).Time("cutoff", cutoff).Str("store", cfg.RefreshTokenStore).Msg("expired refresh tokens purged")
}
