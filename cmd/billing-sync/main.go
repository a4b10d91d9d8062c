package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tenant-hub/tenant-hub-server/internal/billing"
	"github.com/tenant-hub/tenant-hub-server/internal/config"
	"github.com/tenant-hub/tenant-hub-server/internal/storage"
)

// One-shot billing catalog sync, intended for cron or manual runs.
func main() {
	var configFile string
	var timeout time.Duration
	flag.StringVar(&configFile, "config", "config/tenant-hub-server.yml", "Configuration file path")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Sync timeout")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	store, err := storage.NewPostgresStore(cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	tokens := billing.NewTokenSource(cfg.Billing)
	client := billing.NewClient(cfg.Billing, tokens)
	syncer := billing.NewSyncer(store, client)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := syncer.Sync(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Billing sync failed")
	}

	log.Info().
		Int("subscriptions", result.Subscriptions).
		Int("products", result.Products).
		Int("plans", result.Plans).
		Int("provisioned", result.Provisioned).
		Msg("Billing sync completed")
}
