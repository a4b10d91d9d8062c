package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tenant-hub/tenant-hub-server/internal/api"
	"github.com/tenant-hub/tenant-hub-server/internal/billing"
	"github.com/tenant-hub/tenant-hub-server/internal/config"
	"github.com/tenant-hub/tenant-hub-server/internal/deviceplatform"
	"github.com/tenant-hub/tenant-hub-server/internal/notify"
	"github.com/tenant-hub/tenant-hub-server/internal/provision"
	"github.com/tenant-hub/tenant-hub-server/internal/storage"
	"github.com/tenant-hub/tenant-hub-server/internal/tasks"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "config/tenant-hub-server.yml", "Configuration file path")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Connect to database
	store, err := storage.NewPostgresStore(cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	log.Info().Msg("Connected to database")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// WaitGroup for services
	var wg sync.WaitGroup

	// Optional: NATS bus for outbound notifications
	var notifier notify.Notifier = notify.Discard{}

	if cfg.NATS.URL != "" {
		log.Info().Str("url", cfg.NATS.URL).Msg("Connecting to NATS...")

		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name("tenant-hub-server"),
			nats.UserInfo(cfg.NATS.Username, cfg.NATS.Password),
			nats.ReconnectWait(cfg.NATS.ReconnectInterval),
			nats.MaxReconnects(cfg.NATS.MaxReconnects),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				log.Warn().Err(err).Msg("Disconnected from NATS")
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info().Msg("Reconnected to NATS")
			}),
			nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
				log.Error().
					Err(err).
					Str("subject", sub.Subject).
					Msg("NATS error")
			}),
		)

		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, notifications disabled")
		} else {
			defer nc.Close()
			log.Info().Msg("Connected to NATS")

			notifier = notify.NewNATSPublisher(nc)

			// Deliver queued notifications over SMTP
			mailer := notify.NewMailer(cfg.SMTP)
			subscriber := notify.NewSubscriber(nc, mailer)

			wg.Add(1)
			go func() {
				defer wg.Done()
				log.Info().Msg("Starting notification subscriber")
				if err := subscriber.Start(ctx); err != nil {
					log.Error().Err(err).Msg("Notification subscriber stopped")
				}
			}()
		}
	} else {
		log.Info().Msg("NATS not configured, notifications disabled")
	}

	// External platform clients
	devices := deviceplatform.NewClient(cfg.DevicePlatform.BaseURL, cfg.DevicePlatform.Timeout)

	tokens := billing.NewTokenSource(cfg.Billing)
	billingClient := billing.NewClient(cfg.Billing, tokens)
	syncer := billing.NewSyncer(store, billingClient)

	// Periodic billing catalog sync
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Dur("interval", cfg.Billing.SyncInterval).Msg("Starting billing sync loop")
		syncer.Run(ctx, cfg.Billing.SyncInterval)
	}()

	// Core services
	provisioner := provision.NewEngine(store, devices, notifier, cfg.DevicePlatform, cfg.Provisioning)
	taskSvc := tasks.NewService(store, notifier)

	// Start REST API server
	apiServer := api.NewRESTServer(cfg, store, devices, provisioner, taskSvc, syncer)

	wg.Add(1)
	go func() {
		defer wg.Done()
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		log.Info().Str("addr", addr).Msg("Starting REST API server")
		if err := apiServer.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("REST API server failed")
		}
	}()

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	// Cancel context
	cancel()

	// Shutdown API server
	if err := apiServer.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown API server gracefully")
	}

	// Wait for all services
	wg.Wait()

	log.Info().Msg("Tenant hub server stopped")
}
