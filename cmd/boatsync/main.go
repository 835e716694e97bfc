// Package main provides the on-board sync agent. It runs on the boat's
// gateway and copies the boat's queued messages and alerts into a local
// SQLite file whenever the API is reachable.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/boatsync"
	"github.com/uyirkavalan/uyirkavalan/internal/provider/resilience"
	"github.com/uyirkavalan/uyirkavalan/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "uyirkavalan-boatsync"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	apiURL := os.Getenv("BOATSYNC_API_URL")
	token := os.Getenv("BOATSYNC_TOKEN")
	boatID := os.Getenv("BOATSYNC_BOAT")
	if apiURL == "" || token == "" || boatID == "" {
		log.Fatal().Msg("BOATSYNC_API_URL, BOATSYNC_TOKEN and BOATSYNC_BOAT are required")
	}

	interval, err := time.ParseDuration(getEnvOrDefault("BOATSYNC_INTERVAL", "2m"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid BOATSYNC_INTERVAL")
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("boat_id", boatID).
		Dur("interval", interval).
		Msg("starting Uyir Kavalan boat sync")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := boatsync.Open(ctx, getEnvOrDefault("BOATSYNC_DB", "uyirkavalan-boat.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open local store")
	}
	defer store.Close() //nolint:errcheck // shutdown path

	// The link drops often at sea. Fewer retries and a short timeout let the
	// next tick try again instead of blocking on a dead connection.
	clientCfg := resilience.DefaultClientConfig(boatsync.ProviderName)
	clientCfg.Timeout = 20 * time.Second
	clientCfg.MaxRetries = 2
	clientCfg.Kind = resilience.KindAPI

	syncer := boatsync.NewSyncer(boatsync.SyncerConfig{
		Boat: boatID,
		Server: boatsync.NewClient(boatsync.ClientConfig{
			BaseURL:    apiURL,
			Token:      token,
			HTTPClient: resilience.NewClient(clientCfg),
			Logger:     log,
		}),
		Store:  store,
		Logger: log,
	})

	scheduler := worker.NewScheduler(worker.SchedulerConfig{
		Interval:       interval,
		RunImmediately: true,
		Logger:         log,
	})
	scheduler.Run(ctx, func(ctx context.Context) {
		// Failures are logged and recorded in the store; the next tick retries.
		_, _ = syncer.Run(ctx)
	})

	log.Info().Msg("boat sync stopped")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
