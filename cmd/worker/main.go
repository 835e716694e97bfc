// Package main provides the entrypoint for the Uyir Kavalan weather worker.
// It refreshes weather and risk for every active boat, either on its own
// schedule or when triggered over Pub/Sub.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/database"
	"github.com/uyirkavalan/uyirkavalan/internal/geo"
	"github.com/uyirkavalan/uyirkavalan/internal/provider/resilience"
	"github.com/uyirkavalan/uyirkavalan/internal/telemetry"
	"github.com/uyirkavalan/uyirkavalan/internal/weather"
	"github.com/uyirkavalan/uyirkavalan/internal/weather/openweathermap"
	"github.com/uyirkavalan/uyirkavalan/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "uyirkavalan-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().Str("build_time", BuildTime).Msg("starting Uyir Kavalan worker")

	// Worker also exposes health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.ConfigFromEnv(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	pool, err := database.Connect(ctx, database.ConfigFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	registry := resilience.NewRegistry()
	clientCfg := resilience.DefaultClientConfig(openweathermap.ProviderName)
	clientCfg.Kind = resilience.KindWeather
	clientCfg.Registry = registry
	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:     os.Getenv("OPENWEATHER_API_KEY"),
			HTTPClient: resilience.NewClient(clientCfg),
			Logger:     log,
		}),
		Snapshots: weather.NewPostgresRepository(pool),
		Logger:    log,
	})

	// The worker runs in its own process and has no live subscribers, so the
	// sweep publishes nothing.
	concurrency, _ := strconv.Atoi(os.Getenv("SWEEP_CONCURRENCY"))
	sweep := worker.NewSweepJob(worker.SweepJobConfig{
		Config:    worker.SweepConfig{Concurrency: concurrency},
		Boats:     boat.NewPostgresRepository(pool),
		Refresher: weatherService,
		Logger:    log,
	})
	jobs := worker.NewJobRunner(sweep, func(ctx context.Context, at geo.Point) error {
		_, err := weatherService.Current(ctx, at.Lat, at.Lon)
		return err
	}, log)

	// Create HTTP server for health checks
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // client went away
			"status":    "healthy",
			"version":   Version,
			"sweep":     sweep.MetricsSnapshot(),
			"providers": registry.GetAllHealth(),
		})
	})

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	// Start health check server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Pub/Sub triggers when a subscription is configured, otherwise a local schedule
	if projectID := os.Getenv("PUBSUB_PROJECT_ID"); projectID != "" {
		maxAge, err := time.ParseDuration(getEnvOrDefault("JOB_MAX_AGE", "1h"))
		if err != nil {
			log.Fatal().Err(err).Msg("invalid JOB_MAX_AGE")
		}
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: getEnvOrDefault("PUBSUB_SUBSCRIPTION", "uyirkavalan-worker-jobs"),
			Jobs:             jobs,
			Logger:           log,
			MaxAge:           maxAge,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer handler.Close() //nolint:errcheck // shutdown path

		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub receive stopped")
				cancel()
			}
		}()
	} else {
		interval, err := time.ParseDuration(getEnvOrDefault("SWEEP_INTERVAL", "30m"))
		if err != nil {
			log.Fatal().Err(err).Msg("invalid SWEEP_INTERVAL")
		}
		scheduler := worker.NewScheduler(worker.SchedulerConfig{
			Interval:       interval,
			RunImmediately: true,
			Logger:         log,
		})
		go scheduler.Run(ctx, func(ctx context.Context) {
			if err := jobs.Handle(ctx, worker.JobMessage{JobType: worker.JobWeatherSweep}); err != nil {
				log.Error().Err(err).Msg("scheduled sweep failed")
			}
		})
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
