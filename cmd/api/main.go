// Package main provides the entrypoint for the Uyir Kavalan API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/alert"
	"github.com/uyirkavalan/uyirkavalan/internal/api"
	"github.com/uyirkavalan/uyirkavalan/internal/api/handler"
	"github.com/uyirkavalan/uyirkavalan/internal/api/middleware"
	"github.com/uyirkavalan/uyirkavalan/internal/auth"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/bus"
	"github.com/uyirkavalan/uyirkavalan/internal/chat"
	"github.com/uyirkavalan/uyirkavalan/internal/dispatch"
	"github.com/uyirkavalan/uyirkavalan/internal/navigation"
	"github.com/uyirkavalan/uyirkavalan/internal/notify"
	"github.com/uyirkavalan/uyirkavalan/internal/notify/smtp"
	"github.com/uyirkavalan/uyirkavalan/internal/notify/twilio"
	"github.com/uyirkavalan/uyirkavalan/internal/provider/resilience"
	"github.com/uyirkavalan/uyirkavalan/internal/sos"
	"github.com/uyirkavalan/uyirkavalan/internal/telemetry"
	"github.com/uyirkavalan/uyirkavalan/internal/voice"
	"github.com/uyirkavalan/uyirkavalan/internal/weather"
	"github.com/uyirkavalan/uyirkavalan/internal/weather/openweathermap"
	"github.com/uyirkavalan/uyirkavalan/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "uyirkavalan-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Uyir Kavalan API")

	port := getEnvOrDefault("APP_PORT", "8080")

	// Initialize OpenTelemetry
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)
	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryCfg.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}
	dispatchMetrics, err := dispatch.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize dispatch metrics")
	}

	// Storage
	st, err := openStores(ctx, os.Getenv("STORAGE"), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer st.close()

	// Every outbound provider reports into this registry for /v1/ops/status
	registry := resilience.NewRegistry()
	messageBus := bus.New(log)
	defer messageBus.Close()

	// Weather provider
	weatherKey := os.Getenv("OPENWEATHER_API_KEY")
	if weatherKey == "" {
		log.Warn().Msg("OPENWEATHER_API_KEY not set - weather requests will fail")
	}
	weatherClient := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     weatherKey,
		HTTPClient: resilientClient(resilience.DefaultClientConfig(openweathermap.ProviderName), resilience.KindWeather, registry),
		Logger:     log,
	})
	weatherService := weather.NewService(weather.ServiceConfig{
		Provider:  weatherClient,
		Snapshots: st.snapshots,
		Logger:    log,
		Metrics:   providerMetrics,
	})

	// Notification channels. Unconfigured channels fall back to logging.
	var sms notify.SMSSender
	if sid := os.Getenv("TWILIO_ACCOUNT_SID"); sid != "" {
		sms = twilio.NewClient(twilio.ClientConfig{
			AccountSID: sid,
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
			HTTPClient: resilientClient(resilience.EmergencyClientConfig(twilio.ProviderName, log), resilience.KindSMS, registry),
			Logger:     log,
		})
		log.Info().Msg("twilio SMS channel configured")
	} else {
		log.Warn().Msg("TWILIO_ACCOUNT_SID not set - SMS will be logged, not sent")
	}

	var email notify.EmailSender
	if host := os.Getenv("SMTP_HOST"); host != "" {
		smtpPort, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
		sender, err := smtp.NewSender(smtp.Config{
			Host:     host,
			Port:     smtpPort,
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     os.Getenv("SMTP_FROM"),
			Logger:   log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure SMTP")
		}
		email = sender
		log.Info().Str("host", host).Msg("SMTP email channel configured")
	} else {
		log.Warn().Msg("SMTP_HOST not set - email will be logged, not sent")
	}

	var synth voice.Synthesizer
	if endpoint := os.Getenv("VOICE_TTS_URL"); endpoint != "" {
		synth = voice.NewHTTPSynthesizer(voice.HTTPSynthesizerConfig{
			Endpoint:   endpoint,
			HTTPClient: resilientClient(resilience.DefaultClientConfig(voice.ProviderName), resilience.KindVoice, registry),
			Logger:     log,
		})
	} else {
		log.Warn().Msg("VOICE_TTS_URL not set - alerts will carry text only")
	}
	voiceCache := voice.NewCache(synth, log)

	dispatcher := dispatch.New(dispatch.Config{
		SMS:       sms,
		Email:     email,
		Inbox:     st.inbox,
		Audit:     st.audit,
		Directory: st.boats,
		Bus:       messageBus,
		Metrics:   dispatchMetrics,
		Logger:    log,
	})

	// Domain services
	boatService := boat.NewService(st.boats, log)
	chatService := chat.NewService(chat.ServiceConfig{
		Repo:      st.chat,
		Directory: st.boats,
		Link:      chat.NewSimulatedLink(chat.DefaultSimulatedLinkConfig()),
		Bus:       messageBus,
		Logger:    log,
	})
	sosService := sos.NewService(sos.ServiceConfig{
		Repo:      st.sos,
		Directory: st.boats,
		Notifier:  dispatcher,
		Audit:     st.audit,
		Logger:    log,
	})
	alertService := alert.NewService(alert.ServiceConfig{
		Repo:      st.alerts,
		Inbox:     st.inbox,
		Directory: st.boats,
		Notifier:  dispatcher,
		Voice:     voiceCache,
		Audit:     st.audit,
		Logger:    log,
	})
	navigationService := navigation.NewService(navigation.ServiceConfig{
		Ports:  st.ports,
		Tracks: st.tracks,
		Boats:  st.boats,
		Risk:   weatherService,
		Logger: log,
	})

	// Periodic weather and risk sweep. SWEEP_INTERVAL=0 leaves it to cmd/worker.
	sweep := worker.NewSweepJob(worker.SweepJobConfig{
		Config:    worker.SweepConfig{Concurrency: getEnvInt("SWEEP_CONCURRENCY", 0)},
		Boats:     st.boats,
		Refresher: weatherService,
		Bus:       messageBus,
		Logger:    log,
	})
	if interval := getEnvOrDefault("SWEEP_INTERVAL", "30m"); interval != "0" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			log.Fatal().Err(err).Str("value", interval).Msg("invalid SWEEP_INTERVAL")
		}
		scheduler := worker.NewScheduler(worker.SchedulerConfig{Interval: d, Logger: log})
		go scheduler.Run(ctx, func(ctx context.Context) {
			if _, err := sweep.Run(ctx); err != nil {
				log.Error().Err(err).Msg("weather sweep failed")
			}
		})
	}

	// Tokens are issued out of band; the API only validates them.
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	var previousKeys []string
	for _, k := range strings.Split(os.Getenv("JWT_PREVIOUS_KEYS"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			previousKeys = append(previousKeys, k)
		}
	}
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey:   jwtSigningKey,
		PreviousKeys: previousKeys,
		Issuer:       os.Getenv("JWT_ISSUER"),
		Audience:     os.Getenv("JWT_AUDIENCE"),
	})

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Ops: handler.OpsConfig{
			Version:   Version,
			BuildTime: BuildTime,
			Checks:    st.checks,
			Providers: registry,
			Weather:   weatherService,
			Sweep:     sweep,
		},
		Logger:            log,
		ServiceName:       serviceName,
		Metrics:           metrics,
		Tokens:            jwtService,
		Bus:               messageBus,
		RequireTLS:        os.Getenv("REQUIRE_TLS") == "true",
		BoatService:       boatService,
		ChatService:       chatService,
		SOSService:        sosService,
		AlertService:      alertService,
		NavigationService: navigationService,
		WeatherService:    weatherService,
	})

	// WriteTimeout stays unset: /v1/boats/{boatId}/events streams indefinitely.
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// resilientClient builds a provider client that reports to registry.
// SMS carries SOS fan-out, so it uses the emergency profile.
func resilientClient(cfg resilience.ClientConfig, kind resilience.Kind, registry *resilience.Registry) *resilience.Client {
	cfg.Kind = kind
	cfg.Registry = registry
	return resilience.NewClient(cfg)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return n
}
