// Package api provides the HTTP API for Uyir Kavalan.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/alert"
	"github.com/uyirkavalan/uyirkavalan/internal/api/handler"
	"github.com/uyirkavalan/uyirkavalan/internal/api/middleware"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/bus"
	"github.com/uyirkavalan/uyirkavalan/internal/chat"
	"github.com/uyirkavalan/uyirkavalan/internal/navigation"
	"github.com/uyirkavalan/uyirkavalan/internal/sos"
	"github.com/uyirkavalan/uyirkavalan/internal/weather"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Ops         handler.OpsConfig
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Tokens      middleware.TokenValidator
	Bus         bus.MessageBus
	RequireTLS  bool

	BoatService       *boat.Service
	ChatService       *chat.Service
	SOSService        *sos.Service
	AlertService      *alert.Service
	NavigationService *navigation.Service
	WeatherService    *weather.Service
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "uyirkavalan-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, no-store)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind the load balancer
	r.Use(middleware.ContentTypeJSON)            // JSON content type
	r.Use(middleware.RequireJSON)                // JSON request bodies only

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Ops)
	boatHandler := handler.NewBoatHandler(cfg.BoatService, cfg.Bus, cfg.Logger)
	chatHandler := handler.NewChatHandler(cfg.ChatService)
	sosHandler := handler.NewSOSHandler(cfg.SOSService)
	alertHandler := handler.NewAlertHandler(cfg.AlertService)
	navigationHandler := handler.NewNavigationHandler(cfg.NavigationService)
	weatherHandler := handler.NewWeatherHandler(cfg.WeatherService, cfg.BoatService, cfg.Bus)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.Tokens)
	admin := middleware.RequireRole(boat.RoleAdmin)
	responder := middleware.RequireRole(boat.RoleAdmin, boat.RoleAuthority)
	owner := middleware.RequireBoatOwner("boatId")

	// Create rate limit middleware for different endpoint categories
	sosRateLimit := middleware.RateLimitByBoat(middleware.SOSRateLimit)             // 10 req/min per boat
	expensiveRateLimit := middleware.RateLimitByBoat(middleware.ExpensiveRateLimit) // 30 req/min per boat
	standardRateLimit := middleware.RateLimitByBoat(middleware.StandardRateLimit)   // 100 req/min per boat

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.StandardRateLimit))
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Everything below is authenticated
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			// Boat directory
			r.Route("/boats/{boatId}", func(r chi.Router) {
				r.Use(standardRateLimit)
				r.With(owner).Get("/", boatHandler.GetBoat)
				r.With(admin).Put("/", boatHandler.UpsertBoat)
				r.With(admin).Post("/deactivate", boatHandler.DeactivateBoat)
				r.With(owner).Get("/events", boatHandler.StreamEvents)
			})

			// SOS has its own bucket so chat traffic never blocks a distress call
			r.Route("/sos", func(r chi.Router) {
				r.With(sosRateLimit).Post("/", sosHandler.CreateSOS)
				r.Group(func(r chi.Router) {
					r.Use(standardRateLimit)
					r.With(responder).Get("/active", sosHandler.ListActive)
					r.Get("/stats", sosHandler.Stats)
					r.With(owner).Get("/boats/{boatId}", sosHandler.ListForBoat)
					r.Get("/{caseId}", sosHandler.GetCase)
					r.Get("/{caseId}/attempts", sosHandler.ListAttempts)
					r.With(responder).Post("/{caseId}/resolve", sosHandler.Resolve)
				})
			})

			// Chat
			r.Route("/chat", func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Post("/messages", chatHandler.SendMessage)
				r.With(sosRateLimit).Post("/sos", chatHandler.SendSOS)
				r.With(expensiveRateLimit).Post("/broadcast", chatHandler.Broadcast)
				r.Get("/threads/{boatA}/{boatB}", chatHandler.GetHistory)
				r.Post("/threads/{threadId}/read", chatHandler.MarkRead)
				r.Get("/threads/{threadId}/unread", chatHandler.UnreadCount)
				r.Route("/boats/{boatId}", func(r chi.Router) {
					r.Use(owner)
					r.Get("/threads", chatHandler.ListThreads)
					r.Get("/backup", chatHandler.GetBackup)
					r.Delete("/backup", chatHandler.ClearBackup)
					r.Post("/backup/ack", chatHandler.AckBackup)
					r.Get("/link-status", chatHandler.LinkStatus)
					r.Get("/stats", chatHandler.Stats)
					r.Get("/unread-count", chatHandler.TotalUnread)
				})
			})

			// Broadcast alerts and boat inboxes
			r.Route("/alerts", func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Group(func(r chi.Router) {
					r.Use(admin)
					r.With(expensiveRateLimit).Post("/", alertHandler.CreateAlert)
					r.Get("/", alertHandler.ListAlerts)
					r.Get("/stats", alertHandler.Stats)
					r.Post("/{alertId}/deactivate", alertHandler.DeactivateAlert)
				})
				r.Route("/boats/{boatId}", func(r chi.Router) {
					r.Use(owner)
					r.Get("/", alertHandler.ListInbox)
					r.With(expensiveRateLimit).Post("/test-voice", alertHandler.TestVoice)
					r.Post("/{entryId}/acknowledge", alertHandler.Acknowledge)
					r.Post("/{entryId}/read", alertHandler.MarkRead)
				})
			})

			// Navigation
			r.Route("/navigation", func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Get("/ports", navigationHandler.ListPorts)
				r.With(admin).Post("/ports", navigationHandler.CreatePort)
				r.With(admin).Put("/ports/{portId}", navigationHandler.UpdatePort)
				r.With(admin).Post("/ports/{portId}/deactivate", navigationHandler.DeactivatePort)
				r.Get("/boats/locations", navigationHandler.ListBoatLocations)
				r.Route("/boats/{boatId}", func(r chi.Router) {
					r.Use(owner)
					r.Post("/location", navigationHandler.UpdateLocation)
					r.Get("/advisory", navigationHandler.GetAdvisory)
					r.Get("/history", navigationHandler.GetHistory)
				})
				r.Post("/route", navigationHandler.ComputeRoute)
				r.Post("/nearest-port", navigationHandler.NearestPort)
			})

			// Weather - provider backed, stricter limits
			r.Route("/weather", func(r chi.Router) {
				r.Use(expensiveRateLimit)
				r.Get("/current", weatherHandler.GetCurrent)
				r.Get("/forecast", weatherHandler.GetForecast)
				r.With(owner).Get("/boats/{boatId}", weatherHandler.GetBoatWeather)
				r.With(owner).Post("/boats/{boatId}/refresh", weatherHandler.RefreshBoatWeather)
			})
		})
	})

	return r
}
