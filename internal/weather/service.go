package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/geo"
	"github.com/uyirkavalan/uyirkavalan/internal/risk"
)

// Provider is an upstream source of marine weather.
type Provider interface {
	GetCurrentWeather(ctx context.Context, lat, lon float64) (*Observation, error)
	GetForecast(ctx context.Context, lat, lon float64) (*Forecast, error)
	Name() string
}

// ProviderRecorder receives upstream call and cache lookup metrics.
type ProviderRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

type nopRecorder struct{}

func (nopRecorder) RecordRequest(string, string, time.Duration, error) {}
func (nopRecorder) RecordCacheHit(string, string)                      {}
func (nopRecorder) RecordCacheMiss(string, string)                     {}

// ServiceConfig configures a Service. Only Provider is required.
type ServiceConfig struct {
	Provider  Provider
	Snapshots SnapshotRepository
	Logger    zerolog.Logger
	Metrics   ProviderRecorder

	// CacheTTL is how long a grid square's data is served without asking
	// the provider again. Defaults to 10 minutes.
	CacheTTL time.Duration

	// CacheGridSize is the grid square edge in degrees. Defaults to 0.1.
	CacheGridSize float64

	// StaleIfErrorTTL is how old cached data may be and still be served
	// while the provider is failing. Defaults to 1 hour.
	StaleIfErrorTTL time.Duration

	Now func() time.Time
}

// Service fetches weather through a per-grid-square cache and keeps each
// boat's latest scored snapshot.
type Service struct {
	provider  Provider
	snapshots SnapshotRepository
	logger    zerolog.Logger
	metrics   ProviderRecorder
	now       func() time.Time

	ttl      time.Duration
	gridSize float64
	staleFor time.Duration

	current   *gridCache[Observation]
	forecasts *gridCache[Forecast]

	pruneMu    sync.Mutex
	lastPrune  time.Time
	pruneEvery time.Duration
}

// NewService creates a Service, filling unset config with defaults.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		provider:   cfg.Provider,
		snapshots:  cfg.Snapshots,
		logger:     cfg.Logger.With().Str("component", "weather").Logger(),
		metrics:    cfg.Metrics,
		now:        cfg.Now,
		ttl:        cfg.CacheTTL,
		gridSize:   cfg.CacheGridSize,
		staleFor:   cfg.StaleIfErrorTTL,
		current:    newGridCache[Observation](),
		forecasts:  newGridCache[Forecast](),
		pruneEvery: 5 * time.Minute,
	}
	if s.snapshots == nil {
		s.snapshots = NewInMemoryRepository()
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ttl <= 0 {
		s.ttl = 10 * time.Minute
	}
	if s.gridSize <= 0 {
		s.gridSize = 0.1
	}
	if s.staleFor <= 0 {
		s.staleFor = time.Hour
	}
	return s
}

// Current returns current weather for a point, from cache when the grid
// square was fetched within the cache TTL.
func (s *Service) Current(ctx context.Context, lat, lon float64) (*Observation, error) {
	return lookup(ctx, s, s.current, "current", lat, lon, s.provider.GetCurrentWeather)
}

// Forecast returns the short-range forecast for a point.
func (s *Service) Forecast(ctx context.Context, lat, lon float64) (*Forecast, error) {
	return lookup(ctx, s, s.forecasts, "forecast", lat, lon, s.provider.GetForecast)
}

// lookup serves from c when fresh, otherwise asks the provider. A failing
// provider is masked with cached data up to staleFor old; beyond that the
// caller gets ErrProviderUnavailable wrapping the upstream error.
func lookup[T any](
	ctx context.Context,
	s *Service,
	c *gridCache[T],
	op string,
	lat, lon float64,
	fetch func(context.Context, float64, float64) (*T, error),
) (*T, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	key := cellKey(lat, lon, s.gridSize)
	name := s.provider.Name()

	if e, ok := c.get(key); ok && s.now().Sub(e.fetchedAt) < s.ttl {
		s.metrics.RecordCacheHit(name, op)
		return e.value, nil
	}
	s.metrics.RecordCacheMiss(name, op)

	v, err, _ := c.flight.Do(key, func() (any, error) {
		// Filled by a call that finished while this one was queued.
		if e, ok := c.get(key); ok && s.now().Sub(e.fetchedAt) < s.ttl {
			return e.value, nil
		}

		s.logger.Debug().
			Str("provider", name).
			Str("operation", op).
			Str("cell", key).
			Msg("cache miss, calling provider")

		start := time.Now()
		val, err := fetch(ctx, lat, lon)
		s.metrics.RecordRequest(name, op, time.Since(start), err)
		if err != nil {
			return nil, err
		}
		c.put(key, val, s.now())
		return val, nil
	})
	if err == nil {
		s.prune()
		return v.(*T), nil
	}

	if e, ok := c.get(key); ok {
		if age := s.now().Sub(e.fetchedAt); age <= s.staleFor {
			s.logger.Warn().Err(err).
				Str("operation", op).
				Str("cell", key).
				Dur("age", age).
				Msg("provider failing, serving stale weather")
			return e.value, nil
		}
	}

	s.logger.Error().Err(err).
		Str("operation", op).
		Float64("lat", lat).
		Float64("lon", lon).
		Msg("weather provider request failed")
	return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
}

// RefreshBoat fetches weather at the boat's position, scores it and replaces
// the boat's stored conditions.
func (s *Service) RefreshBoat(ctx context.Context, boatID string, at geo.Point) (*BoatConditions, error) {
	obs, err := s.Current(ctx, at.Lat, at.Lon)
	if err != nil {
		return nil, err
	}

	now := s.now()
	snap := NewSnapshot(boatID, at, obs, now)
	if errs := snap.Validate(); len(errs) > 0 {
		s.logger.Warn().
			Str("boat_id", boatID).
			Int("field_errors", len(errs)).
			Msg("rejecting out-of-range weather snapshot")
		return nil, &ValidationError{Errors: errs}
	}

	assessment := risk.Assess(snap.Conditions(), now)
	conditions := &BoatConditions{Snapshot: snap, Assessment: &assessment}
	if err := s.snapshots.Save(ctx, conditions); err != nil {
		return nil, fmt.Errorf("saving weather snapshot: %w", err)
	}

	s.logger.Debug().
		Str("boat_id", boatID).
		Str("risk_level", string(assessment.Level)).
		Int("risk_score", assessment.Score).
		Msg("boat weather refreshed")

	return conditions, nil
}

// BoatConditions returns the boat's latest snapshot and assessment.
func (s *Service) BoatConditions(ctx context.Context, boatID string) (*BoatConditions, error) {
	return s.snapshots.Get(ctx, boatID)
}

// LatestAssessment returns the boat's latest risk assessment, or nil if the
// boat has no snapshot yet.
func (s *Service) LatestAssessment(ctx context.Context, boatID string) (*risk.Assessment, error) {
	c, err := s.snapshots.Get(ctx, boatID)
	if errors.Is(err, ErrNoWeatherData) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c.Assessment, nil
}

// prune evicts entries too old to be served even as stale data. It runs at
// most once per pruneEvery.
func (s *Service) prune() {
	now := s.now()

	s.pruneMu.Lock()
	if now.Sub(s.lastPrune) < s.pruneEvery {
		s.pruneMu.Unlock()
		return
	}
	s.lastPrune = now
	s.pruneMu.Unlock()

	cutoff := now.Add(-s.staleFor)
	if n := s.current.prune(cutoff) + s.forecasts.prune(cutoff); n > 0 {
		s.logger.Debug().Int("evicted", n).Msg("pruned weather cache")
	}
}

// InvalidateCache drops all cached provider data.
func (s *Service) InvalidateCache() {
	s.current.reset()
	s.forecasts.reset()
}

// CacheStats reports cache occupancy for the ops status endpoint.
func (s *Service) CacheStats() CacheStats {
	freshAfter := s.now().Add(-s.ttl)
	wTotal, wFresh := s.current.count(freshAfter)
	fTotal, fFresh := s.forecasts.count(freshAfter)
	return CacheStats{
		WeatherEntries:       wTotal,
		WeatherFreshEntries:  wFresh,
		ForecastEntries:      fTotal,
		ForecastFreshEntries: fFresh,
		Provider:             s.provider.Name(),
	}
}

type CacheStats struct {
	WeatherEntries       int
	WeatherFreshEntries  int
	ForecastEntries      int
	ForecastFreshEntries int
	Provider             string
}

func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
