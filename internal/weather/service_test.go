package weather_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uyirkavalan/uyirkavalan/internal/geo"
	"github.com/uyirkavalan/uyirkavalan/internal/risk"
	"github.com/uyirkavalan/uyirkavalan/internal/weather"
)

// mockProvider is a mock weather provider for testing.
type mockProvider struct {
	mu          sync.Mutex
	callCount   int
	observation *weather.Observation
	err         error
}

func newMockProvider() *mockProvider {
	return &mockProvider{}
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) GetCurrentWeather(_ context.Context, lat, lon float64) (*weather.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++

	if m.err != nil {
		return nil, m.err
	}

	if m.observation != nil {
		obs := *m.observation
		obs.Lat, obs.Lon = lat, lon
		return &obs, nil
	}

	// Return default observation
	return &weather.Observation{
		Lat:           lat,
		Lon:           lon,
		Temperature:   29.0,
		Humidity:      70.0,
		WindSpeed:     8.0,
		WindDirection: 180.0,
		Pressure:      1008.0,
		VisibilityKm:  10.0,
		Condition:     weather.ConditionClear,
		Description:   "clear sky",
		ObservedAt:    time.Now(),
		FetchedAt:     time.Now(),
	}, nil
}

func (m *mockProvider) GetForecast(_ context.Context, lat, lon float64) (*weather.Forecast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++

	if m.err != nil {
		return nil, m.err
	}

	return &weather.Forecast{
		Lat: lat,
		Lon: lon,
		Entries: []weather.ForecastEntry{
			{
				Time:          time.Now().Add(3 * time.Hour),
				Temperature:   30.0,
				WindSpeed:     14.0,
				WindDirection: 190.0,
				Condition:     weather.ConditionClouds,
			},
		},
		FetchedAt: time.Now(),
	}, nil
}

func (m *mockProvider) getCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *mockProvider) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *mockProvider) setObservation(obs *weather.Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observation = obs
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var chennai = geo.Point{Lat: 13.0827, Lon: 80.2707}

func TestService_Current(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 5 * time.Minute,
	})

	obs, err := service.Current(context.Background(), chennai.Lat, chennai.Lon)
	require.NoError(t, err)
	require.NotNil(t, obs)

	assert.Equal(t, chennai.Lat, obs.Lat)
	assert.Equal(t, chennai.Lon, obs.Lon)
	assert.Equal(t, 29.0, obs.Temperature)
	assert.Equal(t, weather.ConditionClear, obs.Condition)
}

func TestService_Current_Caching(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 5 * time.Minute,
	})

	_, err := service.Current(context.Background(), chennai.Lat, chennai.Lon)
	require.NoError(t, err)

	_, err = service.Current(context.Background(), chennai.Lat, chennai.Lon)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.getCallCount())
}

func TestService_Current_CacheGriding(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider:      provider,
		Logger:        zerolog.Nop(),
		CacheTTL:      5 * time.Minute,
		CacheGridSize: 0.1, // ~11km grid
	})

	// Two nearby points in same grid cell
	_, err := service.Current(context.Background(), 13.081, 80.271)
	require.NoError(t, err)

	_, err = service.Current(context.Background(), 13.085, 80.275)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.getCallCount())

	// Tuticorin is a different cell
	_, err = service.Current(context.Background(), 8.8, 78.13)
	require.NoError(t, err)

	assert.Equal(t, 2, provider.getCallCount())
}

func TestService_Current_InvalidCoordinates(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	tests := []struct {
		name string
		lat  float64
		lon  float64
	}{
		{"lat too high", 91.0, 80.27},
		{"lat too low", -91.0, 80.27},
		{"lon too high", 13.08, 181.0},
		{"lon too low", 13.08, -181.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Current(context.Background(), tt.lat, tt.lon)
			require.Error(t, err)
			assert.ErrorIs(t, err, weather.ErrInvalidCoordinates)
		})
	}
	assert.Equal(t, 0, provider.getCallCount())
}

func TestService_Current_ProviderError(t *testing.T) {
	provider := newMockProvider()
	provider.setError(errors.New("api error"))

	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	_, err := service.Current(context.Background(), chennai.Lat, chennai.Lon)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestService_Current_StaleOnError(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)}
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider:        provider,
		Logger:          zerolog.Nop(),
		CacheTTL:        10 * time.Minute,
		StaleIfErrorTTL: 1 * time.Hour,
		Now:             clock.Now,
	})

	obs1, err := service.Current(context.Background(), chennai.Lat, chennai.Lon)
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)
	provider.setError(errors.New("api error"))

	obs2, err := service.Current(context.Background(), chennai.Lat, chennai.Lon)
	require.NoError(t, err)
	assert.Same(t, obs1, obs2)
	assert.Equal(t, 2, provider.getCallCount())

	// Past the stale window the error surfaces.
	clock.Advance(time.Hour)
	_, err = service.Current(context.Background(), chennai.Lat, chennai.Lon)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestService_Forecast(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	forecast, err := service.Forecast(context.Background(), chennai.Lat, chennai.Lon)
	require.NoError(t, err)
	require.NotNil(t, forecast)

	assert.Equal(t, chennai.Lat, forecast.Lat)
	require.Len(t, forecast.Entries, 1)
	assert.Equal(t, 30.0, forecast.Entries[0].Temperature)
	assert.Equal(t, risk.SeaModerate, forecast.Entries[0].SeaCondition())
}

func TestService_RefreshBoat(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 19, 0, 30, 0, 0, time.UTC)}
	provider := newMockProvider()
	provider.setObservation(&weather.Observation{
		Temperature:   28,
		Humidity:      90,
		WindSpeed:     45,
		WindDirection: 60,
		Pressure:      990,
		VisibilityKm:  0.5,
		Condition:     weather.ConditionThunderstorm,
		Description:   "thunderstorm with heavy rain",
	})
	repo := weather.NewInMemoryRepository()
	service := weather.NewService(weather.ServiceConfig{
		Provider:  provider,
		Snapshots: repo,
		Logger:    zerolog.Nop(),
		Now:       clock.Now,
	})

	got, err := service.RefreshBoat(context.Background(), "TN01-AB123", chennai)
	require.NoError(t, err)

	assert.Equal(t, "TN01-AB123", got.Snapshot.Boat)
	assert.Equal(t, risk.SeaHigh, got.Snapshot.SeaCondition)
	assert.InDelta(t, 3.0, got.Snapshot.TideSpeed, 1e-9)
	assert.Equal(t, chennai, got.Snapshot.Location)

	require.NotNil(t, got.Assessment)
	assert.Equal(t, risk.LevelRed, got.Assessment.Level)
	assert.Equal(t, 270, got.Assessment.Score)
	assert.Equal(t, []string{
		"Extreme wind conditions",
		"Dangerous sea conditions",
		"Poor visibility",
	}, got.Assessment.Reasons)

	stored, err := service.BoatConditions(context.Background(), "TN01-AB123")
	require.NoError(t, err)
	assert.Equal(t, got.Snapshot.WindSpeed, stored.Snapshot.WindSpeed)

	latest, err := service.LatestAssessment(context.Background(), "TN01-AB123")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, risk.LevelRed, latest.Level)
}

func TestService_RefreshBoat_Overwrites(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	provider.setObservation(&weather.Observation{
		Temperature: 30, Humidity: 70, WindSpeed: 25, Pressure: 1005, VisibilityKm: 3,
	})
	_, err := service.RefreshBoat(context.Background(), "TN02-CD456", chennai)
	require.NoError(t, err)

	service.InvalidateCache()
	provider.setObservation(nil)
	_, err = service.RefreshBoat(context.Background(), "TN02-CD456", chennai)
	require.NoError(t, err)

	c, err := service.BoatConditions(context.Background(), "TN02-CD456")
	require.NoError(t, err)
	assert.Equal(t, 8.0, c.Snapshot.WindSpeed)
	assert.Equal(t, risk.LevelGreen, c.Assessment.Level)
}

func TestService_RefreshBoat_OutOfRange(t *testing.T) {
	provider := newMockProvider()
	provider.setObservation(&weather.Observation{
		Temperature: 30, Humidity: 70, WindSpeed: 10, Pressure: 0, VisibilityKm: 10,
	})
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	_, err := service.RefreshBoat(context.Background(), "TN01-AB123", chennai)
	var verr *weather.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "pressure", verr.Errors[0].Field)

	_, err = service.BoatConditions(context.Background(), "TN01-AB123")
	assert.ErrorIs(t, err, weather.ErrNoWeatherData)
}

func TestService_RefreshBoat_ProviderError(t *testing.T) {
	provider := newMockProvider()
	provider.setError(errors.New("api error"))
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	_, err := service.RefreshBoat(context.Background(), "TN01-AB123", chennai)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestService_LatestAssessment_NoData(t *testing.T) {
	service := weather.NewService(weather.ServiceConfig{
		Provider: newMockProvider(),
		Logger:   zerolog.Nop(),
	})

	a, err := service.LatestAssessment(context.Background(), "TN09-ZZ999")
	require.NoError(t, err)
	assert.Nil(t, a)

	_, err = service.BoatConditions(context.Background(), "TN09-ZZ999")
	assert.ErrorIs(t, err, weather.ErrNoWeatherData)
}

func TestService_InvalidateCache(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 5 * time.Minute,
	})

	_, err := service.Current(context.Background(), chennai.Lat, chennai.Lon)
	require.NoError(t, err)

	service.InvalidateCache()

	_, err = service.Current(context.Background(), chennai.Lat, chennai.Lon)
	require.NoError(t, err)

	assert.Equal(t, 2, provider.getCallCount())
}

func TestService_CacheStats(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 5 * time.Minute,
	})

	stats := service.CacheStats()
	assert.Equal(t, 0, stats.WeatherEntries)
	assert.Equal(t, "mock", stats.Provider)

	_, _ = service.Current(context.Background(), chennai.Lat, chennai.Lon)
	_, _ = service.Forecast(context.Background(), chennai.Lat, chennai.Lon)

	stats = service.CacheStats()
	assert.Equal(t, 1, stats.WeatherEntries)
	assert.Equal(t, 1, stats.ForecastEntries)
	assert.Equal(t, 1, stats.WeatherFreshEntries)
	assert.Equal(t, 1, stats.ForecastFreshEntries)
}

// recordingMetrics counts what the service reports.
type recordingMetrics struct {
	mu       sync.Mutex
	requests []string
	errors   int
	hits     int
	misses   int
}

func (m *recordingMetrics) RecordRequest(provider, operation string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, provider+"/"+operation)
	if err != nil {
		m.errors++
	}
}

func (m *recordingMetrics) RecordCacheHit(_, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits++
}

func (m *recordingMetrics) RecordCacheMiss(_, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses++
}

func TestService_RecordsProviderMetrics(t *testing.T) {
	provider := newMockProvider()
	metrics := &recordingMetrics{}
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 5 * time.Minute,
		Metrics:  metrics,
	})
	ctx := context.Background()

	_, err := service.Current(ctx, chennai.Lat, chennai.Lon)
	require.NoError(t, err)
	_, err = service.Current(ctx, chennai.Lat, chennai.Lon)
	require.NoError(t, err)
	_, err = service.Forecast(ctx, chennai.Lat, chennai.Lon)
	require.NoError(t, err)

	assert.Equal(t, []string{"mock/current", "mock/forecast"}, metrics.requests)
	assert.Equal(t, 0, metrics.errors)
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 2, metrics.misses)
}

// gatedProvider blocks every call until release is closed.
type gatedProvider struct {
	*mockProvider
	release chan struct{}
}

func (g *gatedProvider) GetCurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error) {
	<-g.release
	return g.mockProvider.GetCurrentWeather(ctx, lat, lon)
}

func TestService_Current_ConcurrentMissesShareOneCall(t *testing.T) {
	provider := &gatedProvider{mockProvider: newMockProvider(), release: make(chan struct{})}
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	var wg sync.WaitGroup
	results := make([]*weather.Observation, 10)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			obs, err := service.Current(context.Background(), chennai.Lat, chennai.Lon)
			assert.NoError(t, err)
			results[i] = obs
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(provider.release)
	wg.Wait()

	assert.Equal(t, 1, provider.getCallCount())
	for _, obs := range results {
		assert.Same(t, results[0], obs)
	}
}

func TestService_Current_ErrorWrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	provider := newMockProvider()
	provider.setError(cause)
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	_, err := service.Forecast(context.Background(), chennai.Lat, chennai.Lon)

	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestService_CacheStats_ExpiredEntriesAreNotFresh(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)}
	service := weather.NewService(weather.ServiceConfig{
		Provider: newMockProvider(),
		Logger:   zerolog.Nop(),
		CacheTTL: 10 * time.Minute,
		Now:      clock.Now,
	})

	_, err := service.Current(context.Background(), chennai.Lat, chennai.Lon)
	require.NoError(t, err)
	clock.Advance(11 * time.Minute)

	stats := service.CacheStats()
	assert.Equal(t, 1, stats.WeatherEntries)
	assert.Equal(t, 0, stats.WeatherFreshEntries)
}
