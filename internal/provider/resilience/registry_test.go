package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uyirkavalan/uyirkavalan/internal/provider/resilience"
)

func TestRegistry_RegisterAndGetHealth(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("openweathermap")
	cfg.Kind = resilience.KindWeather
	cfg.Registry = registry

	client := resilience.NewClient(cfg)

	health := registry.GetHealth("openweathermap")
	require.NotNil(t, health)
	assert.Equal(t, "openweathermap", health.Name)
	assert.Equal(t, resilience.KindWeather, health.Kind)
	assert.False(t, health.Critical)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.True(t, health.IsHealthy())
	assert.Equal(t, "openweathermap", client.Name())
}

func TestRegistry_RecordSuccessAndFailure(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("tts")
	cfg.Registry = registry
	_ = resilience.NewClient(cfg)

	health := registry.GetHealth("tts")
	require.NotNil(t, health)
	assert.Nil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)

	registry.RecordSuccess("tts")
	registry.RecordFailure("tts", assert.AnError)

	health = registry.GetHealth("tts")
	require.NotNil(t, health.LastSuccessAt)
	require.NotNil(t, health.LastFailureAt)
	assert.WithinDuration(t, time.Now(), *health.LastFailureAt, time.Second)
	assert.Equal(t, assert.AnError.Error(), health.LastError)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	registry := resilience.NewRegistry()

	assert.Nil(t, registry.GetHealth("nonexistent"))
	assert.NotPanics(t, func() {
		registry.RecordSuccess("nonexistent")
		registry.RecordFailure("nonexistent", assert.AnError)
	})
}

func TestRegistry_GetAllHealthSortedByName(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, name := range []string{"twilio", "openweathermap", "tts"} {
		cfg := resilience.DefaultClientConfig(name)
		cfg.Registry = registry
		_ = resilience.NewClient(cfg)
	}

	all := registry.GetAllHealth()
	require.Len(t, all, 3)
	assert.Equal(t, "openweathermap", all[0].Name)
	assert.Equal(t, "tts", all[1].Name)
	assert.Equal(t, "twilio", all[2].Name)
}

func TestRegistry_CriticalDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()

	weatherCfg := resilience.DefaultClientConfig("openweathermap")
	weatherCfg.Registry = registry
	_ = resilience.NewClient(weatherCfg)

	smsCfg := resilience.EmergencyClientConfig("twilio", zerolog.Nop())
	smsCfg.Kind = resilience.KindSMS
	smsCfg.MaxRetries = 1
	smsCfg.InitialInterval = time.Millisecond
	smsCfg.MaxInterval = time.Millisecond
	smsCfg.Registry = registry
	sms := resilience.NewClient(smsCfg)

	assert.Empty(t, registry.CriticalDown())

	// Eight consecutive failures open the emergency breaker.
	for range 8 {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, server.URL, http.NoBody)
		require.NoError(t, err)
		resp, err := sms.Do(req)
		if err == nil {
			resp.Body.Close()
		}
		if sms.CircuitBreakerState() == gobreaker.StateOpen {
			break
		}
	}

	require.Equal(t, gobreaker.StateOpen, sms.CircuitBreakerState())
	assert.Equal(t, []string{"twilio"}, registry.CriticalDown())
	assert.True(t, registry.GetHealth("twilio").Critical)
}

func TestProviderHealth_States(t *testing.T) {
	tests := []struct {
		state      gobreaker.State
		isHealthy  bool
		isDegraded bool
		isUnhealth bool
	}{
		{gobreaker.StateClosed, true, false, false},
		{gobreaker.StateHalfOpen, false, true, false},
		{gobreaker.StateOpen, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			h := &resilience.ProviderHealth{CircuitState: tt.state}
			assert.Equal(t, tt.isHealthy, h.IsHealthy())
			assert.Equal(t, tt.isDegraded, h.IsDegraded())
			assert.Equal(t, tt.isUnhealth, h.IsUnhealthy())
		})
	}
}

func TestEmergencyCircuitBreakerConfig(t *testing.T) {
	cfg := resilience.EmergencyCircuitBreakerConfig("twilio")
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.False(t, cfg.ReadyToTrip(gobreaker.Counts{Requests: 10, TotalFailures: 7, ConsecutiveFailures: 7}))
	assert.True(t, cfg.ReadyToTrip(gobreaker.Counts{Requests: 8, TotalFailures: 8, ConsecutiveFailures: 8}))
}
