package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uyirkavalan/uyirkavalan/internal/api/handler"
	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
	"github.com/uyirkavalan/uyirkavalan/internal/provider/resilience"
)

func systemStatus(t *testing.T, h *handler.OpsHandler) models.SystemStatus {
	t.Helper()
	w := httptest.NewRecorder()
	h.SystemStatus(w, httptest.NewRequest(http.MethodGet, "/v1/ops/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	return status
}

func TestSystemStatus_ReportsProviderKind(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.EmergencyClientConfig("twilio", zerolog.Nop())
	cfg.Kind = resilience.KindSMS
	cfg.Registry = registry
	_ = resilience.NewClient(cfg)

	status := systemStatus(t, handler.NewOpsHandler(handler.OpsConfig{Providers: registry}))

	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Providers, 1)
	assert.Equal(t, "twilio", status.Providers[0].Provider)
	assert.Equal(t, "sms", status.Providers[0].Kind)
	assert.True(t, status.Providers[0].Critical)
	assert.Empty(t, status.ActiveDegradationFlags)
}

func TestSystemStatus_CriticalProviderDownFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	cfg := resilience.EmergencyClientConfig("twilio", zerolog.Nop())
	cfg.Kind = resilience.KindSMS
	cfg.MaxRetries = 1
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = time.Millisecond
	cfg.Registry = registry
	sms := resilience.NewClient(cfg)

	for range 8 {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, server.URL, http.NoBody)
		require.NoError(t, err)
		if resp, err := sms.Do(req); err == nil {
			resp.Body.Close()
		}
		if sms.CircuitBreakerState() == gobreaker.StateOpen {
			break
		}
	}
	require.Equal(t, gobreaker.StateOpen, sms.CircuitBreakerState())

	status := systemStatus(t, handler.NewOpsHandler(handler.OpsConfig{Providers: registry}))

	assert.Equal(t, models.HealthStatusFail, status.Status)
	assert.Contains(t, status.ActiveDegradationFlags, "provider:twilio")
	require.Len(t, status.Providers, 1)
	assert.Equal(t, models.HealthStatusFail, status.Providers[0].Status)
	require.NotNil(t, status.Providers[0].Message)
}

func TestSystemStatus_FailingCheck(t *testing.T) {
	h := handler.NewOpsHandler(handler.OpsConfig{
		Checks: []handler.ReadinessCheck{
			{Name: "postgres", Check: func(context.Context) error { return nil }},
			{Name: "pubsub", Check: func(context.Context) error { return errors.New("topic missing") }},
		},
	})

	status := systemStatus(t, h)

	assert.Equal(t, models.HealthStatusFail, status.Status)
	require.Len(t, status.Subsystems, 2)
	assert.Equal(t, models.HealthStatusOK, status.Subsystems[0].Status)
	require.NotNil(t, status.Subsystems[1].Detail)
	assert.Equal(t, "topic missing", *status.Subsystems[1].Detail)
}

func TestReadinessCheck_Returns503OnFailure(t *testing.T) {
	h := handler.NewOpsHandler(handler.OpsConfig{
		Checks: []handler.ReadinessCheck{
			{Name: "postgres", Check: func(context.Context) error { return errors.New("refused") }},
		},
	})

	w := httptest.NewRecorder()
	h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/v1/ops/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
