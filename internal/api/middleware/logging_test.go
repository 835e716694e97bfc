package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/uyirkavalan/uyirkavalan/internal/api/middleware"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	h := middleware.Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/navigation/ports", http.NoBody)
	req.Header.Set("User-Agent", "uyirkavalan-boat/1.4")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entry := logLine(t, &buf)
	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/v1/navigation/ports", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, float64(11), entry["bytes"])
	assert.Equal(t, "uyirkavalan-boat/1.4", entry["user_agent"])
	assert.NotContains(t, entry, "boat_id")
	assert.NotContains(t, entry, "trace_id")
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		path   string
		status int
		level  string
	}{
		{"/v1/sos", http.StatusInternalServerError, "error"},
		{"/v1/sos", http.StatusBadRequest, "warn"},
		{"/v1/sos", http.StatusCreated, "info"},
		{"/v1/ops/health", http.StatusOK, "debug"},
		{"/v1/ops/ready", http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.path+" "+http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			h := middleware.Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, tt.path, http.NoBody))

			assert.Equal(t, tt.level, logLine(t, &buf)["level"])
		})
	}
}

func TestLogger_NamesAuthenticatedBoat(t *testing.T) {
	var buf bytes.Buffer
	svc := createTestJWTService()

	h := middleware.Logger(zerolog.New(&buf))(middleware.Auth(svc)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/v1/boats/TN01-AB123", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+issue(t, svc, "TN01-AB123", boat.RoleFisherman))
	h.ServeHTTP(httptest.NewRecorder(), req)

	entry := logLine(t, &buf)
	assert.Equal(t, "TN01-AB123", entry["boat_id"])
	assert.Equal(t, string(boat.RoleFisherman), entry["role"])
}

func TestLogger_RejectedTokenHasNoBoat(t *testing.T) {
	var buf bytes.Buffer
	h := middleware.Logger(zerolog.New(&buf))(middleware.Auth(createTestJWTService())(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/v1/boats/TN01-AB123", http.NoBody)
	req.Header.Set("Authorization", "Bearer not-a-token")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entry := logLine(t, &buf)
	assert.Equal(t, float64(http.StatusUnauthorized), entry["status"])
	assert.NotContains(t, entry, "boat_id")
}

func TestLogger_IncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := middleware.RequestID(middleware.Logger(zerolog.New(&buf))(okHandler()))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/sos/stats", http.NoBody))

	requestID, ok := logLine(t, &buf)["request_id"].(string)
	assert.True(t, ok)
	assert.Contains(t, requestID, "req_")
}

func TestLogger_IncludesTraceID(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var buf bytes.Buffer
	h := middleware.Tracing("test-service")(middleware.Logger(zerolog.New(&buf))(okHandler()))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/sos/stats", http.NoBody))

	entry := logLine(t, &buf)
	assert.Len(t, entry["trace_id"], 32)
	assert.Len(t, entry["span_id"], 16)
}
