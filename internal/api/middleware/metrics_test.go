package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/uyirkavalan/uyirkavalan/internal/api/middleware"
)

func setupTestMeter(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader, name string) (metricdata.Metrics, bool) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func sosRouter(t *testing.T, status int) http.Handler {
	t.Helper()
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Route("/v1/sos", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"caseId":"sos_1"}`))
		})
		r.Get("/{caseId}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func TestMetrics_RecordsDurationByRoutePattern(t *testing.T) {
	reader := setupTestMeter(t)
	h := sosRouter(t, http.StatusCreated)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/sos/sos_abc", http.NoBody))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/sos/sos_def", http.NoBody))

	m, ok := collect(t, reader, "http.server.request.duration")
	require.True(t, ok)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)

	dp := hist.DataPoints[0]
	assert.Equal(t, uint64(2), dp.Count)
	route, ok := dp.Attributes.Value(attribute.Key("http.route"))
	require.True(t, ok)
	assert.Equal(t, "/v1/sos/{caseId}", route.AsString())
}

func TestMetrics_CountsSOSOutcomes(t *testing.T) {
	tests := []struct {
		status  int
		outcome string
	}{
		{http.StatusCreated, "accepted"},
		{http.StatusBadRequest, "rejected"},
		{http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			reader := setupTestMeter(t)
			h := sosRouter(t, tt.status)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sos/", strings.NewReader(`{}`)))
			require.Equal(t, tt.status, rec.Code)

			m, ok := collect(t, reader, "uyirkavalan.sos.requests")
			require.True(t, ok)
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			assert.Equal(t, int64(1), sum.DataPoints[0].Value)
			got, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("outcome"))
			require.True(t, ok)
			assert.Equal(t, tt.outcome, got.AsString())
		})
	}
}

func TestMetrics_PassesResponseThrough(t *testing.T) {
	setupTestMeter(t)
	h := sosRouter(t, http.StatusCreated)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sos/", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"caseId":"sos_1"}`, rec.Body.String())
}

func TestProviderMetrics_RecordsCacheLookups(t *testing.T) {
	reader := setupTestMeter(t)
	pm, err := middleware.NewProviderMetrics()
	require.NoError(t, err)

	pm.RecordCacheHit("openweathermap", "current")
	pm.RecordCacheHit("openweathermap", "current")
	pm.RecordCacheMiss("openweathermap", "current")
	pm.RecordRequest("openweathermap", "current", 120*time.Millisecond, errors.New("timeout"))

	m, ok := collect(t, reader, "provider.cache.lookups")
	require.True(t, ok)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byResult := map[string]int64{}
	for _, dp := range sum.DataPoints {
		result, _ := dp.Attributes.Value(attribute.Key("result"))
		byResult[result.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"hit": 2, "miss": 1}, byResult)

	_, ok = collect(t, reader, "provider.request.duration")
	assert.True(t, ok)
}
