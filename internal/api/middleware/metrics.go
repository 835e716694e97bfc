package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/uyirkavalan/uyirkavalan/internal/api/middleware"

// Metrics holds the HTTP server instruments.
type Metrics struct {
	requestDuration  metric.Float64Histogram
	requestsInFlight metric.Int64UpDownCounter
	responseSize     metric.Int64Histogram
	sosRequests      metric.Int64Counter
}

// NewMetrics registers the HTTP server instruments on the global meter.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestsInFlight, err := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of HTTP requests currently being served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	responseSize, err := meter.Int64Histogram(
		"http.server.response.body.size",
		metric.WithDescription("Size of HTTP response bodies"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	// Distress calls get their own counter so an alert on failed SOS
	// submissions does not depend on route-label cardinality settings.
	sosRequests, err := meter.Int64Counter(
		"uyirkavalan.sos.requests",
		metric.WithDescription("SOS submissions by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestDuration:  requestDuration,
		requestsInFlight: requestsInFlight,
		responseSize:     responseSize,
		sosRequests:      sosRequests,
	}, nil
}

// Middleware records duration, size and in-flight count per request,
// labelled by chi route pattern and status code.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			// The route is unknown until chi has routed, so in-flight is by method only.
			inFlight := metric.WithAttributes(attribute.String("http.request.method", r.Method))
			m.requestsInFlight.Add(ctx, 1, inFlight)
			defer m.requestsInFlight.Add(ctx, -1, inFlight)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			route := routeLabel(r)
			attrs := metric.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", wrapped.statusCode),
			)
			m.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
			m.responseSize.Record(ctx, wrapped.written, attrs)

			if r.Method == http.MethodPost && isSOSRoute(route) {
				m.sosRequests.Add(ctx, 1, metric.WithAttributes(
					attribute.String("http.route", route),
					attribute.String("outcome", outcome(wrapped.statusCode)),
				))
			}
		})
	}
}

// isSOSRoute matches the two distress endpoints. chi versions differ on
// whether a sub-router's "/" keeps its trailing slash in the pattern.
func isSOSRoute(route string) bool {
	route = strings.TrimSuffix(route, "/")
	return route == "/v1/sos" || route == "/v1/chat/sos"
}

func outcome(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "error"
	case status >= http.StatusBadRequest:
		return "rejected"
	default:
		return "accepted"
	}
}

// ProviderMetrics records outbound provider calls and the weather cache
// hit ratio. It satisfies weather.ProviderRecorder.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	cacheLookups    metric.Int64Counter
}

// NewProviderMetrics registers the provider instruments on the global meter.
func NewProviderMetrics() (*ProviderMetrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of provider requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"provider.cache.lookups",
		metric.WithDescription("Provider cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		requestDuration: requestDuration,
		cacheLookups:    cacheLookups,
	}, nil
}

func providerAttrs(provider, operation string, extra ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(append([]attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	}, extra...)...)
}

// RecordRequest records one provider call. The caller's context may already
// be cancelled when this runs, so a background context is used.
func (m *ProviderMetrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	m.requestDuration.Record(context.Background(), duration.Seconds(),
		providerAttrs(provider, operation, attribute.Bool("error", err != nil)))
}

func (m *ProviderMetrics) RecordCacheHit(provider, operation string) {
	m.cacheLookups.Add(context.Background(), 1, providerAttrs(provider, operation, attribute.String("result", "hit")))
}

func (m *ProviderMetrics) RecordCacheMiss(provider, operation string) {
	m.cacheLookups.Add(context.Background(), 1, providerAttrs(provider, operation, attribute.String("result", "miss")))
}
