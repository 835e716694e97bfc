package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uyirkavalan/uyirkavalan/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "uyirkavalan-api",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4317",
	})

	require.NoError(t, err)
	assert.False(t, provider.Enabled())
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_ZeroValueShutdown(t *testing.T) {
	var provider telemetry.Provider
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "APP_ENV",
		"OTEL_TRACES_SAMPLE_RATIO", "OTEL_METRIC_EXPORT_INTERVAL", "HARBOUR",
	} {
		t.Setenv(key, "")
	}

	cfg := telemetry.ConfigFromEnv("uyirkavalan-api", "1.2.0")

	assert.Equal(t, "uyirkavalan-api", cfg.ServiceName)
	assert.Equal(t, "1.2.0", cfg.ServiceVersion)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.False(t, cfg.Enabled)
	assert.Zero(t, cfg.SampleRatio)
	assert.Equal(t, 15*time.Second, cfg.MetricInterval)
	assert.Empty(t, cfg.Harbour)
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317")
	t.Setenv("APP_ENV", "production")
	t.Setenv("OTEL_TRACES_SAMPLE_RATIO", "0.25")
	t.Setenv("OTEL_METRIC_EXPORT_INTERVAL", "60000")
	t.Setenv("HARBOUR", "kasimedu")

	cfg := telemetry.ConfigFromEnv("uyirkavalan-worker", "dev")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "otel-collector:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 0.25, cfg.SampleRatio)
	assert.Equal(t, time.Minute, cfg.MetricInterval)
	assert.Equal(t, "kasimedu", cfg.Harbour)
}

func TestConfigFromEnv_IgnoresBadInterval(t *testing.T) {
	t.Setenv("OTEL_METRIC_EXPORT_INTERVAL", "soon")

	cfg := telemetry.ConfigFromEnv("uyirkavalan-api", "dev")

	assert.Equal(t, 15*time.Second, cfg.MetricInterval)
}
