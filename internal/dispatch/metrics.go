package dispatch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/uyirkavalan/uyirkavalan/internal/audit"
)

const meterName = "github.com/uyirkavalan/uyirkavalan/internal/dispatch"

// Metrics holds the notification attempt instruments.
type Metrics struct {
	attemptTotal    metric.Int64Counter
	attemptDuration metric.Float64Histogram
}

// NewMetrics creates the notification attempt instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	attemptTotal, err := meter.Int64Counter(
		"notification.attempt.total",
		metric.WithDescription("Total number of notification delivery attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	attemptDuration, err := meter.Float64Histogram(
		"notification.attempt.duration",
		metric.WithDescription("Duration of notification delivery attempts in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		attemptTotal:    attemptTotal,
		attemptDuration: attemptDuration,
	}, nil
}

// RecordAttempt records one delivery attempt. A nil receiver records nothing.
func (m *Metrics) RecordAttempt(target audit.TargetKind, channel audit.Channel, status audit.Status, duration time.Duration) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("notification.target", string(target)),
		attribute.String("notification.channel", string(channel)),
		attribute.String("notification.status", string(status)),
	)

	// Background context so a cancelled request still records
	ctx := context.Background()
	m.attemptTotal.Add(ctx, 1, attrs)
	m.attemptDuration.Record(ctx, duration.Seconds(), attrs)
}
