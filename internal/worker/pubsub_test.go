package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/uyirkavalan/uyirkavalan/internal/geo"
)

var triggerNow = time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)

func probeHandler(probeErr error, calls *int) *PubSubHandler {
	runner := NewJobRunner(nil, func(context.Context, geo.Point) error {
		*calls++
		return probeErr
	}, zerolog.Nop())
	return newPubSubHandler(PubSubConfig{
		SubscriptionName: "uyirkavalan-worker-jobs",
		Jobs:             runner,
		Logger:           zerolog.Nop(),
		MaxAge:           time.Hour,
		Now:              func() time.Time { return triggerNow },
	})
}

func TestPubSubHandler_Process(t *testing.T) {
	tests := []struct {
		name      string
		published time.Time
		attrs     map[string]string
		data      string
		probeErr  error
		want      disposition
		wantCalls int
	}{
		{"job in body", triggerNow, nil, `{"job_type":"health_check"}`, nil, ack, 1},
		{"job in attribute", triggerNow, map[string]string{"job_type": "health_check"}, "", nil, ack, 1},
		{"job failed", triggerNow, nil, `{"job_type":"health_check"}`, errors.New("down"), nack, 1},
		{"unknown job", triggerNow, nil, `{"job_type":"reindex"}`, nil, ack, 0},
		{"malformed body", triggerNow, nil, `{"job_type":`, nil, ack, 0},
		{"stale trigger", triggerNow.Add(-2 * time.Hour), nil, `{"job_type":"health_check"}`, nil, ack, 0},
		{"no publish time", time.Time{}, nil, `{"job_type":"health_check"}`, nil, ack, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			h := probeHandler(tt.probeErr, &calls)

			got := h.process(context.Background(), "msg-1", tt.published, tt.attrs, []byte(tt.data))

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestPubSubHandler_NoMaxAgeKeepsOldTriggers(t *testing.T) {
	calls := 0
	h := probeHandler(nil, &calls)
	h.maxAge = 0

	got := h.process(context.Background(), "msg-1", triggerNow.Add(-48*time.Hour), nil, []byte(`{"job_type":"health_check"}`))

	assert.Equal(t, ack, got)
	assert.Equal(t, 1, calls)
}
