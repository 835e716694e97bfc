package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequence returns the given values in order, repeating the last one.
func sequence(values ...float64) func() float64 {
	i := 0
	return func() float64 {
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v
	}
}

func TestSimulatedLink_Transmit(t *testing.T) {
	tests := []struct {
		name      string
		rolls     []float64
		wantDelay time.Duration
		want      TransportStatus
	}{
		{"fastest success", []float64{0, 0}, 500 * time.Millisecond, TransportTransmitted},
		{"midpoint success", []float64{0.5, 0.89}, 1500 * time.Millisecond, TransportTransmitted},
		{"loss", []float64{0.25, 0.9}, 1000 * time.Millisecond, TransportFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var slept time.Duration
			cfg := DefaultSimulatedLinkConfig()
			cfg.Rand = sequence(tt.rolls...)
			cfg.Sleep = func(d time.Duration) { slept = d }

			status, err := NewSimulatedLink(cfg).Transmit(context.Background(), &Message{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.wantDelay, slept)
		})
	}
}

func TestSimulatedLink_Status(t *testing.T) {
	cfg := DefaultSimulatedLinkConfig()
	cfg.Rand = sequence(0.5, 0.425, 0.37, 0.995)

	st, err := NewSimulatedLink(cfg).Status(context.Background(), "TN01-AB123")
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.Equal(t, 42, st.SignalStrength)
	assert.Equal(t, 3, st.NearbyNodes)
	assert.Equal(t, 99, st.BatteryLevel)

	cfg.Rand = sequence(0.8)
	st, err = NewSimulatedLink(cfg).Status(context.Background(), "TN01-AB123")
	require.NoError(t, err)
	assert.False(t, st.Connected)
}
