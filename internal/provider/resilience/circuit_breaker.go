// Package resilience wraps outbound calls (weather, SMS, text-to-speech and
// the boat sync API) in circuit breakers, timeouts and retries, and keeps a
// registry of their health for the ops status endpoint.
package resilience

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig mirrors gobreaker.Settings for the fields we tune.
type CircuitBreakerConfig struct {
	Name string

	// MaxRequests is the number of probe requests let through while half-open.
	MaxRequests uint32

	// Interval clears the counts while closed. Zero never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// ReadyToTrip decides when to open. Nil means DefaultReadyToTrip.
	ReadyToTrip func(counts gobreaker.Counts) bool

	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig suits best-effort providers such as weather:
// open for a minute once half of at least five calls have failed.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: DefaultReadyToTrip,
	}
}

// EmergencyCircuitBreakerConfig is for channels that carry SOS traffic. It
// tolerates a longer failure streak before opening and probes again after
// ten seconds, since a lost minute on an SOS path costs more than a few
// extra failed calls.
func EmergencyCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 2,
		Interval:    5 * time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: ConsecutiveFailures(8),
	}
}

// DefaultReadyToTrip opens once at least half of five or more calls failed.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	return counts.Requests >= 5 && 2*counts.TotalFailures >= counts.Requests
}

// ConsecutiveFailures trips after n failures in a row.
func ConsecutiveFailures(n uint32) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= n
	}
}

// LogStateChanges returns an OnStateChange hook that logs every transition.
// Opening is logged at error level.
func LogStateChanges(logger zerolog.Logger) func(string, gobreaker.State, gobreaker.State) {
	return func(name string, from, to gobreaker.State) {
		ev := logger.Warn()
		if to == gobreaker.StateOpen {
			ev = logger.Error()
		}
		ev.Str("provider", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")
	}
}

// NewCircuitBreaker builds a breaker from cfg. Throttling responses
// (a *ServerError for 429) do not count as failures.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = DefaultReadyToTrip
	}
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   readyToTrip,
		OnStateChange: cfg.OnStateChange,
		IsSuccessful:  notFailure,
	})
}

func notFailure(err error) bool {
	var se *ServerError
	return err == nil || (errors.As(err, &se) && se.Throttled())
}
