package resilience

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without calling the provider while its breaker
// is open or its half-open probe quota is used up.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Kind is the role an outbound client plays.
type Kind string

const (
	KindWeather Kind = "weather"
	KindSMS     Kind = "sms"
	KindVoice   Kind = "voice"
	KindAPI     Kind = "api"
)

// ClientConfig configures a Client. Build it from DefaultClientConfig or
// EmergencyClientConfig and override fields as needed.
type ClientConfig struct {
	Name string
	Kind Kind

	// Timeout bounds a single attempt.
	Timeout time.Duration

	// MaxRetries is the number of attempts after the first. Zero disables
	// retrying.
	MaxRetries uint64

	InitialInterval time.Duration
	MaxInterval     time.Duration

	// RetryThrottledOnly limits retries to 429 answers. A request that timed
	// out or got a 5xx may already have been accepted, and resending a
	// non-idempotent POST such as an SMS could deliver it twice.
	RetryThrottledOnly bool

	// CircuitBreaker defaults to DefaultCircuitBreakerConfig(Name).
	CircuitBreaker *CircuitBreakerConfig

	// Critical marks a client on the SOS path. Its breaker opening fails the
	// ops status instead of degrading it.
	Critical bool

	// Registry, when set, receives the client under Name and the outcome of
	// every call so /ops/status can report it.
	Registry *Registry
}

// DefaultClientConfig suits best-effort providers.
func DefaultClientConfig(name string) ClientConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		CircuitBreaker:  &cb,
	}
}

// EmergencyClientConfig tunes DefaultClientConfig for the SOS path. Each
// send is a single delivery attempt: only a 429, which the provider did not
// accept, is retried. It uses the emergency breaker with logged transitions.
func EmergencyClientConfig(name string, logger zerolog.Logger) ClientConfig {
	cfg := DefaultClientConfig(name)
	cb := EmergencyCircuitBreakerConfig(name)
	cb.OnStateChange = LogStateChanges(logger)
	cfg.CircuitBreaker = &cb
	cfg.MaxRetries = 2
	cfg.RetryThrottledOnly = true
	cfg.Critical = true
	return cfg
}

// Client is an http.Client wrapper adding a circuit breaker and retries
// with exponential backoff. It retries network errors, 5xx and 429. Other
// responses, 4xx included, are returned to the caller as they are.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	config     ClientConfig
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	cb := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cb = *cfg.CircuitBreaker
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    NewCircuitBreaker[*http.Response](cb), //nolint:bodyclose // type parameter
		config:     cfg,
	}
	if cfg.Registry != nil {
		cfg.Registry.Register(cfg.Name, c)
	}
	return c
}

// Do sends req, retrying under the request's context. The request body is
// rewound through GetBody before each retry. When retries run out on a
// retryable status, the last response is returned with a nil error so the
// caller can read the provider's error body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	policy := &retryAfter{BackOff: c.backoff(), limit: c.config.MaxInterval}
	var last *http.Response

	err := backoff.Retry(func() error {
		resp, err := c.attempt(ctx, req)
		if resp != nil {
			if last != nil {
				last.Body.Close()
			}
			last = resp
		}
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(ErrCircuitOpen)
		case err != nil:
			if c.config.RetryThrottledOnly && !throttled(err) {
				return backoff.Permanent(err)
			}
			if resp != nil {
				policy.hint = parseRetryAfter(resp.Header.Get("Retry-After"))
			}
			return err
		}
		return nil
	}, backoff.WithContext(policy, ctx))

	switch {
	case err == nil:
		c.record(nil)
		return last, nil
	case last != nil && retryable(last.StatusCode):
		c.record(&ServerError{StatusCode: last.StatusCode})
		return last, nil
	default:
		if last != nil {
			last.Body.Close()
		}
		c.record(err)
		return nil, err
	}
}

func (c *Client) backoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.InitialInterval
	b.MaxInterval = c.config.MaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, c.config.MaxRetries)
}

// attempt makes one call through the breaker. Retryable statuses come back
// as a response and a *ServerError together.
func (c *Client) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) {
		clone := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			clone.Body = body
		}
		resp, err := c.httpClient.Do(clone)
		if err != nil {
			return nil, err
		}
		if retryable(resp.StatusCode) {
			return resp, &ServerError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
}

func throttled(err error) bool {
	var se *ServerError
	return errors.As(err, &se) && se.Throttled()
}

func retryable(status int) bool {
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}

// record reports a call outcome to the registry, if one is configured.
func (c *Client) record(err error) {
	if c.config.Registry == nil {
		return
	}
	if err != nil {
		c.config.Registry.RecordFailure(c.config.Name, err)
		return
	}
	c.config.Registry.RecordSuccess(c.config.Name)
}

// ServerError is a retryable HTTP status from a provider: 5xx or 429.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// Throttled reports a 429. The breaker does not count throttling as a
// failure; the provider is up, just asking us to slow down.
func (e *ServerError) Throttled() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Name is the provider name the client was configured with.
func (c *Client) Name() string {
	return c.config.Name
}

func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}

// retryAfter waits for a provider's Retry-After hint, when one was given
// and is no longer than limit, in place of the next backoff interval.
type retryAfter struct {
	backoff.BackOff
	limit time.Duration
	hint  time.Duration
}

func (r *retryAfter) NextBackOff() time.Duration {
	next := r.BackOff.NextBackOff()
	hint := r.hint
	r.hint = 0
	if next == backoff.Stop || hint <= 0 || hint > r.limit {
		return next
	}
	return hint
}

// parseRetryAfter reads the delay-seconds form of Retry-After. The
// HTTP-date form is ignored.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
