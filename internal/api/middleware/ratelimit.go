package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
)

// RateLimitConfig is a fixed-window request budget.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration

	// Detail is the problem detail sent with a 429. Empty uses a generic
	// message.
	Detail string
}

var (
	// SOSRateLimit guards SOS creation. It has its own bucket so a busy chat
	// session never blocks a distress call, and the 429 tells the crew the
	// earlier call went through.
	SOSRateLimit = RateLimitConfig{
		RequestLimit: 10,
		WindowLength: time.Minute,
		Detail:       "Too many SOS calls from this boat in the last minute. Your earlier SOS was received; keep the radio on.",
	}

	// ExpensiveRateLimit guards fan-out and provider-backed endpoints.
	ExpensiveRateLimit = RateLimitConfig{
		RequestLimit: 30,
		WindowLength: time.Minute,
	}

	StandardRateLimit = RateLimitConfig{
		RequestLimit: 100,
		WindowLength: time.Minute,
	}
)

const defaultLimitDetail = "Rate limit exceeded. Please try again later."

// RateLimitByIP budgets requests per client address, as resolved by chi's
// RealIP middleware.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limit(cfg, httprate.KeyByRealIP)
}

// RateLimitByBoat budgets requests per authenticated boat, so one boat on
// several links shares a bucket and boats behind one gateway do not.
// Unauthenticated requests fall back to the client address.
func RateLimitByBoat(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limit(cfg, func(r *http.Request) (string, error) {
		if boatID := GetBoatID(r.Context()); boatID != "" {
			return "boat:" + boatID, nil
		}
		return httprate.KeyByRealIP(r)
	})
}

func limit(cfg RateLimitConfig, key httprate.KeyFunc) func(http.Handler) http.Handler {
	detail := cfg.Detail
	if detail == "" {
		detail = defaultLimitDetail
	}
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(time.Now(), cfg.WindowLength)))
			models.NewTooManyRequests(GetRequestID(r.Context()), detail).
				WithInstance(r.URL.Path).
				Write(w)
		}),
	)
}

// retryAfterSeconds is the wait until the next window starts. httprate
// aligns windows to multiples of the window length.
func retryAfterSeconds(now time.Time, window time.Duration) int {
	next := now.Truncate(window).Add(window)
	return max(1, int(math.Ceil(next.Sub(now).Seconds())))
}
