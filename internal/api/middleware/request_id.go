// Package middleware holds the HTTP middleware of the Uyir Kavalan API:
// request IDs, tracing, metrics, access logs, auth and rate limits.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// maxClientRequestID bounds a caller-supplied X-Request-Id.
const maxClientRequestID = 64

// RequestID tags each request with an ID, echoed in X-Request-Id. A valid
// ID sent by the caller is kept so a boat app can correlate its retries of
// the same SOS. Anything else is replaced with a fresh "req_" ID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if !validRequestID(requestID) {
			requestID = "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		}

		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID)))
	})
}

// validRequestID accepts up to 64 characters of [A-Za-z0-9._-], which keeps
// log lines and headers free of injected control characters.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxClientRequestID {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// GetRequestID returns the request ID, or "" outside a RequestID chain.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
