package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
	"github.com/uyirkavalan/uyirkavalan/internal/auth"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
)

type principalKey struct{}

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.JWTClaims, error)
}

// Auth requires a valid bearer token and puts its principal on the
// request context.
//
// Browsers cannot set headers on an EventSource, so event-stream requests
// may pass the token as the access_token query parameter instead.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, problem := bearerToken(r)
			if problem != "" {
				challenge(w, r, "invalid_request", problem)
				return
			}

			claims, err := validator.ValidateAccessToken(token)
			switch {
			case errors.Is(err, auth.ErrAccessTokenExpired):
				challenge(w, r, "invalid_token", "access token has expired")
				return
			case err != nil:
				challenge(w, r, "invalid_token", "invalid access token")
				return
			}

			principal := claims.Principal()
			recordCaller(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// bearerToken extracts the token, or returns why it could not.
func bearerToken(r *http.Request) (token, problem string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if q := r.URL.Query().Get("access_token"); q != "" && wantsEventStream(r) {
			return q, ""
		}
		return "", "missing authorization header"
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header format"
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", "missing bearer token"
	}
	return token, ""
}

func wantsEventStream(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// RequireRole rejects callers that hold none of roles.
func RequireRole(roles ...boat.Role) func(http.Handler) http.Handler {
	return guard(func(p auth.Principal, _ *http.Request) string {
		if p.HasRole(roles...) {
			return ""
		}
		return "role " + string(p.Role) + " may not perform this action"
	})
}

// RequireBoatOwner rejects callers that may not act on the boat named by
// the URL parameter param. Admins and authorities pass for any boat.
func RequireBoatOwner(param string) func(http.Handler) http.Handler {
	return guard(func(p auth.Principal, r *http.Request) string {
		if p.CanAccessBoat(chi.URLParam(r, param)) {
			return ""
		}
		return "access to this boat is not permitted"
	})
}

// guard builds an authorization middleware. deny returns the reason to
// refuse the caller with 403, or "" to let the request through. Requests
// that never passed Auth get 401.
func guard(deny func(auth.Principal, *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				challenge(w, r, "", "authentication required")
				return
			}
			if reason := deny(p, r); reason != "" {
				models.NewForbidden(GetRequestID(r.Context()), reason).WithInstance(r.URL.Path).Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// challenge writes a 401 with an RFC 6750 WWW-Authenticate header. The
// response package is not used here because it imports this one.
func challenge(w http.ResponseWriter, r *http.Request, code, detail string) {
	value := `Bearer realm="uyirkavalan"`
	if code != "" {
		value += `, error="` + code + `"`
	}
	w.Header().Set("WWW-Authenticate", value)
	models.NewUnauthorized(GetRequestID(r.Context()), detail).WithInstance(r.URL.Path).Write(w)
}

func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipal returns the authenticated caller, if any.
func GetPrincipal(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok
}

// GetBoatID returns the authenticated caller's boat, or "".
func GetBoatID(ctx context.Context) string {
	p, _ := GetPrincipal(ctx)
	return p.Boat
}
