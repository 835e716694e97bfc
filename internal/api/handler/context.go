package handler

import (
	"net/http"
	"strconv"

	"github.com/uyirkavalan/uyirkavalan/internal/api/middleware"
	"github.com/uyirkavalan/uyirkavalan/internal/api/response"
	"github.com/uyirkavalan/uyirkavalan/internal/auth"
)

// GetBoatID retrieves the authenticated boat from the context.
// This is a convenience wrapper around middleware.GetBoatID.
func GetBoatID(r *http.Request) string {
	return middleware.GetBoatID(r.Context())
}

// principal returns the authenticated caller or writes a 401.
func principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, r, "boat not authenticated")
		return auth.Principal{}, false
	}
	return p, true
}

// requireBoatAccess checks that the caller may act for boatID and writes
// the error response when it may not.
func requireBoatAccess(w http.ResponseWriter, r *http.Request, boatID string) bool {
	p, ok := principal(w, r)
	if !ok {
		return false
	}
	if !p.CanAccessBoat(boatID) {
		response.Forbidden(w, r, "not permitted to act for this boat")
		return false
	}
	return true
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
