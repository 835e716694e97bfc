// Package response writes JSON bodies and RFC 7807 problems for the API
// handlers, echoing the request ID on every reply.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/uyirkavalan/uyirkavalan/internal/api/middleware"
	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
)

// JSON writes data as JSON with the given status. A nil data writes no body.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, r, status, "", data)
}

// Created writes a 201 with a Location header pointing at the new resource.
func Created(w http.ResponseWriter, r *http.Request, location string, data any) {
	write(w, r, http.StatusCreated, location, data)
}

func write(w http.ResponseWriter, r *http.Request, status int, location string, data any) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	if location != "" {
		w.Header().Set("Location", location)
	}
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// problem fills in the trace ID and instance and writes p.
func problem(w http.ResponseWriter, r *http.Request, build func(traceID string) *models.Problem) {
	build(middleware.GetRequestID(r.Context())).WithInstance(r.URL.Path).Write(w)
}

// BadRequest writes a 400 validation problem with optional field errors.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	problem(w, r, func(id string) *models.Problem { return models.NewBadRequest(id, detail, errors) })
}

func Unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	problem(w, r, func(id string) *models.Problem { return models.NewUnauthorized(id, detail) })
}

func Forbidden(w http.ResponseWriter, r *http.Request, detail string) {
	problem(w, r, func(id string) *models.Problem { return models.NewForbidden(id, detail) })
}

func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	problem(w, r, func(id string) *models.Problem { return models.NewNotFound(id, detail) })
}

func Conflict(w http.ResponseWriter, r *http.Request, detail string) {
	problem(w, r, func(id string) *models.Problem { return models.NewConflict(id, detail) })
}

// InternalError writes a 500. Detail must not leak internals; log the cause
// before calling.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	problem(w, r, func(id string) *models.Problem { return models.NewInternalError(id, detail) })
}

func BadGateway(w http.ResponseWriter, r *http.Request, detail string) {
	problem(w, r, func(id string) *models.Problem { return models.NewBadGateway(id, detail) })
}

func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	problem(w, r, func(id string) *models.Problem { return models.NewServiceUnavailable(id, detail) })
}
