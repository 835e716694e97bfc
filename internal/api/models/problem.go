package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
// TraceID repeats the X-Request-Id header so a fisherman reading an error
// aloud to the control room gives them something to search the logs for.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError names one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const problemBase = "https://api.uyirkavalan.in/problems/"

// Problem types.
const (
	ProblemTypeValidation      = problemBase + "validation-error"
	ProblemTypeUnauthorized    = problemBase + "unauthorized"
	ProblemTypeForbidden       = problemBase + "forbidden"
	ProblemTypeNotFound        = problemBase + "not-found"
	ProblemTypeConflict        = problemBase + "conflict"
	ProblemTypeTooManyRequests = problemBase + "too-many-requests"
	ProblemTypeInternal        = problemBase + "internal-error"
	ProblemTypeBadGateway      = problemBase + "bad-gateway"
	ProblemTypeUnavailable     = problemBase + "service-unavailable"
	ProblemTypeTLSRequired     = problemBase + "tls-required"
	ProblemTypeUnsupportedBody = problemBase + "unsupported-media-type"
)

var problemTitles = map[string]string{
	ProblemTypeValidation:      "Validation error",
	ProblemTypeUnauthorized:    "Unauthorized",
	ProblemTypeForbidden:       "Forbidden",
	ProblemTypeNotFound:        "Not found",
	ProblemTypeConflict:        "Conflict",
	ProblemTypeTooManyRequests: "Too many requests",
	ProblemTypeInternal:        "Internal server error",
	ProblemTypeBadGateway:      "Bad gateway",
	ProblemTypeUnavailable:     "Service unavailable",
	ProblemTypeTLSRequired:     "TLS required",
	ProblemTypeUnsupportedBody: "Unsupported media type",
}

// NewProblem creates a Problem with an explicit type and title.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

func newTyped(problemType string, status int, traceID, detail string) *Problem {
	p := NewProblem(problemType, problemTitles[problemType], status, traceID)
	p.Detail = detail
	return p
}

// WithDetail sets Detail.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance sets Instance, normally the request path.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors sets the field errors.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write sends the problem with its status code.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	return newTyped(ProblemTypeValidation, http.StatusBadRequest, traceID, detail).WithErrors(errors)
}

func NewUnauthorized(traceID, detail string) *Problem {
	return newTyped(ProblemTypeUnauthorized, http.StatusUnauthorized, traceID, detail)
}

func NewForbidden(traceID, detail string) *Problem {
	return newTyped(ProblemTypeForbidden, http.StatusForbidden, traceID, detail)
}

func NewNotFound(traceID, detail string) *Problem {
	return newTyped(ProblemTypeNotFound, http.StatusNotFound, traceID, detail)
}

// NewConflict is used when the request is valid but the boat's state does
// not allow it, such as a weather refresh for a boat with no position yet.
func NewConflict(traceID, detail string) *Problem {
	return newTyped(ProblemTypeConflict, http.StatusConflict, traceID, detail)
}

func NewTooManyRequests(traceID, detail string) *Problem {
	return newTyped(ProblemTypeTooManyRequests, http.StatusTooManyRequests, traceID, detail)
}

func NewInternalError(traceID, detail string) *Problem {
	return newTyped(ProblemTypeInternal, http.StatusInternalServerError, traceID, detail)
}

// NewBadGateway reports an upstream (weather, TTS) that answered with
// something unusable.
func NewBadGateway(traceID, detail string) *Problem {
	return newTyped(ProblemTypeBadGateway, http.StatusBadGateway, traceID, detail)
}

// NewServiceUnavailable reports an upstream or subsystem that is down or
// not configured.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return newTyped(ProblemTypeUnavailable, http.StatusServiceUnavailable, traceID, detail)
}

func NewTLSRequired(traceID string) *Problem {
	return newTyped(ProblemTypeTLSRequired, http.StatusForbidden, traceID, "This endpoint requires HTTPS")
}

func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return newTyped(ProblemTypeUnsupportedBody, http.StatusUnsupportedMediaType, traceID, detail)
}
