package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
	"github.com/uyirkavalan/uyirkavalan/internal/api/response"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/sos"
)

// SOSHandler handles emergency endpoints.
type SOSHandler struct {
	sosService *sos.Service
}

// NewSOSHandler creates a new SOSHandler.
func NewSOSHandler(sosService *sos.Service) *SOSHandler {
	return &SOSHandler{sosService: sosService}
}

// CreateSOS handles POST /v1/sos - raise an emergency and escalate it.
// Escalation failures are reported per attempt and never fail the request.
func (h *SOSHandler) CreateSOS(w http.ResponseWriter, r *http.Request) {
	var input models.SOSCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if !requireBoatAccess(w, r, input.BoatID) {
		return
	}

	res, err := h.sosService.Create(r.Context(), &sos.CreateInput{
		Boat:      input.BoatID,
		Requester: GetBoatID(r),
		Location:  fromAPILocation(input.Location),
		Message:   input.Message,
	})
	if err != nil {
		writeSOSError(w, r, err)
		return
	}

	response.Created(w, r, "/v1/sos/"+res.Case.ID, models.SOSCreateResponse{
		Case:          toAPICase(res.Case),
		Notifications: toAPIDeliveries(res.Deliveries),
	})
}

// ListActive handles GET /v1/sos/active.
func (h *SOSHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	cases, err := h.sosService.ListActive(r.Context())
	if err != nil {
		writeSOSError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPICases(cases))
}

// Stats handles GET /v1/sos/stats.
func (h *SOSHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.sosService.Stats(r.Context())
	if err != nil {
		writeSOSError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.SOSStats{Active: st.Active, Resolved: st.Resolved, Total: st.Total})
}

// GetCase handles GET /v1/sos/{caseId}.
func (h *SOSHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCase(w, r)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, toAPICase(c))
}

// ListAttempts handles GET /v1/sos/{caseId}/attempts - the case's audit trail.
func (h *SOSHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCase(w, r)
	if !ok {
		return
	}

	attempts, err := h.sosService.Attempts(r.Context(), c.ID)
	if err != nil {
		writeSOSError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIAttempts(attempts))
}

// Resolve handles POST /v1/sos/{caseId}/resolve.
func (h *SOSHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var input models.SOSResolveRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			response.BadRequest(w, r, "invalid JSON body", nil)
			return
		}
	}
	if len(input.Notes) > 1000 {
		response.BadRequest(w, r, "validation failed", []models.FieldError{{Field: "notes", Message: "must be at most 1000 characters"}})
		return
	}

	c, err := h.sosService.Resolve(r.Context(), chi.URLParam(r, "caseId"), GetBoatID(r), input.Notes)
	if err != nil {
		writeSOSError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPICase(c))
}

// ListForBoat handles GET /v1/sos/boats/{boatId} - the boat's most recent cases.
func (h *SOSHandler) ListForBoat(w http.ResponseWriter, r *http.Request) {
	cases, err := h.sosService.ListForBoat(r.Context(), chi.URLParam(r, "boatId"))
	if err != nil {
		writeSOSError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPICases(cases))
}

// loadCase fetches the case named in the URL and checks the caller may see it.
func (h *SOSHandler) loadCase(w http.ResponseWriter, r *http.Request) (*sos.Case, bool) {
	c, err := h.sosService.Get(r.Context(), chi.URLParam(r, "caseId"))
	if err != nil {
		writeSOSError(w, r, err)
		return nil, false
	}
	if !requireBoatAccess(w, r, c.Boat) {
		return nil, false
	}
	return c, true
}

func writeSOSError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *sos.ValidationError
	switch {
	case errors.As(err, &vErr):
		response.BadRequest(w, r, "validation failed", vErr.Errors)
	case errors.Is(err, sos.ErrCaseNotFound):
		response.NotFound(w, r, "sos case not found")
	case errors.Is(err, boat.ErrBoatNotFound):
		response.NotFound(w, r, "boat not found")
	default:
		response.InternalError(w, r, "internal server error")
	}
}
