package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/uyirkavalan/uyirkavalan/internal/alert"
	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
	"github.com/uyirkavalan/uyirkavalan/internal/api/response"
	"github.com/uyirkavalan/uyirkavalan/internal/inbox"
	"github.com/uyirkavalan/uyirkavalan/internal/voice"
)

// AlertHandler handles broadcast alert and boat inbox endpoints.
type AlertHandler struct {
	alertService *alert.Service
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(alertService *alert.Service) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// CreateAlert handles POST /v1/alerts - broadcast a safety alert.
func (h *AlertHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var input models.AlertCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	res, err := h.alertService.Create(r.Context(), &alert.CreateInput{
		Type:               alert.Type(input.Type),
		Severity:           alert.Severity(input.Severity),
		Title:              input.Title,
		Description:        input.Description,
		AffectedAreas:      input.AffectedAreas,
		EstimatedTime:      input.EstimatedTime.Time(),
		RecommendedActions: input.RecommendedActions,
		VoiceText:          input.VoiceAlertText,
		CreatedBy:          GetBoatID(r),
	})
	if err != nil {
		writeAlertError(w, r, err)
		return
	}

	deliveries := toAPIDeliveries(res.Deliveries)
	resp := models.AlertCreateResponse{Alert: toAPIAlert(res.Alert), Deliveries: deliveries}
	for _, d := range deliveries {
		if d.Success {
			resp.Delivered++
		} else {
			resp.Failed++
		}
	}
	response.Created(w, r, "/v1/alerts/"+res.Alert.ID, resp)
}

// ListAlerts handles GET /v1/alerts - active alerts, newest first.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alertService.ListActive(r.Context())
	if err != nil {
		writeAlertError(w, r, err)
		return
	}

	items := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		items = append(items, toAPIAlert(a))
	}
	response.JSON(w, r, http.StatusOK, models.AlertList{Items: items, Meta: models.ListMeta{Count: len(items)}})
}

// DeactivateAlert handles POST /v1/alerts/{alertId}/deactivate.
func (h *AlertHandler) DeactivateAlert(w http.ResponseWriter, r *http.Request) {
	a, err := h.alertService.Deactivate(r.Context(), chi.URLParam(r, "alertId"), GetBoatID(r))
	if err != nil {
		writeAlertError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIAlert(a))
}

// Stats handles GET /v1/alerts/stats.
func (h *AlertHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.alertService.Stats(r.Context())
	if err != nil {
		writeAlertError(w, r, err)
		return
	}

	bySeverity := make(map[string]int, len(st.BySeverity))
	for sev, n := range st.BySeverity {
		bySeverity[string(sev)] = n
	}
	response.JSON(w, r, http.StatusOK, models.AlertStats{
		Total:           st.Total,
		Active:          st.Active,
		Acknowledgments: st.Acknowledgments,
		BySeverity:      bySeverity,
	})
}

// ListInbox handles GET /v1/alerts/boats/{boatId}.
func (h *AlertHandler) ListInbox(w http.ResponseWriter, r *http.Request) {
	entries, err := h.alertService.ListForBoat(r.Context(), chi.URLParam(r, "boatId"))
	if err != nil {
		writeAlertError(w, r, err)
		return
	}

	items := make([]models.InboxEntry, 0, len(entries))
	for _, e := range entries {
		items = append(items, toAPIInboxEntry(e))
	}
	response.JSON(w, r, http.StatusOK, models.InboxList{Items: items, Meta: models.ListMeta{Count: len(items)}})
}

// Acknowledge handles POST /v1/alerts/boats/{boatId}/{entryId}/acknowledge.
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	e, err := h.alertService.Acknowledge(r.Context(), chi.URLParam(r, "boatId"), chi.URLParam(r, "entryId"))
	if err != nil {
		writeAlertError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIInboxEntry(e))
}

// MarkRead handles POST /v1/alerts/boats/{boatId}/{entryId}/read.
func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	e, err := h.alertService.MarkRead(r.Context(), chi.URLParam(r, "boatId"), chi.URLParam(r, "entryId"))
	if err != nil {
		writeAlertError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIInboxEntry(e))
}

// TestVoice handles POST /v1/alerts/boats/{boatId}/test-voice.
func (h *AlertHandler) TestVoice(w http.ResponseWriter, r *http.Request) {
	vt, err := h.alertService.TestVoice(r.Context(), chi.URLParam(r, "boatId"))
	if err != nil {
		if errors.Is(err, voice.ErrDisabled) {
			response.ServiceUnavailable(w, r, "voice synthesis not configured")
			return
		}
		response.BadGateway(w, r, "voice synthesis failed")
		return
	}
	response.JSON(w, r, http.StatusOK, models.VoiceTest{BoatID: vt.Boat, Text: vt.Text, VoiceURL: vt.VoiceURL})
}

func writeAlertError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *alert.ValidationError
	switch {
	case errors.As(err, &vErr):
		response.BadRequest(w, r, "validation failed", vErr.Errors)
	case errors.Is(err, alert.ErrAlertNotFound):
		response.NotFound(w, r, "alert not found")
	case errors.Is(err, inbox.ErrEntryNotFound):
		response.NotFound(w, r, "inbox entry not found")
	default:
		response.InternalError(w, r, "internal server error")
	}
}
