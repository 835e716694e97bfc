package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
	"github.com/uyirkavalan/uyirkavalan/internal/api/response"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/bus"
	"github.com/uyirkavalan/uyirkavalan/internal/chat"
	"github.com/uyirkavalan/uyirkavalan/internal/inbox"
	"github.com/uyirkavalan/uyirkavalan/internal/risk"
)

// DefaultHeartbeat is how often an idle event stream sends a keep-alive comment.
const DefaultHeartbeat = 25 * time.Second

// BoatHandler handles boat directory endpoints and the live event stream.
type BoatHandler struct {
	boatService *boat.Service
	bus         bus.MessageBus
	heartbeat   time.Duration
	logger      zerolog.Logger
}

// NewBoatHandler creates a new BoatHandler.
func NewBoatHandler(boatService *boat.Service, messageBus bus.MessageBus, logger zerolog.Logger) *BoatHandler {
	return &BoatHandler{
		boatService: boatService,
		bus:         messageBus,
		heartbeat:   DefaultHeartbeat,
		logger:      logger,
	}
}

// GetBoat handles GET /v1/boats/{boatId}.
func (h *BoatHandler) GetBoat(w http.ResponseWriter, r *http.Request) {
	b, err := h.boatService.Get(r.Context(), chi.URLParam(r, "boatId"))
	if err != nil {
		writeBoatError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIBoat(b))
}

// UpsertBoat handles PUT /v1/boats/{boatId} - register a boat or replace its profile.
func (h *BoatHandler) UpsertBoat(w http.ResponseWriter, r *http.Request) {
	var input models.BoatUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	b, err := h.boatService.Register(r.Context(), &boat.RegisterInput{
		ID:                chi.URLParam(r, "boatId"),
		OwnerName:         input.OwnerName,
		Phone:             input.Phone,
		Role:              boat.Role(input.Role),
		Language:          boat.Language(input.Language),
		EmergencyContacts: fromAPIContacts(input.EmergencyContacts),
	})
	if err != nil {
		writeBoatError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIBoat(b))
}

// DeactivateBoat handles POST /v1/boats/{boatId}/deactivate.
func (h *BoatHandler) DeactivateBoat(w http.ResponseWriter, r *http.Request) {
	boatID := chi.URLParam(r, "boatId")
	if err := h.boatService.Deactivate(r.Context(), boatID); err != nil {
		writeBoatError(w, r, err)
		return
	}

	b, err := h.boatService.Get(r.Context(), boatID)
	if err != nil {
		writeBoatError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIBoat(b))
}

// StreamEvents handles GET /v1/boats/{boatId}/events - a server-sent event
// stream of chat messages, inbox notices and risk updates for the boat.
func (h *BoatHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	boatID := chi.URLParam(r, "boatId")
	if _, err := h.boatService.Get(r.Context(), boatID); err != nil {
		writeBoatError(w, r, err)
		return
	}
	if h.bus == nil {
		response.ServiceUnavailable(w, r, "event stream not available")
		return
	}

	topic := bus.BoatTopic(boatID)
	events := h.bus.Subscribe(topic)
	defer h.bus.Unsubscribe(events, topic)

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(": connected\n\n")); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Warn().Err(err).Str("boat_id", boatID).Msg("event stream cannot flush")
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			_ = rc.Flush()
		case msg, ok := <-events:
			if !ok {
				return
			}
			evt, ok := msg.(bus.Event)
			if !ok {
				continue
			}
			data, err := json.Marshal(streamEvent(evt))
			if err != nil {
				h.logger.Error().Err(err).Str("boat_id", boatID).Str("kind", evt.Kind).Msg("failed to encode event")
				continue
			}
			if _, err := w.Write([]byte("event: " + evt.Kind + "\ndata: ")); err != nil {
				return
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}

// streamEvent converts the domain payload of an event to its API shape.
func streamEvent(evt bus.Event) bus.Event {
	switch p := evt.Payload.(type) {
	case *chat.Message:
		evt.Payload = toAPIMessage(p)
	case *inbox.Entry:
		evt.Payload = toAPIInboxEntry(p)
	case *risk.Assessment:
		evt.Payload = toAPIRisk(p)
	}
	return evt
}

func writeBoatError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *boat.ValidationError
	switch {
	case errors.As(err, &vErr):
		response.BadRequest(w, r, "validation failed", vErr.Errors)
	case errors.Is(err, boat.ErrBoatNotFound):
		response.NotFound(w, r, "boat not found")
	default:
		response.InternalError(w, r, "internal server error")
	}
}
