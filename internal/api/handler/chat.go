package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
	"github.com/uyirkavalan/uyirkavalan/internal/api/response"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/chat"
)

// ChatHandler handles the boat-to-boat messaging endpoints.
type ChatHandler struct {
	chatService *chat.Service
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService *chat.Service) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// SendMessage handles POST /v1/chat/messages.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var input models.ChatSendRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if !requireBoatAccess(w, r, input.FromBoatID) {
		return
	}

	m, err := h.chatService.Send(r.Context(), &chat.SendInput{
		FromBoat: input.FromBoatID,
		ToBoat:   input.ToBoatID,
		Body:     input.Message,
		Kind:     chat.Kind(input.MessageType),
	})
	if err != nil {
		writeChatError(w, r, err)
		return
	}

	response.Created(w, r, "/v1/chat/threads/"+m.FromBoat+"/"+m.ToBoat, toAPIMessage(m))
}

// GetHistory handles GET /v1/chat/threads/{boatA}/{boatB} - the newest
// messages of a thread in chronological order.
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	boatA := chi.URLParam(r, "boatA")
	boatB := chi.URLParam(r, "boatB")

	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !p.CanAccessBoat(boatA) && !p.CanAccessBoat(boatB) {
		response.Forbidden(w, r, "not a participant of this thread")
		return
	}

	limit, ok := queryInt(r, "limit")
	if !ok {
		response.BadRequest(w, r, "invalid limit", []models.FieldError{{Field: "limit", Message: "must be a positive integer"}})
		return
	}

	msgs, err := h.chatService.History(r.Context(), boatA, boatB, limit)
	if err != nil {
		writeChatError(w, r, err)
		return
	}

	items := toAPIMessages(msgs)
	response.JSON(w, r, http.StatusOK, models.ChatMessageList{Items: items, Meta: models.ListMeta{Count: len(items)}})
}

// ListThreads handles GET /v1/chat/boats/{boatId}/threads.
func (h *ChatHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := h.chatService.Threads(r.Context(), chi.URLParam(r, "boatId"))
	if err != nil {
		writeChatError(w, r, err)
		return
	}

	items := make([]models.ChatThread, 0, len(threads))
	for _, t := range threads {
		item := models.ChatThread{ThreadID: t.ThreadID, OtherBoatID: t.OtherBoat, UnreadCount: t.UnreadCount}
		if t.LastMessage != nil {
			m := toAPIMessage(t.LastMessage)
			item.LastMessage = &m
		}
		items = append(items, item)
	}
	response.JSON(w, r, http.StatusOK, models.ChatThreadList{Items: items, Meta: models.ListMeta{Count: len(items)}})
}

// MarkRead handles POST /v1/chat/threads/{threadId}/read.
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var input models.ChatReadRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if !requireBoatAccess(w, r, input.BoatID) {
		return
	}

	n, err := h.chatService.MarkRead(r.Context(), chi.URLParam(r, "threadId"), input.BoatID)
	if err != nil {
		writeChatError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.ChatCount{Count: n})
}

// UnreadCount handles GET /v1/chat/threads/{threadId}/unread?boatId=.
func (h *ChatHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	boatID := r.URL.Query().Get("boatId")
	if boatID == "" {
		boatID = GetBoatID(r)
	}
	if !requireBoatAccess(w, r, boatID) {
		return
	}

	n, err := h.chatService.UnreadCount(r.Context(), chi.URLParam(r, "threadId"), boatID)
	if err != nil {
		writeChatError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.ChatCount{Count: n})
}

// TotalUnread handles GET /v1/chat/boats/{boatId}/unread-count.
func (h *ChatHandler) TotalUnread(w http.ResponseWriter, r *http.Request) {
	n, err := h.chatService.TotalUnread(r.Context(), chi.URLParam(r, "boatId"))
	if err != nil {
		writeChatError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.ChatCount{Count: n})
}

// SendSOS handles POST /v1/chat/sos - an SOS chat message to every other active boat.
func (h *ChatHandler) SendSOS(w http.ResponseWriter, r *http.Request) {
	var input models.ChatBroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if !requireBoatAccess(w, r, input.FromBoatID) {
		return
	}

	res, err := h.chatService.SendSOS(r.Context(), input.FromBoatID, input.Message)
	if err != nil {
		writeChatError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIBroadcast(res))
}

// Broadcast handles POST /v1/chat/broadcast.
func (h *ChatHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var input models.ChatBroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if !requireBoatAccess(w, r, input.FromBoatID) {
		return
	}

	kind := chat.Kind(input.MessageType)
	if kind == "" {
		kind = chat.KindText
	}

	res, err := h.chatService.Broadcast(r.Context(), input.FromBoatID, input.Message, kind)
	if err != nil {
		writeChatError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIBroadcast(res))
}

// GetBackup handles GET /v1/chat/boats/{boatId}/backup - the boat's offline
// queue, oldest first. The queue is not cleared.
func (h *ChatHandler) GetBackup(w http.ResponseWriter, r *http.Request) {
	entries, err := h.chatService.DrainBackup(r.Context(), chi.URLParam(r, "boatId"))
	if err != nil {
		writeChatError(w, r, err)
		return
	}

	items := make([]models.ChatBackupEntry, 0, len(entries))
	for _, e := range entries {
		items = append(items, models.ChatBackupEntry{
			ChatMessage: toAPIMessage(&e.Message),
			BackedUpAt:  models.Timestamp(e.BackedUpAt),
		})
	}
	response.JSON(w, r, http.StatusOK, models.ChatBackupList{Items: items, Meta: models.ListMeta{Count: len(items)}})
}

// ClearBackup handles DELETE /v1/chat/boats/{boatId}/backup.
func (h *ChatHandler) ClearBackup(w http.ResponseWriter, r *http.Request) {
	n, err := h.chatService.ClearBackup(r.Context(), chi.URLParam(r, "boatId"))
	if err != nil {
		writeChatError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.ChatBackupCleared{Cleared: n})
}

// AckBackup handles POST /v1/chat/boats/{boatId}/backup/ack. Only the named
// entries leave the queue, so messages queued after the boat fetched it survive.
func (h *ChatHandler) AckBackup(w http.ResponseWriter, r *http.Request) {
	var input models.ChatBackupAckRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	n, err := h.chatService.AckBackup(r.Context(), chi.URLParam(r, "boatId"), input.MessageIDs)
	if err != nil {
		writeChatError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.ChatBackupAcked{Acked: n})
}

// LinkStatus handles GET /v1/chat/boats/{boatId}/link-status.
func (h *ChatHandler) LinkStatus(w http.ResponseWriter, r *http.Request) {
	boatID := chi.URLParam(r, "boatId")
	st, err := h.chatService.LinkStatus(r.Context(), boatID)
	if err != nil {
		writeChatError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.LinkStatus{
		BoatID:         boatID,
		Connected:      st.Connected,
		SignalStrength: st.SignalStrength,
		NearbyNodes:    st.NearbyNodes,
		BatteryLevel:   st.BatteryLevel,
		LastSeen:       models.Timestamp(st.LastSeen),
	})
}

// Stats handles GET /v1/chat/boats/{boatId}/stats.
func (h *ChatHandler) Stats(w http.ResponseWriter, r *http.Request) {
	boatID := chi.URLParam(r, "boatId")
	st, err := h.chatService.Stats(r.Context(), boatID)
	if err != nil {
		writeChatError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.ChatStats{
		BoatID:         boatID,
		TotalMessages:  st.TotalMessages,
		UnreadMessages: st.UnreadMessages,
		ActiveThreads:  st.ActiveThreads,
		TotalThreads:   st.TotalThreads,
	})
}

func writeChatError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *chat.ValidationError
	switch {
	case errors.As(err, &vErr):
		response.BadRequest(w, r, "validation failed", vErr.Errors)
	case errors.Is(err, boat.ErrBoatNotFound):
		response.NotFound(w, r, "boat not found")
	case errors.Is(err, chat.ErrMessageNotFound):
		response.NotFound(w, r, "message not found")
	default:
		response.InternalError(w, r, "internal server error")
	}
}
