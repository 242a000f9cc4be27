package handlers

import (
	"net/http"

	"matching-backend/internal/middleware"
	"matching-backend/internal/services"
)

// MessageHandler handles chat HTTP requests
type MessageHandler struct {
	messageService *services.MessageService
	notifier       *services.Notifier
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageService *services.MessageService, notifier *services.Notifier) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		notifier:       notifier,
	}
}

type sendMessageRequest struct {
	MatchID flexInt `json:"matchId"`
	Content string  `json:"content"`
	Message string  `json:"message"`
}

func (req sendMessageRequest) text() string {
	if req.Content != "" {
		return req.Content
	}
	return req.Message
}

// SendMessage handles POST /api/messages
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.MatchID.Set {
		respondError(w, "matchId is required", http.StatusBadRequest)
		return
	}
	h.send(w, r, req.MatchID.Value, req.text())
}

// SendToMatch handles POST /api/messages/{matchId}
func (h *MessageHandler) SendToMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := idParam(w, r, "matchId")
	if !ok {
		return
	}

	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.send(w, r, matchID, req.text())
}

func (h *MessageHandler) send(w http.ResponseWriter, r *http.Request, matchID int64, content string) {
	msg, match, err := h.messageService.Send(r.Context(), matchID, middleware.GetUserID(r.Context()), content)
	if err != nil {
		respondServiceError(w, err, "Failed to send message")
		return
	}

	h.notifier.MessageSent(msg, match)
	respondJSON(w, http.StatusOK, msg)
}

// ListMessages handles GET /api/messages/{matchId}
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	matchID, ok := idParam(w, r, "matchId")
	if !ok {
		return
	}

	messages, err := h.messageService.List(r.Context(), matchID, middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err, "Failed to get messages")
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// MarkRead handles PUT /api/messages/{matchId}/read
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	matchID, ok := idParam(w, r, "matchId")
	if !ok {
		return
	}

	userID := middleware.GetUserID(r.Context())
	n, match, err := h.messageService.MarkRead(r.Context(), matchID, userID)
	if err != nil {
		respondServiceError(w, err, "Failed to mark messages read")
		return
	}
	if n > 0 {
		h.notifier.MessagesRead(match, userID)
	}

	respondJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// DeleteMessage handles DELETE /api/messages/{matchId}/{messageId}
func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	matchID, ok := idParam(w, r, "matchId")
	if !ok {
		return
	}
	messageID, ok := idParam(w, r, "messageId")
	if !ok {
		return
	}

	if err := h.messageService.Delete(r.Context(), matchID, messageID, middleware.GetUserID(r.Context())); err != nil {
		respondServiceError(w, err, "Failed to delete message")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
