package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"matching-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
	wsMaxMessage = 4096
)

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub         *services.WSHub
	userService *services.UserService
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler. An empty
// allowedOrigins accepts any origin.
func NewWebSocketHandler(hub *services.WSHub, userService *services.UserService, allowedOrigins []string) *WebSocketHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &WebSocketHandler{
		hub:         hub,
		userService: userService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// HandleWebSocket handles GET /ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	claims, err := h.userService.ValidateJWT(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	userID := claims.UserID

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	conn.SetReadLimit(wsMaxMessage)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Int64("user_id", userID).Msg("WebSocket error")
			}
			return
		}

		var msg services.WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(userID, "Invalid message format")
			continue
		}

		switch msg.Type {
		case "ping":
			if err := h.hub.SendToUser(userID, services.WSMessage{Type: "pong"}); err != nil {
				return
			}
		default:
			h.sendError(userID, "Unknown message type")
		}
	}
}

// keepAlive pings the client until done is closed
func (h *WebSocketHandler) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) sendError(userID int64, message string) {
	if err := h.hub.SendToUser(userID, services.WSMessage{Type: services.EventError, Message: message}); err != nil {
		log.Debug().Err(err).Int64("user_id", userID).Msg("Failed to send WebSocket error")
	}
}
