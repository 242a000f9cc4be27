package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"matching-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsWriteTimeout = 10 * time.Second

// WebSocket event types
const (
	EventMatchCreated = "match_created"
	EventNewMessage   = "new_message"
	EventMessagesRead = "messages_read"
	EventError        = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	MatchID int64       `json:"match_id,omitempty"`
	UserID  int64       `json:"user_id,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// wsClient serializes writes; gorilla allows one concurrent writer per connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages WebSocket connections, one per user
type WSHub struct {
	mu          sync.RWMutex
	connections map[int64]*wsClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[int64]*wsClient),
	}
}

// Register registers a new WebSocket connection for a user. An older
// connection of the same user is closed.
func (h *WSHub) Register(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, exists := h.connections[userID]; exists {
		existing.conn.Close()
	}
	h.connections[userID] = &wsClient{conn: conn}

	log.Info().Int64("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes conn if it is still the user's current connection
func (h *WSHub) Unregister(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, exists := h.connections[userID]; exists && c.conn == conn {
		c.conn.Close()
		delete(h.connections, userID)
		log.Info().Int64("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID int64, message WSMessage) error {
	h.mu.RLock()
	c, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %d is not connected", userID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := c.write(data); err != nil {
		h.Unregister(userID, c.conn)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// IsOnline checks if a user is online
func (h *WSHub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}

// CloseAll drops every connection
func (h *WSHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, c := range h.connections {
		c.conn.Close()
		delete(h.connections, userID)
	}
}

// NotifyMatchCreated tells recipient that they matched with partnerID
func (h *WSHub) NotifyMatchCreated(recipientID, partnerID, matchID int64) error {
	return h.SendToUser(recipientID, WSMessage{
		Type:    EventMatchCreated,
		MatchID: matchID,
		UserID:  partnerID,
	})
}

// NotifyNewMessage forwards a chat message to recipientID
func (h *WSHub) NotifyNewMessage(recipientID int64, msg *models.Message) error {
	return h.SendToUser(recipientID, WSMessage{
		Type:    EventNewMessage,
		MatchID: msg.MatchID,
		Data:    msg,
	})
}

// NotifyMessagesRead tells the sender that their messages were read
func (h *WSHub) NotifyMessagesRead(recipientID, matchID int64) error {
	return h.SendToUser(recipientID, WSMessage{
		Type:    EventMessagesRead,
		MatchID: matchID,
	})
}
