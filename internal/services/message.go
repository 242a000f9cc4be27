package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"matching-backend/internal/models"
)

const maxMessageLength = 2000

// MessageService handles chat between matched users
type MessageService struct {
	messages MessageStore
	matches  *MatchService
	clock    Clock
}

// NewMessageService creates a new message service
func NewMessageService(messages MessageStore, matches *MatchService, clock Clock) *MessageService {
	return &MessageService{
		messages: messages,
		matches:  matches,
		clock:    clock,
	}
}

// Send stores a message from senderID and returns it with the match it belongs to
func (s *MessageService) Send(ctx context.Context, matchID, senderID int64, content string) (*models.Message, *models.Match, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil, invalidf("message content is required")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, nil, invalidf("message must be at most %d characters", maxMessageLength)
	}

	match, err := s.matches.Participant(ctx, matchID, senderID)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock()
	msg := &models.Message{
		MatchID:   matchID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, nil, storeErr("create message", err)
	}
	return msg, match, nil
}

// List returns the visible messages of a match, oldest first
func (s *MessageService) List(ctx context.Context, matchID, userID int64) ([]*models.Message, error) {
	if _, err := s.matches.Participant(ctx, matchID, userID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, storeErr("list messages", err)
	}
	return messages, nil
}

// MarkRead marks the partner's messages in a match as read by userID
func (s *MessageService) MarkRead(ctx context.Context, matchID, userID int64) (int64, *models.Match, error) {
	match, err := s.matches.Participant(ctx, matchID, userID)
	if err != nil {
		return 0, nil, err
	}

	n, err := s.messages.MarkRead(ctx, matchID, userID, s.clock())
	if err != nil {
		return 0, nil, storeErr("mark messages read", err)
	}
	return n, match, nil
}

// Delete hides one of the caller's own messages
func (s *MessageService) Delete(ctx context.Context, matchID, messageID, userID int64) error {
	if _, err := s.matches.Participant(ctx, matchID, userID); err != nil {
		return err
	}

	ok, err := s.messages.SoftDelete(ctx, messageID, matchID, userID, s.clock())
	if err != nil {
		return storeErr("delete message", err)
	}
	if !ok {
		return ErrMessageNotFound
	}
	return nil
}
