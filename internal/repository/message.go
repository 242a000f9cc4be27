package repository

import (
	"context"
	"fmt"

	"matching-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository handles database operations for chat messages
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a message and sets its ID
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (match_id, sender_id, content, is_read, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, FALSE, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, msg.MatchID, msg.SenderID, msg.Content, msg.CreatedAt, msg.UpdatedAt).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListByMatch returns the non-deleted messages of a match, oldest first
func (r *MessageRepository) ListByMatch(ctx context.Context, matchID int64) ([]*models.Message, error) {
	query := `
		SELECT id, match_id, sender_id, content, is_read, is_deleted, created_at, updated_at
		FROM messages
		WHERE match_id = $1 AND is_deleted = FALSE
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		var m models.Message
		err := rows.Scan(&m.ID, &m.MatchID, &m.SenderID, &m.Content, &m.IsRead, &m.IsDeleted, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// MarkRead marks every unread message in the match not sent by readerID as read
func (r *MessageRepository) MarkRead(ctx context.Context, matchID, readerID, now int64) (int64, error) {
	query := `
		UPDATE messages SET is_read = TRUE, updated_at = $1
		WHERE match_id = $2 AND sender_id <> $3 AND is_read = FALSE AND is_deleted = FALSE
	`
	result, err := r.db.Exec(ctx, query, now, matchID, readerID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return result.RowsAffected(), nil
}

// SoftDelete flags a message as deleted. It returns false when no message of
// senderID with that id exists in the match.
func (r *MessageRepository) SoftDelete(ctx context.Context, id, matchID, senderID, now int64) (bool, error) {
	query := `
		UPDATE messages SET is_deleted = TRUE, updated_at = $1
		WHERE id = $2 AND match_id = $3 AND sender_id = $4 AND is_deleted = FALSE
	`
	result, err := r.db.Exec(ctx, query, now, id, matchID, senderID)
	if err != nil {
		return false, fmt.Errorf("failed to delete message: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Count returns the number of messages
func (r *MessageRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM messages`)
}
