package repository

import (
	"context"
	"errors"
	"fmt"

	"matching-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SwipeRepository handles database operations for swipes
type SwipeRepository struct {
	db *pgxpool.Pool
}

// NewSwipeRepository creates a new swipe repository
func NewSwipeRepository(db *pgxpool.Pool) *SwipeRepository {
	return &SwipeRepository{db: db}
}

// Create inserts a swipe. It returns false when the user already swiped the target.
func (r *SwipeRepository) Create(ctx context.Context, swipe *models.Swipe) (bool, error) {
	query := `
		INSERT INTO swipes (user_id, target_user_id, is_like, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, target_user_id) DO NOTHING
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, swipe.UserID, swipe.TargetUserID, swipe.IsLike, swipe.CreatedAt).Scan(&swipe.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create swipe: %w", err)
	}
	return true, nil
}

// HasLiked checks whether userID liked targetID
func (r *SwipeRepository) HasLiked(ctx context.Context, userID, targetID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM swipes WHERE user_id = $1 AND target_user_id = $2 AND is_like = TRUE)`
	var liked bool
	if err := r.db.QueryRow(ctx, query, userID, targetID).Scan(&liked); err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return liked, nil
}
