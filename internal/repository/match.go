package repository

import (
	"context"
	"errors"
	"fmt"

	"matching-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MatchRepository handles database operations for matches
type MatchRepository struct {
	db *pgxpool.Pool
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// Create inserts a match for the canonical pair (User1ID < User2ID).
// It returns false when the pair is already matched.
func (r *MatchRepository) Create(ctx context.Context, match *models.Match) (bool, error) {
	query := `
		INSERT INTO matches (user1_id, user2_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user1_id, user2_id) DO NOTHING
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, match.User1ID, match.User2ID, match.CreatedAt).Scan(&match.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create match: %w", err)
	}
	return true, nil
}

// GetByID retrieves a match by ID
func (r *MatchRepository) GetByID(ctx context.Context, id int64) (*models.Match, error) {
	query := `SELECT id, user1_id, user2_id, created_at FROM matches WHERE id = $1`
	var match models.Match
	err := r.db.QueryRow(ctx, query, id).Scan(&match.ID, &match.User1ID, &match.User2ID, &match.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("match", err)
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return &match, nil
}

// GetByPair retrieves the match for a canonical pair
func (r *MatchRepository) GetByPair(ctx context.Context, user1ID, user2ID int64) (*models.Match, error) {
	query := `SELECT id, user1_id, user2_id, created_at FROM matches WHERE user1_id = $1 AND user2_id = $2`
	var match models.Match
	err := r.db.QueryRow(ctx, query, user1ID, user2ID).Scan(&match.ID, &match.User1ID, &match.User2ID, &match.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("match", err)
		}
		return nil, fmt.Errorf("failed to get match by pair: %w", err)
	}
	return &match, nil
}

// ListForUser returns the partner summary of every match the user takes part in
func (r *MatchRepository) ListForUser(ctx context.Context, userID int64) ([]*models.MatchSummary, error) {
	query := `
		SELECT m.id, u.id, u.name, u.age, u.bio, u.photo, m.created_at
		FROM matches m
		JOIN users u ON u.id = CASE WHEN m.user1_id = $1 THEN m.user2_id ELSE m.user1_id END
		WHERE m.user1_id = $1 OR m.user2_id = $1
		ORDER BY m.created_at DESC, m.id DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := []*models.MatchSummary{}
	for rows.Next() {
		var s models.MatchSummary
		if err := rows.Scan(&s.MatchID, &s.UserID, &s.Name, &s.Age, &s.Bio, &s.Photo, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}

// Count returns the number of matches
func (r *MatchRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM matches`)
}
