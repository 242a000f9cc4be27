package repository

import (
	"context"
	"errors"
	"fmt"

	"matching-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password, name, age, bio, photo, is_admin, push_token, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.Password, &user.Name, &user.Age, &user.Bio,
		&user.Photo, &user.IsAdmin, &user.PushToken, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a user and sets its ID. A taken email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password, name, age, bio, photo, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (email) DO NOTHING
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		user.Email, user.Password, user.Name, user.Age, user.Bio, user.Photo,
		user.IsAdmin, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("email %s: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("user", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("user", err)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// Exists checks if a user with the given ID exists
func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// EmailExists checks if an email is already registered
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// UpdateProfile updates the editable profile fields
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, name string, age int, bio string, now int64) error {
	query := `UPDATE users SET name = $1, age = $2, bio = $3, updated_at = $4 WHERE id = $5`
	return r.execOne(ctx, "update profile", query, name, age, bio, now, id)
}

// UpdatePhoto sets the profile photo URL
func (r *UserRepository) UpdatePhoto(ctx context.Context, id int64, photo string, now int64) error {
	query := `UPDATE users SET photo = $1, updated_at = $2 WHERE id = $3`
	return r.execOne(ctx, "update photo", query, photo, now, id)
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, id int64, pushToken *string) error {
	query := `UPDATE users SET push_token = $1 WHERE id = $2`
	return r.execOne(ctx, "update push token", query, pushToken, id)
}

// SetAdmin grants or revokes admin rights
func (r *UserRepository) SetAdmin(ctx context.Context, id int64, isAdmin bool, now int64) error {
	query := `UPDATE users SET is_admin = $1, updated_at = $2 WHERE id = $3`
	return r.execOne(ctx, "set admin", query, isAdmin, now, id)
}

func (r *UserRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	return nil
}

// List returns all users, newest first
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// ListCandidates returns users the given user has not swiped yet
func (r *UserRepository) ListCandidates(ctx context.Context, userID int64, limit int) ([]*models.Candidate, error) {
	query := `
		SELECT id, name, age, bio, photo
		FROM users
		WHERE id <> $1
		AND id NOT IN (SELECT target_user_id FROM swipes WHERE user_id = $1)
		ORDER BY id
		LIMIT $2
	`
	return r.queryCandidates(ctx, query, userID, limit)
}

// ListLikers returns users who liked the given user and have not been swiped back
func (r *UserRepository) ListLikers(ctx context.Context, userID int64, limit int) ([]*models.Candidate, error) {
	query := `
		SELECT u.id, u.name, u.age, u.bio, u.photo
		FROM swipes s
		JOIN users u ON u.id = s.user_id
		WHERE s.target_user_id = $1 AND s.is_like = TRUE
		AND s.user_id NOT IN (SELECT target_user_id FROM swipes WHERE user_id = $1)
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $2
	`
	return r.queryCandidates(ctx, query, userID, limit)
}

func (r *UserRepository) queryCandidates(ctx context.Context, query string, userID int64, limit int) ([]*models.Candidate, error) {
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidates: %w", err)
	}
	defer rows.Close()

	candidates := []*models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Age, &c.Bio, &c.Photo); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}
	return candidates, nil
}

// Count returns the number of users
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM users`)
}

func count(ctx context.Context, db *pgxpool.Pool, query string) (int, error) {
	var n int
	if err := db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}
