package repository

import (
	"context"
	"errors"
	"fmt"

	"matching-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const inviteCodeColumns = `ic.id, ic.code, ic.is_used, ic.used_by, ic.created_by, ic.max_uses,
	ic.current_uses, ic.created_at, ic.used_at, ic.expires_at`

// InviteCodeRepository handles database operations for invite codes
type InviteCodeRepository struct {
	db *pgxpool.Pool
}

// NewInviteCodeRepository creates a new invite code repository
func NewInviteCodeRepository(db *pgxpool.Pool) *InviteCodeRepository {
	return &InviteCodeRepository{db: db}
}

func scanInviteCode(row pgx.Row, extra ...any) (*models.InviteCode, error) {
	var ic models.InviteCode
	dest := []any{
		&ic.ID, &ic.Code, &ic.IsUsed, &ic.UsedBy, &ic.CreatedBy, &ic.MaxUses,
		&ic.CurrentUses, &ic.CreatedAt, &ic.UsedAt, &ic.ExpiresAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &ic, nil
}

// Create inserts an invite code. It returns false when the code already exists.
func (r *InviteCodeRepository) Create(ctx context.Context, ic *models.InviteCode) (bool, error) {
	query := `
		INSERT INTO invite_codes (code, created_by, max_uses, current_uses, created_at, expires_at)
		VALUES ($1, $2, $3, 0, $4, $5)
		ON CONFLICT (code) DO NOTHING
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, ic.Code, ic.CreatedBy, ic.MaxUses, ic.CreatedAt, ic.ExpiresAt).Scan(&ic.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create invite code: %w", err)
	}
	return true, nil
}

// GetByCode retrieves an invite code by its code
func (r *InviteCodeRepository) GetByCode(ctx context.Context, code string) (*models.InviteCode, error) {
	query := `SELECT ` + inviteCodeColumns + ` FROM invite_codes ic WHERE ic.code = $1`
	ic, err := scanInviteCode(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("invite code", err)
		}
		return nil, fmt.Errorf("failed to get invite code: %w", err)
	}
	return ic, nil
}

// Consume spends one use of a code. The WHERE clause re-checks expiry and the
// usage bound so the statement itself enforces the quota; false means the code
// was not consumable when the update ran.
func (r *InviteCodeRepository) Consume(ctx context.Context, code string, now int64) (bool, error) {
	query := `
		UPDATE invite_codes
		SET current_uses = current_uses + 1,
			used_at = $1,
			is_used = (max_uses <> -1 AND current_uses + 1 >= max_uses)
		WHERE code = $2
		AND (max_uses = -1 OR current_uses < max_uses)
		AND (expires_at IS NULL OR expires_at > $1)
	`
	result, err := r.db.Exec(ctx, query, now, code)
	if err != nil {
		return false, fmt.Errorf("failed to consume invite code: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// SetRedeemer records who redeemed a single-use code
func (r *InviteCodeRepository) SetRedeemer(ctx context.Context, code string, userID int64) error {
	query := `UPDATE invite_codes SET used_by = $1 WHERE code = $2 AND max_uses = 1`
	if _, err := r.db.Exec(ctx, query, userID, code); err != nil {
		return fmt.Errorf("failed to set invite code redeemer: %w", err)
	}
	return nil
}

// List returns all invite codes with the creator's name, newest first
func (r *InviteCodeRepository) List(ctx context.Context) ([]*models.InviteCode, error) {
	query := `
		SELECT ` + inviteCodeColumns + `, u.name
		FROM invite_codes ic
		LEFT JOIN users u ON u.id = ic.created_by
		ORDER BY ic.created_at DESC, ic.id DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list invite codes: %w", err)
	}
	defer rows.Close()

	codes := []*models.InviteCode{}
	for rows.Next() {
		var creatorName *string
		ic, err := scanInviteCode(rows, &creatorName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite code: %w", err)
		}
		ic.CreatedByName = creatorName
		codes = append(codes, ic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invite codes: %w", err)
	}
	return codes, nil
}

// Delete removes an invite code by ID
func (r *InviteCodeRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM invite_codes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invite code: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("invite code: %w", ErrNotFound)
	}
	return nil
}

// Count returns the total number of codes and the number used at least once
func (r *InviteCodeRepository) Count(ctx context.Context) (total, used int, err error) {
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE current_uses > 0) FROM invite_codes`
	if err := r.db.QueryRow(ctx, query).Scan(&total, &used); err != nil {
		return 0, 0, fmt.Errorf("failed to count invite codes: %w", err)
	}
	return total, used, nil
}
