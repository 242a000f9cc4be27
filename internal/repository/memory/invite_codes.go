package memory

import (
	"context"
	"fmt"
	"sort"

	"matching-backend/internal/models"
	"matching-backend/internal/repository"
)

// InviteCodeStore is the in-memory invite code table
type InviteCodeStore struct {
	s *Store
}

// Create inserts an invite code. It returns false when the code already exists.
func (r *InviteCodeStore) Create(_ context.Context, ic *models.InviteCode) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.invites[ic.Code]; exists {
		return false, nil
	}
	r.s.nextInviteID++
	ic.ID = r.s.nextInviteID
	r.s.invites[ic.Code] = copyInvite(ic)
	return true, nil
}

// GetByCode retrieves an invite code by its code
func (r *InviteCodeStore) GetByCode(_ context.Context, code string) (*models.InviteCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ic, ok := r.s.invites[code]
	if !ok {
		return nil, fmt.Errorf("invite code: %w", repository.ErrNotFound)
	}
	return copyInvite(ic), nil
}

// Consume spends one use of a code if it is still valid at now
func (r *InviteCodeStore) Consume(_ context.Context, code string, now int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ic, ok := r.s.invites[code]
	if !ok || !ic.ValidAt(now) {
		return false, nil
	}
	ic.CurrentUses++
	ic.UsedAt = &now
	ic.IsUsed = ic.IsExhausted()
	return true, nil
}

// SetRedeemer records who redeemed a single-use code
func (r *InviteCodeStore) SetRedeemer(_ context.Context, code string, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if ic, ok := r.s.invites[code]; ok && ic.MaxUses == 1 {
		ic.UsedBy = &userID
	}
	return nil
}

// List returns all invite codes with the creator's name, newest first
func (r *InviteCodeStore) List(_ context.Context) ([]*models.InviteCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	codes := make([]*models.InviteCode, 0, len(r.s.invites))
	for _, ic := range r.s.invites {
		cp := copyInvite(ic)
		if u, ok := r.s.users[ic.CreatedBy]; ok {
			name := u.Name
			cp.CreatedByName = &name
		}
		codes = append(codes, cp)
	}
	sort.Slice(codes, func(i, j int) bool {
		if codes[i].CreatedAt == codes[j].CreatedAt {
			return codes[i].ID > codes[j].ID
		}
		return codes[i].CreatedAt > codes[j].CreatedAt
	})
	return codes, nil
}

// Delete removes an invite code by ID
func (r *InviteCodeStore) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for code, ic := range r.s.invites {
		if ic.ID == id {
			delete(r.s.invites, code)
			return nil
		}
	}
	return fmt.Errorf("invite code: %w", repository.ErrNotFound)
}

// Count returns the number of codes and how many have been used
func (r *InviteCodeStore) Count(_ context.Context) (total, used int, err error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, ic := range r.s.invites {
		total++
		if ic.CurrentUses > 0 {
			used++
		}
	}
	return total, used, nil
}

// Put stores a code as-is, usage counters included. It lets callers seed
// partially used or expired codes.
func (r *InviteCodeStore) Put(ic *models.InviteCode) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if ic.ID == 0 {
		r.s.nextInviteID++
		ic.ID = r.s.nextInviteID
	}
	r.s.invites[ic.Code] = copyInvite(ic)
}
