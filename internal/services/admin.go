package services

import (
	"context"
	"errors"

	"matching-backend/internal/models"
	"matching-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	secondsPerDay       = 24 * 60 * 60
	maxInviteExpiryDays = 10 * 365
)

// AdminService backs the admin console
type AdminService struct {
	users    UserStore
	matches  MatchStore
	messages MessageStore
	invites  InviteCodeStore
	ledger   *MatchingLedger
	clock    Clock
}

// NewAdminService creates a new admin service
func NewAdminService(users UserStore, matches MatchStore, messages MessageStore, invites InviteCodeStore, ledger *MatchingLedger, clock Clock) *AdminService {
	return &AdminService{
		users:    users,
		matches:  matches,
		messages: messages,
		invites:  invites,
		ledger:   ledger,
		clock:    clock,
	}
}

// CreateInviteCode issues a code. expiresInDays of 0 means the code never expires.
func (s *AdminService) CreateInviteCode(ctx context.Context, adminID int64, maxUses, expiresInDays int) (*models.InviteCode, error) {
	if expiresInDays < 0 || expiresInDays > maxInviteExpiryDays {
		return nil, invalidf("expiresInDays must be between 0 and %d", maxInviteExpiryDays)
	}

	var expiresAt *int64
	if expiresInDays > 0 {
		t := s.clock() + int64(expiresInDays)*secondsPerDay
		expiresAt = &t
	}

	ic, err := s.ledger.CreateInviteCode(ctx, adminID, maxUses, expiresAt)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("admin_id", adminID).
		Str("code", ic.Code).
		Int("max_uses", ic.MaxUses).
		Msg("Invite code created")

	return ic, nil
}

// ListInviteCodes returns every code, newest first
func (s *AdminService) ListInviteCodes(ctx context.Context) ([]*models.InviteCode, error) {
	codes, err := s.invites.List(ctx)
	if err != nil {
		return nil, storeErr("list invite codes", err)
	}
	return codes, nil
}

func (s *AdminService) DeleteInviteCode(ctx context.Context, id int64) error {
	if err := s.invites.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInviteNotFound
		}
		return storeErr("delete invite code", err)
	}
	return nil
}

func (s *AdminService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

// SetAdmin grants or revokes admin rights. Admins cannot demote themselves.
func (s *AdminService) SetAdmin(ctx context.Context, actorID, userID int64, isAdmin bool) error {
	if actorID == userID && !isAdmin {
		return invalidf("cannot remove your own admin rights")
	}

	if err := s.users.SetAdmin(ctx, userID, isAdmin, s.clock()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return storeErr("set admin", err)
	}

	log.Info().
		Int64("actor_id", actorID).
		Int64("user_id", userID).
		Bool("is_admin", isAdmin).
		Msg("Admin rights changed")

	return nil
}

func (s *AdminService) Stats(ctx context.Context) (*models.Stats, error) {
	var (
		stats models.Stats
		err   error
	)

	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, storeErr("count users", err)
	}
	if stats.TotalMatches, err = s.matches.Count(ctx); err != nil {
		return nil, storeErr("count matches", err)
	}
	if stats.TotalMessages, err = s.messages.Count(ctx); err != nil {
		return nil, storeErr("count messages", err)
	}
	if stats.TotalInviteCodes, stats.UsedInviteCodes, err = s.invites.Count(ctx); err != nil {
		return nil, storeErr("count invite codes", err)
	}

	return &stats, nil
}
