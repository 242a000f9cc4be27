package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"matching-backend/internal/models"
	"matching-backend/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
)

const (
	inviteCodeLength      = 8
	inviteCodeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxInviteCodeAttempts = 5

	// max_uses is an INTEGER column
	maxInviteCodeUses = math.MaxInt32
)

// MatchingLedger owns swipe, match and invite code state. All of its
// guarantees come from store-level atomicity: unique keys on swipes and
// matches, and a single conditional update for invite code usage.
type MatchingLedger struct {
	users   UserStore
	swipes  SwipeStore
	matches MatchStore
	invites InviteCodeStore
	clock   Clock
}

// NewMatchingLedger creates a new ledger
func NewMatchingLedger(users UserStore, swipes SwipeStore, matches MatchStore, invites InviteCodeStore, clock Clock) *MatchingLedger {
	return &MatchingLedger{
		users:   users,
		swipes:  swipes,
		matches: matches,
		invites: invites,
		clock:   clock,
	}
}

// SwipeResult is the outcome of RecordSwipe. Created is true only for the
// call that inserted the match row.
type SwipeResult struct {
	Matched bool
	Created bool
	Match   *models.Match
}

// CanonicalPair orders an unordered pair of user ids
func CanonicalPair(a, b int64) (lo, hi int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// RecordSwipe stores actorID's decision about targetID and resolves a mutual
// like into a match.
func (l *MatchingLedger) RecordSwipe(ctx context.Context, actorID, targetID int64, isLike bool) (*SwipeResult, error) {
	if actorID <= 0 || targetID <= 0 {
		return nil, invalidf("user ids must be positive")
	}
	if actorID == targetID {
		return nil, ErrSelfSwipe
	}

	exists, err := l.users.Exists(ctx, targetID)
	if err != nil {
		return nil, storeErr("check target user", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	swipe := &models.Swipe{
		UserID:       actorID,
		TargetUserID: targetID,
		IsLike:       isLike,
		CreatedAt:    l.clock(),
	}
	inserted, err := l.swipes.Create(ctx, swipe)
	if err != nil {
		return nil, storeErr("record swipe", err)
	}
	if !inserted {
		return nil, ErrAlreadySwiped
	}

	if !isLike {
		return &SwipeResult{}, nil
	}

	mutual, err := l.swipes.HasLiked(ctx, targetID, actorID)
	if err != nil {
		return nil, storeErr("check mutual like", err)
	}
	if !mutual {
		return &SwipeResult{}, nil
	}

	lo, hi := CanonicalPair(actorID, targetID)
	match := &models.Match{User1ID: lo, User2ID: hi, CreatedAt: swipe.CreatedAt}
	created, err := l.matches.Create(ctx, match)
	if err != nil {
		return nil, storeErr("create match", err)
	}
	if !created {
		// The other side's swipe got there first; the pair is matched either way.
		existing, err := l.matches.GetByPair(ctx, lo, hi)
		if err != nil {
			return nil, storeErr("load existing match", err)
		}
		log.Debug().
			Int64("user1_id", lo).
			Int64("user2_id", hi).
			Msg("Match already existed for pair")
		match = existing
	}

	return &SwipeResult{Matched: true, Created: created, Match: match}, nil
}

// NormalizeInviteCode trims and upper-cases user input
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// InviteResult is the outcome of ConsumeInviteCode
type InviteResult struct {
	Accepted bool
	Code     *models.InviteCode
}

// ValidateInviteCode checks that a code could be redeemed at now without
// consuming it.
func (l *MatchingLedger) ValidateInviteCode(ctx context.Context, code string, now int64) (*models.InviteCode, error) {
	code = NormalizeInviteCode(code)
	if code == "" {
		return nil, invalidf("invite code is required")
	}

	ic, err := l.invites.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, storeErr("get invite code", err)
	}
	if !ic.ValidAt(now) {
		return nil, ErrInvalidInviteCode
	}
	return ic, nil
}

// ConsumeInviteCode spends one use of code. Absent, expired and exhausted
// codes are rejected with ErrInvalidInviteCode; losing a race for the last
// use yields ErrInviteCodeRaceLost.
func (l *MatchingLedger) ConsumeInviteCode(ctx context.Context, code string, now int64) (*InviteResult, error) {
	ic, err := l.ValidateInviteCode(ctx, code, now)
	if err != nil {
		return &InviteResult{}, err
	}

	ok, err := l.invites.Consume(ctx, ic.Code, now)
	if err != nil {
		return &InviteResult{}, storeErr("consume invite code", err)
	}
	if !ok {
		log.Warn().Str("code", ic.Code).Msg("Invite code consumed concurrently")
		return &InviteResult{}, ErrInviteCodeRaceLost
	}

	ic.CurrentUses++
	ic.UsedAt = &now
	ic.IsUsed = ic.IsExhausted()
	return &InviteResult{Accepted: true, Code: ic}, nil
}

// GenerateInviteCode draws an 8 character code from [A-Z0-9]
func GenerateInviteCode() (string, error) {
	code, err := gonanoid.Generate(inviteCodeAlphabet, inviteCodeLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	return code, nil
}

// CreateInviteCode generates and stores a new code, retrying on collision.
// maxUses is models.UnlimitedUses or at least 1; expiresAt may be nil.
func (l *MatchingLedger) CreateInviteCode(ctx context.Context, createdBy int64, maxUses int, expiresAt *int64) (*models.InviteCode, error) {
	if maxUses != models.UnlimitedUses && (maxUses < 1 || maxUses > maxInviteCodeUses) {
		return nil, invalidf("maxUses must be -1 or between 1 and %d", maxInviteCodeUses)
	}

	now := l.clock()
	if expiresAt != nil && *expiresAt <= now {
		return nil, invalidf("expiry must be in the future")
	}

	for attempt := 1; attempt <= maxInviteCodeAttempts; attempt++ {
		code, err := GenerateInviteCode()
		if err != nil {
			return nil, err
		}

		ic := &models.InviteCode{
			Code:      code,
			CreatedBy: createdBy,
			MaxUses:   maxUses,
			CreatedAt: now,
			ExpiresAt: expiresAt,
		}
		inserted, err := l.invites.Create(ctx, ic)
		if err != nil {
			return nil, storeErr("create invite code", err)
		}
		if inserted {
			return ic, nil
		}

		log.Debug().Str("code", code).Int("attempt", attempt).Msg("Invite code collision, retrying")
	}

	return nil, ErrInviteCodeExists
}

// EnsureInviteCode stores a fixed, unlimited, non-expiring code if it does not exist
func (l *MatchingLedger) EnsureInviteCode(ctx context.Context, code string, createdBy int64) error {
	code = NormalizeInviteCode(code)
	if code == "" {
		return invalidf("invite code is required")
	}

	inserted, err := l.invites.Create(ctx, &models.InviteCode{
		Code:      code,
		CreatedBy: createdBy,
		MaxUses:   models.UnlimitedUses,
		CreatedAt: l.clock(),
	})
	if err != nil {
		return storeErr("seed invite code", err)
	}
	if inserted {
		log.Info().Str("code", code).Msg("Seed invite code created")
	}
	return nil
}
