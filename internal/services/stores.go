package services

import (
	"context"

	"matching-backend/internal/models"
)

// UserStore persists user accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Exists(ctx context.Context, id int64) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, id int64, name string, age int, bio string, now int64) error
	UpdatePhoto(ctx context.Context, id int64, photo string, now int64) error
	UpdatePushToken(ctx context.Context, id int64, pushToken *string) error
	SetAdmin(ctx context.Context, id int64, isAdmin bool, now int64) error
	List(ctx context.Context) ([]*models.User, error)
	ListCandidates(ctx context.Context, userID int64, limit int) ([]*models.Candidate, error)
	ListLikers(ctx context.Context, userID int64, limit int) ([]*models.Candidate, error)
	Count(ctx context.Context) (int, error)
}

// SwipeStore persists swipes. Create must rely on the (user, target) unique key.
type SwipeStore interface {
	Create(ctx context.Context, swipe *models.Swipe) (bool, error)
	HasLiked(ctx context.Context, userID, targetID int64) (bool, error)
}

// MatchStore persists matches. Create must rely on the canonical pair unique key.
type MatchStore interface {
	Create(ctx context.Context, match *models.Match) (bool, error)
	GetByID(ctx context.Context, id int64) (*models.Match, error)
	GetByPair(ctx context.Context, user1ID, user2ID int64) (*models.Match, error)
	ListForUser(ctx context.Context, userID int64) ([]*models.MatchSummary, error)
	Count(ctx context.Context) (int, error)
}

// MessageStore persists chat messages
type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) error
	ListByMatch(ctx context.Context, matchID int64) ([]*models.Message, error)
	MarkRead(ctx context.Context, matchID, readerID, now int64) (int64, error)
	SoftDelete(ctx context.Context, id, matchID, senderID, now int64) (bool, error)
	Count(ctx context.Context) (int, error)
}

// InviteCodeStore persists invite codes. Consume must be a single conditional
// update that re-validates expiry and the usage bound.
type InviteCodeStore interface {
	Create(ctx context.Context, ic *models.InviteCode) (bool, error)
	GetByCode(ctx context.Context, code string) (*models.InviteCode, error)
	Consume(ctx context.Context, code string, now int64) (bool, error)
	SetRedeemer(ctx context.Context, code string, userID int64) error
	List(ctx context.Context) ([]*models.InviteCode, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (total, used int, err error)
}

// Clock returns the current time in epoch seconds
type Clock func() int64
