// Package memory keeps every table in process memory. Each method holds the
// store lock for its whole body, so it is as atomic as the single SQL
// statement it replaces in the postgres repositories.
package memory

import (
	"sync"

	"matching-backend/internal/models"
)

type pairKey struct {
	a, b int64
}

// Store holds all tables
type Store struct {
	mu sync.Mutex

	users    map[int64]*models.User
	swipes   map[pairKey]*models.Swipe
	matches  map[int64]*models.Match
	pairs    map[pairKey]int64
	messages map[int64]*models.Message
	invites  map[string]*models.InviteCode

	nextUserID    int64
	nextSwipeID   int64
	nextMatchID   int64
	nextMessageID int64
	nextInviteID  int64
}

// New creates an empty store
func New() *Store {
	return &Store{
		users:    make(map[int64]*models.User),
		swipes:   make(map[pairKey]*models.Swipe),
		matches:  make(map[int64]*models.Match),
		pairs:    make(map[pairKey]int64),
		messages: make(map[int64]*models.Message),
		invites:  make(map[string]*models.InviteCode),
	}
}

// Users returns the user table
func (s *Store) Users() *UserStore { return &UserStore{s: s} }

// Swipes returns the swipe table
func (s *Store) Swipes() *SwipeStore { return &SwipeStore{s: s} }

// Matches returns the match table
func (s *Store) Matches() *MatchStore { return &MatchStore{s: s} }

// Messages returns the message table
func (s *Store) Messages() *MessageStore { return &MessageStore{s: s} }

// InviteCodes returns the invite code table
func (s *Store) InviteCodes() *InviteCodeStore { return &InviteCodeStore{s: s} }

func copyUser(u *models.User) *models.User {
	cp := *u
	if u.Photo != nil {
		p := *u.Photo
		cp.Photo = &p
	}
	if u.PushToken != nil {
		t := *u.PushToken
		cp.PushToken = &t
	}
	return &cp
}

func copyInvite(ic *models.InviteCode) *models.InviteCode {
	cp := *ic
	if ic.UsedBy != nil {
		v := *ic.UsedBy
		cp.UsedBy = &v
	}
	if ic.UsedAt != nil {
		v := *ic.UsedAt
		cp.UsedAt = &v
	}
	if ic.ExpiresAt != nil {
		v := *ic.ExpiresAt
		cp.ExpiresAt = &v
	}
	if ic.CreatedByName != nil {
		v := *ic.CreatedByName
		cp.CreatedByName = &v
	}
	return &cp
}

func candidateOf(u *models.User) *models.Candidate {
	c := &models.Candidate{ID: u.ID, Name: u.Name, Age: u.Age, Bio: u.Bio}
	if u.Photo != nil {
		p := *u.Photo
		c.Photo = &p
	}
	return c
}
