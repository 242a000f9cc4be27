package memory

import (
	"context"
	"fmt"
	"sort"

	"matching-backend/internal/models"
	"matching-backend/internal/repository"
)

// SwipeStore is the in-memory swipe table
type SwipeStore struct {
	s *Store
}

// Create inserts a swipe. It returns false when the user already swiped the target.
func (r *SwipeStore) Create(_ context.Context, swipe *models.Swipe) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := pairKey{swipe.UserID, swipe.TargetUserID}
	if _, exists := r.s.swipes[key]; exists {
		return false, nil
	}
	r.s.nextSwipeID++
	swipe.ID = r.s.nextSwipeID
	cp := *swipe
	r.s.swipes[key] = &cp
	return true, nil
}

// HasLiked reports whether userID liked targetID
func (r *SwipeStore) HasLiked(_ context.Context, userID, targetID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sw, ok := r.s.swipes[pairKey{userID, targetID}]
	return ok && sw.IsLike, nil
}

// MatchStore is the in-memory match table
type MatchStore struct {
	s *Store
}

// Create inserts a match for the canonical pair. It returns false when the pair is already matched.
func (r *MatchStore) Create(_ context.Context, match *models.Match) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if match.User1ID >= match.User2ID {
		return false, fmt.Errorf("match pair (%d, %d) is not canonical", match.User1ID, match.User2ID)
	}
	key := pairKey{match.User1ID, match.User2ID}
	if _, exists := r.s.pairs[key]; exists {
		return false, nil
	}
	r.s.nextMatchID++
	match.ID = r.s.nextMatchID
	cp := *match
	r.s.matches[match.ID] = &cp
	r.s.pairs[key] = match.ID
	return true, nil
}

// GetByID retrieves a match by ID
func (r *MatchStore) GetByID(_ context.Context, id int64) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.matches[id]
	if !ok {
		return nil, fmt.Errorf("match: %w", repository.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

// GetByPair retrieves the match of a canonical pair
func (r *MatchStore) GetByPair(_ context.Context, user1ID, user2ID int64) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.pairs[pairKey{user1ID, user2ID}]
	if !ok {
		return nil, fmt.Errorf("match: %w", repository.ErrNotFound)
	}
	cp := *r.s.matches[id]
	return &cp, nil
}

// ListForUser returns the partner summaries of userID's matches, newest first
func (r *MatchStore) ListForUser(_ context.Context, userID int64) ([]*models.MatchSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	summaries := []*models.MatchSummary{}
	for _, m := range r.s.matches {
		partnerID, ok := m.PartnerOf(userID)
		if !ok {
			continue
		}
		u, ok := r.s.users[partnerID]
		if !ok {
			continue
		}
		c := candidateOf(u)
		summaries = append(summaries, &models.MatchSummary{
			MatchID:   m.ID,
			UserID:    c.ID,
			Name:      c.Name,
			Age:       c.Age,
			Bio:       c.Bio,
			Photo:     c.Photo,
			CreatedAt: m.CreatedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt == summaries[j].CreatedAt {
			return summaries[i].MatchID > summaries[j].MatchID
		}
		return summaries[i].CreatedAt > summaries[j].CreatedAt
	})
	return summaries, nil
}

// Count returns the number of matches
func (r *MatchStore) Count(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.matches), nil
}

// MessageStore is the in-memory message table
type MessageStore struct {
	s *Store
}

// Create inserts a message and sets its ID
func (r *MessageStore) Create(_ context.Context, msg *models.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.matches[msg.MatchID]; !ok {
		return fmt.Errorf("match %d: %w", msg.MatchID, repository.ErrNotFound)
	}
	r.s.nextMessageID++
	msg.ID = r.s.nextMessageID
	cp := *msg
	r.s.messages[msg.ID] = &cp
	return nil
}

// ListByMatch returns the non-deleted messages of a match, oldest first
func (r *MessageStore) ListByMatch(_ context.Context, matchID int64) ([]*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	messages := []*models.Message{}
	for _, m := range r.s.messages {
		if m.MatchID == matchID && !m.IsDeleted {
			cp := *m
			messages = append(messages, &cp)
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt == messages[j].CreatedAt {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt < messages[j].CreatedAt
	})
	return messages, nil
}

// MarkRead marks the partner's unread messages in a match as read
func (r *MessageStore) MarkRead(_ context.Context, matchID, readerID, now int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, m := range r.s.messages {
		if m.MatchID == matchID && m.SenderID != readerID && !m.IsRead && !m.IsDeleted {
			m.IsRead = true
			m.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// SoftDelete hides a message sent by senderID. It returns false when nothing matched.
func (r *MessageStore) SoftDelete(_ context.Context, id, matchID, senderID, now int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.messages[id]
	if !ok || m.MatchID != matchID || m.SenderID != senderID || m.IsDeleted {
		return false, nil
	}
	m.IsDeleted = true
	m.UpdatedAt = now
	return true, nil
}

// Count returns the number of messages
func (r *MessageStore) Count(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.messages), nil
}
