package memory

import (
	"context"
	"fmt"
	"sort"

	"matching-backend/internal/models"
	"matching-backend/internal/repository"
)

// UserStore is the in-memory user table
type UserStore struct {
	s *Store
}

// Create inserts a user and sets its ID. A taken email yields ErrDuplicate.
func (r *UserStore) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return fmt.Errorf("email %s: %w", user.Email, repository.ErrDuplicate)
		}
	}
	r.s.nextUserID++
	user.ID = r.s.nextUserID
	r.s.users[user.ID] = copyUser(user)
	return nil
}

// GetByID retrieves a user by ID
func (r *UserStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
	}
	return copyUser(u), nil
}

// GetByEmail retrieves a user by email
func (r *UserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
}

// Exists reports whether a user with id exists
func (r *UserStore) Exists(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	_, ok := r.s.users[id]
	return ok, nil
}

// EmailExists reports whether email is already registered
func (r *UserStore) EmailExists(_ context.Context, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserStore) update(id int64, fn func(u *models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return fmt.Errorf("user: %w", repository.ErrNotFound)
	}
	fn(u)
	return nil
}

// UpdateProfile changes name, age and bio
func (r *UserStore) UpdateProfile(_ context.Context, id int64, name string, age int, bio string, now int64) error {
	return r.update(id, func(u *models.User) {
		u.Name, u.Age, u.Bio, u.UpdatedAt = name, age, bio, now
	})
}

// UpdatePhoto sets the profile photo URL
func (r *UserStore) UpdatePhoto(_ context.Context, id int64, photo string, now int64) error {
	return r.update(id, func(u *models.User) {
		u.Photo, u.UpdatedAt = &photo, now
	})
}

// UpdatePushToken sets or clears the device push token
func (r *UserStore) UpdatePushToken(_ context.Context, id int64, pushToken *string) error {
	return r.update(id, func(u *models.User) {
		if pushToken == nil {
			u.PushToken = nil
			return
		}
		t := *pushToken
		u.PushToken = &t
	})
}

// SetAdmin grants or revokes admin rights
func (r *UserStore) SetAdmin(_ context.Context, id int64, isAdmin bool, now int64) error {
	return r.update(id, func(u *models.User) {
		u.IsAdmin, u.UpdatedAt = isAdmin, now
	})
}

// List returns all users, newest first
func (r *UserStore) List(_ context.Context) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	users := make([]*models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt == users[j].CreatedAt {
			return users[i].ID > users[j].ID
		}
		return users[i].CreatedAt > users[j].CreatedAt
	})
	return users, nil
}

// ListCandidates returns users that userID has not swiped yet
func (r *UserStore) ListCandidates(_ context.Context, userID int64, limit int) ([]*models.Candidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ids := make([]int64, 0, len(r.s.users))
	for id := range r.s.users {
		if id == userID {
			continue
		}
		if _, swiped := r.s.swipes[pairKey{userID, id}]; swiped {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}

	candidates := make([]*models.Candidate, 0, len(ids))
	for _, id := range ids {
		candidates = append(candidates, candidateOf(r.s.users[id]))
	}
	return candidates, nil
}

// ListLikers returns users who liked userID and are still unanswered
func (r *UserStore) ListLikers(_ context.Context, userID int64, limit int) ([]*models.Candidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	likes := make([]*models.Swipe, 0)
	for key, sw := range r.s.swipes {
		if key.b != userID || !sw.IsLike {
			continue
		}
		if _, swipedBack := r.s.swipes[pairKey{userID, key.a}]; swipedBack {
			continue
		}
		likes = append(likes, sw)
	}
	sort.Slice(likes, func(i, j int) bool {
		if likes[i].CreatedAt == likes[j].CreatedAt {
			return likes[i].ID > likes[j].ID
		}
		return likes[i].CreatedAt > likes[j].CreatedAt
	})
	if len(likes) > limit {
		likes = likes[:limit]
	}

	candidates := make([]*models.Candidate, 0, len(likes))
	for _, sw := range likes {
		if u, ok := r.s.users[sw.UserID]; ok {
			candidates = append(candidates, candidateOf(u))
		}
	}
	return candidates, nil
}

// Count returns the number of users
func (r *UserStore) Count(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.users), nil
}
