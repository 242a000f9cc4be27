package services

import (
	"context"
	"errors"

	"matching-backend/internal/models"
	"matching-backend/internal/repository"
)

const candidatesLimit = 10

// MatchService serves discovery and match listings
type MatchService struct {
	users   UserStore
	matches MatchStore
}

// NewMatchService creates a new match service
func NewMatchService(users UserStore, matches MatchStore) *MatchService {
	return &MatchService{
		users:   users,
		matches: matches,
	}
}

// Candidates returns users the caller has not swiped yet
func (s *MatchService) Candidates(ctx context.Context, userID int64) ([]*models.Candidate, error) {
	candidates, err := s.users.ListCandidates(ctx, userID, candidatesLimit)
	if err != nil {
		return nil, storeErr("list candidates", err)
	}
	return candidates, nil
}

// ReceivedLikes returns users who liked the caller and are still waiting for an answer
func (s *MatchService) ReceivedLikes(ctx context.Context, userID int64) ([]*models.Candidate, error) {
	likers, err := s.users.ListLikers(ctx, userID, candidatesLimit)
	if err != nil {
		return nil, storeErr("list likes", err)
	}
	return likers, nil
}

// ListMatches returns the caller's partners, newest match first
func (s *MatchService) ListMatches(ctx context.Context, userID int64) ([]*models.MatchSummary, error) {
	summaries, err := s.matches.ListForUser(ctx, userID)
	if err != nil {
		return nil, storeErr("list matches", err)
	}
	return summaries, nil
}

// Participant loads a match and checks that userID belongs to it
func (s *MatchService) Participant(ctx context.Context, matchID, userID int64) (*models.Match, error) {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, storeErr("get match", err)
	}
	if !match.HasUser(userID) {
		return nil, ErrNotMatchMember
	}
	return match, nil
}

// GetMatch returns the partner summary of one match
func (s *MatchService) GetMatch(ctx context.Context, matchID, userID int64) (*models.MatchSummary, error) {
	match, err := s.Participant(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}

	partnerID, _ := match.PartnerOf(userID)
	partner, err := s.users.GetByID(ctx, partnerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeErr("get partner", err)
	}

	return &models.MatchSummary{
		MatchID:   match.ID,
		UserID:    partner.ID,
		Name:      partner.Name,
		Age:       partner.Age,
		Bio:       partner.Bio,
		Photo:     partner.Photo,
		CreatedAt: match.CreatedAt,
	}, nil
}
