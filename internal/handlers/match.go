package handlers

import (
	"net/http"

	"matching-backend/internal/middleware"
	"matching-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// MatchHandler handles discovery, swipe and match HTTP requests
type MatchHandler struct {
	ledger       *services.MatchingLedger
	matchService *services.MatchService
	notifier     *services.Notifier
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(ledger *services.MatchingLedger, matchService *services.MatchService, notifier *services.Notifier) *MatchHandler {
	return &MatchHandler{
		ledger:       ledger,
		matchService: matchService,
		notifier:     notifier,
	}
}

// Candidates handles GET /api/candidates
func (h *MatchHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.matchService.Candidates(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err, "Failed to get candidates")
		return
	}
	respondJSON(w, http.StatusOK, candidates)
}

// Likes handles GET /api/likes
func (h *MatchHandler) Likes(w http.ResponseWriter, r *http.Request) {
	likers, err := h.matchService.ReceivedLikes(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err, "Failed to get likes")
		return
	}
	respondJSON(w, http.StatusOK, likers)
}

type swipeRequest struct {
	TargetUserID flexInt  `json:"targetUserId"`
	IsLike       flexBool `json:"isLike"`
}

type swipeResponse struct {
	Matched bool  `json:"matched"`
	MatchID int64 `json:"match_id,omitempty"`
}

// Swipe handles POST /api/swipe
func (h *MatchHandler) Swipe(w http.ResponseWriter, r *http.Request) {
	var req swipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.TargetUserID.Set || !req.IsLike.Set {
		respondError(w, "targetUserId and isLike are required", http.StatusBadRequest)
		return
	}

	userID := middleware.GetUserID(r.Context())
	result, err := h.ledger.RecordSwipe(r.Context(), userID, req.TargetUserID.Value, req.IsLike.Value)
	if err != nil {
		respondServiceError(w, err, "Failed to record swipe")
		return
	}

	resp := swipeResponse{Matched: result.Matched}
	if result.Matched {
		resp.MatchID = result.Match.ID
		log.Info().
			Int64("match_id", result.Match.ID).
			Int64("user1_id", result.Match.User1ID).
			Int64("user2_id", result.Match.User2ID).
			Bool("created", result.Created).
			Msg("Match")
		if result.Created {
			h.notifier.MatchCreated(result.Match)
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// ListMatches handles GET /api/matches
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matchService.ListMatches(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err, "Failed to get matches")
		return
	}
	respondJSON(w, http.StatusOK, matches)
}

// GetMatch handles GET /api/matches/{matchId}
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := idParam(w, r, "matchId")
	if !ok {
		return
	}

	summary, err := h.matchService.GetMatch(r.Context(), matchID, middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err, "Failed to get match")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
