package handlers

import (
	"net/http"

	"matching-backend/internal/middleware"
	"matching-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles account and profile HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

type verifyInviteCodeRequest struct {
	Code string `json:"code"`
}

// VerifyInviteCode handles POST /api/verify-invite-code
func (h *UserHandler) VerifyInviteCode(w http.ResponseWriter, r *http.Request) {
	var req verifyInviteCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.userService.VerifyInviteCode(r.Context(), req.Code); err != nil {
		respondServiceError(w, err, "Failed to verify invite code")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

type registerRequest struct {
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	Name       string  `json:"name"`
	Age        flexInt `json:"age"`
	Bio        string  `json:"bio"`
	InviteCode string  `json:"inviteCode"`
}

// Register handles POST /api/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" || !req.Age.Set {
		respondError(w, "email, password, name and age are required", http.StatusBadRequest)
		return
	}
	if h.userService.RequiresInviteCode() && req.InviteCode == "" {
		respondError(w, "Invite code is required", http.StatusBadRequest)
		return
	}

	result, err := h.userService.Register(r.Context(), services.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		Age:        int(req.Age.Value),
		Bio:        req.Bio,
		InviteCode: req.InviteCode,
	})
	if err != nil {
		respondServiceError(w, err, "Failed to register")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err, "Failed to log in")
		return
	}

	log.Info().Int64("user_id", result.User.ID).Msg("User logged in")
	respondJSON(w, http.StatusOK, result)
}

// GetProfile handles GET /api/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetProfile(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err, "Failed to get profile")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	Name string  `json:"name"`
	Age  flexInt `json:"age"`
	Bio  string  `json:"bio"`
}

// UpdateProfile handles PUT /api/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" || !req.Age.Set {
		respondError(w, "name and age are required", http.StatusBadRequest)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), req.Name, int(req.Age.Value), req.Bio)
	if err != nil {
		respondServiceError(w, err, "Failed to update profile")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": user})
}

type pushTokenRequest struct {
	PushToken string `json:"pushToken"`
}

// UpdatePushToken handles PUT /api/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	var req pushTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.userService.UpdatePushToken(r.Context(), middleware.GetUserID(r.Context()), req.PushToken); err != nil {
		respondServiceError(w, err, "Failed to update push token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
