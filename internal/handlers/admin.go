package handlers

import (
	"net/http"

	"matching-backend/internal/middleware"
	"matching-backend/internal/services"
)

// AdminHandler handles the admin API
type AdminHandler struct {
	adminService *services.AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

type createInviteCodeRequest struct {
	MaxUses       flexInt `json:"maxUses"`
	ExpiresInDays flexInt `json:"expiresInDays"`
}

// CreateInviteCode handles POST /api/admin/invite-codes
func (h *AdminHandler) CreateInviteCode(w http.ResponseWriter, r *http.Request) {
	var req createInviteCodeRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	maxUses := 1
	if req.MaxUses.Set {
		maxUses = int(req.MaxUses.Value)
	}

	ic, err := h.adminService.CreateInviteCode(r.Context(), middleware.GetUserID(r.Context()), maxUses, int(req.ExpiresInDays.Value))
	if err != nil {
		respondServiceError(w, err, "Failed to create invite code")
		return
	}

	respondJSON(w, http.StatusCreated, ic)
}

// ListInviteCodes handles GET /api/admin/invite-codes
func (h *AdminHandler) ListInviteCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.adminService.ListInviteCodes(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to list invite codes")
		return
	}
	respondJSON(w, http.StatusOK, codes)
}

// DeleteInviteCode handles DELETE /api/admin/invite-codes/{id}
func (h *AdminHandler) DeleteInviteCode(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.adminService.DeleteInviteCode(r.Context(), id); err != nil {
		respondServiceError(w, err, "Failed to delete invite code")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Invite code deleted"})
}

// ListUsers handles GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUsers(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to list users")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

type setAdminRequest struct {
	IsAdmin flexBool `json:"isAdmin"`
}

// SetAdmin handles PUT /api/admin/users/{id}/admin
func (h *AdminHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req setAdminRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.IsAdmin.Set {
		respondError(w, "isAdmin is required", http.StatusBadRequest)
		return
	}

	if err := h.adminService.SetAdmin(r.Context(), middleware.GetUserID(r.Context()), id, req.IsAdmin.Value); err != nil {
		respondServiceError(w, err, "Failed to update admin rights")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Stats handles GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.Stats(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to get stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
