package handlers

import (
	"net/http"

	"matching-backend/internal/middleware"
	"matching-backend/internal/services"
)

const multipartOverhead = 1 << 20

// PhotoHandler handles photo-related HTTP requests
type PhotoHandler struct {
	photoService *services.PhotoService
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photoService *services.PhotoService) *PhotoHandler {
	return &PhotoHandler{
		photoService: photoService,
	}
}

// UploadPhoto handles POST /api/upload-photo with a multipart "photo" field
func (h *PhotoHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.photoService.MaxBytes()+multipartOverhead)

	file, _, err := r.FormFile("photo")
	if err != nil {
		respondError(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	url, err := h.photoService.Upload(r.Context(), middleware.GetUserID(r.Context()), file)
	if err != nil {
		respondServiceError(w, err, "Failed to upload photo")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"photoUrl": url})
}
