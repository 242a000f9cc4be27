package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"matching-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxJSONBodyBytes = 1 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondServiceError maps a service error to its HTTP status. Store failures
// are logged and hidden behind a generic message.
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	var storeErr *services.StoreError

	switch {
	case errors.Is(err, services.ErrInvalidInviteCode):
		respondError(w, "Invalid invite code", http.StatusBadRequest)
	case errors.Is(err, services.ErrInvalidArgument):
		respondError(w, kindMessage(err, services.ErrInvalidArgument), http.StatusBadRequest)
	case errors.Is(err, services.ErrUnauthorized):
		respondError(w, kindMessage(err, services.ErrUnauthorized), http.StatusUnauthorized)
	case errors.Is(err, services.ErrForbidden):
		respondError(w, kindMessage(err, services.ErrForbidden), http.StatusForbidden)
	case errors.Is(err, services.ErrNotFound):
		respondError(w, kindMessage(err, services.ErrNotFound), http.StatusNotFound)
	case errors.Is(err, services.ErrConflict):
		respondError(w, kindMessage(err, services.ErrConflict), http.StatusConflict)
	case errors.As(err, &storeErr):
		log.Error().Err(err).Str("op", storeErr.Op).Msg(fallback)
		respondError(w, fallback, http.StatusInternalServerError)
	default:
		log.Error().Err(err).Msg(fallback)
		respondError(w, fallback, http.StatusInternalServerError)
	}
}

// kindMessage strips the "kind: " prefix added by the services package
func kindMessage(err, kind error) string {
	msg := strings.TrimPrefix(err.Error(), kind.Error()+": ")
	if msg == "" {
		return kind.Error()
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// decodeJSON reads a bounded JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// idParam parses a positive integer URL parameter
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, fmt.Sprintf("Invalid %s", name), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// flexInt accepts a JSON number or a numeric string. Form values from the
// web client arrive as strings.
type flexInt struct {
	Value int64
	Set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		data = []byte(s)
	}

	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q", data)
	}
	f.Value, f.Set = v, true
	return nil
}

// flexBool accepts a JSON bool or "true"/"false"
type flexBool struct {
	Value bool
	Set   bool
}

func (f *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}

	v, err := strconv.ParseBool(string(data))
	if err != nil {
		return fmt.Errorf("invalid boolean %q", data)
	}
	f.Value, f.Set = v, true
	return nil
}
