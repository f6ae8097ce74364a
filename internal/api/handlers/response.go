package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"chat-relay/internal/apperr"
	"chat-relay/internal/auth"
	"chat-relay/internal/logger"
	"chat-relay/internal/repository/db"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// maxBodyBytes caps JSON request bodies; conversation lists can be large
const maxBodyBytes = 10 << 20

// sendError sends a standardized JSON error response. The message is what
// clients show; err only goes to the log.
func sendError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil && status >= http.StatusInternalServerError {
		logger.Log.WithError(err).WithField("status", status).Error(message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Code:    status,
		Message: message,
	})
}

// sendServiceError maps the apperr taxonomy onto HTTP statuses. overrides
// replaces the message for a given status.
func sendServiceError(w http.ResponseWriter, err error, overrides map[int]string) {
	status := statusFor(err)
	message := apperr.Message(err)
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	if m, ok := overrides[status]; ok {
		message = m
	}
	sendError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Warn("Failed to encode response")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// currentUser returns the user attached by the auth middleware. Routes
// mounted behind it always have one.
func currentUser(w http.ResponseWriter, r *http.Request) (*db.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		sendError(w, http.StatusUnauthorized, "Unauthorized", nil)
	}
	return user, ok
}
