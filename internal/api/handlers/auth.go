package handlers

import (
	"errors"
	"net/http"

	"chat-relay/internal/app"
	"chat-relay/internal/apperr"
	"chat-relay/internal/auth"
	"chat-relay/internal/logger"
	"chat-relay/pkg/validation"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthHandlers serves the credential check used by the login screen
type AuthHandlers struct {
	authenticator *auth.Authenticator
	validator     *validation.AuthRequestValidator
}

func NewAuthHandlers(config *app.Config) *AuthHandlers {
	return &AuthHandlers{
		authenticator: auth.NewAuthenticator(config.DB),
		validator:     validation.NewAuthRequestValidator(),
	}
}

// LoginHandler verifies a username/password pair and returns the account's role
func (h *AuthHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// an incomplete pair is just another wrong login
	if err := h.validator.ValidateLoginRequest(req.Username, req.Password); err != nil {
		sendError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	user, err := h.authenticator.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, apperr.ErrUnauthorized) {
			sendError(w, http.StatusInternalServerError, "Internal server error", err)
			return
		}
		logger.Log.WithField("username", req.Username).Info("Login failed")
		sendError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	logger.Log.WithField("username", user.Username).Info("User logged in")
	info := user.Info()
	info.CreatedAt = 0
	sendJSON(w, http.StatusOK, info)
}
