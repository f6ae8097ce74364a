// Package auth implements the credential gate: every protected request
// carries username and password headers, checked against the credential
// store on each call.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"chat-relay/internal/apperr"
	"chat-relay/internal/logger"
	"chat-relay/internal/repository/db"
)

type contextKey string

const UserContextKey contextKey = "user"

// Header names carrying the credentials
const (
	HeaderUsername = "username"
	HeaderPassword = "password"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// sendError sends a standardized JSON error response
func sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Code:    status,
		Message: message,
	})
}

// Authenticator checks credentials against the user store
type Authenticator struct {
	db db.Database
}

func NewAuthenticator(database db.Database) *Authenticator {
	return &Authenticator{db: database}
}

// Authenticate returns the user when username and password match a stored
// account. Unknown users and wrong passwords both yield ErrUnauthorized.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*db.User, error) {
	if username == "" || password == "" {
		return nil, apperr.ErrUnauthorized
	}

	user, err := a.db.GetUser(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !VerifyPassword(user.Password, password) {
		return nil, apperr.ErrUnauthorized
	}
	return user, nil
}

// Middleware rejects requests without valid credential headers and puts the
// authenticated user in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := r.Header.Get(HeaderUsername)
		user, err := a.Authenticate(r.Context(), username, r.Header.Get(HeaderPassword))
		if err != nil {
			if !errors.Is(err, apperr.ErrUnauthorized) {
				logger.Log.WithError(err).Error("Credential lookup failed")
			} else {
				logger.Log.WithField("username", username).Debug("Rejected credentials")
			}
			sendError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireAdmin must run after Middleware
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || !user.IsAdmin() {
			sendError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext returns the user stored by Middleware
func UserFromContext(ctx context.Context) (*db.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*db.User)
	return user, ok && user != nil
}

// WithUser returns a copy of ctx carrying user
func WithUser(ctx context.Context, user *db.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}
