package handlers

import (
	"net/http"

	"chat-relay/internal/app"
	userService "chat-relay/internal/service/user"
	"chat-relay/pkg/chat"

	"github.com/go-chi/chi/v5"
)

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type UpdateUserRequest struct {
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
}

// UserHandlers serves the admin-only account endpoints
type UserHandlers struct {
	userService *userService.UserService
}

func NewUserHandlers(config *app.Config) *UserHandlers {
	return &UserHandlers{userService: userService.NewUserService(config.DB, config.Passwords)}
}

// ListUsersHandler returns every account without passwords
func (h *UserHandlers) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		sendServiceError(w, err, nil)
		return
	}

	out := make([]chat.UserInfo, 0, len(users))
	for _, u := range users {
		out = append(out, u.Info())
	}
	sendJSON(w, http.StatusOK, out)
}

func (h *UserHandlers) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.CreateUser(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		sendServiceError(w, err, map[int]string{http.StatusConflict: "User already exists"})
		return
	}
	sendJSON(w, http.StatusOK, chat.UserInfo{Username: user.Username, Role: user.Role})
}

func (h *UserHandlers) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.UpdateUser(r.Context(), chi.URLParam(r, "username"), req.Password, req.Role)
	if err != nil {
		sendServiceError(w, err, map[int]string{http.StatusNotFound: "User not found"})
		return
	}
	sendJSON(w, http.StatusOK, chat.UserInfo{Username: user.Username, Role: user.Role})
}

func (h *UserHandlers) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.DeleteUser(r.Context(), chi.URLParam(r, "username")); err != nil {
		sendServiceError(w, err, map[int]string{http.StatusNotFound: "User not found"})
		return
	}
	sendJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
