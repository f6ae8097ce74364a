package handlers

import (
	"net/http"

	"chat-relay/internal/app"
	shareService "chat-relay/internal/service/share"
	"chat-relay/pkg/chat"

	"github.com/go-chi/chi/v5"
)

type CreateShareRequest struct {
	Title    string         `json:"title"`
	Messages []chat.Message `json:"messages"`
	Model    string         `json:"model"`
}

type CreateShareResponse struct {
	ShareID string `json:"shareId"`
	URL     string `json:"url"`
}

// ShareHandlers serves public conversation snapshots
type ShareHandlers struct {
	shareService *shareService.ShareService
}

func NewShareHandlers(config *app.Config) *ShareHandlers {
	return &ShareHandlers{shareService: shareService.NewShareService(config.DB)}
}

func (h *ShareHandlers) CreateShareHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateShareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	share, err := h.shareService.CreateShare(r.Context(), user.Username, req.Title, req.Messages, req.Model)
	if err != nil {
		sendServiceError(w, err, nil)
		return
	}
	sendJSON(w, http.StatusOK, CreateShareResponse{
		ShareID: share.ID,
		URL:     "/share/" + share.ID,
	})
}

// GetShareHandler is public: anyone with the id can read the snapshot
func (h *ShareHandlers) GetShareHandler(w http.ResponseWriter, r *http.Request) {
	share, err := h.shareService.GetShare(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		sendServiceError(w, err, map[int]string{http.StatusNotFound: "Share not found"})
		return
	}
	sendJSON(w, http.StatusOK, share)
}

func (h *ShareHandlers) DeleteShareHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.shareService.DeleteShare(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		sendServiceError(w, err, map[int]string{
			http.StatusNotFound:  "Share not found",
			http.StatusForbidden: "Not authorized",
		})
		return
	}
	sendJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
