package handlers

import (
	"net/http"

	"chat-relay/internal/app"
	conversationService "chat-relay/internal/service/conversation"
	"chat-relay/pkg/chat"

	"github.com/go-chi/chi/v5"
)

// ConversationHandlers serves each user's saved conversation list
type ConversationHandlers struct {
	conversationService *conversationService.ConversationService
}

func NewConversationHandlers(config *app.Config) *ConversationHandlers {
	return &ConversationHandlers{
		conversationService: conversationService.NewConversationService(config.DB),
	}
}

// GetConversationsHandler returns all conversations for the authenticated user
func (h *ConversationHandlers) GetConversationsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	conversations, err := h.conversationService.GetUserConversations(r.Context(), user.Username)
	if err != nil {
		sendServiceError(w, err, nil)
		return
	}
	sendJSON(w, http.StatusOK, conversations)
}

// ReplaceConversationsHandler stores the client's full list, replacing what was there
func (h *ConversationHandlers) ReplaceConversationsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var conversations []chat.Conversation
	if !decodeJSON(w, r, &conversations) {
		return
	}

	if err := h.conversationService.ReplaceUserConversations(r.Context(), user.Username, conversations); err != nil {
		sendServiceError(w, err, nil)
		return
	}
	sendJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *ConversationHandlers) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	conv, err := h.conversationService.GetConversation(r.Context(), user.Username, chi.URLParam(r, "id"))
	if err != nil {
		sendServiceError(w, err, map[int]string{http.StatusNotFound: "Conversation not found"})
		return
	}
	sendJSON(w, http.StatusOK, conv)
}

func (h *ConversationHandlers) DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.conversationService.DeleteConversation(r.Context(), user.Username, chi.URLParam(r, "id")); err != nil {
		sendServiceError(w, err, map[int]string{http.StatusNotFound: "Conversation not found"})
		return
	}
	sendJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
