package handlers

import (
	"context"
	"errors"
	"net/http"

	"chat-relay/internal/app"
	"chat-relay/internal/apperr"
	"chat-relay/internal/config"
	"chat-relay/internal/logger"
	chatService "chat-relay/internal/service/chat"
	"chat-relay/internal/service/relay"
	"chat-relay/pkg/chat"

	"github.com/sirupsen/logrus"
)

type ModelsResponse struct {
	Models       []config.Model `json:"models"`
	DefaultModel string         `json:"defaultModel"`
}

// ChatHandlers serves the streaming completion endpoint and the model catalog
type ChatHandlers struct {
	config      *app.Config
	chatService *chatService.ChatService
}

// NewChatHandlers creates a new ChatHandlers with service layer
func NewChatHandlers(config *app.Config) *ChatHandlers {
	return &ChatHandlers{
		config:      config,
		chatService: chatService.NewChatService(config),
	}
}

// ChatStreamHandler relays an upstream completion as server-sent events.
// Everything that can be rejected is rejected with a status before the
// first byte of the stream.
func (ch *ChatHandlers) ChatStreamHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req chat.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	logger.Log.WithFields(logrus.Fields{
		"username":      user.Username,
		"model":         req.Model,
		"message_count": len(req.Messages),
	}).Info("Chat stream request received")

	err := ch.chatService.Stream(r.Context(), w, user.Username, &req)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrUpstreamConfig):
		sendError(w, http.StatusInternalServerError, "API key not configured", err)
	case errors.Is(err, relay.ErrStreamingUnsupported):
		sendError(w, http.StatusInternalServerError, "Streaming not supported", err)
	case errors.Is(err, context.Canceled):
		logger.Log.WithField("username", user.Username).Debug("Client went away before streaming started")
	default:
		sendServiceError(w, err, nil)
	}
}

// GetModelsHandler returns the list of available models
func (ch *ChatHandlers) GetModelsHandler(w http.ResponseWriter, r *http.Request) {
	models := ch.config.ModelsConfig()
	sendJSON(w, http.StatusOK, ModelsResponse{
		Models:       models.GetAvailableModels(),
		DefaultModel: models.GetDefaultModel(),
	})
}

// HealthHandler answers liveness probes
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
