package chat

import (
	"context"
	"fmt"
	"net/http"

	"chat-relay/internal/app"
	"chat-relay/internal/apperr"
	"chat-relay/internal/config"
	"chat-relay/internal/logger"
	"chat-relay/internal/service/llm"
	"chat-relay/internal/service/relay"
	chattypes "chat-relay/pkg/chat"
	"chat-relay/pkg/validation"

	"github.com/sirupsen/logrus"
)

// ChatService handles the business logic for chat operations
type ChatService struct {
	models    *config.ModelsConfig
	providers *llm.Registry
	relay     *relay.Relay
	validator *validation.ChatRequestValidator
}

// NewChatService creates a new ChatService
func NewChatService(cfg *app.Config) *ChatService {
	return &ChatService{
		models:    cfg.ModelsConfig(),
		providers: cfg.Providers,
		relay:     cfg.Relay,
		validator: validation.NewChatRequestValidator(),
	}
}

// Prepare validates req and resolves the adapter and upstream request for it.
// Errors wrap apperr.ErrValidation or apperr.ErrUpstreamConfig.
func (s *ChatService) Prepare(req *chattypes.ChatRequest) (llm.Provider, llm.ChatRequest, error) {
	if err := s.validator.ValidateChatRequest(req); err != nil {
		return nil, llm.ChatRequest{}, apperr.Validation("%s", err.Error())
	}

	modelID := req.Model
	if modelID == "" {
		modelID = s.models.GetDefaultModel()
	}
	model := s.models.Resolve(modelID)

	provider, err := s.providers.Get(model.Provider)
	if err != nil {
		return nil, llm.ChatRequest{}, fmt.Errorf("%w: %v", apperr.ErrUpstreamConfig, err)
	}
	if !provider.Configured() {
		return nil, llm.ChatRequest{}, fmt.Errorf("%w: no API key for %s", apperr.ErrUpstreamConfig, model.Provider)
	}

	if !model.Listed {
		logger.Log.WithFields(logrus.Fields{
			"model":    model.ID,
			"provider": model.Provider,
		}).Debug("Model not in catalog, using fallback descriptor")
	}

	return provider, llm.BuildRequest(model, req), nil
}

// Stream prepares req and relays the completion to w. A returned error means
// nothing was written and the caller must answer with an HTTP status.
func (s *ChatService) Stream(ctx context.Context, w http.ResponseWriter, username string, req *chattypes.ChatRequest) error {
	provider, upstreamReq, err := s.Prepare(req)
	if err != nil {
		return err
	}

	logger.Log.WithFields(logrus.Fields{
		"username":      username,
		"model":         upstreamReq.Model,
		"provider":      provider.Kind(),
		"message_count": len(upstreamReq.Messages),
	}).Info("Starting chat stream")

	return s.relay.Stream(ctx, w, provider, upstreamReq)
}
