package llm

import (
	"chat-relay/internal/config"
	"chat-relay/pkg/chat"
)

// BuildRequest converts the client request for the resolved model. Client-only
// message fields are dropped, and the caller's max tokens apply only when
// positive.
func BuildRequest(model config.Model, req *chat.ChatRequest) ChatRequest {
	messages := make([]Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, Message{Role: string(m.Role), Content: m.Content})
	}

	maxTokens := model.DefaultMaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	return ChatRequest{
		Model:       model.ID,
		Messages:    messages,
		System:      req.System,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	}
}

func intPtr(n int) *int {
	return &n
}
