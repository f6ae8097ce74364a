package validation

import (
	"errors"
	"fmt"

	"chat-relay/pkg/chat"
)

// ChatRequestValidator validates chat-related requests
type ChatRequestValidator struct{}

// NewChatRequestValidator creates a new ChatRequestValidator
func NewChatRequestValidator() *ChatRequestValidator {
	return &ChatRequestValidator{}
}

// ValidateMessages checks the conversation sent for completion
func (v *ChatRequestValidator) ValidateMessages(messages []chat.Message) error {
	if len(messages) == 0 {
		return errors.New("messages cannot be empty")
	}
	for i, m := range messages {
		switch m.Role {
		case chat.RoleUser:
			if m.Content == "" {
				return fmt.Errorf("messages[%d]: content cannot be empty", i)
			}
		case chat.RoleAssistant:
		default:
			return fmt.Errorf("messages[%d]: role must be user or assistant, got %q", i, m.Role)
		}
	}
	return nil
}

// ValidateTemperature validates the temperature parameter
func (v *ChatRequestValidator) ValidateTemperature(temperature *float64) error {
	if temperature == nil {
		return nil // Temperature is optional
	}

	if *temperature < 0 || *temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %.2f", *temperature)
	}
	return nil
}

// ValidateMaxTokens rejects negative limits; zero means the model default
func (v *ChatRequestValidator) ValidateMaxTokens(maxTokens int) error {
	if maxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative, got %d", maxTokens)
	}
	return nil
}

// ValidateChatRequest validates a complete chat request
func (v *ChatRequestValidator) ValidateChatRequest(req *chat.ChatRequest) error {
	if req == nil {
		return errors.New("request body is required")
	}
	if err := v.ValidateMessages(req.Messages); err != nil {
		return err
	}
	if err := v.ValidateTemperature(req.Temperature); err != nil {
		return err
	}
	return v.ValidateMaxTokens(req.MaxTokens)
}

// ValidateConversations checks a full conversation list before it replaces
// the stored one: every id must be present and unique.
func (v *ChatRequestValidator) ValidateConversations(conversations []chat.Conversation) error {
	seen := make(map[string]struct{}, len(conversations))
	for i, c := range conversations {
		if c.ID == "" {
			return fmt.Errorf("conversations[%d]: id cannot be empty", i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("conversations[%d]: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}
