package conversation

import (
	"context"
	"fmt"

	"chat-relay/internal/apperr"
	"chat-relay/internal/logger"
	"chat-relay/internal/repository/db"
	"chat-relay/pkg/chat"
	"chat-relay/pkg/validation"

	"github.com/sirupsen/logrus"
)

// ConversationService handles the business logic for conversation management
type ConversationService struct {
	db        db.Database
	validator *validation.ChatRequestValidator
}

// NewConversationService creates a new ConversationService
func NewConversationService(database db.Database) *ConversationService {
	return &ConversationService{
		db:        database,
		validator: validation.NewChatRequestValidator(),
	}
}

// GetUserConversations retrieves all conversations for a user in stored order
func (s *ConversationService) GetUserConversations(ctx context.Context, username string) ([]chat.Conversation, error) {
	conversations, err := s.db.GetConversations(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve conversations: %w", err)
	}
	if conversations == nil {
		conversations = []chat.Conversation{}
	}
	return conversations, nil
}

// ReplaceUserConversations overwrites the user's whole list
func (s *ConversationService) ReplaceUserConversations(ctx context.Context, username string, conversations []chat.Conversation) error {
	if err := s.validator.ValidateConversations(conversations); err != nil {
		return apperr.Validation("%s", err.Error())
	}
	if err := s.db.ReplaceConversations(ctx, username, conversations); err != nil {
		return fmt.Errorf("failed to save conversations: %w", err)
	}
	logger.Log.WithFields(logrus.Fields{"username": username, "count": len(conversations)}).Debug("Saved conversations")
	return nil
}

// GetConversation returns one of the user's conversations
func (s *ConversationService) GetConversation(ctx context.Context, username, id string) (*chat.Conversation, error) {
	conversations, err := s.db.GetConversations(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve conversations: %w", err)
	}
	for i := range conversations {
		if conversations[i].ID == id {
			return &conversations[i], nil
		}
	}
	return nil, fmt.Errorf("%w: Conversation not found", apperr.ErrNotFound)
}

// DeleteConversation removes one of the user's conversations
func (s *ConversationService) DeleteConversation(ctx context.Context, username, id string) error {
	if err := s.db.DeleteConversation(ctx, username, id); err != nil {
		return err
	}
	logger.Log.WithFields(logrus.Fields{"username": username, "conversation_id": id}).Info("Deleted conversation")
	return nil
}
