package db

import (
	"context"

	"chat-relay/pkg/chat"
)

// Database defines the interface for all persistence operations.
// Lookups of absent records return errors wrapping apperr.ErrNotFound and
// duplicate creates wrap apperr.ErrConflict.
type Database interface {
	// Users
	GetUser(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, user User) (*User, error)
	UpdateUser(ctx context.Context, username string, update UserUpdate) (*User, error)
	DeleteUser(ctx context.Context, username string) error

	// Shares
	CreateShare(ctx context.Context, share chat.Share) error
	GetShare(ctx context.Context, id string) (*chat.Share, error)
	DeleteShare(ctx context.Context, id string) error

	// Conversations
	GetConversations(ctx context.Context, username string) ([]chat.Conversation, error)
	ReplaceConversations(ctx context.Context, username string, conversations []chat.Conversation) error
	DeleteConversation(ctx context.Context, username, id string) error

	Close() error
}
