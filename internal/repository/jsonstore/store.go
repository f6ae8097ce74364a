// Package jsonstore implements db.Database as three whole JSON documents
// (users, shares, conversations) kept in a storage.Backend.
package jsonstore

import (
	"context"
	"fmt"
	"sort"

	"chat-relay/internal/apperr"
	"chat-relay/internal/logger"
	"chat-relay/internal/repository/db"
	"chat-relay/internal/repository/storage"
	"chat-relay/pkg/chat"
)

// Ensure Store implements db.Database interface
var _ db.Database = (*Store)(nil)

type (
	usersDoc         = map[string]db.User
	sharesDoc        = map[string]chat.Share
	conversationsDoc = map[string][]chat.Conversation
)

// Document names used when Options leaves them empty
const (
	DefaultUsersName         = "users.json"
	DefaultSharesName        = "shares.json"
	DefaultConversationsName = "conversations.json"
)

// Options names the documents and the seed admin password
type Options struct {
	UsersName         string
	SharesName        string
	ConversationsName string

	// AdminPassword is stored as-is for the seeded admin account, so the
	// caller hashes it first when hashing is enabled.
	AdminPassword string
}

// Store is the document-backed database
type Store struct {
	backend       storage.Backend
	users         *Document[usersDoc]
	shares        *Document[sharesDoc]
	conversations *Document[conversationsDoc]
}

// New creates a store over backend
func New(backend storage.Backend, opts Options) *Store {
	if opts.UsersName == "" {
		opts.UsersName = DefaultUsersName
	}
	if opts.SharesName == "" {
		opts.SharesName = DefaultSharesName
	}
	if opts.ConversationsName == "" {
		opts.ConversationsName = DefaultConversationsName
	}
	seedPassword := opts.AdminPassword
	return &Store{
		backend: backend,
		users: NewDocument(backend, opts.UsersName, func() usersDoc {
			return usersDoc{
				db.AdminUsername: {
					Username:  db.AdminUsername,
					Password:  seedPassword,
					Role:      db.RoleAdmin,
					CreatedAt: chat.NowMillis(),
				},
			}
		}),
		shares: NewDocument(backend, opts.SharesName, func() sharesDoc {
			return sharesDoc{}
		}),
		conversations: NewDocument(backend, opts.ConversationsName, func() conversationsDoc {
			return conversationsDoc{}
		}),
	}
}

// Init loads every document once so missing ones are created at startup
// and corrupt ones fail fast.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.users.Load(ctx); err != nil {
		return err
	}
	if _, err := s.shares.Load(ctx); err != nil {
		return err
	}
	if _, err := s.conversations.Load(ctx); err != nil {
		return err
	}
	logger.Log.Info("Document store ready")
	return nil
}

// Close closes the underlying backend
func (s *Store) Close() error {
	return s.backend.Close()
}

// GetUser returns the account for username
func (s *Store) GetUser(ctx context.Context, username string) (*db.User, error) {
	users, err := s.users.Load(ctx)
	if err != nil {
		return nil, err
	}
	user, ok := users[username]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, username)
	}
	user.Username = username
	return &user, nil
}

// ListUsers returns every account sorted by username
func (s *Store) ListUsers(ctx context.Context) ([]db.User, error) {
	users, err := s.users.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]db.User, 0, len(users))
	for name, u := range users {
		u.Username = name
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// CreateUser adds user; an existing username is a conflict
func (s *Store) CreateUser(ctx context.Context, user db.User) (*db.User, error) {
	if user.CreatedAt == 0 {
		user.CreatedAt = chat.NowMillis()
	}
	err := s.users.Update(ctx, func(users usersDoc) (usersDoc, error) {
		if users == nil {
			users = usersDoc{}
		}
		if _, exists := users[user.Username]; exists {
			return nil, fmt.Errorf("%w: user %s already exists", apperr.ErrConflict, user.Username)
		}
		users[user.Username] = user
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser changes the password and/or role of an existing account
func (s *Store) UpdateUser(ctx context.Context, username string, update db.UserUpdate) (*db.User, error) {
	var updated db.User
	err := s.users.Update(ctx, func(users usersDoc) (usersDoc, error) {
		user, ok := users[username]
		if !ok {
			return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, username)
		}
		if update.Password != nil {
			user.Password = *update.Password
		}
		if update.Role != nil {
			user.Role = *update.Role
		}
		user.Username = username
		users[username] = user
		updated = user
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteUser removes an account
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	return s.users.Update(ctx, func(users usersDoc) (usersDoc, error) {
		if _, ok := users[username]; !ok {
			return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, username)
		}
		delete(users, username)
		return users, nil
	})
}

// CreateShare stores a snapshot. The messages are copied so later edits of
// the caller's slice never reach the stored share.
func (s *Store) CreateShare(ctx context.Context, share chat.Share) error {
	share.Messages = chat.CloneMessages(share.Messages)
	return s.shares.Update(ctx, func(shares sharesDoc) (sharesDoc, error) {
		if shares == nil {
			shares = sharesDoc{}
		}
		if _, exists := shares[share.ID]; exists {
			return nil, fmt.Errorf("%w: share %s already exists", apperr.ErrConflict, share.ID)
		}
		shares[share.ID] = share
		return shares, nil
	})
}

// GetShare returns the snapshot stored under id
func (s *Store) GetShare(ctx context.Context, id string) (*chat.Share, error) {
	shares, err := s.shares.Load(ctx)
	if err != nil {
		return nil, err
	}
	share, ok := shares[id]
	if !ok {
		return nil, fmt.Errorf("%w: share %s", apperr.ErrNotFound, id)
	}
	share.Messages = chat.CloneMessages(share.Messages)
	return &share, nil
}

// DeleteShare removes the snapshot stored under id
func (s *Store) DeleteShare(ctx context.Context, id string) error {
	return s.shares.Update(ctx, func(shares sharesDoc) (sharesDoc, error) {
		if _, ok := shares[id]; !ok {
			return nil, fmt.Errorf("%w: share %s", apperr.ErrNotFound, id)
		}
		delete(shares, id)
		return shares, nil
	})
}

// GetConversations returns the user's list in stored order, never nil
func (s *Store) GetConversations(ctx context.Context, username string) ([]chat.Conversation, error) {
	all, err := s.conversations.Load(ctx)
	if err != nil {
		return nil, err
	}
	list := all[username]
	out := make([]chat.Conversation, len(list))
	copy(out, list)
	return out, nil
}

// ReplaceConversations overwrites the user's whole list
func (s *Store) ReplaceConversations(ctx context.Context, username string, conversations []chat.Conversation) error {
	if conversations == nil {
		conversations = []chat.Conversation{}
	}
	return s.conversations.Update(ctx, func(all conversationsDoc) (conversationsDoc, error) {
		if all == nil {
			all = conversationsDoc{}
		}
		all[username] = conversations
		return all, nil
	})
}

// DeleteConversation removes one conversation from the user's list
func (s *Store) DeleteConversation(ctx context.Context, username, id string) error {
	return s.conversations.Update(ctx, func(all conversationsDoc) (conversationsDoc, error) {
		list := all[username]
		for i, c := range list {
			if c.ID == id {
				all[username] = append(list[:i:i], list[i+1:]...)
				return all, nil
			}
		}
		return nil, fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, id)
	})
}
