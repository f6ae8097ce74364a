package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"chat-relay/internal/app"
	"chat-relay/internal/apperr"
	"chat-relay/internal/config"
	"chat-relay/internal/repository/db"
	"chat-relay/internal/service/llm"
	"chat-relay/pkg/chat"
)

// MockDatabase is a mock implementation of db.Database for testing
type MockDatabase struct {
	// User mocks
	GetUserFunc    func(ctx context.Context, username string) (*db.User, error)
	ListUsersFunc  func(ctx context.Context) ([]db.User, error)
	CreateUserFunc func(ctx context.Context, user db.User) (*db.User, error)
	UpdateUserFunc func(ctx context.Context, username string, update db.UserUpdate) (*db.User, error)
	DeleteUserFunc func(ctx context.Context, username string) error

	// Share mocks
	CreateShareFunc func(ctx context.Context, share chat.Share) error
	GetShareFunc    func(ctx context.Context, id string) (*chat.Share, error)
	DeleteShareFunc func(ctx context.Context, id string) error

	// Conversation mocks
	GetConversationsFunc     func(ctx context.Context, username string) ([]chat.Conversation, error)
	ReplaceConversationsFunc func(ctx context.Context, username string, conversations []chat.Conversation) error
	DeleteConversationFunc   func(ctx context.Context, username, id string) error
}

var _ db.Database = (*MockDatabase)(nil)

// User methods
func (m *MockDatabase) GetUser(ctx context.Context, username string) (*db.User, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, username)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) ListUsers(ctx context.Context) ([]db.User, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) CreateUser(ctx context.Context, user db.User) (*db.User, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, user)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) UpdateUser(ctx context.Context, username string, update db.UserUpdate) (*db.User, error) {
	if m.UpdateUserFunc != nil {
		return m.UpdateUserFunc(ctx, username, update)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) DeleteUser(ctx context.Context, username string) error {
	if m.DeleteUserFunc != nil {
		return m.DeleteUserFunc(ctx, username)
	}
	return errors.New("not implemented")
}

// Share methods
func (m *MockDatabase) CreateShare(ctx context.Context, share chat.Share) error {
	if m.CreateShareFunc != nil {
		return m.CreateShareFunc(ctx, share)
	}
	return errors.New("not implemented")
}

func (m *MockDatabase) GetShare(ctx context.Context, id string) (*chat.Share, error) {
	if m.GetShareFunc != nil {
		return m.GetShareFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) DeleteShare(ctx context.Context, id string) error {
	if m.DeleteShareFunc != nil {
		return m.DeleteShareFunc(ctx, id)
	}
	return errors.New("not implemented")
}

// Conversation methods
func (m *MockDatabase) GetConversations(ctx context.Context, username string) ([]chat.Conversation, error) {
	if m.GetConversationsFunc != nil {
		return m.GetConversationsFunc(ctx, username)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) ReplaceConversations(ctx context.Context, username string, conversations []chat.Conversation) error {
	if m.ReplaceConversationsFunc != nil {
		return m.ReplaceConversationsFunc(ctx, username, conversations)
	}
	return errors.New("not implemented")
}

func (m *MockDatabase) DeleteConversation(ctx context.Context, username, id string) error {
	if m.DeleteConversationFunc != nil {
		return m.DeleteConversationFunc(ctx, username, id)
	}
	return errors.New("not implemented")
}

func (m *MockDatabase) Close() error {
	return nil
}

// MockProvider is a mock implementation of llm.Provider for testing
type MockProvider struct {
	KindValue      config.ProviderKind
	ConfiguredFunc func() bool
	NewRequestFunc func(ctx context.Context, req llm.ChatRequest) (*http.Request, error)
	ClassifyFunc   func(payload []byte) ([]llm.Frame, error)
}

var _ llm.Provider = (*MockProvider)(nil)

func (m *MockProvider) Kind() config.ProviderKind {
	if m.KindValue == "" {
		return config.ProviderAnthropic
	}
	return m.KindValue
}

func (m *MockProvider) Configured() bool {
	if m.ConfiguredFunc != nil {
		return m.ConfiguredFunc()
	}
	return true
}

func (m *MockProvider) NewRequest(ctx context.Context, req llm.ChatRequest) (*http.Request, error) {
	if m.NewRequestFunc != nil {
		return m.NewRequestFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *MockProvider) Classify(payload []byte) ([]llm.Frame, error) {
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(payload)
	}
	return nil, nil
}

// NewMockModelsConfig creates a ModelsConfig holding the built-in catalog
func NewMockModelsConfig() *config.ModelsConfig {
	models, err := config.NewModelsConfigFromList(config.DefaultModels())
	if err != nil {
		panic(err)
	}
	models.SetDefaultModel("claude-sonnet-4-5-20250929")
	return models
}

// NewMockConfig creates a mock app.Config for testing
func NewMockConfig(database db.Database) *app.Config {
	return app.NewConfig(database, &config.AppConfig{
		Server: config.ServerConfig{Port: "3002"},
		LLM: config.LLMConfig{
			AnthropicAPIKey:  "test-api-key",
			AnthropicBaseURL: "http://anthropic.test",
			AnthropicVersion: "2023-06-01",
			DefaultModel:     "claude-sonnet-4-5-20250929",
			DefaultMaxTokens: config.DefaultFallbackMaxTokens,
		},
		Auth:   config.AuthConfig{DefaultAdminPassword: "admin123"},
		Models: NewMockModelsConfig(),
	})
}

// UsersByName builds a GetUserFunc that knows a fixed set of accounts
func UsersByName(users ...db.User) func(ctx context.Context, username string) (*db.User, error) {
	byName := make(map[string]db.User, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}
	return func(_ context.Context, username string) (*db.User, error) {
		u, ok := byName[username]
		if !ok {
			return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, username)
		}
		return &u, nil
	}
}
