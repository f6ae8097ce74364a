// Package chat holds the wire types shared by the relay server and its Go client.
package chat

import "time"

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
// Timestamp is a client-only field and never forwarded upstream.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Usage is the token accounting reported by the upstream provider
type Usage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Conversation is a user-owned chat history with its per-conversation settings
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Messages     []Message `json:"messages"`
	Model        string    `json:"model"`
	CreatedAt    int64     `json:"createdAt"`
	UpdatedAt    int64     `json:"updatedAt"`
	Starred      bool      `json:"starred,omitempty"`
	SystemPrompt string    `json:"systemPrompt,omitempty"`
	Temperature  *float64  `json:"temperature,omitempty"`
	MaxTokens    int       `json:"maxTokens,omitempty"`
	LastUsage    *Usage    `json:"lastUsage,omitempty"`
}

// Share is an immutable public snapshot of a conversation
type Share struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	Model     string    `json:"model"`
	SharedBy  string    `json:"sharedBy"`
	CreatedAt int64     `json:"createdAt"`
}

// UserInfo is what the API exposes about an account; passwords never leave the server
type UserInfo struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	System      string    `json:"system,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// NowMillis returns the current time as epoch milliseconds, the unit every
// persisted timestamp uses.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// CloneMessages returns a deep copy of msgs
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
