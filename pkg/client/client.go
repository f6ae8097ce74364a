// Package client talks to a chat relay server: account and sharing
// endpoints, conversation sync, and streaming completions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"chat-relay/pkg/chat"
	"chat-relay/pkg/sse"
)

// APIError is a non-success answer from the relay
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// Model is one entry of the server's model catalog
type Model struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	Provider         string `json:"provider"`
	DefaultMaxTokens int    `json:"defaultMaxTokens"`
}

// Catalog is the answer of GET /api/models
type Catalog struct {
	Models       []Model `json:"models"`
	DefaultModel string  `json:"defaultModel"`
}

// ShareLink identifies a newly created share
type ShareLink struct {
	ShareID string `json:"shareId"`
	URL     string `json:"url"`
}

// Client is safe for concurrent use once its credentials are set
type Client struct {
	baseURL  string
	http     *http.Client
	username string
	password string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. It must not set a
// total timeout shorter than a completion takes to stream.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCredentials sets the username and password sent on every request
func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// New creates a client for the relay at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Username returns the account the client acts as
func (c *Client) Username() string {
	return c.username
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.Header.Set("username", c.username)
		req.Header.Set("password", c.password)
	}
	return req, nil
}

// do sends a JSON request and decodes a JSON answer into out when non-nil
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

// Login checks the credentials and, when they are valid, uses them for
// every later request.
func (c *Client) Login(ctx context.Context, username, password string) (*chat.UserInfo, error) {
	var info chat.UserInfo
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth", body, &info); err != nil {
		return nil, err
	}
	c.username = username
	c.password = password
	return &info, nil
}

func (c *Client) Models(ctx context.Context) (*Catalog, error) {
	var catalog Catalog
	if err := c.do(ctx, http.MethodGet, "/api/models", nil, &catalog); err != nil {
		return nil, err
	}
	return &catalog, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]chat.UserInfo, error) {
	var users []chat.UserInfo
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser adds an account; an empty role means user
func (c *Client) CreateUser(ctx context.Context, username, password, role string) (*chat.UserInfo, error) {
	body := map[string]string{"username": username, "password": password}
	if role != "" {
		body["role"] = role
	}
	var info chat.UserInfo
	if err := c.do(ctx, http.MethodPost, "/api/users", body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// UpdateUser changes the fields that are non-nil
func (c *Client) UpdateUser(ctx context.Context, username string, password, role *string) (*chat.UserInfo, error) {
	body := struct {
		Password *string `json:"password,omitempty"`
		Role     *string `json:"role,omitempty"`
	}{password, role}
	var info chat.UserInfo
	if err := c.do(ctx, http.MethodPut, "/api/users/"+url.PathEscape(username), body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) DeleteUser(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(username), nil, nil)
}

// CreateShare publishes a snapshot of messages
func (c *Client) CreateShare(ctx context.Context, title string, messages []chat.Message, model string) (*ShareLink, error) {
	body := struct {
		Title    string         `json:"title"`
		Messages []chat.Message `json:"messages"`
		Model    string         `json:"model"`
	}{title, messages, model}
	var link ShareLink
	if err := c.do(ctx, http.MethodPost, "/api/share", body, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// GetShare needs no credentials
func (c *Client) GetShare(ctx context.Context, id string) (*chat.Share, error) {
	var share chat.Share
	if err := c.do(ctx, http.MethodGet, "/api/share/"+url.PathEscape(id), nil, &share); err != nil {
		return nil, err
	}
	return &share, nil
}

func (c *Client) DeleteShare(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/share/"+url.PathEscape(id), nil, nil)
}

// Conversations returns the caller's saved list
func (c *Client) Conversations(ctx context.Context) ([]chat.Conversation, error) {
	var convs []chat.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// SaveConversations replaces the caller's whole saved list
func (c *Client) SaveConversations(ctx context.Context, convs []chat.Conversation) error {
	if convs == nil {
		convs = []chat.Conversation{}
	}
	return c.do(ctx, http.MethodPut, "/api/conversations", convs, nil)
}

func (c *Client) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	var conv chat.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/conversations/"+url.PathEscape(id), nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/conversations/"+url.PathEscape(id), nil, nil)
}

// Stream posts req to the chat endpoint and hands every event to fn in
// order. Rejections before the stream starts come back as *APIError.
func (c *Client) Stream(ctx context.Context, req *chat.ChatRequest, fn func(sse.Event) error) error {
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/chat", req)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	return sse.ReadEvents(resp.Body, fn)
}

// Result is the outcome of SendMessage
type Result struct {
	Conversation *chat.Conversation
	Usage        *chat.Usage
	// Aborted is set when ctx was cancelled mid-generation; the partial
	// reply stays in the conversation.
	Aborted bool
}

const titleLength = 50

// SendMessage appends text as a user message to conv, streams the reply
// into it and calls onUpdate after every text delta. conv is updated in
// place. Transport and HTTP failures replace the reply with an error marker
// and are returned as well; errors the relay sends in-band only show up in
// the reply text.
func (c *Client) SendMessage(ctx context.Context, conv *chat.Conversation, text string, onUpdate func(*chat.Conversation)) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("message is empty")
	}

	now := chat.NowMillis()
	if len(conv.Messages) == 0 {
		conv.Title = truncateRunes(text, titleLength)
	}
	if conv.CreatedAt == 0 {
		conv.CreatedAt = now
	}
	conv.Messages = append(chat.CloneMessages(conv.Messages), chat.Message{Role: chat.RoleUser, Content: text, Timestamp: now})
	conv.UpdatedAt = now

	req := &chat.ChatRequest{
		Messages:    conv.Messages,
		Model:       conv.Model,
		System:      conv.SystemPrompt,
		Temperature: conv.Temperature,
		MaxTokens:   conv.MaxTokens,
	}

	asm := NewAssembler(conv, onUpdate)
	err := c.Stream(ctx, req, func(ev sse.Event) error {
		asm.Apply(ev)
		return nil
	})

	result := &Result{Conversation: conv}
	switch {
	case err == nil:
		asm.Finish()
		result.Usage = asm.Usage()
	case ctx.Err() != nil:
		result.Aborted = true
	default:
		asm.Fail(err)
		return result, err
	}
	return result, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
