package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chat-relay/internal/app"
	"chat-relay/internal/config"
	"chat-relay/internal/repository/db"
)

// AnthropicStream renders an Anthropic Messages stream that produces texts
// and reports the given token counts.
func AnthropicStream(texts []string, input, output int) string {
	var b strings.Builder
	b.WriteString("event: message_start\n")
	fmt.Fprintf(&b, "data: {\"type\":\"message_start\",\"message\":{\"usage\":{\"input_tokens\":%d,\"output_tokens\":1}}}\n\n", input)
	for _, text := range texts {
		b.WriteString("event: content_block_delta\n")
		fmt.Fprintf(&b, "data: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":%q}}\n\n", text)
	}
	b.WriteString("event: message_delta\n")
	fmt.Fprintf(&b, "data: {\"type\":\"message_delta\",\"usage\":{\"output_tokens\":%d}}\n\n", output)
	b.WriteString("event: message_stop\n")
	b.WriteString("data: {\"type\":\"message_stop\"}\n\n")
	return b.String()
}

// NewUpstreamServer starts a fake provider that answers every request with
// body as an event stream. Requests are passed to inspect when it is set.
func NewUpstreamServer(t *testing.T, body string, inspect func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// NewTestAppConfig builds the application config the router tests use.
// An empty anthropicURL leaves the provider without a key.
func NewTestAppConfig(anthropicURL string) *config.AppConfig {
	cfg := &config.AppConfig{
		Server: config.ServerConfig{Port: "3002"},
		LLM: config.LLMConfig{
			AnthropicBaseURL: "http://anthropic.test",
			AnthropicVersion: "2023-06-01",
			DefaultModel:     "claude-sonnet-4-5-20250929",
			DefaultMaxTokens: config.DefaultFallbackMaxTokens,
		},
		Auth:   config.AuthConfig{DefaultAdminPassword: "admin123"},
		Models: NewMockModelsConfig(),
	}
	if anthropicURL != "" {
		cfg.LLM.AnthropicAPIKey = "test-api-key"
		cfg.LLM.AnthropicBaseURL = anthropicURL
	}
	return cfg
}

// NewTestConfig is NewTestAppConfig wired into an app.Config
func NewTestConfig(database db.Database, anthropicURL string) *app.Config {
	return app.NewConfig(database, NewTestAppConfig(anthropicURL))
}
