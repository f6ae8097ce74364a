package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"chat-relay/internal/apperr"
	"chat-relay/internal/config"
	"chat-relay/internal/logger"

	"github.com/sirupsen/logrus"
)

// OpenRouterProvider streams from OpenRouter's OpenAI-compatible chat API
type OpenRouterProvider struct {
	apiKey  string
	baseURL string
	referer string
	title   string
}

// NewOpenRouterProvider creates a new OpenRouter provider with config
func NewOpenRouterProvider(llmConfig *config.LLMConfig) *OpenRouterProvider {
	return &OpenRouterProvider{
		apiKey:  llmConfig.OpenRouterAPIKey,
		baseURL: llmConfig.OpenRouterBaseURL,
		referer: llmConfig.HTTPReferer,
		title:   llmConfig.AppTitle,
	}
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type openRouterRequest struct {
	Model         string         `json:"model"`
	MaxTokens     int            `json:"max_tokens"`
	Stream        bool           `json:"stream"`
	Messages      []Message      `json:"messages"`
	Temperature   *float64       `json:"temperature,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type responseUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type streamChunk struct {
	ID      string `json:"id"`
	Choices []struct {
		Delta struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *responseUsage `json:"usage,omitempty"`
	Error *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenRouterProvider) Kind() config.ProviderKind {
	return config.ProviderOpenRouter
}

func (p *OpenRouterProvider) Configured() bool {
	return p.apiKey != ""
}

// buildMessages prepends the system prompt as a system message
func buildMessages(messages []Message, system string) []Message {
	if system == "" {
		return messages
	}
	return append([]Message{{Role: "system", Content: system}}, messages...)
}

// NewRequest builds POST {base}/chat/completions with usage reporting enabled
func (p *OpenRouterProvider) NewRequest(ctx context.Context, req ChatRequest) (*http.Request, error) {
	if !p.Configured() {
		return nil, fmt.Errorf("%w: OPENROUTER_API_KEY not set", apperr.ErrUpstreamConfig)
	}

	reqBody := openRouterRequest{
		Model:         req.Model,
		MaxTokens:     req.MaxTokens,
		Stream:        true,
		Messages:      buildMessages(req.Messages, req.System),
		Temperature:   req.Temperature,
		StreamOptions: &streamOptions{IncludeUsage: true},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("HTTP-Referer", p.referer)
	httpReq.Header.Set("X-Title", p.title)

	tempStr := "nil"
	if req.Temperature != nil {
		tempStr = fmt.Sprintf("%.2f", *req.Temperature)
	}
	logger.Log.WithFields(logrus.Fields{
		"model":         req.Model,
		"temperature":   tempStr,
		"max_tokens":    req.MaxTokens,
		"message_count": len(req.Messages),
	}).Info("Calling OpenRouter API (streaming)")

	return httpReq, nil
}

// Classify maps one chat.completion.chunk to frames. A chunk can carry
// content and usage together; the text frame comes first.
func (p *OpenRouterProvider) Classify(payload []byte) ([]Frame, error) {
	var chunk streamChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, err
	}

	if chunk.Error != nil {
		msg := chunk.Error.Message
		if msg == "" {
			msg = "Unknown API error"
		}
		return []Frame{{Kind: FrameError, Err: msg}}, nil
	}

	var frames []Frame
	if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
		frames = append(frames, Frame{Kind: FrameText, Text: chunk.Choices[0].Delta.Content})
	}
	if chunk.Usage != nil {
		frames = append(frames, Frame{Kind: FrameUsage, Usage: UsageUpdate{
			Input:  intPtr(chunk.Usage.PromptTokens),
			Output: intPtr(chunk.Usage.CompletionTokens),
		}})
	}
	if len(chunk.Choices) > 0 {
		if fr := chunk.Choices[0].FinishReason; fr != nil && *fr != "" {
			frames = append(frames, Frame{Kind: FrameStop})
		}
	}
	return frames, nil
}
