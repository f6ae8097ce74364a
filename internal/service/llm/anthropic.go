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

// AnthropicProvider streams from the Anthropic Messages API
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	version string
}

// NewAnthropicProvider creates a new Anthropic provider with config
func NewAnthropicProvider(llmConfig *config.LLMConfig) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey:  llmConfig.AnthropicAPIKey,
		baseURL: llmConfig.AnthropicBaseURL,
		version: llmConfig.AnthropicVersion,
	}
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
	Messages    []Message `json:"messages"`
	System      string    `json:"system,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type anthropicUsage struct {
	InputTokens  *int `json:"input_tokens"`
	OutputTokens *int `json:"output_tokens"`
}

type anthropicEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Message *struct {
		Usage *anthropicUsage `json:"usage"`
	} `json:"message"`
	Usage *anthropicUsage `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *AnthropicProvider) Kind() config.ProviderKind {
	return config.ProviderAnthropic
}

func (p *AnthropicProvider) Configured() bool {
	return p.apiKey != ""
}

// NewRequest builds POST {base}/v1/messages with streaming enabled
func (p *AnthropicProvider) NewRequest(ctx context.Context, req ChatRequest) (*http.Request, error) {
	if !p.Configured() {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY not set", apperr.ErrUpstreamConfig)
	}

	reqBody := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
		Messages:    req.Messages,
		System:      req.System,
		Temperature: req.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", p.version)

	logger.Log.WithFields(logrus.Fields{
		"model":         req.Model,
		"max_tokens":    req.MaxTokens,
		"message_count": len(req.Messages),
	}).Info("Calling Anthropic API (streaming)")

	return httpReq, nil
}

// Classify maps Messages API stream events to frames
func (p *AnthropicProvider) Classify(payload []byte) ([]Frame, error) {
	var ev anthropicEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}

	switch ev.Type {
	case "content_block_delta":
		if ev.Delta != nil && ev.Delta.Text != "" {
			return []Frame{{Kind: FrameText, Text: ev.Delta.Text}}, nil
		}
	case "message_start":
		if ev.Message != nil && ev.Message.Usage != nil {
			return []Frame{{Kind: FrameUsage, Usage: UsageUpdate{
				Input:  ev.Message.Usage.InputTokens,
				Output: ev.Message.Usage.OutputTokens,
			}}}, nil
		}
	case "message_delta":
		if ev.Usage != nil && ev.Usage.OutputTokens != nil {
			return []Frame{{Kind: FrameUsage, Usage: UsageUpdate{Output: ev.Usage.OutputTokens}}}, nil
		}
	case "error":
		msg := "Unknown API error"
		if ev.Error != nil && ev.Error.Message != "" {
			msg = ev.Error.Message
		}
		return []Frame{{Kind: FrameError, Err: msg}}, nil
	case "message_stop":
		return []Frame{{Kind: FrameStop}}, nil
	}
	return nil, nil
}
