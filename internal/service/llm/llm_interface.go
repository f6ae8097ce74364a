package llm

import (
	"context"
	"net/http"

	"chat-relay/internal/config"
)

// Provider adapts one upstream streaming API. It builds the outgoing request
// and turns each SSE data payload into provider-neutral frames; the relay
// never looks at provider field names.
type Provider interface {
	// Kind returns the provider tag this adapter serves
	Kind() config.ProviderKind

	// Configured reports whether the provider has an API key
	Configured() bool

	// NewRequest builds the streaming HTTP request for req. It returns an
	// error wrapping apperr.ErrUpstreamConfig when no key is configured.
	NewRequest(ctx context.Context, req ChatRequest) (*http.Request, error)

	// Classify converts one data payload into zero or more frames in order.
	// A payload that is not valid JSON yields an error.
	Classify(payload []byte) ([]Frame, error)
}

// Message is the upstream form of a conversation turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the provider-neutral request handed to adapters
type ChatRequest struct {
	Model       string
	Messages    []Message
	System      string
	Temperature *float64
	MaxTokens   int
}

// FrameKind discriminates classified payloads
type FrameKind int

const (
	FrameIgnore FrameKind = iota
	FrameText
	FrameUsage
	FrameError
	FrameStop
)

func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "text"
	case FrameUsage:
		return "usage"
	case FrameError:
		return "error"
	case FrameStop:
		return "stop"
	default:
		return "ignore"
	}
}

// UsageUpdate reports token counts; a nil field leaves the running value as is
type UsageUpdate struct {
	Input  *int
	Output *int
}

// Frame is one classified upstream event
type Frame struct {
	Kind  FrameKind
	Text  string
	Usage UsageUpdate
	Err   string
}
