package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-relay/internal/apperr"
	"chat-relay/internal/config"
	"chat-relay/internal/service/llm"
	"chat-relay/pkg/sse"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// chunkedBody returns its chunks one Read at a time, then err (io.EOF when nil)
type chunkedBody struct {
	ctx    context.Context
	chunks []string
	delay  time.Duration
	err    error
}

func (b *chunkedBody) Read(p []byte) (int, error) {
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-b.ctx.Done():
			return 0, b.ctx.Err()
		}
	}
	if err := b.ctx.Err(); err != nil {
		return 0, err
	}
	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.chunks[0])
	b.chunks[0] = b.chunks[0][n:]
	if b.chunks[0] == "" {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *chunkedBody) Close() error { return nil }

func upstream(status int, body *chunkedBody) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		body.ctx = r.Context()
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
			Body:       body,
			Request:    r,
		}, nil
	})}
}

func anthropic() llm.Provider {
	return llm.NewAnthropicProvider(&config.LLMConfig{
		AnthropicAPIKey:  "sk-test",
		AnthropicBaseURL: "http://upstream.test",
		AnthropicVersion: "2023-06-01",
	})
}

func testRequest() llm.ChatRequest {
	return llm.ChatRequest{
		Model:     "claude-sonnet-4-5-20250929",
		Messages:  []llm.Message{{Role: "user", Content: "Hello"}},
		MaxTokens: 64000,
	}
}

func readEvents(t *testing.T, body string) []sse.Event {
	t.Helper()
	var events []sse.Event
	if err := sse.ReadEvents(strings.NewReader(body), func(ev sse.Event) error {
		events = append(events, ev)
		return nil
	}); err != nil {
		t.Fatalf("ReadEvents() error = %v", err)
	}
	return events
}

func eventTypes(events []sse.Event) []sse.EventType {
	out := make([]sse.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func equalTypes(a, b []sse.EventType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

const anthropicStream = "event: message_start\n" +
	`data: {"type":"message_start","message":{"usage":{"input_tokens":10,"output_tokens":1}}}` + "\n\n" +
	"event: content_block_delta\n" +
	`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"A"}}` + "\n\n" +
	`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"B"}}` + "\n\n" +
	`data: {"type":"message_delta","usage":{"output_tokens":5}}` + "\n\n" +
	`data: {"type":"message_stop"}` + "\n\n"

func TestStream_EventOrder(t *testing.T) {
	r := NewRelay(upstream(200, &chunkedBody{chunks: []string{anthropicStream}}), time.Minute)
	rec := httptest.NewRecorder()

	if err := r.Stream(context.Background(), rec, anthropic(), testRequest()); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	for header, want := range map[string]string{
		"Content-Type":      "text/event-stream",
		"Cache-Control":     "no-cache, no-transform",
		"Connection":        "keep-alive",
		"X-Accel-Buffering": "no",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}

	events := readEvents(t, rec.Body.String())
	want := []sse.EventType{sse.EventText, sse.EventText, sse.EventUsage, sse.EventDone}
	if !equalTypes(eventTypes(events), want) {
		t.Fatalf("events = %v, want %v", eventTypes(events), want)
	}
	if events[0].Text != "A" || events[1].Text != "B" {
		t.Errorf("texts = %q, %q", events[0].Text, events[1].Text)
	}
	if u := events[2].Usage; u == nil || u.Input != 10 || u.Output != 5 {
		t.Errorf("usage = %+v, want {10 5}", events[2].Usage)
	}
}

func TestStream_ChunkBoundaries(t *testing.T) {
	frame := `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"héllo ✓"}}` + "\n\n"

	for split := 1; split < len(frame); split++ {
		body := &chunkedBody{chunks: []string{frame[:split], frame[split:]}}
		r := NewRelay(upstream(200, body), time.Minute)
		rec := httptest.NewRecorder()

		if err := r.Stream(context.Background(), rec, anthropic(), testRequest()); err != nil {
			t.Fatalf("split %d: Stream() error = %v", split, err)
		}

		events := readEvents(t, rec.Body.String())
		if len(events) != 2 || events[0].Type != sse.EventText || events[0].Text != "héllo ✓" {
			t.Fatalf("split %d: events = %+v, want one intact text event then done", split, events)
		}
	}
}

func TestStream_MalformedFrameSkipped(t *testing.T) {
	stream := `data: {"type":"content_block_delta","delta":{"text":"A"}}` + "\n" +
		`data: {"type":"content_block_delta",` + "\n" +
		"data: [DONE]\n" +
		"data:\n" +
		": comment\n" +
		`data: {"type":"content_block_delta","delta":{"text":"B"}}` + "\n"

	r := NewRelay(upstream(200, &chunkedBody{chunks: []string{stream}}), time.Minute)
	rec := httptest.NewRecorder()
	r.Stream(context.Background(), rec, anthropic(), testRequest())

	events := readEvents(t, rec.Body.String())
	want := []sse.EventType{sse.EventText, sse.EventText, sse.EventDone}
	if !equalTypes(eventTypes(events), want) {
		t.Fatalf("events = %v, want %v", eventTypes(events), want)
	}
	if events[0].Text != "A" || events[1].Text != "B" {
		t.Errorf("texts = %q, %q", events[0].Text, events[1].Text)
	}
}

func TestStream_TrailingFrameWithoutNewline(t *testing.T) {
	stream := `data: {"type":"content_block_delta","delta":{"text":"tail"}}`

	r := NewRelay(upstream(200, &chunkedBody{chunks: []string{stream}}), time.Minute)
	rec := httptest.NewRecorder()
	r.Stream(context.Background(), rec, anthropic(), testRequest())

	events := readEvents(t, rec.Body.String())
	if len(events) != 2 || events[0].Text != "tail" || events[1].Type != sse.EventDone {
		t.Errorf("events = %+v", events)
	}
}

func TestStream_UpstreamErrorStatus(t *testing.T) {
	errBody := `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`
	r := NewRelay(upstream(401, &chunkedBody{chunks: []string{errBody}}), time.Minute)
	rec := httptest.NewRecorder()

	if err := r.Stream(context.Background(), rec, anthropic(), testRequest()); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	events := readEvents(t, rec.Body.String())
	want := []sse.EventType{sse.EventError, sse.EventDone}
	if !equalTypes(eventTypes(events), want) {
		t.Fatalf("events = %v, want %v", eventTypes(events), want)
	}
	if events[0].Error != errBody {
		t.Errorf("error = %q, want upstream body verbatim", events[0].Error)
	}
}

func TestStream_InBandErrorContinues(t *testing.T) {
	stream := `data: {"type":"content_block_delta","delta":{"text":"A"}}` + "\n" +
		`data: {"type":"error","error":{"message":"Overloaded"}}` + "\n" +
		`data: {"type":"content_block_delta","delta":{"text":"B"}}` + "\n"

	r := NewRelay(upstream(200, &chunkedBody{chunks: []string{stream}}), time.Minute)
	rec := httptest.NewRecorder()
	r.Stream(context.Background(), rec, anthropic(), testRequest())

	events := readEvents(t, rec.Body.String())
	want := []sse.EventType{sse.EventText, sse.EventError, sse.EventText, sse.EventDone}
	if !equalTypes(eventTypes(events), want) {
		t.Fatalf("events = %v, want %v", eventTypes(events), want)
	}
	if events[1].Error != "Overloaded" {
		t.Errorf("error = %q", events[1].Error)
	}
}

func TestStream_ReadFailureMidStream(t *testing.T) {
	stream := `data: {"type":"message_start","message":{"usage":{"input_tokens":3,"output_tokens":0}}}` + "\n" +
		`data: {"type":"content_block_delta","delta":{"text":"partial"}}` + "\n"
	body := &chunkedBody{chunks: []string{stream}, err: errors.New("connection reset by peer")}

	r := NewRelay(upstream(200, body), time.Minute)
	rec := httptest.NewRecorder()

	if err := r.Stream(context.Background(), rec, anthropic(), testRequest()); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	events := readEvents(t, rec.Body.String())
	want := []sse.EventType{sse.EventText, sse.EventError, sse.EventDone}
	if !equalTypes(eventTypes(events), want) {
		t.Fatalf("events = %v, want %v (usage dropped on failure)", eventTypes(events), want)
	}
	if !strings.Contains(events[1].Error, "connection reset by peer") {
		t.Errorf("error = %q", events[1].Error)
	}
}

func TestStream_ConnectFailure(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})}
	r := NewRelay(client, time.Minute)
	rec := httptest.NewRecorder()

	if err := r.Stream(context.Background(), rec, anthropic(), testRequest()); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	events := readEvents(t, rec.Body.String())
	want := []sse.EventType{sse.EventError, sse.EventDone}
	if !equalTypes(eventTypes(events), want) {
		t.Fatalf("events = %v, want %v", eventTypes(events), want)
	}
}

func TestStream_MissingKeyWritesNothing(t *testing.T) {
	p := llm.NewAnthropicProvider(&config.LLMConfig{AnthropicBaseURL: "http://upstream.test"})
	r := NewRelay(upstream(200, &chunkedBody{}), time.Minute)
	rec := httptest.NewRecorder()

	err := r.Stream(context.Background(), rec, p, testRequest())
	if !errors.Is(err, apperr.ErrUpstreamConfig) {
		t.Fatalf("Stream() error = %v, want ErrUpstreamConfig", err)
	}
	if rec.Body.Len() != 0 || rec.Header().Get("Content-Type") == "text/event-stream" {
		t.Error("stream started although the key is missing")
	}
}

type plainWriter struct {
	header http.Header
}

func (w *plainWriter) Header() http.Header         { return w.header }
func (w *plainWriter) Write(p []byte) (int, error) { return len(p), nil }
func (w *plainWriter) WriteHeader(int)             {}

func TestStream_RequiresFlusher(t *testing.T) {
	r := NewRelay(upstream(200, &chunkedBody{}), time.Minute)

	err := r.Stream(context.Background(), &plainWriter{header: http.Header{}}, anthropic(), testRequest())
	if !errors.Is(err, ErrStreamingUnsupported) {
		t.Errorf("Stream() error = %v, want ErrStreamingUnsupported", err)
	}
}

func TestStream_KeepAlive(t *testing.T) {
	body := &chunkedBody{
		chunks: []string{`data: {"type":"content_block_delta","delta":{"text":"slow"}}` + "\n"},
		delay:  60 * time.Millisecond,
	}
	r := NewRelay(upstream(200, body), 10*time.Millisecond)
	rec := httptest.NewRecorder()

	if err := r.Stream(context.Background(), rec, anthropic(), testRequest()); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	out := rec.Body.String()
	if !strings.Contains(out, ": keepalive\n\n") {
		t.Errorf("no keepalive comment in output:\n%s", out)
	}
	if !strings.HasSuffix(out, `data: {"type":"done"}`+"\n\n") {
		t.Errorf("output does not end with done:\n%s", out)
	}

	// The keep-alive goroutine is joined before Stream returns
	before := rec.Body.Len()
	time.Sleep(40 * time.Millisecond)
	if rec.Body.Len() != before {
		t.Error("keepalive written after the stream ended")
	}
}

func TestStream_ClientCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	body := &chunkedBody{
		chunks: []string{
			`data: {"type":"content_block_delta","delta":{"text":"A"}}` + "\n",
			`data: {"type":"content_block_delta","delta":{"text":"B"}}` + "\n",
		},
		delay: 20 * time.Millisecond,
	}
	time.AfterFunc(30*time.Millisecond, cancel)

	r := NewRelay(upstream(200, body), time.Minute)
	rec := httptest.NewRecorder()

	if err := r.Stream(ctx, rec, anthropic(), testRequest()); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	for _, ev := range readEvents(t, rec.Body.String()) {
		if ev.Type == sse.EventError || ev.Type == sse.EventDone {
			t.Errorf("got %s event after client cancel", ev.Type)
		}
	}
}

func TestStream_OpenRouter(t *testing.T) {
	stream := `data: {"choices":[{"delta":{"role":"assistant","content":""}}]}` + "\n\n" +
		`data: {"choices":[{"delta":{"content":"Hi"}}]}` + "\n\n" +
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}` + "\n\n" +
		`data: {"choices":[],"usage":{"prompt_tokens":7,"completion_tokens":2}}` + "\n\n" +
		"data: [DONE]\n\n"

	p := llm.NewOpenRouterProvider(&config.LLMConfig{OpenRouterAPIKey: "k", OpenRouterBaseURL: "http://or.test"})
	r := NewRelay(upstream(200, &chunkedBody{chunks: []string{stream}}), time.Minute)
	rec := httptest.NewRecorder()
	r.Stream(context.Background(), rec, p, testRequest())

	events := readEvents(t, rec.Body.String())
	want := []sse.EventType{sse.EventText, sse.EventUsage, sse.EventDone}
	if !equalTypes(eventTypes(events), want) {
		t.Fatalf("events = %v, want %v", eventTypes(events), want)
	}
	if u := events[1].Usage; u.Input != 7 || u.Output != 2 {
		t.Errorf("usage = %+v", u)
	}
}
