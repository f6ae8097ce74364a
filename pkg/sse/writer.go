package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Writer emits SSE frames and flushes after each one. It is safe for
// concurrent use so a keep-alive ticker can share the response with the
// event loop.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w; if w is an http.Flusher every frame is flushed
func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

// Send writes ev as a single data frame
func (sw *Writer) Send(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("error marshaling event: %w", err)
	}
	return sw.write("data: " + string(data) + "\n\n")
}

// Comment writes a comment-only frame, which clients ignore
func (sw *Writer) Comment(text string) error {
	return sw.write(": " + text + "\n\n")
}

func (sw *Writer) write(frame string) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if _, err := io.WriteString(sw.w, frame); err != nil {
		return err
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}
