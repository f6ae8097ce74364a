// Package relay forwards an upstream provider's SSE stream to the client as
// normalized text/usage/error/done events.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"chat-relay/internal/apperr"
	"chat-relay/internal/logger"
	"chat-relay/internal/service/llm"
	"chat-relay/pkg/chat"
	"chat-relay/pkg/sse"

	"github.com/sirupsen/logrus"
)

const (
	readChunkSize    = 4096
	keepAliveComment = "keepalive"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// Relay streams one chat completion per call
type Relay struct {
	client    *http.Client
	keepAlive time.Duration
}

// NewRelay creates a relay. keepAlive is the interval between comment frames.
func NewRelay(client *http.Client, keepAlive time.Duration) *Relay {
	if client == nil {
		client = http.DefaultClient
	}
	return &Relay{client: client, keepAlive: keepAlive}
}

// NewHTTPClient returns a client suited to long-lived streams: connection
// setup is bounded by connectTimeout but the body may stream indefinitely.
func NewHTTPClient(connectTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout
	return &http.Client{Transport: transport}
}

// Stream sends req through provider and relays the result to w.
//
// An error is returned only when nothing has been written yet (missing API
// key, non-flushable writer); the caller still owns the response then. Once
// the event stream has started every failure is delivered in-band as an
// error event followed by done, and Stream returns nil. Cancelling ctx (the
// client went away) aborts the upstream request and ends the stream quietly.
func (r *Relay) Stream(ctx context.Context, w http.ResponseWriter, provider llm.Provider, req llm.ChatRequest) error {
	if _, ok := w.(http.Flusher); !ok {
		return ErrStreamingUnsupported
	}

	upstreamReq, err := provider.NewRequest(ctx, req)
	if err != nil {
		return err
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sw := sse.NewWriter(w)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	stopKeepAlive := r.startKeepAlive(ctx, sw)
	defer stopKeepAlive()

	log := logger.Log.WithFields(logrus.Fields{
		"provider": provider.Kind(),
		"model":    req.Model,
	})

	s := &session{provider: provider, sw: sw, log: log}
	if err := s.run(ctx, r.client, upstreamReq); err != nil {
		if ctx.Err() != nil {
			log.Info("Client disconnected, upstream request cancelled")
			return nil
		}
		log.WithError(err).Warn("Stream failed")
		sw.Send(sse.ErrorEvent(apperr.Message(err)))
		sw.Send(sse.DoneEvent())
		return nil
	}

	if s.usageSeen {
		sw.Send(sse.UsageEvent(s.usage))
	}
	sw.Send(sse.DoneEvent())

	log.WithFields(logrus.Fields{
		"text_events":   s.textEvents,
		"input_tokens":  s.usage.Input,
		"output_tokens": s.usage.Output,
	}).Info("Stream completed")
	return nil
}

// startKeepAlive writes a comment frame every interval until the returned
// stop function is called; stop waits for the goroutine to exit.
func (r *Relay) startKeepAlive(ctx context.Context, sw *sse.Writer) (stop func()) {
	if r.keepAlive <= 0 {
		return func() {}
	}

	kaCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(r.keepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-kaCtx.Done():
				return
			case <-ticker.C:
				if err := sw.Comment(keepAliveComment); err != nil {
					return
				}
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

// session holds the per-request streaming state
type session struct {
	provider llm.Provider
	sw       *sse.Writer
	log      *logrus.Entry

	usage      chat.Usage
	usageSeen  bool
	textEvents int
}

func (s *session) run(ctx context.Context, client *http.Client, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		s.log.WithField("status_code", resp.StatusCode).Warn("Upstream returned error status")
		return &apperr.UpstreamHTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	var dec sse.Decoder
	buf := make([]byte, readChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, line := range dec.Feed(buf[:n]) {
				if err := s.handleLine(line); err != nil {
					return err
				}
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return fmt.Errorf("error reading stream: %w", readErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	// The upstream may end without a trailing newline
	return s.handleLine(dec.Flush())
}

func (s *session) handleLine(line string) error {
	payload, ok := sse.DataPayload(line)
	if !ok {
		return nil
	}

	frames, err := s.provider.Classify([]byte(payload))
	if err != nil {
		s.log.WithError(err).Debug("Skipping malformed frame")
		return nil
	}

	for _, f := range frames {
		switch f.Kind {
		case llm.FrameText:
			if err := s.sw.Send(sse.TextEvent(f.Text)); err != nil {
				return fmt.Errorf("error writing to client: %w", err)
			}
			s.textEvents++
		case llm.FrameUsage:
			if f.Usage.Input != nil {
				s.usage.Input = *f.Usage.Input
			}
			if f.Usage.Output != nil {
				s.usage.Output = *f.Usage.Output
			}
			s.usageSeen = true
		case llm.FrameError:
			s.log.WithField("error", f.Err).Warn("Upstream reported error")
			if err := s.sw.Send(sse.ErrorEvent(f.Err)); err != nil {
				return fmt.Errorf("error writing to client: %w", err)
			}
		}
	}
	return nil
}
