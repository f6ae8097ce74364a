// Package sse implements the small slice of the server-sent events protocol
// the relay speaks: line splitting over arbitrary chunk boundaries, data
// payload extraction, and the normalized event frames sent to clients.
package sse

import (
	"encoding/json"

	"chat-relay/pkg/chat"
)

// EventType discriminates normalized relay events
type EventType string

const (
	EventText  EventType = "text"
	EventUsage EventType = "usage"
	EventError EventType = "error"
	EventDone  EventType = "done"
)

// Event is one normalized frame on the relay stream
type Event struct {
	Type  EventType   `json:"type"`
	Text  string      `json:"text,omitempty"`
	Usage *chat.Usage `json:"usage,omitempty"`
	Error string      `json:"error,omitempty"`
}

func TextEvent(text string) Event {
	return Event{Type: EventText, Text: text}
}

func UsageEvent(u chat.Usage) Event {
	return Event{Type: EventUsage, Usage: &u}
}

func ErrorEvent(msg string) Event {
	return Event{Type: EventError, Error: msg}
}

func DoneEvent() Event {
	return Event{Type: EventDone}
}

// ParseEvent decodes a data payload produced by the relay
func ParseEvent(payload string) (Event, error) {
	var ev Event
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}
