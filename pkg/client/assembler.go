package client

import (
	"chat-relay/pkg/chat"
	"chat-relay/pkg/sse"
)

const noResponseText = "[No response]"

// Assembler applies relay events to a conversation. Each text event grows
// the assistant reply, which always sits after the base messages.
type Assembler struct {
	conv     *chat.Conversation
	base     []chat.Message
	text     string
	usage    *chat.Usage
	onUpdate func(*chat.Conversation)
}

// NewAssembler starts a reply for conv. The messages conv holds now are the
// ones the reply follows; onUpdate may be nil.
func NewAssembler(conv *chat.Conversation, onUpdate func(*chat.Conversation)) *Assembler {
	return &Assembler{
		conv:     conv,
		base:     chat.CloneMessages(conv.Messages),
		onUpdate: onUpdate,
	}
}

// Apply handles one event
func (a *Assembler) Apply(ev sse.Event) {
	switch ev.Type {
	case sse.EventText:
		a.text += ev.Text
		a.setReply(a.text)
		if a.onUpdate != nil {
			a.onUpdate(a.conv)
		}
	case sse.EventUsage:
		if ev.Usage != nil {
			u := *ev.Usage
			a.usage = &u
		}
	case sse.EventError:
		a.text += "\n[Error: " + ev.Error + "]"
	}
}

// Text returns the reply accumulated so far
func (a *Assembler) Text() string {
	return a.text
}

// Usage returns the usage reported by the stream, if any
func (a *Assembler) Usage() *chat.Usage {
	return a.usage
}

// Finish writes the final reply and attaches the usage
func (a *Assembler) Finish() {
	text := a.text
	if text == "" {
		text = noResponseText
	}
	a.setReply(text)
	if a.usage != nil {
		a.conv.LastUsage = a.usage
	}
}

// Fail replaces the reply with an error marker for a stream that broke
// before or while it was read.
func (a *Assembler) Fail(err error) {
	a.setReply("[Error: " + err.Error() + "]")
}

func (a *Assembler) setReply(text string) {
	msgs := make([]chat.Message, len(a.base), len(a.base)+1)
	copy(msgs, a.base)
	a.conv.Messages = append(msgs, chat.Message{
		Role:      chat.RoleAssistant,
		Content:   text,
		Timestamp: chat.NowMillis(),
	})
	a.conv.UpdatedAt = chat.NowMillis()
}
