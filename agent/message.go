// Package agent drives a language model against the document tool server.
package agent

import (
	"errors"
	"fmt"
)

// ErrToolCallMismatch is returned when a tool message answers a call that
// the preceding assistant message did not make.
var ErrToolCallMismatch = errors.New("tool message does not answer a pending tool call")

// Role identifies the author of a transcript message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a function invocation requested by the model.
// Arguments is the JSON text exactly as the model produced it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is a single transcript entry.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// UserMessage returns a message authored by the user.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ToolMessage returns the answer to the tool call with the given id.
func ToolMessage(callID, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Content: content}
}

// Transcript is an append-only conversation.
type Transcript struct {
	messages []Message
	// pending holds the tool-call ids of the latest assistant message.
	pending map[string]bool
}

// NewTranscript returns a transcript seeded with messages.
func NewTranscript(messages ...Message) (*Transcript, error) {
	t := &Transcript{}
	for _, m := range messages {
		if err := t.Append(m); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Append adds m. Tool messages must answer a tool call made by the most
// recent assistant message, with only tool messages in between.
func (t *Transcript) Append(m Message) error {
	switch m.Role {
	case RoleTool:
		if !t.pending[m.ToolCallID] {
			return fmt.Errorf("%w: %q", ErrToolCallMismatch, m.ToolCallID)
		}
	case RoleAssistant:
		t.pending = make(map[string]bool, len(m.ToolCalls))
		for _, call := range m.ToolCalls {
			t.pending[call.ID] = true
		}
	case RoleUser, RoleSystem:
		t.pending = nil
	default:
		return fmt.Errorf("unknown role %q", m.Role)
	}
	t.messages = append(t.messages, m)
	return nil
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	return len(t.messages)
}

// Last returns the most recent message.
func (t *Transcript) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}
