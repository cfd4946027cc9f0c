package core

import (
	"fmt"
	"strings"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string
}

func (TextPart) isPart() {}

// ToolCall describes a tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id,omitempty"`        // Backend supplied id correlating call and result
	Name      string `json:"name"`                // Tool name
	Arguments string `json:"arguments,omitempty"` // Serialized argument payload (usually JSON)
}

// ToolCallPart wraps a ToolCall as a content part.
type ToolCallPart struct {
	ToolCall ToolCall
}

func (ToolCallPart) isPart() {}

// ToolResult describes the outcome of a tool call. Failed calls carry an
// error description in Content and IsError set.
type ToolResult struct {
	CallID  string `json:"call_id,omitempty"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// ToolResultPart wraps a ToolResult as a content part.
type ToolResultPart struct {
	ToolResult ToolResult
}

func (ToolResultPart) isPart() {}

// Message holds role + ordered parts.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// SystemMessage builds a system message with a single text part.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Parts: []Part{TextPart{Text: text}}}
}

// UserMessage builds a user message with a single text part.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart{Text: text}}}
}

// AssistantMessage builds an assistant message. Empty text is omitted so a
// pure tool-call turn carries only ToolCallParts.
func AssistantMessage(text string, calls ...ToolCall) Message {
	parts := make([]Part, 0, len(calls)+1)
	if text != "" {
		parts = append(parts, TextPart{Text: text})
	}
	for _, c := range calls {
		parts = append(parts, ToolCallPart{ToolCall: c})
	}
	return Message{Role: RoleAssistant, Parts: parts}
}

// ToolMessage builds a tool message carrying the given results in order.
func ToolMessage(results ...ToolResult) Message {
	parts := make([]Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, ToolResultPart{ToolResult: r})
	}
	return Message{Role: RoleTool, Parts: parts}
}

// Text concatenates all text parts of the message.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

// ToolCalls returns the tool calls contained in the message, in order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, p := range m.Parts {
		if cp, ok := p.(ToolCallPart); ok {
			calls = append(calls, cp.ToolCall)
		}
	}
	return calls
}

// ToolResults returns the tool results contained in the message, in order.
func (m Message) ToolResults() []ToolResult {
	var results []ToolResult
	for _, p := range m.Parts {
		if rp, ok := p.(ToolResultPart); ok {
			results = append(results, rp.ToolResult)
		}
	}
	return results
}

// CloneMessages returns a copy of msgs whose part slices are not shared with the input.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = Message{Role: m.Role, Parts: append([]Part(nil), m.Parts...)}
	}
	return out
}

// ValidateHistory checks role transitions of a conversation: every role must
// be known and every tool message must follow an assistant message (possibly
// through other tool messages) that requested the calls it answers. Results
// without a call id are accepted as long as a pending request exists.
func ValidateHistory(msgs []Message) error {
	var pending map[string]bool
	open := false
	for i, m := range msgs {
		switch m.Role {
		case RoleSystem, RoleUser:
			open = false
		case RoleAssistant:
			calls := m.ToolCalls()
			open = len(calls) > 0
			pending = make(map[string]bool, len(calls))
			for _, c := range calls {
				if c.ID != "" {
					pending[c.ID] = true
				}
			}
		case RoleTool:
			if !open {
				return fmt.Errorf("%w: message %d: tool message without preceding tool call request", ErrInvalidHistory, i)
			}
			for _, r := range m.ToolResults() {
				if r.CallID != "" && len(pending) > 0 && !pending[r.CallID] {
					return fmt.Errorf("%w: message %d: tool result for unknown call %q", ErrInvalidHistory, i, r.CallID)
				}
			}
		default:
			return fmt.Errorf("%w: message %d: unknown role %q", ErrInvalidHistory, i, m.Role)
		}
	}
	return nil
}
