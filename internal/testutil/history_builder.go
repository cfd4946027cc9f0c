package testutil

import "github.com/hupe1980/agentrig/core"

// HistoryBuilder helps construct conversation histories with fluent chaining.
// Example:
//
//	h := NewHistoryBuilder().User("hi").Assistant("hello").Build()
type HistoryBuilder struct {
	msgs []core.Message
}

// NewHistoryBuilder creates an empty builder.
func NewHistoryBuilder() *HistoryBuilder { return &HistoryBuilder{} }

// User appends a user message (chainable).
func (b *HistoryBuilder) User(text string) *HistoryBuilder {
	b.msgs = append(b.msgs, core.UserMessage(text))
	return b
}

// Assistant appends an assistant message, optionally carrying tool calls (chainable).
func (b *HistoryBuilder) Assistant(text string, calls ...core.ToolCall) *HistoryBuilder {
	b.msgs = append(b.msgs, core.AssistantMessage(text, calls...))
	return b
}

// ToolResult appends a tool message answering callID (chainable).
func (b *HistoryBuilder) ToolResult(callID, name, content string) *HistoryBuilder {
	b.msgs = append(b.msgs, core.ToolMessage(core.ToolResult{CallID: callID, Name: name, Content: content}))
	return b
}

// Build returns a copy of the accumulated messages.
func (b *HistoryBuilder) Build() []core.Message {
	return core.CloneMessages(b.msgs)
}
