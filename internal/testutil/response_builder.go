package testutil

import (
	"fmt"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/model"
)

// ResponseBuilder provides a fluent helper for scripting backend responses.
// Example:
//
//	resp := NewResponseBuilder().ToolCall("add", `{"x":1}`).Usage(10, 2).Build()
//
// Tool calls without an explicit id get "call_<n>".
type ResponseBuilder struct {
	text  string
	calls []core.ToolCall
	usage core.Usage
}

// NewResponseBuilder creates an empty builder.
func NewResponseBuilder() *ResponseBuilder { return &ResponseBuilder{} }

// Text sets the assistant text (chainable).
func (b *ResponseBuilder) Text(t string) *ResponseBuilder { b.text = t; return b }

// ToolCall appends a tool call with a generated id (chainable).
func (b *ResponseBuilder) ToolCall(name, args string) *ResponseBuilder {
	return b.ToolCallWithID(fmt.Sprintf("call_%d", len(b.calls)+1), name, args)
}

// ToolCallWithID appends a tool call with an explicit id (chainable).
func (b *ResponseBuilder) ToolCallWithID(id, name, args string) *ResponseBuilder {
	b.calls = append(b.calls, core.ToolCall{ID: id, Name: name, Arguments: args})
	return b
}

// Usage sets token usage (chainable).
func (b *ResponseBuilder) Usage(in, out int64) *ResponseBuilder {
	b.usage = core.Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
	return b
}

// Build returns the completion response.
func (b *ResponseBuilder) Build() model.CompletionResponse {
	return model.CompletionResponse{
		Choice: model.Choice{Text: b.text, ToolCalls: append([]core.ToolCall(nil), b.calls...)},
		Usage:  b.usage,
	}
}

// Turn wraps the response as a scripted MockModel turn.
func (b *ResponseBuilder) Turn() model.MockTurn { return model.MockTurn{Response: b.Build()} }
