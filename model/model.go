package model

import (
	"context"

	"github.com/hupe1980/agentrig/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Params holds sampling parameters. Nil / zero fields leave the backend default in place.
type Params struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int64    `json:"max_tokens,omitempty"`
}

// Request captures the normalized backend input assembled by the prompt loop.
type Request struct {
	Model    string           `json:"model"`
	Messages []core.Message   `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Params   Params           `json:"params"`
}

// Choice is the interpreted outcome of one backend call: either final text or
// an ordered list of tool calls. Text produced alongside tool calls is kept
// so the assistant message can be replayed verbatim.
type Choice struct {
	Text      string          `json:"text,omitempty"`
	ToolCalls []core.ToolCall `json:"tool_calls,omitempty"`
}

// IsToolCalls reports whether the model requested tool invocations.
func (c Choice) IsToolCalls() bool { return len(c.ToolCalls) > 0 }

// Message renders the choice as the assistant message appended to the conversation.
func (c Choice) Message() core.Message {
	return core.AssistantMessage(c.Text, c.ToolCalls...)
}

// CompletionResponse is the reduced result of a backend call.
type CompletionResponse struct {
	Choice Choice     `json:"choice"`
	Usage  core.Usage `json:"usage"`
	Raw    any        `json:"-"` // Backend payload, not interpreted by agentrig
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "gemini", "mock"
	SupportsTools bool   `json:"supports_tools"`
}

// CompletionModel is the completion backend contract consumed by the prompt loop.
//
// Stream returns a finite, single-pass channel of events that is closed after
// a Done or StreamError event. Setup failures that happen before any event is
// produced may be returned directly instead.
type CompletionModel interface {
	Complete(ctx context.Context, req Request) (*CompletionResponse, error)
	Stream(ctx context.Context, req Request) (<-chan StreamEvent, error)

	// Info returns information about the model implementation.
	Info() Info
}
