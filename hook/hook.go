package hook

import (
	"context"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/model"
)

// Hook observes the prompt loop at fixed lifecycle points.
//
// Hooks provide a way to instrument a request without modifying the loop:
//   - OnCompletionCall: before every backend call
//   - OnCompletionResponse: after every successful backend call
//   - OnToolCall: before a tool runs
//   - OnToolResult: after a tool produced its result text
//
// Hooks are invoked synchronously, in the order the loop reaches those
// points, and the loop waits for each call to return. A hook may request
// cancellation of the whole request by calling sig.Cancel(); the loop
// notices at its next cancellation check. Hooks have no return value and
// cannot alter messages.
//
// Implementations should be fast: they run on the request goroutine.
type Hook interface {
	// OnCompletionCall receives the prompt and the history preceding it,
	// exactly as they are about to be sent (context blocks excluded).
	OnCompletionCall(ctx context.Context, prompt core.Message, history []core.Message, sig *core.CancelSignal)

	// OnCompletionResponse receives the reduced backend response.
	OnCompletionResponse(ctx context.Context, prompt core.Message, resp *model.CompletionResponse, sig *core.CancelSignal)

	// OnToolCall is called once per tool call before dispatch.
	OnToolCall(ctx context.Context, toolName, callID, args string, sig *core.CancelSignal)

	// OnToolResult is called once per tool call after the turn's tools completed.
	// result is the text appended to the conversation (error text on failure).
	OnToolResult(ctx context.Context, toolName, callID, args, result string, sig *core.CancelSignal)
}

// StreamHook is an optional extension observed during streaming requests.
// The loop detects it by type assertion on the configured Hook.
type StreamHook interface {
	Hook

	// OnTextDelta receives each text fragment and the text aggregated so far in the turn.
	OnTextDelta(ctx context.Context, delta, aggregated string, sig *core.CancelSignal)

	// OnToolCallDelta receives each tool-call fragment as emitted by the backend.
	OnToolCallDelta(ctx context.Context, delta model.ToolCallDelta, sig *core.CancelSignal)
}

// NoOp implements StreamHook with empty methods. It is the default hook and
// can be embedded to implement only the methods of interest.
type NoOp struct{}

var _ StreamHook = NoOp{}

func (NoOp) OnCompletionCall(context.Context, core.Message, []core.Message, *core.CancelSignal) {}

func (NoOp) OnCompletionResponse(context.Context, core.Message, *model.CompletionResponse, *core.CancelSignal) {
}

func (NoOp) OnToolCall(context.Context, string, string, string, *core.CancelSignal) {}

func (NoOp) OnToolResult(context.Context, string, string, string, string, *core.CancelSignal) {}

func (NoOp) OnTextDelta(context.Context, string, string, *core.CancelSignal) {}

func (NoOp) OnToolCallDelta(context.Context, model.ToolCallDelta, *core.CancelSignal) {}

// OrNoOp returns h or NoOp when h is nil.
func OrNoOp(h Hook) Hook {
	if h == nil {
		return NoOp{}
	}
	return h
}

// Funcs wraps plain functions as a hook. Nil fields are skipped.
//
// Example:
//
//	h := &hook.Funcs{
//	    ToolResult: func(ctx context.Context, name, id, args, result string, sig *core.CancelSignal) {
//	        log.Printf("tool %s -> %s", name, result)
//	    },
//	}
type Funcs struct {
	CompletionCall     func(ctx context.Context, prompt core.Message, history []core.Message, sig *core.CancelSignal)
	CompletionResponse func(ctx context.Context, prompt core.Message, resp *model.CompletionResponse, sig *core.CancelSignal)
	ToolCall           func(ctx context.Context, toolName, callID, args string, sig *core.CancelSignal)
	ToolResult         func(ctx context.Context, toolName, callID, args, result string, sig *core.CancelSignal)
	TextDelta          func(ctx context.Context, delta, aggregated string, sig *core.CancelSignal)
	ToolCallDelta      func(ctx context.Context, delta model.ToolCallDelta, sig *core.CancelSignal)
}

var _ StreamHook = (*Funcs)(nil)

// OnCompletionCall implements Hook.
func (f *Funcs) OnCompletionCall(ctx context.Context, prompt core.Message, history []core.Message, sig *core.CancelSignal) {
	if f.CompletionCall != nil {
		f.CompletionCall(ctx, prompt, history, sig)
	}
}

// OnCompletionResponse implements Hook.
func (f *Funcs) OnCompletionResponse(ctx context.Context, prompt core.Message, resp *model.CompletionResponse, sig *core.CancelSignal) {
	if f.CompletionResponse != nil {
		f.CompletionResponse(ctx, prompt, resp, sig)
	}
}

// OnToolCall implements Hook.
func (f *Funcs) OnToolCall(ctx context.Context, toolName, callID, args string, sig *core.CancelSignal) {
	if f.ToolCall != nil {
		f.ToolCall(ctx, toolName, callID, args, sig)
	}
}

// OnToolResult implements Hook.
func (f *Funcs) OnToolResult(ctx context.Context, toolName, callID, args, result string, sig *core.CancelSignal) {
	if f.ToolResult != nil {
		f.ToolResult(ctx, toolName, callID, args, result, sig)
	}
}

// OnTextDelta implements StreamHook.
func (f *Funcs) OnTextDelta(ctx context.Context, delta, aggregated string, sig *core.CancelSignal) {
	if f.TextDelta != nil {
		f.TextDelta(ctx, delta, aggregated, sig)
	}
}

// OnToolCallDelta implements StreamHook.
func (f *Funcs) OnToolCallDelta(ctx context.Context, delta model.ToolCallDelta, sig *core.CancelSignal) {
	if f.ToolCallDelta != nil {
		f.ToolCallDelta(ctx, delta, sig)
	}
}

// Multi fans every call out to its hooks in registration order. Stream
// callbacks reach only the hooks implementing StreamHook.
type Multi []Hook

var _ StreamHook = Multi(nil)

// NewMulti builds a Multi skipping nil hooks.
func NewMulti(hooks ...Hook) Multi {
	m := make(Multi, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			m = append(m, h)
		}
	}
	return m
}

// OnCompletionCall implements Hook.
func (m Multi) OnCompletionCall(ctx context.Context, prompt core.Message, history []core.Message, sig *core.CancelSignal) {
	for _, h := range m {
		h.OnCompletionCall(ctx, prompt, history, sig)
	}
}

// OnCompletionResponse implements Hook.
func (m Multi) OnCompletionResponse(ctx context.Context, prompt core.Message, resp *model.CompletionResponse, sig *core.CancelSignal) {
	for _, h := range m {
		h.OnCompletionResponse(ctx, prompt, resp, sig)
	}
}

// OnToolCall implements Hook.
func (m Multi) OnToolCall(ctx context.Context, toolName, callID, args string, sig *core.CancelSignal) {
	for _, h := range m {
		h.OnToolCall(ctx, toolName, callID, args, sig)
	}
}

// OnToolResult implements Hook.
func (m Multi) OnToolResult(ctx context.Context, toolName, callID, args, result string, sig *core.CancelSignal) {
	for _, h := range m {
		h.OnToolResult(ctx, toolName, callID, args, result, sig)
	}
}

// OnTextDelta implements StreamHook.
func (m Multi) OnTextDelta(ctx context.Context, delta, aggregated string, sig *core.CancelSignal) {
	for _, h := range m {
		if sh, ok := h.(StreamHook); ok {
			sh.OnTextDelta(ctx, delta, aggregated, sig)
		}
	}
}

// OnToolCallDelta implements StreamHook.
func (m Multi) OnToolCallDelta(ctx context.Context, delta model.ToolCallDelta, sig *core.CancelSignal) {
	for _, h := range m {
		if sh, ok := h.(StreamHook); ok {
			sh.OnToolCallDelta(ctx, delta, sig)
		}
	}
}
