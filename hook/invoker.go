package hook

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/logging"
	"github.com/hupe1980/agentrig/model"
)

// Invoker calls a Hook on behalf of the prompt loop. A panicking hook is
// recovered and logged. The loop stops waiting for a hook once the timeout
// elapses (when positive) or the request context is done; the hook keeps
// running in the background.
type Invoker struct {
	hook    Hook
	stream  StreamHook
	timeout time.Duration
	logger  logging.Logger
}

// NewInvoker wraps h (nil means NoOp).
func NewInvoker(h Hook, timeout time.Duration, logger logging.Logger) *Invoker {
	h = OrNoOp(h)
	sh, _ := h.(StreamHook)
	return &Invoker{hook: h, stream: sh, timeout: timeout, logger: logging.OrNoOp(logger)}
}

// Streaming reports whether the wrapped hook observes stream deltas.
func (i *Invoker) Streaming() bool { return i.stream != nil }

// CompletionCall invokes Hook.OnCompletionCall.
func (i *Invoker) CompletionCall(ctx context.Context, prompt core.Message, history []core.Message, sig *core.CancelSignal) {
	i.call(ctx, "completion_call", func() { i.hook.OnCompletionCall(ctx, prompt, history, sig) })
}

// CompletionResponse invokes Hook.OnCompletionResponse.
func (i *Invoker) CompletionResponse(ctx context.Context, prompt core.Message, resp *model.CompletionResponse, sig *core.CancelSignal) {
	i.call(ctx, "completion_response", func() { i.hook.OnCompletionResponse(ctx, prompt, resp, sig) })
}

// ToolCall invokes Hook.OnToolCall.
func (i *Invoker) ToolCall(ctx context.Context, toolName, callID, args string, sig *core.CancelSignal) {
	i.call(ctx, "tool_call", func() { i.hook.OnToolCall(ctx, toolName, callID, args, sig) })
}

// ToolResult invokes Hook.OnToolResult.
func (i *Invoker) ToolResult(ctx context.Context, toolName, callID, args, result string, sig *core.CancelSignal) {
	i.call(ctx, "tool_result", func() { i.hook.OnToolResult(ctx, toolName, callID, args, result, sig) })
}

// TextDelta invokes StreamHook.OnTextDelta when supported.
func (i *Invoker) TextDelta(ctx context.Context, delta, aggregated string, sig *core.CancelSignal) {
	if i.stream == nil {
		return
	}
	i.call(ctx, "text_delta", func() { i.stream.OnTextDelta(ctx, delta, aggregated, sig) })
}

// ToolCallDelta invokes StreamHook.OnToolCallDelta when supported.
func (i *Invoker) ToolCallDelta(ctx context.Context, delta model.ToolCallDelta, sig *core.CancelSignal) {
	if i.stream == nil {
		return
	}
	i.call(ctx, "tool_call_delta", func() { i.stream.OnToolCallDelta(ctx, delta, sig) })
}

func (i *Invoker) call(ctx context.Context, point string, fn func()) {
	run := func() {
		defer func() {
			if r := recover(); r != nil {
				i.logger.Error("hook.panic", "point", point, "panic", fmt.Sprint(r))
			}
		}()
		fn()
	}

	if i.timeout <= 0 && ctx.Done() == nil {
		run()
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		run()
	}()

	var timeout <-chan time.Time
	if i.timeout > 0 {
		t := time.NewTimer(i.timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-done:
	case <-timeout:
		i.logger.Warn("hook.timeout", "point", point, "timeout", i.timeout)
	case <-ctx.Done():
		select {
		case <-done:
		default:
			i.logger.Warn("hook.abandoned", "point", point, "error", ctx.Err().Error())
		}
	}
}
