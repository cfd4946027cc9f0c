package agent

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/logging"
	"github.com/hupe1980/agentrig/tool"
)

// toolOutcome is the result of one tool call.
type toolOutcome struct {
	call     core.ToolCall
	result   string
	err      error
	duration time.Duration
}

// text returns the content appended to the conversation for the call.
func (o toolOutcome) text() string {
	if o.err != nil {
		return o.err.Error()
	}
	return o.result
}

// dispatcher executes the tool calls of one turn, possibly in parallel.
// It never panics and returns exactly one outcome per call, in call order,
// regardless of completion order.
type dispatcher struct {
	registry    *tool.Registry
	maxParallel int
	logger      logging.Logger
}

func (d *dispatcher) execute(ctx context.Context, requestID string, sig *core.CancelSignal, calls []core.ToolCall) []toolOutcome {
	n := len(calls)
	if n == 0 {
		return nil
	}

	outcomes := make([]toolOutcome, n)

	// Fast path: single call, execute inline.
	if n == 1 {
		outcomes[0] = d.executeSingle(ctx, requestID, sig, calls[0])
		return outcomes
	}

	maxPar := d.maxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxPar)

	batchStart := time.Now()
	for i := range calls {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, call core.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()

			outcomes[idx] = d.executeSingle(ctx, requestID, sig, call)
		}(i, calls[i])
	}

	wg.Wait()

	d.logger.Debug(
		"agent.tools.batch.complete",
		"request_id", requestID,
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return outcomes
}

func (d *dispatcher) executeSingle(ctx context.Context, requestID string, sig *core.CancelSignal, call core.ToolCall) toolOutcome {
	out := toolOutcome{call: call}

	if sig.IsCancelled() {
		out.err = &tool.ToolError{Tool: call.Name, Message: "request cancelled before execution", Code: tool.CodeCancelled, Err: core.ErrCancelled}
		return out
	}
	if ctx.Err() != nil {
		out.err = &tool.ToolError{Tool: call.Name, Message: "request cancelled before execution", Code: tool.CodeCancelled, Err: ctx.Err()}
		return out
	}

	impl, ok := d.registry.Get(call.Name)
	if !ok {
		out.err = tool.NewUnknownToolError(call.Name)
		d.logger.Warn("agent.tool.unknown", "request_id", requestID, "tool", call.Name, "call_id", call.ID)
		return out
	}

	toolCtx := core.NewToolContext(ctx, requestID, call, sig, d.logger)

	start := time.Now()
	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				out.err = panicError(call.Name, r)
				d.logger.Error("agent.tool.panic", "request_id", requestID, "tool", call.Name, "recover", fmt.Sprint(r))
			}
		}()
		out.result, out.err = impl.Call(toolCtx, call.Arguments)
	}()
	out.duration = time.Since(start)

	d.logger.Info(
		"agent.tool.executed",
		"request_id", requestID,
		"tool", call.Name,
		"call_id", call.ID,
		"duration_ms", out.duration.Milliseconds(),
		"error", out.err != nil,
	)

	return out
}

// panicError converts a recovered panic value into a tool error carrying the stack.
func panicError(toolName string, r any) error {
	return &tool.ToolError{
		Tool:    toolName,
		Message: fmt.Sprintf("panic: %v", r),
		Code:    tool.CodePanic,
		Details: string(debug.Stack()),
	}
}
