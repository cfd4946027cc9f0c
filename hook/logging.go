package hook

import (
	"context"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/logging"
	"github.com/hupe1980/agentrig/model"
)

// LoggingHook writes one structured log line per lifecycle point.
//
// Example:
//
//	h := hook.NewLoggingHook(logging.NewDefaultSlogLogger())
type LoggingHook struct {
	logger logging.Logger
}

var _ Hook = (*LoggingHook)(nil)

// NewLoggingHook creates a LoggingHook. A nil logger discards output.
func NewLoggingHook(logger logging.Logger) *LoggingHook {
	return &LoggingHook{logger: logging.OrNoOp(logger)}
}

// OnCompletionCall implements Hook.
func (h *LoggingHook) OnCompletionCall(_ context.Context, prompt core.Message, history []core.Message, _ *core.CancelSignal) {
	h.logger.Info("hook.completion.call", "prompt", prompt.Text(), "history_len", len(history))
}

// OnCompletionResponse implements Hook.
func (h *LoggingHook) OnCompletionResponse(_ context.Context, _ core.Message, resp *model.CompletionResponse, _ *core.CancelSignal) {
	if resp == nil {
		return
	}
	h.logger.Info("hook.completion.response",
		"tool_calls", len(resp.Choice.ToolCalls),
		"text_len", len(resp.Choice.Text),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
}

// OnToolCall implements Hook.
func (h *LoggingHook) OnToolCall(_ context.Context, toolName, callID, args string, _ *core.CancelSignal) {
	h.logger.Info("hook.tool.call", "tool", toolName, "call_id", callID, "args", args)
}

// OnToolResult implements Hook.
func (h *LoggingHook) OnToolResult(_ context.Context, toolName, callID, _, result string, _ *core.CancelSignal) {
	h.logger.Info("hook.tool.result", "tool", toolName, "call_id", callID, "result", result)
}
