package core

import (
	"context"

	"github.com/hupe1980/agentrig/logging"
)

// ToolContext provides a constrained surface for tool implementations invoked
// by the prompt loop: the request context (cancelled when the request's
// CancelSignal fires), the call identity, the signal itself and a logger
// pre-populated with call attributes.
type ToolContext struct {
	ctx       context.Context
	requestID string
	callID    string
	toolName  string
	cancel    *CancelSignal
	logger    logging.Logger
}

// NewToolContext constructs a tool context for a single tool call.
func NewToolContext(ctx context.Context, requestID string, call ToolCall, sig *CancelSignal, logger logging.Logger) *ToolContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ToolContext{
		ctx:       ctx,
		requestID: requestID,
		callID:    call.ID,
		toolName:  call.Name,
		cancel:    sig,
		logger:    logging.OrNoOp(logger),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// RequestID returns the id of the prompt request that issued the call.
func (tc *ToolContext) RequestID() string { return tc.requestID }

// CallID returns the backend supplied tool call id.
func (tc *ToolContext) CallID() string { return tc.callID }

// ToolName returns the name the model used to invoke the tool.
func (tc *ToolContext) ToolName() string { return tc.toolName }

// CancelSignal returns the request's cancellation signal (may be nil).
func (tc *ToolContext) CancelSignal() *CancelSignal { return tc.cancel }

// IsCancelled reports whether the request was cancelled, either through the
// CancelSignal or through the context.
func (tc *ToolContext) IsCancelled() bool {
	return tc.cancel.IsCancelled() || tc.ctx.Err() != nil
}

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }

// LogDebug logs a debug message tagged with the call identity.
func (tc *ToolContext) LogDebug(msg string, args ...any) {
	tc.logger.Debug(msg, tc.attrs(args)...)
}

// LogInfo logs an info message tagged with the call identity.
func (tc *ToolContext) LogInfo(msg string, args ...any) {
	tc.logger.Info(msg, tc.attrs(args)...)
}

// LogError logs an error message tagged with the call identity.
func (tc *ToolContext) LogError(msg string, args ...any) {
	tc.logger.Error(msg, tc.attrs(args)...)
}

func (tc *ToolContext) attrs(args []any) []any {
	return append([]any{"request_id", tc.requestID, "tool", tc.toolName, "call_id", tc.callID}, args...)
}
