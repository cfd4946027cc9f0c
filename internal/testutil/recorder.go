package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/hook"
	"github.com/hupe1980/agentrig/model"
)

// RecordingHook records every hook invocation as a compact string:
//
//	completion_call:<prompt>:<history len>
//	completion_response:<n tool calls>:<text>
//	tool_call:<name>:<id>
//	tool_result:<name>:<id>:<result>
//	text_delta:<delta>
//
// Tool-call deltas are counted but not recorded. Safe for concurrent use.
type RecordingHook struct {
	mu         sync.Mutex
	events     []string
	histories  [][]core.Message
	toolDeltas int

	// OnCall, when set, runs after an invocation was recorded.
	OnCall func(event string, sig *core.CancelSignal)
}

var _ hook.StreamHook = (*RecordingHook)(nil)

// NewRecordingHook creates an empty recorder.
func NewRecordingHook() *RecordingHook { return &RecordingHook{} }

func (r *RecordingHook) record(ev string, sig *core.CancelSignal) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	fn := r.OnCall
	r.mu.Unlock()
	if fn != nil {
		fn(ev, sig)
	}
}

// Events returns a copy of the recorded events.
func (r *RecordingHook) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Histories returns the history slices passed to OnCompletionCall.
func (r *RecordingHook) Histories() [][]core.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]core.Message(nil), r.histories...)
}

// ToolCallDeltas returns the number of observed tool-call deltas.
func (r *RecordingHook) ToolCallDeltas() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.toolDeltas
}

// OnCompletionCall implements hook.Hook.
func (r *RecordingHook) OnCompletionCall(_ context.Context, prompt core.Message, history []core.Message, sig *core.CancelSignal) {
	r.mu.Lock()
	r.histories = append(r.histories, core.CloneMessages(history))
	r.mu.Unlock()
	r.record(fmt.Sprintf("completion_call:%s:%d", prompt.Text(), len(history)), sig)
}

// OnCompletionResponse implements hook.Hook.
func (r *RecordingHook) OnCompletionResponse(_ context.Context, _ core.Message, resp *model.CompletionResponse, sig *core.CancelSignal) {
	r.record(fmt.Sprintf("completion_response:%d:%s", len(resp.Choice.ToolCalls), resp.Choice.Text), sig)
}

// OnToolCall implements hook.Hook.
func (r *RecordingHook) OnToolCall(_ context.Context, toolName, callID, _ string, sig *core.CancelSignal) {
	r.record(fmt.Sprintf("tool_call:%s:%s", toolName, callID), sig)
}

// OnToolResult implements hook.Hook.
func (r *RecordingHook) OnToolResult(_ context.Context, toolName, callID, _, result string, sig *core.CancelSignal) {
	r.record(fmt.Sprintf("tool_result:%s:%s:%s", toolName, callID, result), sig)
}

// OnTextDelta implements hook.StreamHook.
func (r *RecordingHook) OnTextDelta(_ context.Context, delta, _ string, sig *core.CancelSignal) {
	r.record("text_delta:"+delta, sig)
}

// OnToolCallDelta implements hook.StreamHook.
func (r *RecordingHook) OnToolCallDelta(context.Context, model.ToolCallDelta, *core.CancelSignal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toolDeltas++
}
