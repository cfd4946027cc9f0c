package model

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentrig/core"
)

// MockTurn scripts the outcome of a single MockModel call.
type MockTurn struct {
	// Response is returned by Complete and replayed as deltas by Stream.
	Response CompletionResponse
	// Err fails the call. Stream reports it as a StreamError after the
	// scripted Events (if any).
	Err error
	// Events, when set, are emitted verbatim by Stream instead of deriving
	// deltas from Response.
	Events []StreamEvent
	// Delay is waited before the call produces anything.
	Delay time.Duration
}

// MockModel is a lightweight in‑memory CompletionModel useful for tests & examples.
//
// Calls consume scripted turns in FIFO order. Once the script is exhausted the
// model answers with a canned response registered for the last user text or
// echoes it back.
type MockModel struct {
	info      Info
	mu        sync.Mutex
	responses map[string]string
	turns     []MockTurn
	requests  []Request
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// AddTurn appends a scripted turn.
func (m *MockModel) AddTurn(turn MockTurn) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turn)
	return m
}

// AddText scripts a final-text turn.
func (m *MockModel) AddText(text string) *MockModel {
	return m.AddTurn(MockTurn{Response: CompletionResponse{Choice: Choice{Text: text}}})
}

// AddToolCalls scripts a turn requesting the given tool calls.
func (m *MockModel) AddToolCalls(calls ...core.ToolCall) *MockModel {
	return m.AddTurn(MockTurn{Response: CompletionResponse{Choice: Choice{ToolCalls: calls}}})
}

// AddError scripts a failing turn.
func (m *MockModel) AddError(err error) *MockModel {
	return m.AddTurn(MockTurn{Err: err})
}

// Requests returns a copy of every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of backend calls received.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *MockModel) next(req Request) MockTurn {
	m.mu.Lock()
	defer m.mu.Unlock()

	req.Messages = core.CloneMessages(req.Messages)
	m.requests = append(m.requests, req)

	if len(m.turns) > 0 {
		t := m.turns[0]
		m.turns = m.turns[1:]
		return t
	}

	var inputText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == core.RoleUser {
			inputText = req.Messages[i].Text()
			break
		}
	}
	full := m.responses[inputText]
	if full == "" {
		full = fmt.Sprintf("Mock response to: %s", inputText)
	}
	return MockTurn{Response: CompletionResponse{Choice: Choice{Text: full}}}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Complete implements CompletionModel.
func (m *MockModel) Complete(ctx context.Context, req Request) (*CompletionResponse, error) {
	turn := m.next(req)
	if err := wait(ctx, turn.Delay); err != nil {
		return nil, err
	}
	if turn.Err != nil {
		return nil, turn.Err
	}
	resp := turn.Response
	return &resp, nil
}

// Stream implements CompletionModel; emits text one rune at a time, each tool
// call as a header delta followed by an arguments delta, then usage and Done.
func (m *MockModel) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	turn := m.next(req)
	ch := make(chan StreamEvent, 16)

	go func() {
		defer close(ch)
		if err := wait(ctx, turn.Delay); err != nil {
			Send(ctx, ch, StreamError{Err: err})
			return
		}

		events := turn.Events
		if events == nil && turn.Err == nil {
			events = eventsFor(turn.Response)
		}
		for _, ev := range events {
			if !Send(ctx, ch, ev) {
				return
			}
		}
		if turn.Err != nil {
			Send(ctx, ch, StreamError{Err: turn.Err})
		}
	}()

	return ch, nil
}

// Info implements CompletionModel.
func (m *MockModel) Info() Info { return m.info }

func eventsFor(resp CompletionResponse) []StreamEvent {
	var events []StreamEvent
	for _, r := range resp.Choice.Text {
		events = append(events, TextDelta{Text: string(r)})
	}
	for i, call := range resp.Choice.ToolCalls {
		events = append(events,
			ToolCallDelta{Index: i, ID: call.ID, Name: call.Name},
			ToolCallDelta{Index: i, Arguments: call.Arguments},
		)
	}
	if resp.Usage != (core.Usage{}) {
		events = append(events, UsageReported{Usage: resp.Usage})
	}
	return append(events, Done{Raw: resp.Raw})
}
