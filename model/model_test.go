package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrig/core"
)

func collect(t *testing.T, ch <-chan StreamEvent) []StreamEvent {
	t.Helper()
	var out []StreamEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestChoice(t *testing.T) {
	c := Choice{Text: "hi"}
	assert.False(t, c.IsToolCalls())
	assert.Equal(t, core.AssistantMessage("hi"), c.Message())

	c = Choice{ToolCalls: []core.ToolCall{{ID: "1", Name: "add", Arguments: "{}"}}}
	assert.True(t, c.IsToolCalls())
	assert.Len(t, c.Message().ToolCalls(), 1)
}

func TestMockModel_Complete(t *testing.T) {
	t.Run("scripted turns in order", func(t *testing.T) {
		m := NewMockModel("mock", "mock")
		m.AddToolCalls(core.ToolCall{ID: "c1", Name: "add", Arguments: `{"x":1}`}).AddText("done")

		resp, err := m.Complete(context.Background(), Request{Messages: []core.Message{core.UserMessage("q")}})
		require.NoError(t, err)
		assert.True(t, resp.Choice.IsToolCalls())

		resp, err = m.Complete(context.Background(), Request{})
		require.NoError(t, err)
		assert.Equal(t, "done", resp.Choice.Text)
		assert.Equal(t, 2, m.Calls())
	})

	t.Run("canned and echo fallback", func(t *testing.T) {
		m := NewMockModel("mock", "mock")
		m.AddResponse("ping", "pong")

		resp, err := m.Complete(context.Background(), Request{Messages: []core.Message{core.UserMessage("ping")}})
		require.NoError(t, err)
		assert.Equal(t, "pong", resp.Choice.Text)

		resp, err = m.Complete(context.Background(), Request{Messages: []core.Message{core.UserMessage("other")}})
		require.NoError(t, err)
		assert.Equal(t, "Mock response to: other", resp.Choice.Text)
	})

	t.Run("scripted error", func(t *testing.T) {
		boom := errors.New("boom")
		m := NewMockModel("mock", "mock").AddError(boom)
		_, err := m.Complete(context.Background(), Request{})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("delay honours context", func(t *testing.T) {
		m := NewMockModel("mock", "mock").AddTurn(MockTurn{Delay: time.Second})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := m.Complete(ctx, Request{})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("requests are snapshots", func(t *testing.T) {
		m := NewMockModel("mock", "mock")
		msgs := []core.Message{core.UserMessage("a")}
		_, err := m.Complete(context.Background(), Request{Messages: msgs})
		require.NoError(t, err)
		msgs[0] = core.UserMessage("mutated")
		assert.Equal(t, "a", m.Requests()[0].Messages[0].Text())
	})
}

func TestMockModel_Stream(t *testing.T) {
	t.Run("text and tool call deltas", func(t *testing.T) {
		m := NewMockModel("mock", "mock").AddTurn(MockTurn{Response: CompletionResponse{
			Choice: Choice{Text: "ok", ToolCalls: []core.ToolCall{{ID: "c1", Name: "add", Arguments: `{}`}}},
			Usage:  core.Usage{InputTokens: 3, OutputTokens: 2},
		}})

		ch, err := m.Stream(context.Background(), Request{})
		require.NoError(t, err)
		events := collect(t, ch)

		require.Len(t, events, 6)
		assert.Equal(t, TextDelta{Text: "o"}, events[0])
		assert.Equal(t, TextDelta{Text: "k"}, events[1])
		assert.Equal(t, ToolCallDelta{Index: 0, ID: "c1", Name: "add"}, events[2])
		assert.Equal(t, ToolCallDelta{Index: 0, Arguments: "{}"}, events[3])
		assert.Equal(t, UsageReported{Usage: core.Usage{InputTokens: 3, OutputTokens: 2}}, events[4])
		assert.IsType(t, Done{}, events[5])
	})

	t.Run("explicit events then error", func(t *testing.T) {
		boom := errors.New("boom")
		m := NewMockModel("mock", "mock").AddTurn(MockTurn{
			Events: []StreamEvent{TextDelta{Text: "par"}},
			Err:    boom,
		})

		ch, err := m.Stream(context.Background(), Request{})
		require.NoError(t, err)
		events := collect(t, ch)

		require.Len(t, events, 2)
		assert.Equal(t, TextDelta{Text: "par"}, events[0])
		se, ok := events[1].(StreamError)
		require.True(t, ok)
		assert.ErrorIs(t, se, boom)
	})
}

func TestSend(t *testing.T) {
	ch := make(chan StreamEvent)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, Send(ctx, ch, TextDelta{}))

	buf := make(chan StreamEvent, 1)
	assert.True(t, Send(context.Background(), buf, TextDelta{Text: "x"}))
}
