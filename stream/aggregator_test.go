package stream

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/model"
)

func source(events ...model.StreamEvent) <-chan model.StreamEvent {
	ch := make(chan model.StreamEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func TestAggregator_ForwardsInOrderAndReduces(t *testing.T) {
	events := []model.StreamEvent{
		model.TextDelta{Text: "Hel"},
		model.TextDelta{Text: ""},
		model.TextDelta{Text: "lo"},
		model.ToolCallDelta{Index: 1, ID: "c2", Name: "mul"},
		model.ToolCallDelta{Index: 0, ID: "c1", Name: "add"},
		model.ToolCallDelta{Index: 0, Arguments: `{"x":`},
		model.ToolCallDelta{Index: 1, Arguments: `{}`},
		model.ToolCallDelta{Index: 0, Arguments: `1}`},
		model.UsageReported{Usage: core.Usage{InputTokens: 7}},
		model.UsageReported{Usage: core.Usage{OutputTokens: 3}},
		model.Done{Raw: "raw"},
	}

	a := New(context.Background(), source(events...))

	var got []model.StreamEvent
	for ev := range a.Events() {
		got = append(got, ev)
	}
	assert.Equal(t, events, got)

	resp, err := a.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello", resp.Choice.Text)
	assert.Equal(t, []core.ToolCall{
		{ID: "c1", Name: "add", Arguments: `{"x":1}`},
		{ID: "c2", Name: "mul", Arguments: `{}`},
	}, resp.Choice.ToolCalls)
	assert.Equal(t, core.Usage{InputTokens: 7, OutputTokens: 3}, resp.Usage)
	assert.Equal(t, "raw", resp.Raw)
}

func TestAggregator_ConcatenationEqualsFinalText(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog."
	m := model.NewMockModel("mock", "mock").AddText(text)
	src, err := m.Stream(context.Background(), model.Request{})
	require.NoError(t, err)

	a := New(context.Background(), src, func(o *Options) { o.BufferSize = 1 })
	var b strings.Builder
	for ev := range a.Events() {
		if d, ok := ev.(model.TextDelta); ok {
			b.WriteString(d.Text)
		}
	}
	resp, err := a.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, text, b.String())
	assert.Equal(t, text, resp.Choice.Text)
}

func TestAggregator_ErrorMidStreamKeepsPartial(t *testing.T) {
	boom := errors.New("connection reset")
	a := New(context.Background(), source(
		model.TextDelta{Text: "partial"},
		model.ToolCallDelta{Index: 0, ID: "c1", Name: "add", Arguments: `{"x"`},
		model.StreamError{Err: core.NewBackendError(core.BackendErrorNetwork, "read", boom)},
		model.TextDelta{Text: " ignored"},
	))

	var n int
	for range a.Events() {
		n++
	}
	assert.Equal(t, 4, n, "events after the terminal event are still forwarded")

	resp, err := a.Wait(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrBackend)
	assert.ErrorIs(t, err, boom)

	var be *core.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, core.BackendErrorNetwork, be.Kind)

	require.NotNil(t, resp)
	assert.Equal(t, "partial", resp.Choice.Text)
	assert.Len(t, resp.Choice.ToolCalls, 1)
}

func TestAggregator_UnclassifiedStreamError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Reduce(context.Background(), source(model.StreamError{Err: boom}))
	assert.ErrorIs(t, err, core.ErrBackend)
	assert.ErrorIs(t, err, boom)
}

func TestAggregator_ClosedWithoutDone(t *testing.T) {
	resp, err := Reduce(context.Background(), source(model.TextDelta{Text: "hi"}))
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Choice.Text)
	assert.False(t, resp.Choice.IsToolCalls())
}

func TestAggregator_EmptyStream(t *testing.T) {
	resp, err := Reduce(context.Background(), source())
	require.NoError(t, err)
	assert.Equal(t, "", resp.Choice.Text)
	assert.Nil(t, resp.Choice.ToolCalls)
}

func TestAggregator_WaitWithoutReadingEvents(t *testing.T) {
	events := make([]model.StreamEvent, 0, 200)
	for i := 0; i < 199; i++ {
		events = append(events, model.TextDelta{Text: "x"})
	}
	events = append(events, model.Done{})

	a := New(context.Background(), source(events...), func(o *Options) { o.BufferSize = 4 })
	resp, err := a.Wait(context.Background())
	require.NoError(t, err)
	assert.Len(t, resp.Choice.Text, 199)
}

func TestAggregator_ContextCancelled(t *testing.T) {
	src := make(chan model.StreamEvent)
	ctx, cancel := context.WithCancel(context.Background())

	a := New(ctx, src)
	cancel()

	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("aggregator did not stop after cancellation")
	}

	_, ok := <-a.Events()
	assert.False(t, ok)

	resp, err := a.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, resp)
}

func TestAggregator_Unbuffered(t *testing.T) {
	a := New(context.Background(), source(model.TextDelta{Text: "a"}, model.Done{}), func(o *Options) { o.BufferSize = -1 })
	ev := <-a.Events()
	assert.Equal(t, model.TextDelta{Text: "a"}, ev)
	resp, err := a.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", resp.Choice.Text)
}
