package model

import (
	"context"

	"github.com/hupe1980/agentrig/core"
)

// StreamEvent is a partial-output event emitted by a streaming backend.
// Concrete types implement the unexported marker, forming a closed set.
// Emission order is significant.
type StreamEvent interface{ isStreamEvent() }

// TextDelta carries a fragment of assistant text. Empty fragments are legal.
type TextDelta struct {
	Text string
}

func (TextDelta) isStreamEvent() {}

// ToolCallDelta carries a fragment of the tool call at Index. ID and Name are
// usually sent once; Arguments fragments are concatenated in order.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

func (ToolCallDelta) isStreamEvent() {}

// UsageReported carries token usage. Backends may report input and output
// counts in separate events.
type UsageReported struct {
	Usage core.Usage
}

func (UsageReported) isStreamEvent() {}

// Done marks successful completion of the stream.
type Done struct {
	Raw any
}

func (Done) isStreamEvent() {}

// StreamError marks failed completion of the stream.
type StreamError struct {
	Err error
}

func (StreamError) isStreamEvent() {}

// Error implements error so a StreamError can be returned directly.
func (e StreamError) Error() string {
	if e.Err == nil {
		return "stream error"
	}
	return e.Err.Error()
}

// Unwrap exposes the underlying error.
func (e StreamError) Unwrap() error { return e.Err }

// Send delivers ev on ch unless ctx is done first. It reports whether the event was sent.
func Send(ctx context.Context, ch chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
