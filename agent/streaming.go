package agent

import (
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/agentrig/model"
)

// StreamingResponse delivers the items of a streaming request as they are
// produced and resolves to the final Response.
//
// Events is single-pass and closed when the request ends. Wait may be called
// at any time; items not yet read are discarded.
type StreamingResponse struct {
	items chan StreamItem
	done  chan struct{}
	resp  *Response
	err   error
}

func startStreaming(ctx context.Context, l *promptLoop, buffer int) *StreamingResponse {
	s := &StreamingResponse{
		items: make(chan StreamItem, buffer),
		done:  make(chan struct{}),
	}

	l.emit = func(item StreamItem) bool {
		select {
		case s.items <- item:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(s.done)
		defer close(s.items)
		s.resp, s.err = l.run(ctx)
	}()

	return s
}

// Events returns the item sequence.
func (s *StreamingResponse) Events() <-chan StreamItem { return s.items }

// Wait discards unread items, waits for the request to end and returns its outcome.
func (s *StreamingResponse) Wait() (*Response, error) {
	for range s.items {
	}
	<-s.done
	return s.resp, s.err
}

// StreamToWriter writes text deltas to w as they arrive and returns the final
// Response once the request ended.
func StreamToWriter(s *StreamingResponse, w io.Writer) (*Response, error) {
	for item := range s.Events() {
		if d, ok := item.Event.(model.TextDelta); ok {
			if _, err := io.WriteString(w, d.Text); err != nil {
				resp, _ := s.Wait()
				return resp, fmt.Errorf("write stream: %w", err)
			}
		}
	}
	return s.Wait()
}
