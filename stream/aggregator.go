package stream

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/logging"
	"github.com/hupe1980/agentrig/model"
)

// Options configures an Aggregator.
type Options struct {
	// BufferSize bounds the number of reduced events waiting to be read from
	// Events. Default 64.
	BufferSize int
	Logger     logging.Logger
}

// Aggregator consumes the event sequence of one backend call. It forwards
// every event, in order and unmodified, to Events while reducing text and
// tool-call fragments into a CompletionResponse that Wait resolves to.
//
// Events is single-pass: it is closed once the source closes or the context
// is done.
type Aggregator struct {
	out  chan model.StreamEvent
	done chan struct{}

	mu       sync.Mutex
	text     strings.Builder
	calls    map[int]*core.ToolCall
	usage    core.Usage
	raw      any
	terminal bool
	err      error
	logger   logging.Logger
}

// New starts aggregating src. The returned Aggregator stops reading when ctx
// is done; the producer is expected to observe the same ctx.
func New(ctx context.Context, src <-chan model.StreamEvent, optFns ...func(o *Options)) *Aggregator {
	opts := Options{BufferSize: 64}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BufferSize < 0 {
		opts.BufferSize = 0
	}

	a := &Aggregator{
		out:    make(chan model.StreamEvent, opts.BufferSize),
		done:   make(chan struct{}),
		calls:  make(map[int]*core.ToolCall),
		logger: logging.OrNoOp(opts.Logger),
	}
	go a.run(ctx, src)
	return a
}

// Reduce drains src and returns the reduced response. It is equivalent to
// New(ctx, src).Wait(ctx).
func Reduce(ctx context.Context, src <-chan model.StreamEvent) (*model.CompletionResponse, error) {
	return New(ctx, src).Wait(ctx)
}

// Events returns the forwarded event sequence.
func (a *Aggregator) Events() <-chan model.StreamEvent { return a.out }

// Done is closed once the aggregated outcome is final.
func (a *Aggregator) Done() <-chan struct{} { return a.done }

// Wait discards any events not yet read from Events, waits for the outcome
// and returns it. On failure the text and tool calls accumulated before the
// error are returned alongside it.
func (a *Aggregator) Wait(ctx context.Context) (*model.CompletionResponse, error) {
	for {
		select {
		case _, ok := <-a.out:
			if !ok {
				<-a.done
				return a.result()
			}
		case <-ctx.Done():
			resp, _ := a.result()
			return resp, ctx.Err()
		}
	}
}

func (a *Aggregator) run(ctx context.Context, src <-chan model.StreamEvent) {
	defer close(a.done)
	defer close(a.out)

	for {
		select {
		case <-ctx.Done():
			a.fail(ctx.Err())
			return
		case ev, ok := <-src:
			if !ok {
				a.finish()
				return
			}
			a.reduce(ev)
			select {
			case a.out <- ev:
			case <-ctx.Done():
				a.fail(ctx.Err())
				return
			}
		}
	}
}

func (a *Aggregator) reduce(ev model.StreamEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.terminal {
		a.logger.Debug("stream.event.after_terminal", "type", typeName(ev))
		return
	}

	switch e := ev.(type) {
	case model.TextDelta:
		a.text.WriteString(e.Text)
	case model.ToolCallDelta:
		c, ok := a.calls[e.Index]
		if !ok {
			c = &core.ToolCall{}
			a.calls[e.Index] = c
		}
		if e.ID != "" {
			c.ID = e.ID
		}
		if e.Name != "" {
			c.Name = e.Name
		}
		c.Arguments += e.Arguments
	case model.UsageReported:
		a.usage = a.usage.Merge(e.Usage)
	case model.Done:
		a.raw = e.Raw
		a.terminal = true
	case model.StreamError:
		a.err = core.AsBackendError(e)
		a.terminal = true
	}
}

func (a *Aggregator) finish() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.terminal {
		a.logger.Debug("stream.closed_without_done")
		a.terminal = true
	}
}

func (a *Aggregator) fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.terminal {
		a.err = err
		a.terminal = true
	}
}

func (a *Aggregator) result() (*model.CompletionResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	indexes := make([]int, 0, len(a.calls))
	for i := range a.calls {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	var calls []core.ToolCall
	for _, i := range indexes {
		calls = append(calls, *a.calls[i])
	}

	return &model.CompletionResponse{
		Choice: model.Choice{Text: a.text.String(), ToolCalls: calls},
		Usage:  a.usage,
		Raw:    a.raw,
	}, a.err
}

func typeName(ev model.StreamEvent) string {
	switch ev.(type) {
	case model.TextDelta:
		return "text_delta"
	case model.ToolCallDelta:
		return "tool_call_delta"
	case model.UsageReported:
		return "usage"
	case model.Done:
		return "done"
	case model.StreamError:
		return "error"
	default:
		return "unknown"
	}
}
