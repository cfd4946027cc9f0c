package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/hook"
	"github.com/hupe1980/agentrig/logging"
	"github.com/hupe1980/agentrig/model"
	"github.com/hupe1980/agentrig/stream"
)

// loopState enumerates the prompt loop states.
type loopState int

const (
	stateAssemblingContext loopState = iota
	stateAwaitingBackend
	stateInterpretingResponse
	stateDispatchingTools
	stateTerminal
)

func (s loopState) String() string {
	switch s {
	case stateAssemblingContext:
		return "assembling_context"
	case stateAwaitingBackend:
		return "awaiting_backend"
	case stateInterpretingResponse:
		return "interpreting_response"
	case stateDispatchingTools:
		return "dispatching_tools"
	case stateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// StreamItem is a unit delivered to a streaming caller: either a backend
// event of the given turn or the result of a tool call.
type StreamItem struct {
	Turn       int
	Event      model.StreamEvent
	ToolResult *core.ToolResult
}

// promptLoop drives a single request. Turns are strictly sequential; only
// tool calls within a turn run concurrently.
type promptLoop struct {
	agent     *Agent
	requestID string
	prompt    core.Message
	history   []core.Message

	// context blocks, resolved on the first turn and reused afterwards
	contextMsgs     []core.Message
	contextResolved bool

	// messages produced by this request, after the prompt
	produced []core.Message

	hooks      *hook.Invoker
	sig        *core.CancelSignal
	limiter    *core.TurnLimiter
	dispatcher *dispatcher
	logger     logging.Logger

	// emit forwards streaming items; nil for blocking requests. It reports
	// false when the caller went away.
	emit func(StreamItem) bool

	current *model.CompletionResponse
	resp    *Response
	err     error
}

func newPromptLoop(a *Agent, prompt core.Message, history []core.Message, hooks *hook.Invoker, sig *core.CancelSignal, maxTurns int) *promptLoop {
	if sig == nil {
		sig = core.NewCancelSignal()
	}
	id := uuid.NewString()
	return &promptLoop{
		agent:      a,
		requestID:  id,
		prompt:     prompt,
		history:    core.CloneMessages(history),
		hooks:      hooks,
		sig:        sig,
		limiter:    core.NewTurnLimiter(maxTurns),
		dispatcher: &dispatcher{registry: a.tools, maxParallel: a.toolConcurrency, logger: a.logger},
		logger:     a.logger,
		resp:       &Response{RequestID: id},
	}
}

func (l *promptLoop) log(level logging.LogLevel, msg string, args ...any) {
	args = append([]any{"agent", l.agent.name, "request_id", l.requestID}, args...)
	switch level {
	case logging.LogLevelDebug:
		l.logger.Debug(msg, args...)
	case logging.LogLevelWarn:
		l.logger.Warn(msg, args...)
	case logging.LogLevelError:
		l.logger.Error(msg, args...)
	default:
		l.logger.Info(msg, args...)
	}
}

// run executes the state machine until it reaches the terminal state.
func (l *promptLoop) run(ctx context.Context) (*Response, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A fired CancelSignal also cancels in-flight backend and tool calls.
	go func() {
		select {
		case <-l.sig.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	l.log(logging.LogLevelInfo, "agent.request.start", "streaming", l.emit != nil, "history_len", len(l.history))

	state := stateAssemblingContext
	for state != stateTerminal {
		switch state {
		case stateAssemblingContext:
			state = l.assembleContext(ctx)
		case stateAwaitingBackend:
			state = l.awaitBackend(ctx)
		case stateInterpretingResponse:
			state = l.interpretResponse(ctx)
		case stateDispatchingTools:
			state = l.dispatchTools(ctx)
		}
	}

	l.resp.Messages = append(append(core.CloneMessages(l.history), l.prompt), l.produced...)

	if l.err != nil {
		l.log(logging.LogLevelWarn, "agent.request.failed", "turns", l.resp.Turns, "error", l.err.Error())
	} else {
		l.log(logging.LogLevelInfo, "agent.request.complete",
			"turns", l.resp.Turns,
			"tool_calls", len(l.resp.ToolCalls),
			"input_tokens", l.resp.Usage.InputTokens,
			"output_tokens", l.resp.Usage.OutputTokens,
		)
	}

	return l.resp, l.err
}

func (l *promptLoop) cancelled(ctx context.Context) bool {
	return l.sig.IsCancelled() || ctx.Err() != nil
}

func (l *promptLoop) cancelError(ctx context.Context) error {
	if err := ctx.Err(); err != nil && !l.sig.IsCancelled() {
		return fmt.Errorf("%w: %w", core.ErrCancelled, err)
	}
	return core.ErrCancelled
}

func (l *promptLoop) assembleContext(ctx context.Context) loopState {
	if l.cancelled(ctx) {
		l.err = l.cancelError(ctx)
		l.log(logging.LogLevelInfo, "agent.request.cancelled", "turns", l.resp.Turns)
		return stateTerminal
	}

	if !l.contextResolved {
		l.contextMsgs = l.resolveContext(ctx)
		l.contextResolved = true
	}

	if err := l.limiter.Increment(); err != nil {
		l.err = err
		l.log(logging.LogLevelWarn, "agent.turns.exceeded", "turns", l.resp.Turns)
		return stateTerminal
	}

	l.log(logging.LogLevelDebug, "agent.turn.start", "turn", l.limiter.Count(), "remaining", l.limiter.Remaining())

	return stateAwaitingBackend
}

// resolveContext renders the preamble, static documents and the documents of
// every dynamic provider. Provider failures omit that block.
func (l *promptLoop) resolveContext(ctx context.Context) []core.Message {
	var msgs []core.Message
	if l.agent.preamble != "" {
		msgs = append(msgs, core.SystemMessage(l.agent.preamble))
	}
	for _, d := range l.agent.staticContext {
		msgs = append(msgs, core.SystemMessage(d.Render()))
	}

	query := l.prompt.Text()
	for i, dc := range l.agent.dynamicContext {
		docs, err := dc.Provider.Resolve(ctx, query, dc.Samples)
		if err != nil {
			l.resp.Errors = append(l.resp.Errors, fmt.Errorf("dynamic context %d: %w", i, err))
			l.log(logging.LogLevelWarn, "agent.context.resolve.failed", "provider", i, "error", err.Error())
			continue
		}
		if len(docs) == 0 {
			continue
		}
		msgs = append(msgs, core.SystemMessage(core.RenderDocuments(docs)))
	}
	return msgs
}

// conversation returns every non-context message sent to the backend.
func (l *promptLoop) conversation() []core.Message {
	msgs := make([]core.Message, 0, len(l.history)+1+len(l.produced))
	msgs = append(msgs, l.history...)
	msgs = append(msgs, l.prompt)
	return append(msgs, l.produced...)
}

// turnPrompt splits the conversation into the message that triggers the
// current turn (the user prompt, later the latest tool result) and the
// messages preceding it.
func (l *promptLoop) turnPrompt() (core.Message, []core.Message) {
	conv := l.conversation()
	last := len(conv) - 1
	return conv[last], conv[:last]
}

func (l *promptLoop) awaitBackend(ctx context.Context) loopState {
	prompt, history := l.turnPrompt()

	req := model.Request{
		Model:    l.agent.modelName,
		Messages: append(core.CloneMessages(l.contextMsgs), l.conversation()...),
		Tools:    l.agent.tools.Definitions(),
		Params:   l.agent.params,
	}

	l.hooks.CompletionCall(ctx, prompt, history, l.sig)

	var (
		resp *model.CompletionResponse
		err  error
	)
	if l.emit == nil {
		resp, err = l.agent.llm.Complete(ctx, req)
	} else {
		resp, err = l.streamTurn(ctx, req)
	}
	l.resp.Turns++

	if err != nil {
		if resp != nil {
			l.resp.Output = resp.Choice.Text
			l.resp.Usage = l.resp.Usage.Add(resp.Usage)
		}
		if l.cancelled(ctx) {
			l.err = l.cancelError(ctx)
		} else {
			l.err = core.AsBackendError(err)
		}
		l.log(logging.LogLevelError, "agent.completion.error", "turn", l.resp.Turns, "error", err.Error())
		return stateTerminal
	}
	if resp == nil {
		l.err = core.NewBackendError(core.BackendErrorMalformedResponse, "backend returned no response", nil)
		return stateTerminal
	}

	l.current = resp
	return stateInterpretingResponse
}

// streamTurn forwards the backend events of one turn to the caller while the
// aggregator reduces them.
func (l *promptLoop) streamTurn(ctx context.Context, req model.Request) (*model.CompletionResponse, error) {
	src, err := l.agent.llm.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	agg := stream.New(ctx, src, func(o *stream.Options) {
		o.BufferSize = l.agent.streamBuffer
		o.Logger = l.logger
	})

	turn := l.resp.Turns + 1
	var text strings.Builder
	for ev := range agg.Events() {
		switch e := ev.(type) {
		case model.TextDelta:
			text.WriteString(e.Text)
			l.hooks.TextDelta(ctx, e.Text, text.String(), l.sig)
		case model.ToolCallDelta:
			l.hooks.ToolCallDelta(ctx, e, l.sig)
		}
		if !l.emit(StreamItem{Turn: turn, Event: ev}) {
			break
		}
	}

	return agg.Wait(ctx)
}

func (l *promptLoop) interpretResponse(ctx context.Context) loopState {
	resp := l.current
	prompt, _ := l.turnPrompt()

	l.hooks.CompletionResponse(ctx, prompt, resp, l.sig)

	l.resp.Usage = l.resp.Usage.Add(resp.Usage)
	l.produced = append(l.produced, resp.Choice.Message())

	if !resp.Choice.IsToolCalls() {
		l.resp.Output = resp.Choice.Text
		return stateTerminal
	}
	return stateDispatchingTools
}

func (l *promptLoop) dispatchTools(ctx context.Context) loopState {
	calls := l.current.Choice.ToolCalls
	turn := l.resp.Turns

	for _, c := range calls {
		l.hooks.ToolCall(ctx, c.Name, c.ID, c.Arguments, l.sig)
	}

	outcomes := l.dispatcher.execute(ctx, l.requestID, l.sig, calls)

	for _, o := range outcomes {
		text := o.text()
		l.hooks.ToolResult(ctx, o.call.Name, o.call.ID, o.call.Arguments, text, l.sig)

		result := core.ToolResult{CallID: o.call.ID, Name: o.call.Name, Content: text, IsError: o.err != nil}
		l.produced = append(l.produced, core.ToolMessage(result))
		l.resp.ToolCalls = append(l.resp.ToolCalls, ToolCallRecord{
			Turn:     turn,
			Call:     o.call,
			Result:   text,
			Err:      o.err,
			Duration: o.duration,
		})
		if o.err != nil {
			l.resp.Errors = append(l.resp.Errors, o.err)
		}

		if l.emit != nil {
			r := result
			l.emit(StreamItem{Turn: turn, ToolResult: &r})
		}
	}

	return stateAssemblingContext
}
