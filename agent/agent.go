package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/hook"
	"github.com/hupe1980/agentrig/logging"
	"github.com/hupe1980/agentrig/model"
	"github.com/hupe1980/agentrig/tool"
)

// Agent is an immutable, validated configuration bound to a completion
// backend. It holds no per-request state and is safe for concurrent use: every
// Prompt / Chat / Stream call runs its own prompt loop.
type Agent struct {
	name            string
	llm             model.CompletionModel
	modelName       string
	preamble        string
	staticContext   []core.Document
	dynamicContext  []DynamicContext
	tools           *tool.Registry
	params          model.Params
	maxTurns        int
	toolConcurrency int
	hookTimeout     time.Duration
	streamBuffer    int
	logger          logging.Logger
}

// New validates the configuration and builds an Agent.
//
// Validation fails with core.ErrInvalidConfig when the backend is nil, tool
// names collide, a dynamic context provider is nil or asks for fewer than one
// sample, or a limit or timeout is negative.
//
// Example:
//
//	ag, err := agent.New(llm,
//	    agent.WithPreamble("You are a dictionary assistant."),
//	    agent.WithDynamicContext(index, 1),
//	    agent.WithTools(weatherTool),
//	)
func New(llm model.CompletionModel, optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{
		Name:             "agent",
		MaxTurns:         DefaultMaxTurns,
		HookTimeout:      DefaultHookTimeout,
		StreamBufferSize: 64,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if llm == nil {
		return nil, fmt.Errorf("%w: completion model is required", core.ErrInvalidConfig)
	}
	if opts.MaxTurns < 0 {
		return nil, fmt.Errorf("%w: max turns must not be negative", core.ErrInvalidConfig)
	}
	if opts.HookTimeout < 0 {
		return nil, fmt.Errorf("%w: hook timeout must not be negative", core.ErrInvalidConfig)
	}
	if opts.ToolConcurrency < 0 {
		return nil, fmt.Errorf("%w: tool concurrency must not be negative", core.ErrInvalidConfig)
	}
	for i, dc := range opts.DynamicContext {
		if dc.Provider == nil {
			return nil, fmt.Errorf("%w: dynamic context %d has no provider", core.ErrInvalidConfig, i)
		}
		if dc.Samples <= 0 {
			return nil, fmt.Errorf("%w: dynamic context %d sample count must be > 0, got %d", core.ErrInvalidConfig, i, dc.Samples)
		}
	}

	registry, err := tool.NewRegistry(opts.Tools...)
	if err != nil {
		return nil, err
	}

	static := make([]core.Document, len(opts.StaticContext))
	for i, text := range opts.StaticContext {
		static[i] = core.Document{ID: fmt.Sprintf("static_doc_%d", i), Content: text}
	}

	if opts.StreamBufferSize < 0 {
		opts.StreamBufferSize = 0
	}

	return &Agent{
		name:            opts.Name,
		llm:             llm,
		modelName:       opts.Model,
		preamble:        opts.Preamble,
		staticContext:   static,
		dynamicContext:  append([]DynamicContext(nil), opts.DynamicContext...),
		tools:           registry,
		params:          model.Params{Temperature: opts.Temperature, MaxTokens: opts.MaxTokens},
		maxTurns:        opts.MaxTurns,
		toolConcurrency: opts.ToolConcurrency,
		hookTimeout:     opts.HookTimeout,
		streamBuffer:    opts.StreamBufferSize,
		logger:          logging.OrNoOp(opts.Logger),
	}, nil
}

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// Tools returns the registered tool names in declaration order.
func (a *Agent) Tools() []string { return a.tools.Names() }

// ToolCallRecord describes one executed tool call.
type ToolCallRecord struct {
	Turn     int
	Call     core.ToolCall
	Result   string
	Err      error
	Duration time.Duration
}

// Response is the outcome of a request. On failure it holds whatever was
// accumulated before the loop stopped.
type Response struct {
	RequestID string
	// Output is the final assistant text (partial text on failure).
	Output string
	// Messages is the caller history followed by the prompt and every
	// assistant and tool message produced by the request.
	Messages  []core.Message
	ToolCalls []ToolCallRecord
	Usage     core.Usage
	// Turns counts backend calls.
	Turns int
	// Errors lists non-fatal failures (context resolution, tools).
	Errors []error
}

// Prompt sends a single user prompt without history.
func (a *Agent) Prompt(ctx context.Context, prompt string, optFns ...func(o *RequestOptions)) (*Response, error) {
	return a.Chat(ctx, prompt, nil, optFns...)
}

// Chat sends a user prompt following history.
func (a *Agent) Chat(ctx context.Context, prompt string, history []core.Message, optFns ...func(o *RequestOptions)) (*Response, error) {
	l, err := a.newLoop(prompt, history, optFns)
	if err != nil {
		return &Response{}, err
	}
	return l.run(ctx)
}

// StreamPrompt is the streaming variant of Prompt.
func (a *Agent) StreamPrompt(ctx context.Context, prompt string, optFns ...func(o *RequestOptions)) (*StreamingResponse, error) {
	return a.StreamChat(ctx, prompt, nil, optFns...)
}

// StreamChat is the streaming variant of Chat. The returned StreamingResponse
// yields backend events as they arrive, interleaved with tool results.
func (a *Agent) StreamChat(ctx context.Context, prompt string, history []core.Message, optFns ...func(o *RequestOptions)) (*StreamingResponse, error) {
	l, err := a.newLoop(prompt, history, optFns)
	if err != nil {
		return nil, err
	}
	return startStreaming(ctx, l, a.streamBuffer), nil
}

func (a *Agent) newLoop(prompt string, history []core.Message, optFns []func(o *RequestOptions)) (*promptLoop, error) {
	opts := RequestOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := core.ValidateHistory(history); err != nil {
		return nil, err
	}

	maxTurns := a.maxTurns
	if opts.MaxTurns > 0 {
		maxTurns = opts.MaxTurns
	}

	return newPromptLoop(a, core.UserMessage(prompt), history, hook.NewInvoker(opts.Hook, a.hookTimeout, a.logger), opts.CancelSignal, maxTurns), nil
}
