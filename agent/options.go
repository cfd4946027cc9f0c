package agent

import (
	"time"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/hook"
	"github.com/hupe1980/agentrig/logging"
	"github.com/hupe1980/agentrig/tool"
	"github.com/hupe1980/agentrig/vectorstore"
)

// DefaultMaxTurns bounds the backend calls of one request unless configured otherwise.
const DefaultMaxTurns = 8

// DefaultHookTimeout bounds the wait for a single hook call unless configured otherwise.
const DefaultHookTimeout = 30 * time.Second

// DynamicContext pairs a context provider with the number of documents to
// request from it.
type DynamicContext struct {
	Provider vectorstore.ContextProvider
	Samples  int
}

// Options configures an Agent. Use functional options with New to override defaults.
type Options struct {
	// Name identifies the agent in logs.
	Name string
	// Model is the backend model identifier forwarded with every request.
	// Empty leaves the choice to the backend adapter.
	Model string
	// Preamble is rendered as the leading system message.
	Preamble string
	// StaticContext documents are sent on every request, in order.
	StaticContext []string
	// DynamicContext providers are resolved per request, in order.
	DynamicContext []DynamicContext
	Tools          []tool.Tool
	Temperature    *float64
	MaxTokens      int64
	// MaxTurns bounds backend calls per request (0 = unlimited).
	MaxTurns int
	// ToolConcurrency bounds parallel tool executions within a turn (0 = unbounded).
	ToolConcurrency int
	// HookTimeout bounds the wait for a single hook invocation. With 0 only
	// the request context bounds it.
	HookTimeout time.Duration
	// StreamBufferSize bounds the events buffered for a streaming caller.
	StreamBufferSize int
	Logger           logging.Logger
}

// WithName sets the agent name.
func WithName(name string) func(o *Options) {
	return func(o *Options) { o.Name = name }
}

// WithModel sets the backend model identifier.
func WithModel(name string) func(o *Options) {
	return func(o *Options) { o.Model = name }
}

// WithPreamble sets the system preamble.
func WithPreamble(preamble string) func(o *Options) {
	return func(o *Options) { o.Preamble = preamble }
}

// WithContext appends static context documents.
func WithContext(docs ...string) func(o *Options) {
	return func(o *Options) { o.StaticContext = append(o.StaticContext, docs...) }
}

// WithDynamicContext appends a dynamic context provider returning samples documents.
func WithDynamicContext(provider vectorstore.ContextProvider, samples int) func(o *Options) {
	return func(o *Options) {
		o.DynamicContext = append(o.DynamicContext, DynamicContext{Provider: provider, Samples: samples})
	}
}

// WithTools appends tools.
func WithTools(tools ...tool.Tool) func(o *Options) {
	return func(o *Options) { o.Tools = append(o.Tools, tools...) }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) func(o *Options) {
	return func(o *Options) { o.Temperature = &t }
}

// WithMaxTokens sets the output token limit per backend call.
func WithMaxTokens(n int64) func(o *Options) {
	return func(o *Options) { o.MaxTokens = n }
}

// WithMaxTurns sets the default turn budget per request.
func WithMaxTurns(n int) func(o *Options) {
	return func(o *Options) { o.MaxTurns = n }
}

// WithToolConcurrency bounds parallel tool executions within a turn.
func WithToolConcurrency(n int) func(o *Options) {
	return func(o *Options) { o.ToolConcurrency = n }
}

// WithHookTimeout bounds the wait for a single hook invocation.
func WithHookTimeout(d time.Duration) func(o *Options) {
	return func(o *Options) { o.HookTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// RequestOptions configures a single prompt or stream call.
type RequestOptions struct {
	Hook         hook.Hook
	CancelSignal *core.CancelSignal
	// MaxTurns overrides the agent's turn budget when > 0.
	MaxTurns int
}

// WithHook observes the request with h.
func WithHook(h hook.Hook) func(o *RequestOptions) {
	return func(o *RequestOptions) { o.Hook = h }
}

// WithCancelSignal lets the caller (or a hook) cancel the request.
func WithCancelSignal(sig *core.CancelSignal) func(o *RequestOptions) {
	return func(o *RequestOptions) { o.CancelSignal = sig }
}

// WithTurnLimit overrides the agent's turn budget for one request.
func WithTurnLimit(n int) func(o *RequestOptions) {
	return func(o *RequestOptions) { o.MaxTurns = n }
}
