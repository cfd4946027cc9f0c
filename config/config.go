// Package config loads agent definitions from TOML files.
//
// Example file:
//
//	name = "dictionary"
//	provider = "openai"
//	model = "gpt-4o-mini"
//	preamble = "You are a dictionary assistant."
//	context = ["Definition of a *flurbo*: A flurbo is a green alien that lives on cold planets"]
//	temperature = 0.2
//	max_turns = 4
//	hook_timeout = "10s"
//	log_level = "debug"
//
//	[[dynamic_context]]
//	index = "definitions"
//	samples = 1
//
// Dynamic context entries reference indexes by name; the caller supplies the
// named providers when turning the file into agent options.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/hupe1980/agentrig/agent"
	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/logging"
	"github.com/hupe1980/agentrig/vectorstore"
)

// Supported provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// DynamicContextConfig references a named context provider.
type DynamicContextConfig struct {
	Index   string `toml:"index"`
	Samples int    `toml:"samples"`
}

// AgentConfig is the file representation of an agent.
type AgentConfig struct {
	Name            string                 `toml:"name"`
	Provider        string                 `toml:"provider"`
	Model           string                 `toml:"model"`
	Preamble        string                 `toml:"preamble"`
	Context         []string               `toml:"context"`
	Temperature     *float64               `toml:"temperature"`
	MaxTokens       int64                  `toml:"max_tokens"`
	MaxTurns        int                    `toml:"max_turns"`
	ToolConcurrency int                    `toml:"tool_concurrency"`
	// HookTimeout is a Go duration string, e.g. "10s". Empty keeps the agent default.
	HookTimeout     string                 `toml:"hook_timeout"`
	LogLevel        string                 `toml:"log_level"`
	DynamicContext  []DynamicContextConfig `toml:"dynamic_context"`
}

// Load reads and validates a TOML agent file.
func Load(path string) (*AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates TOML agent configuration. Unknown keys are
// rejected so typos do not go unnoticed.
func Parse(data []byte) (*AgentConfig, error) {
	cfg := &AgentConfig{}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys: %s", core.ErrInvalidConfig, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values. All errors are reported at once.
func (c *AgentConfig) Validate() error {
	var errs []error

	switch c.Provider {
	case "", ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		errs = append(errs, fmt.Errorf("temperature must be within [0, 2], got %v", *c.Temperature))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, errors.New("max_tokens must not be negative"))
	}
	if c.MaxTurns < 0 {
		errs = append(errs, errors.New("max_turns must not be negative"))
	}
	if c.ToolConcurrency < 0 {
		errs = append(errs, errors.New("tool_concurrency must not be negative"))
	}
	if _, err := c.hookTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	for i, dc := range c.DynamicContext {
		if dc.Index == "" {
			errs = append(errs, fmt.Errorf("dynamic_context[%d]: index is required", i))
		}
		if dc.Samples <= 0 {
			errs = append(errs, fmt.Errorf("dynamic_context[%d]: samples must be > 0, got %d", i, dc.Samples))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", core.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Options converts the configuration into an agent option. providers maps the
// index names used in dynamic_context entries onto context providers.
func (c *AgentConfig) Options(providers map[string]vectorstore.ContextProvider) (func(o *agent.Options), error) {
	hookTimeout, err := c.hookTimeout()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}

	resolved := make([]agent.DynamicContext, len(c.DynamicContext))
	for i, dc := range c.DynamicContext {
		p, ok := providers[dc.Index]
		if !ok || p == nil {
			return nil, fmt.Errorf("%w: dynamic_context[%d]: no provider for index %q", core.ErrInvalidConfig, i, dc.Index)
		}
		resolved[i] = agent.DynamicContext{Provider: p, Samples: dc.Samples}
	}

	return func(o *agent.Options) {
		if c.Name != "" {
			o.Name = c.Name
		}
		if c.Model != "" {
			o.Model = c.Model
		}
		o.Preamble = c.Preamble
		o.StaticContext = append(o.StaticContext, c.Context...)
		o.DynamicContext = append(o.DynamicContext, resolved...)
		if c.Temperature != nil {
			t := *c.Temperature
			o.Temperature = &t
		}
		if c.MaxTokens > 0 {
			o.MaxTokens = c.MaxTokens
		}
		if c.MaxTurns > 0 {
			o.MaxTurns = c.MaxTurns
		}
		o.ToolConcurrency = c.ToolConcurrency
		if hookTimeout > 0 {
			o.HookTimeout = hookTimeout
		}
	}, nil
}

func (c *AgentConfig) hookTimeout() (time.Duration, error) {
	if c.HookTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.HookTimeout)
	if err != nil {
		return 0, fmt.Errorf("hook_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("hook_timeout must not be negative, got %s", c.HookTimeout)
	}
	return d, nil
}

// Logger builds a text logger at the configured level writing to w.
func (c *AgentConfig) Logger(w io.Writer) logging.Logger {
	level, _ := logging.ParseLevel(c.LogLevel)
	return logging.New(&logging.Config{Level: level, Format: "text", Output: w, Component: c.Name})
}
