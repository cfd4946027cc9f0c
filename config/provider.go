package config

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/model"
	"github.com/hupe1980/agentrig/model/anthropic"
	"github.com/hupe1980/agentrig/model/gemini"
	"github.com/hupe1980/agentrig/model/openai"
)

// NewCompletionModel builds the completion backend named by Provider.
// Credentials come from the provider's usual environment variables. An empty
// provider selects OpenAI.
func (c *AgentConfig) NewCompletionModel(ctx context.Context) (model.CompletionModel, error) {
	switch c.Provider {
	case "", ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if c.Model != "" {
				o.Model = c.Model
			}
		}), nil
	case ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if c.Model != "" {
				o.Model = anthropic.Model(c.Model)
			}
		}), nil
	case ProviderGemini:
		m, err := gemini.NewModel(ctx, func(o *gemini.Options) {
			if c.Model != "" {
				o.Model = c.Model
			}
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case ProviderMock:
		name := c.Model
		if name == "" {
			name = "mock"
		}
		return model.NewMockModel(name, ProviderMock), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", core.ErrInvalidConfig, c.Provider)
	}
}
