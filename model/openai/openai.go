// Package openai provides model.CompletionModel and embedding.Embedder
// implementations on top of the OpenAI Chat Completions and Embeddings APIs
// (including streaming + tool calling). It adapts agentrig's normalized
// Request / CompletionResponse structures into the SDK's message format and back.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/model"
)

// Options configure the OpenAI model adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; per-request model.Params take precedence.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Model wraps the OpenAI Chat Completions API behind model.CompletionModel.
type Model struct {
	client *openai.Client
	opts   Options
}

var _ model.CompletionModel = (*Model)(nil)

// NewModel creates a new OpenAI model using the official client. Credentials
// are read from the environment (OPENAI_API_KEY).
func NewModel(optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewModelFromClient(&client, optFns...)
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Complete implements model.CompletionModel.
func (m *Model) Complete(ctx context.Context, req model.Request) (*model.CompletionResponse, error) {
	resp, err := m.client.Chat.Completions.New(ctx, m.buildParams(req))
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, core.NewBackendError(core.BackendErrorMalformedResponse, "no choices returned", nil)
	}

	msg := resp.Choices[0].Message
	choice := model.Choice{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		choice.ToolCalls = append(choice.ToolCalls, core.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return &model.CompletionResponse{
		Choice: choice,
		Usage:  usage(resp.Usage),
		Raw:    resp,
	}, nil
}

// Stream implements model.CompletionModel. Tool-call fragments are forwarded
// with the index assigned by the API; the accumulated completion is attached
// to the final Done event.
func (m *Model) Stream(ctx context.Context, req model.Request) (<-chan model.StreamEvent, error) {
	params := m.buildParams(req)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}

	stream := m.client.Chat.Completions.NewStreaming(ctx, params)
	out := make(chan model.StreamEvent, 32)

	go func() {
		defer close(out)
		defer stream.Close()

		acc := openai.ChatCompletionAccumulator{}
		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			for _, ch := range chunk.Choices {
				if ch.Index != 0 {
					continue
				}
				if ch.Delta.Content != "" {
					if !model.Send(ctx, out, model.TextDelta{Text: ch.Delta.Content}) {
						return
					}
				}
				for _, tc := range ch.Delta.ToolCalls {
					ev := model.ToolCallDelta{
						Index:     int(tc.Index),
						ID:        tc.ID,
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					}
					if !model.Send(ctx, out, ev) {
						return
					}
				}
			}

			if chunk.Usage.TotalTokens > 0 {
				if !model.Send(ctx, out, model.UsageReported{Usage: usage(chunk.Usage)}) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			model.Send(ctx, out, model.StreamError{Err: classify(err)})
			return
		}
		model.Send(ctx, out, model.Done{Raw: &acc.ChatCompletion})
	}()

	return out, nil
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}

// buildParams assembles the OpenAI request parameters including tool definitions.
func (m *Model) buildParams(req model.Request) openai.ChatCompletionNewParams {
	name := m.opts.Model
	if req.Model != "" {
		name = req.Model
	}
	temperature := m.opts.Temperature
	if req.Params.Temperature != nil {
		temperature = *req.Params.Temperature
	}
	maxTokens := m.opts.MaxCompletionTokens
	if req.Params.MaxTokens > 0 {
		maxTokens = req.Params.MaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req.Messages),
		Model:               name,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}
	if len(req.Tools) == 0 {
		return params
	}

	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Function.Name,
				Description: openai.String(tdef.Function.Description),
				Parameters:  tdef.Function.Parameters,
			},
		}
	}
	params.Tools = tools
	return params
}

// buildMessages converts normalized messages into OpenAI chat messages. Every
// tool result becomes its own tool message.
func buildMessages(msgs []core.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		text := msg.Text()
		switch msg.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(text))
		case core.RoleUser:
			out = append(out, openai.UserMessage(text))
		case core.RoleAssistant:
			calls := msg.ToolCalls()
			if len(calls) == 0 {
				out = append(out, openai.AssistantMessage(text))
				continue
			}
			am := openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCallParams(calls)}
			if text != "" {
				am.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(text)}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &am})
		case core.RoleTool:
			for _, r := range msg.ToolResults() {
				out = append(out, openai.ToolMessage(r.Content, r.CallID))
			}
		}
	}
	return out
}

func toolCallParams(calls []core.ToolCall) []openai.ChatCompletionMessageToolCallParam {
	params := make([]openai.ChatCompletionMessageToolCallParam, len(calls))
	for i, c := range calls {
		args := c.Arguments
		if args == "" {
			args = "{}"
		}
		params[i] = openai.ChatCompletionMessageToolCallParam{
			ID: c.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      c.Name,
				Arguments: args,
			},
		}
	}
	return params
}

func usage(u openai.CompletionUsage) core.Usage {
	return core.Usage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.TotalTokens,
	}
}

// classify maps SDK failures onto core.BackendError. Context errors are
// returned unchanged so callers can tell cancellation apart.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return core.NewBackendError(core.BackendErrorKindFromStatus(apiErr.StatusCode), fmt.Sprintf("openai api error: %s", apiErr.Message), err)
	}
	return core.NewBackendError(core.BackendErrorNetwork, "openai request failed", err)
}
