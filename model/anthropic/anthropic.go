// Package anthropic provides a model.CompletionModel for the Anthropic
// Messages API, including streaming and tool use.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/model"
)

// Options configures the Anthropic model adapter (temperature, model id,
// max tokens, API key). Per-request model.Params take precedence.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Model wraps the Anthropic Messages API behind model.CompletionModel.
type Model struct {
	client *anthropic.Client
	opts   Options
}

var _ model.CompletionModel = (*Model)(nil)

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaudeSonnet4_20250514,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// NewModel creates a new Anthropic model using the official client. Without
// an explicit APIKey the client reads ANTHROPIC_API_KEY.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Model{
		client: &client,
		opts:   opts,
	}
}

// NewModelFromClient creates a new Anthropic model from an existing client.
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{
		client: client,
		opts:   opts,
	}
}

// Complete implements model.CompletionModel.
func (m *Model) Complete(ctx context.Context, req model.Request) (*model.CompletionResponse, error) {
	resp, err := m.client.Messages.New(ctx, m.buildParams(req))
	if err != nil {
		return nil, classify(err)
	}

	var choice model.Choice
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			choice.Text += block.AsText().Text
		case "tool_use":
			toolBlock := block.AsToolUse()
			args := "{}"
			if toolBlock.Input != nil {
				if argsBytes, err := json.Marshal(toolBlock.Input); err == nil {
					args = string(argsBytes)
				}
			}
			choice.ToolCalls = append(choice.ToolCalls, core.ToolCall{
				ID:        toolBlock.ID,
				Name:      toolBlock.Name,
				Arguments: args,
			})
		}
	}

	return &model.CompletionResponse{
		Choice: choice,
		Usage: core.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		Raw: resp,
	}, nil
}

// Stream implements model.CompletionModel. Tool-use blocks are reported with
// their content block index; their JSON input arrives as argument fragments.
func (m *Model) Stream(ctx context.Context, req model.Request) (<-chan model.StreamEvent, error) {
	stream := m.client.Messages.NewStreaming(ctx, m.buildParams(req))
	out := make(chan model.StreamEvent, 32)

	go func() {
		defer close(out)
		defer stream.Close()

		msg := anthropic.Message{}
		for stream.Next() {
			event := stream.Current()
			if err := msg.Accumulate(event); err != nil {
				model.Send(ctx, out, model.StreamError{Err: core.NewBackendError(core.BackendErrorMalformedResponse, "accumulate stream", err)})
				return
			}

			var ev model.StreamEvent
			switch event.Type {
			case "message_start":
				u := event.Message.Usage
				ev = model.UsageReported{Usage: core.Usage{InputTokens: u.InputTokens, OutputTokens: u.OutputTokens}}
			case "content_block_start":
				if event.ContentBlock.Type == "tool_use" {
					ev = model.ToolCallDelta{Index: int(event.Index), ID: event.ContentBlock.ID, Name: event.ContentBlock.Name}
				}
			case "content_block_delta":
				switch event.Delta.Type {
				case "text_delta":
					ev = model.TextDelta{Text: event.Delta.Text}
				case "input_json_delta":
					ev = model.ToolCallDelta{Index: int(event.Index), Arguments: event.Delta.PartialJSON}
				}
			case "message_delta":
				ev = model.UsageReported{Usage: core.Usage{OutputTokens: event.Usage.OutputTokens}}
			}

			if ev != nil && !model.Send(ctx, out, ev) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			model.Send(ctx, out, model.StreamError{Err: classify(err)})
			return
		}
		model.Send(ctx, out, model.Done{Raw: &msg})
	}()

	return out, nil
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          string(m.opts.Model),
		Provider:      "anthropic",
		SupportsTools: true,
	}
}

func (m *Model) buildParams(req model.Request) anthropic.MessageNewParams {
	name := m.opts.Model
	if req.Model != "" {
		name = anthropic.Model(req.Model)
	}
	temperature := m.opts.Temperature
	if req.Params.Temperature != nil {
		temperature = *req.Params.Temperature
	}
	maxTokens := m.opts.MaxTokens
	if req.Params.MaxTokens > 0 {
		maxTokens = req.Params.MaxTokens
	}

	system, messages := buildMessages(req.Messages)
	params := anthropic.MessageNewParams{
		Model:       name,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}
	return params
}

// buildMessages splits system messages off into system blocks and converts
// the rest. Tool results travel in user messages; consecutive tool messages
// are merged into one user message so roles keep alternating.
func buildMessages(msgs []core.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var (
		system   []anthropic.TextBlockParam
		messages []anthropic.MessageParam
		results  []anthropic.ContentBlockParamUnion
	)

	flush := func() {
		if len(results) > 0 {
			messages = append(messages, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, msg := range msgs {
		switch msg.Role {
		case core.RoleSystem:
			if text := msg.Text(); text != "" {
				system = append(system, anthropic.TextBlockParam{Text: text})
			}
		case core.RoleTool:
			for _, r := range msg.ToolResults() {
				results = append(results, anthropic.NewToolResultBlock(r.CallID, r.Content, r.IsError))
			}
		case core.RoleUser:
			flush()
			if text := msg.Text(); text != "" {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
			}
		case core.RoleAssistant:
			flush()
			if content := buildAssistantContent(msg); len(content) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(content...))
			}
		}
	}
	flush()

	return system, messages
}

func buildAssistantContent(msg core.Message) []anthropic.ContentBlockParamUnion {
	var content []anthropic.ContentBlockParamUnion
	if text := msg.Text(); text != "" {
		content = append(content, anthropic.NewTextBlock(text))
	}
	for _, call := range msg.ToolCalls() {
		var input any = map[string]any{}
		if call.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Arguments), &input); err != nil {
				input = call.Arguments // fallback to string
			}
		}
		content = append(content, anthropic.NewToolUseBlock(call.ID, input, call.Name))
	}
	return content
}

// buildTools converts tool definitions to the Anthropic tool format.
func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))

	for i, tool := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if params := tool.Function.Parameters; params != nil {
			if properties, exists := params["properties"]; exists {
				inputSchema.Properties = properties
			}
			inputSchema.Required = requiredFields(params["required"])
		}

		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Function.Name)
		if tool.Function.Description != "" && out[i].OfTool != nil {
			out[i].OfTool.Description = anthropic.String(tool.Function.Description)
		}
	}

	return out
}

func requiredFields(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		var out []string
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// classify maps SDK failures onto core.BackendError. Context errors are
// returned unchanged.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return core.NewBackendError(core.BackendErrorKindFromStatus(apiErr.StatusCode), fmt.Sprintf("anthropic api error: status %d", apiErr.StatusCode), err)
	}
	return core.NewBackendError(core.BackendErrorNetwork, "anthropic request failed", err)
}
