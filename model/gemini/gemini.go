// Package gemini provides model.CompletionModel and embedding.Embedder
// implementations backed by the Google Gen AI SDK (Gemini API or Vertex AI).
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/model"
)

// DefaultModel is used when Options.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// Options configures the Gemini model adapter. Per-request model.Params take
// precedence over Temperature and MaxOutputTokens.
type Options struct {
	Model           string
	Temperature     float64
	MaxOutputTokens int32
	// ClientConfig is passed to genai.NewClient by NewModel. Nil reads
	// GOOGLE_API_KEY / GEMINI_API_KEY from the environment.
	ClientConfig *genai.ClientConfig
}

// Model wraps the Gemini generate content API behind model.CompletionModel.
type Model struct {
	client *genai.Client
	opts   Options
}

var _ model.CompletionModel = (*Model)(nil)

func defaultOptions() Options {
	return Options{
		Model:           DefaultModel,
		Temperature:     0.7,
		MaxOutputTokens: 4096,
	}
}

// NewModel creates a Gemini model with a new client.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	client, err := genai.NewClient(ctx, opts.ClientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %w", core.ErrInvalidConfig, err)
	}

	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Complete implements model.CompletionModel.
func (m *Model) Complete(ctx context.Context, req model.Request) (*model.CompletionResponse, error) {
	name, contents, config, err := m.buildRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.Models.GenerateContent(ctx, name, contents, config)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, core.NewBackendError(core.BackendErrorMalformedResponse, "no candidates returned", nil)
	}

	var choice model.Choice
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Thought {
			continue
		}
		choice.Text += part.Text
		if part.FunctionCall != nil {
			call, err := toolCall(part.FunctionCall)
			if err != nil {
				return nil, err
			}
			choice.ToolCalls = append(choice.ToolCalls, call)
		}
	}

	return &model.CompletionResponse{
		Choice: choice,
		Usage:  usage(resp.UsageMetadata),
		Raw:    resp,
	}, nil
}

// Stream implements model.CompletionModel. Gemini delivers function calls
// whole, so every call is reported as a single delta with its own index.
func (m *Model) Stream(ctx context.Context, req model.Request) (<-chan model.StreamEvent, error) {
	name, contents, config, err := m.buildRequest(req)
	if err != nil {
		return nil, err
	}

	out := make(chan model.StreamEvent, 32)

	go func() {
		defer close(out)

		var (
			last  *genai.GenerateContentResponse
			calls int
		)
		for resp, err := range m.client.Models.GenerateContentStream(ctx, name, contents, config) {
			if err != nil {
				model.Send(ctx, out, model.StreamError{Err: classify(err)})
				return
			}
			last = resp

			if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
				for _, part := range resp.Candidates[0].Content.Parts {
					var ev model.StreamEvent
					switch {
					case part.Thought:
						continue
					case part.FunctionCall != nil:
						call, err := toolCall(part.FunctionCall)
						if err != nil {
							model.Send(ctx, out, model.StreamError{Err: err})
							return
						}
						ev = model.ToolCallDelta{Index: calls, ID: call.ID, Name: call.Name, Arguments: call.Arguments}
						calls++
					case part.Text != "":
						ev = model.TextDelta{Text: part.Text}
					default:
						continue
					}
					if !model.Send(ctx, out, ev) {
						return
					}
				}
			}

			if resp.UsageMetadata != nil {
				if !model.Send(ctx, out, model.UsageReported{Usage: usage(resp.UsageMetadata)}) {
					return
				}
			}
		}

		model.Send(ctx, out, model.Done{Raw: last})
	}()

	return out, nil
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "gemini",
		SupportsTools: true,
	}
}

func (m *Model) buildRequest(req model.Request) (string, []*genai.Content, *genai.GenerateContentConfig, error) {
	name := m.opts.Model
	if req.Model != "" {
		name = req.Model
	}
	temperature := m.opts.Temperature
	if req.Params.Temperature != nil {
		temperature = *req.Params.Temperature
	}
	maxTokens := m.opts.MaxOutputTokens
	if req.Params.MaxTokens > 0 {
		maxTokens = int32(req.Params.MaxTokens)
	}

	system, contents, err := buildContents(req.Messages)
	if err != nil {
		return "", nil, nil, err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr(float32(temperature)),
		MaxOutputTokens:   maxTokens,
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: buildFunctions(req.Tools)}}
	}

	return name, contents, config, nil
}

// buildContents converts messages into Gemini contents. System messages are
// joined into the system instruction; tool results are sent as function
// responses in user contents, merging consecutive tool messages.
func buildContents(msgs []core.Message) (*genai.Content, []*genai.Content, error) {
	var (
		system   []string
		contents []*genai.Content
		results  []*genai.Part
	)

	flush := func() {
		if len(results) > 0 {
			contents = append(contents, genai.NewContentFromParts(results, genai.RoleUser))
			results = nil
		}
	}

	for _, msg := range msgs {
		switch msg.Role {
		case core.RoleSystem:
			system = append(system, msg.Text())
		case core.RoleTool:
			for _, r := range msg.ToolResults() {
				key := "output"
				if r.IsError {
					key = "error"
				}
				results = append(results, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       r.CallID,
					Name:     r.Name,
					Response: map[string]any{key: r.Content},
				}})
			}
		case core.RoleUser:
			flush()
			contents = append(contents, genai.NewContentFromText(msg.Text(), genai.RoleUser))
		case core.RoleAssistant:
			flush()
			var parts []*genai.Part
			if text := msg.Text(); text != "" {
				parts = append(parts, genai.NewPartFromText(text))
			}
			for _, call := range msg.ToolCalls() {
				args := map[string]any{}
				if strings.TrimSpace(call.Arguments) != "" {
					if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
						return nil, nil, core.NewBackendError(core.BackendErrorMalformedResponse, fmt.Sprintf("tool call %s arguments", call.ID), err)
					}
				}
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: call.ID, Name: call.Name, Args: args}})
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}
		}
	}
	flush()

	var instruction *genai.Content
	if len(system) > 0 {
		instruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return instruction, contents, nil
}

func buildFunctions(tools []model.ToolDefinition) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		decls[i] = &genai.FunctionDeclaration{
			Name:                 t.Function.Name,
			Description:          t.Function.Description,
			ParametersJsonSchema: t.Function.Parameters,
		}
	}
	return decls
}

// toolCall converts a Gemini function call. Gemini may omit call ids; a
// random id is assigned so tool results can be matched.
func toolCall(fc *genai.FunctionCall) (core.ToolCall, error) {
	args := []byte("{}")
	if len(fc.Args) > 0 {
		b, err := json.Marshal(fc.Args)
		if err != nil {
			return core.ToolCall{}, core.NewBackendError(core.BackendErrorMalformedResponse, "encode function call args", err)
		}
		args = b
	}
	id := fc.ID
	if id == "" {
		id = "call_" + uuid.NewString()
	}
	return core.ToolCall{ID: id, Name: fc.Name, Arguments: string(args)}, nil
}

func usage(u *genai.GenerateContentResponseUsageMetadata) core.Usage {
	if u == nil {
		return core.Usage{}
	}
	return core.Usage{
		InputTokens:  int64(u.PromptTokenCount),
		OutputTokens: int64(u.CandidatesTokenCount),
		TotalTokens:  int64(u.TotalTokenCount),
	}
}

// classify maps SDK failures onto core.BackendError. Context errors are
// returned unchanged.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return core.NewBackendError(core.BackendErrorKindFromStatus(apiErr.Code), fmt.Sprintf("gemini api error: %s", apiErr.Status), err)
	}
	return core.NewBackendError(core.BackendErrorNetwork, "gemini request failed", err)
}
