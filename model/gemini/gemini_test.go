package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/model"
	"github.com/hupe1980/agentrig/stream"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *genai.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	require.NoError(t, err)
	return client
}

func TestBuildContents(t *testing.T) {
	system, contents, err := buildContents([]core.Message{
		core.SystemMessage("preamble"),
		core.SystemMessage("context"),
		core.UserMessage("q"),
		core.AssistantMessage("", core.ToolCall{ID: "a", Name: "add", Arguments: `{"x":1}`}, core.ToolCall{ID: "b", Name: "add"}),
		core.ToolMessage(core.ToolResult{CallID: "a", Name: "add", Content: "1"}),
		core.ToolMessage(core.ToolResult{CallID: "b", Name: "add", Content: "boom", IsError: true}),
	})
	require.NoError(t, err)

	require.NotNil(t, system)
	assert.Equal(t, "preamble\n\ncontext", system.Parts[0].Text)

	require.Len(t, contents, 3)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	require.Len(t, contents[1].Parts, 2)
	assert.Equal(t, map[string]any{"x": float64(1)}, contents[1].Parts[0].FunctionCall.Args)

	require.Len(t, contents[2].Parts, 2, "consecutive tool messages merge")
	assert.Equal(t, map[string]any{"output": "1"}, contents[2].Parts[0].FunctionResponse.Response)
	assert.Equal(t, map[string]any{"error": "boom"}, contents[2].Parts[1].FunctionResponse.Response)
}

func TestBuildContents_InvalidArguments(t *testing.T) {
	_, _, err := buildContents([]core.Message{
		core.UserMessage("q"),
		core.AssistantMessage("", core.ToolCall{ID: "a", Name: "add", Arguments: `{`}),
	})
	assert.ErrorIs(t, err, core.ErrBackend)
}

func TestToolCall_AssignsID(t *testing.T) {
	call, err := toolCall(&genai.FunctionCall{Name: "add", Args: map[string]any{"x": 1}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(call.ID, "call_"))
	assert.JSONEq(t, `{"x":1}`, call.Arguments)

	call, err = toolCall(&genai.FunctionCall{ID: "fc1", Name: "noop"})
	require.NoError(t, err)
	assert.Equal(t, "fc1", call.ID)
	assert.Equal(t, "{}", call.Arguments)
}

func TestModel_Complete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash:generateContent")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"candidates": [{"content": {"role": "model", "parts": [
				{"text": "Adding."},
				{"functionCall": {"name": "add", "args": {"x": 2}}}
			]}}],
			"usageMetadata": {"promptTokenCount": 4, "candidatesTokenCount": 3, "totalTokenCount": 7}
		}`)
	})

	resp, err := NewModelFromClient(client).Complete(context.Background(), model.Request{
		Messages: []core.Message{core.UserMessage("add")},
		Tools: []model.ToolDefinition{{Function: model.FunctionDefinition{
			Name:       "add",
			Parameters: map[string]any{"type": "object"},
		}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Adding.", resp.Choice.Text)
	require.Len(t, resp.Choice.ToolCalls, 1)
	assert.Equal(t, "add", resp.Choice.ToolCalls[0].Name)
	assert.NotEmpty(t, resp.Choice.ToolCalls[0].ID)
	assert.Equal(t, core.Usage{InputTokens: 4, OutputTokens: 3, TotalTokens: 7}, resp.Usage)
}

func TestModel_CompleteError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"denied","status":"PERMISSION_DENIED"}}`)
	})

	_, err := NewModelFromClient(client).Complete(context.Background(), model.Request{Messages: []core.Message{core.UserMessage("q")}})
	var be *core.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, core.BackendErrorAuth, be.Kind)
}

func TestModel_Stream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"Hel\"}]}}]}\n\n")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"lo\"}]}}],\"usageMetadata\":{\"promptTokenCount\":2,\"candidatesTokenCount\":2,\"totalTokenCount\":4}}\n\n")
	})

	ch, err := NewModelFromClient(client).Stream(context.Background(), model.Request{Messages: []core.Message{core.UserMessage("q")}})
	require.NoError(t, err)

	resp, err := stream.Reduce(context.Background(), ch)
	require.NoError(t, err)
	assert.Equal(t, "Hello", resp.Choice.Text)
	assert.Empty(t, resp.Choice.ToolCalls)
	assert.Equal(t, core.Usage{InputTokens: 2, OutputTokens: 2, TotalTokens: 4}, resp.Usage)
}

func TestEmbedder_Embed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"embeddings":[{"values":[0.5,0.25]}]}`)
	})

	vec, err := NewEmbedderFromClient(client).Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.25}, vec)
}
