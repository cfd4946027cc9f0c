package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/model"
	"github.com/hupe1980/agentrig/stream"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := openai.NewClient(
		option.WithBaseURL(srv.URL+"/"),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	)
	return &client
}

func TestModel_Complete(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "add", "arguments": "{\"x\":1,\"y\":2}"}}]
				}
			}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`)
	})

	m := NewModelFromClient(client)
	resp, err := m.Complete(context.Background(), model.Request{
		Messages: []core.Message{
			core.SystemMessage("be brief"),
			core.UserMessage("add"),
			core.AssistantMessage("", core.ToolCall{ID: "call_0", Name: "add", Arguments: `{}`}),
			core.ToolMessage(core.ToolResult{CallID: "call_0", Name: "add", Content: "0"}),
		},
		Tools: []model.ToolDefinition{{Type: "function", Function: model.FunctionDefinition{
			Name:       "add",
			Parameters: map[string]any{"type": "object"},
		}}},
	})
	require.NoError(t, err)

	require.Len(t, resp.Choice.ToolCalls, 1)
	assert.Equal(t, core.ToolCall{ID: "call_1", Name: "add", Arguments: `{"x":1,"y":2}`}, resp.Choice.ToolCalls[0])
	assert.Equal(t, core.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}, resp.Usage)

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 4)
	assert.Equal(t, "tool", msgs[3].(map[string]any)["role"])
	assert.Equal(t, "call_0", msgs[3].(map[string]any)["tool_call_id"])
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Len(t, body["tools"], 1)
}

func TestModel_CompleteRequestOverrides(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hi"}}]}`)
	})

	temp := 0.1
	m := NewModelFromClient(client)
	resp, err := m.Complete(context.Background(), model.Request{
		Model:    "gpt-4o",
		Messages: []core.Message{core.UserMessage("hi")},
		Params:   model.Params{Temperature: &temp, MaxTokens: 12},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Choice.Text)
	assert.Equal(t, "gpt-4o", body["model"])
	assert.InDelta(t, 0.1, body["temperature"], 1e-9)
	assert.EqualValues(t, 12, body["max_completion_tokens"])
}

func TestModel_CompleteErrors(t *testing.T) {
	tests := []struct {
		status int
		kind   core.BackendErrorKind
	}{
		{http.StatusUnauthorized, core.BackendErrorAuth},
		{http.StatusTooManyRequests, core.BackendErrorRateLimit},
		{http.StatusBadRequest, core.BackendErrorMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"message":"nope","type":"invalid_request_error","param":"","code":"x"}}`)
			})

			_, err := NewModelFromClient(client).Complete(context.Background(), model.Request{Messages: []core.Message{core.UserMessage("q")}})
			var be *core.BackendError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.kind, be.Kind)
			assert.ErrorIs(t, err, core.ErrBackend)
		})
	}
}

func TestModel_Stream(t *testing.T) {
	chunks := []string{
		`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"},"finish_reason":null}]}`,
		`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":null}]}`,
		`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"add","arguments":""}}]},"finish_reason":null}]}`,
		`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"x\":"}}]},"finish_reason":null}]}`,
		`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"1}"}}]},"finish_reason":"tool_calls"}]}`,
		`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[],"usage":{"prompt_tokens":7,"completion_tokens":3,"total_tokens":10}}`,
	}
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	ch, err := NewModelFromClient(client).Stream(context.Background(), model.Request{Messages: []core.Message{core.UserMessage("q")}})
	require.NoError(t, err)

	resp, err := stream.Reduce(context.Background(), ch)
	require.NoError(t, err)
	assert.Equal(t, "Hello", resp.Choice.Text)
	require.Len(t, resp.Choice.ToolCalls, 1)
	assert.Equal(t, core.ToolCall{ID: "call_1", Name: "add", Arguments: `{"x":1}`}, resp.Choice.ToolCalls[0])
	assert.Equal(t, core.Usage{InputTokens: 7, OutputTokens: 3, TotalTokens: 10}, resp.Usage)
	assert.IsType(t, &openai.ChatCompletion{}, resp.Raw)
}

func TestEmbedder_Embed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","model":"text-embedding-3-small","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"usage":{"prompt_tokens":1,"total_tokens":1}}`)
	})

	vec, err := NewEmbedderFromClient(client).Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestEmbedder_Error(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom"}}`)
	})

	_, err := NewEmbedderFromClient(client).Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, core.ErrEmbedding)
	assert.ErrorIs(t, err, core.ErrBackend)
}
