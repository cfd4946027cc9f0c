// Package mcp exposes the tools served by a Model Context Protocol server as
// agentrig tools.
//
//	ts, err := mcp.Connect(ctx, mcp.CommandTransport("npx", "-y", "@modelcontextprotocol/server-everything"))
//	if err != nil { ... }
//	defer ts.Close()
//	tools, err := ts.Tools(ctx)
//	ag, err := agent.New(llm, agent.WithTools(tools...))
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/logging"
	"github.com/hupe1980/agentrig/tool"
)

// Options configures a Toolset.
type Options struct {
	// Name and Version identify the client to the server.
	Name    string
	Version string
	// Prefix is prepended to every tool name, e.g. "fs_".
	Prefix string
	Logger logging.Logger
}

// Toolset is a connected MCP client session.
type Toolset struct {
	session *mcp.ClientSession
	prefix  string
	logger  logging.Logger

	closeOnce sync.Once
	closeErr  error
}

// CommandTransport starts the server as a subprocess talking over stdio.
func CommandTransport(command string, args ...string) mcp.Transport {
	return &mcp.CommandTransport{Command: exec.Command(command, args...)}
}

// Connect opens a session over transport.
func Connect(ctx context.Context, transport mcp.Transport, optFns ...func(o *Options)) (*Toolset, error) {
	opts := Options{Name: "agentrig", Version: "v0.1.0"}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)

	client := mcp.NewClient(&mcp.Implementation{Name: opts.Name, Version: opts.Version}, &mcp.ClientOptions{
		LoggingMessageHandler: func(_ context.Context, req *mcp.LoggingMessageRequest) {
			logger.Debug("mcp.server.log", "logger", req.Params.Logger, "level", string(req.Params.Level), "data", req.Params.Data)
		},
	})

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp connect: %w", err)
	}

	return &Toolset{session: session, prefix: opts.Prefix, logger: logger}, nil
}

// Close terminates the session.
func (ts *Toolset) Close() error {
	ts.closeOnce.Do(func() { ts.closeErr = ts.session.Close() })
	return ts.closeErr
}

// Tools lists every tool of the server, following pagination cursors.
func (ts *Toolset) Tools(ctx context.Context) ([]tool.Tool, error) {
	var (
		cursor string
		out    []tool.Tool
	)
	for {
		res, err := ts.session.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("mcp list tools: %w", err)
		}
		for _, t := range res.Tools {
			params, err := schemaMap(t.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("mcp tool %q: %w", t.Name, err)
			}
			out = append(out, &Tool{
				name:        ts.prefix + t.Name,
				remoteName:  t.Name,
				description: t.Description,
				parameters:  params,
				session:     ts.session,
			})
		}
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	ts.logger.Info("mcp.tools.listed", "count", len(out))

	return out, nil
}

func schemaMap(schema any) (map[string]any, error) {
	m := map[string]any{}
	if schema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Tool is a single MCP server tool.
type Tool struct {
	name        string
	remoteName  string
	description string
	parameters  map[string]any
	session     *mcp.ClientSession
}

var _ tool.Tool = (*Tool)(nil)

// Name implements tool.Tool.
func (t *Tool) Name() string { return t.name }

// Description implements tool.Tool.
func (t *Tool) Description() string { return t.description }

// Parameters implements tool.Tool.
func (t *Tool) Parameters() map[string]any { return t.parameters }

// Call implements tool.Tool. Text content blocks are joined with newlines;
// structured content is JSON encoded when no text was returned.
func (t *Tool) Call(toolCtx *core.ToolContext, args string) (string, error) {
	params, err := tool.DecodeArguments(t.name, args)
	if err != nil {
		return "", err
	}

	res, err := t.session.CallTool(toolCtx.Context(), &mcp.CallToolParams{
		Name:      t.remoteName,
		Arguments: params,
	})
	if err != nil {
		toolCtx.LogError("mcp.tool.call.failed", "error", err.Error())
		return "", &tool.ToolError{Tool: t.name, Message: err.Error(), Code: tool.CodeExecution, Err: err}
	}

	var texts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	text := strings.Join(texts, "\n")

	if res.IsError {
		return "", tool.NewToolError(t.name, text, tool.CodeExecution)
	}
	if text == "" && res.StructuredContent != nil {
		return tool.FormatResult(res.StructuredContent)
	}
	return text, nil
}
