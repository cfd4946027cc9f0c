package tool

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/hupe1980/agentrig/core"
)

// TypedTool exposes a function taking a typed argument struct. The parameter
// schema is reflected from In; arguments are decoded straight into In.
//
// Struct tags follow invopop/jsonschema:
//
//	type WeatherArgs struct {
//	  City string `json:"city" jsonschema:"description=city name"`
//	  Unit string `json:"unit,omitempty" jsonschema:"enum=celsius,enum=fahrenheit"`
//	}
type TypedTool[In any] struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(toolCtx *core.ToolContext, in In) (any, error)
}

// NewTypedTool constructs a TypedTool.
func NewTypedTool[In any](name, description string, fn func(toolCtx *core.ToolContext, in In) (any, error)) *TypedTool[In] {
	return &TypedTool[In]{
		name:        name,
		description: description,
		parameters:  SchemaFor[In](),
		fn:          fn,
	}
}

// SchemaFor reflects the JSON schema of T as a plain map, inlining all
// definitions and dropping the meta keys providers reject.
func SchemaFor[T any]() map[string]any {
	var t T
	s := (&jsonschema.Reflector{
		DoNotReference: true,
	}).Reflect(&t)
	return SchemaToMap(s)
}

// SchemaToMap converts a jsonschema.Schema into the generic map form used by
// tool declarations.
func SchemaToMap(s *jsonschema.Schema) map[string]any {
	out := map[string]any{"type": "object", "properties": map[string]any{}}
	if s == nil {
		return out
	}
	b, err := json.Marshal(s)
	if err != nil {
		return out
	}
	m := map[string]any{}
	if err := json.Unmarshal(b, &m); err != nil {
		return out
	}
	delete(m, "$schema")
	delete(m, "$id")
	if _, ok := m["properties"]; !ok {
		m["properties"] = map[string]any{}
	}
	return m
}

// Name implements Tool.
func (t *TypedTool[In]) Name() string { return t.name }

// Description implements Tool.
func (t *TypedTool[In]) Description() string { return t.description }

// Parameters implements Tool.
func (t *TypedTool[In]) Parameters() map[string]any { return t.parameters }

// Call implements Tool.
func (t *TypedTool[In]) Call(toolCtx *core.ToolContext, args string) (string, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	var in In
	if strings.TrimSpace(args) != "" {
		dec := json.NewDecoder(strings.NewReader(args))
		if err := dec.Decode(&in); err != nil {
			logger.Warn("tool.call.invalid_arguments", "tool", t.name, "error", err.Error())
			return "", &ToolError{
				Tool:    t.name,
				Message: fmt.Sprintf("cannot decode arguments: %v", err),
				Code:    CodeInvalidArguments,
				Err:     err,
			}
		}
	}

	result, err := t.fn(toolCtx, in)
	if err != nil {
		return "", executionError(toolCtx, t.name, err)
	}

	out, err := FormatResult(result)
	if err != nil {
		return "", executionError(toolCtx, t.name, err)
	}

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return out, nil
}
