package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/internal/util"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Responsibilities:
//   - Holds a lightweight JSON-Schema-like parameter specification (parameters)
//   - Decodes the model supplied JSON arguments and validates them against that schema
//   - Invokes the wrapped function with a *core.ToolContext giving access to the
//     request id, call id, cancellation signal and logger
//   - Renders the returned value as result text (see FormatResult)
//   - Normalizes error handling so callers receive *ToolError with consistent codes:
//     INVALID_ARGUMENTS -> arguments are not a JSON object
//     VALIDATION_ERROR  -> schema / argument mismatch
//     EXECUTION_ERROR   -> underlying function returned an error (non-ToolError)
//     (custom codes preserved if the function returns *ToolError directly)
//
// Concurrency:
//
//	A FunctionTool has no internal mutable state after construction and is safe for
//	concurrent use by multiple goroutines.
type FunctionTool struct {
	// Tool identifier (snake_case recommended)
	name string
	// Human-readable description shown to models
	description string
	// JSON schema describing accepted arguments
	parameters map[string]any
	// User supplied implementation
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	if parameters == nil {
		parameters = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the (minimal) JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call decodes and validates args then invokes the underlying function.
//
// Logging Fields:
//
//	tool: tool name
//	call_id: tool call identifier (correlates model request & tool execution)
//	duration_ms: execution time in milliseconds
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args string) (string, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "call_id", toolCtx.CallID())

	params, err := DecodeArguments(t.name, args)
	if err != nil {
		logger.Warn("tool.call.invalid_arguments", "tool", t.name, "error", err.Error())
		return "", err
	}

	if err := util.ValidateParameters(params, t.parameters); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return "", &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
			Err:     err,
		}
	}

	result, err := t.fn(toolCtx, params)
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

// DecodeArguments parses the model supplied JSON arguments. Blank input is
// treated as an empty object.
func DecodeArguments(toolName, args string) (map[string]any, error) {
	params := map[string]any{}
	if strings.TrimSpace(args) == "" {
		return params, nil
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return nil, &ToolError{
			Tool:    toolName,
			Message: fmt.Sprintf("arguments are not a JSON object: %v", err),
			Code:    CodeInvalidArguments,
			Err:     err,
		}
	}
	return params, nil
}

// FormatResult renders a tool return value as result text: strings and byte
// slices are used verbatim, nil becomes "", everything else is JSON encoded.
func FormatResult(v any) (string, error) {
	switch r := v.(type) {
	case nil:
		return "", nil
	case string:
		return r, nil
	case []byte:
		return string(r), nil
	case json.RawMessage:
		return string(r), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(b), nil
}

func executionError(toolCtx *core.ToolContext, name string, err error) error {
	logger := toolCtx.Logger()

	var toolErr *ToolError
	if errors.As(err, &toolErr) { // Already a ToolError -> just log and forward
		logger.Error("tool.call.error", "tool", name, "error", toolErr.Message)

		return toolErr
	}

	logger.Error("tool.call.error", "tool", name, "error", err.Error())

	return &ToolError{
		Tool:    name,
		Message: err.Error(),
		Code:    CodeExecution,
		Err:     err,
	}
}
