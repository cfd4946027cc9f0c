// Package tool implements the function / tool calling subsystem that lets agents
// invoke structured capabilities (APIs, computations, side‑effects) with schema
// validated arguments, consistent error handling and rich metadata for LLM guidance.
package tool

import (
	"fmt"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/internal/util"
	"github.com/hupe1980/agentrig/model"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tools are registered with an agent to enable function calling, allowing
// the model to perform actions beyond text generation such as API calls,
// calculations or lookups.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe: calls of one turn may run concurrently
//   - Observe toolCtx.IsCancelled() in long running work
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names should be descriptive and follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the LLM to help it understand when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	// This schema is used for parameter validation and LLM function calling.
	Parameters() map[string]any

	// Call executes the tool with the raw JSON arguments produced by the model
	// and returns the result text appended to the conversation.
	Call(toolCtx *core.ToolContext, args string) (string, error)
}

// Definition renders the declaration sent to the backend for t.
func Definition(t Tool) model.ToolDefinition {
	return model.ToolDefinition{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes carried by ToolError.
const (
	CodeInvalidArguments = "INVALID_ARGUMENTS"
	CodeValidation       = "VALIDATION_ERROR"
	CodeExecution        = "EXECUTION_ERROR"
	CodeUnknownTool      = "UNKNOWN_TOOL"
	CodePanic            = "PANIC"
	CodeCancelled        = "CANCELLED"
)

// ToolError represents errors that occur during tool execution.
// It matches core.ErrTool with errors.Is.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
	Err     error  `json:"-"`                 // Underlying cause
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ToolError) Unwrap() error { return e.Err }

// Is reports core.ErrTool membership.
func (e *ToolError) Is(target error) bool { return target == core.ErrTool }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// NewUnknownToolError reports a call to an unregistered tool. It matches core.ErrUnknownTool.
func NewUnknownToolError(tool string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: fmt.Sprintf("tool %q is not registered", tool),
		Code:    CodeUnknownTool,
		Err:     core.ErrUnknownTool,
	}
}
