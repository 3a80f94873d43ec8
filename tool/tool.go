// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities (store lookups, writes, searches) with schema
// validated arguments and a uniform payload contract: every call yields either
// a domain payload map or {"error": "..."}.
package tool

import (
	"errors"
	"fmt"

	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/internal/util"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Be thread-safe if used concurrently
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case).
	Name() string

	// Description is provided to the model to help it decide when to call the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with decoded arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (map[string]any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeUnknown    = "UNKNOWN_TOOL"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// ErrorPayload is the single failure shape the model ever sees.
func ErrorPayload(msg string) map[string]any {
	return map[string]any{"error": msg}
}

// IsErrorPayload reports whether payload signals a failure.
func IsErrorPayload(payload map[string]any) bool {
	_, ok := payload["error"]
	return ok
}

// Payload folds a tool result and error into the payload contract. A ToolError
// contributes its message only; internal details never reach the model.
func Payload(result map[string]any, err error) map[string]any {
	if err != nil {
		var te *ToolError
		if errors.As(err, &te) {
			return ErrorPayload(te.Message)
		}
		return ErrorPayload(err.Error())
	}
	if result == nil {
		return map[string]any{}
	}
	return result
}
