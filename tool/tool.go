// Package tool implements function calling for model agents: structured
// capabilities with JSON Schema validated arguments and typed errors, invoked
// through a ToolContext that exposes session state and flow control.
package tool

import (
	"fmt"
	"strings"

	"github.com/ensembleai/ensemble/core"
)

// Tool is a named capability a model agent can invoke. The name and
// description are surfaced to the model as a function declaration; Parameters
// is the JSON Schema its arguments are validated against.
//
// Implementations must be safe for concurrent use when shared between cloned
// agents.
type Tool interface {
	// Name is the function identifier, snake_case by convention.
	Name() string

	// Description tells the model when and how to use the tool.
	Description() string

	// Parameters returns the JSON Schema for the argument object.
	Parameters() map[string]interface{}

	// Call executes the tool. Arguments arrive as decoded JSON.
	Call(toolCtx *core.ToolContext, args map[string]interface{}) (interface{}, error)
}

// ValidationError reports argument schema violations with per-field detail.
type ValidationError struct {
	Tool   string   `json:"tool"`
	Issues []string `json:"issues"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(e.Issues, "; "))
}

// ToolError is the typed failure a tool call surfaces to the model. Code
// categorizes the failure (VALIDATION_ERROR, EXECUTION_ERROR, or a
// tool-defined code) so callers can branch without parsing messages.
type ToolError struct {
	Tool    string      `json:"tool"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
