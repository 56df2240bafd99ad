// Package tools defines the typed, schema-validated tools the agent may
// invoke mid-turn: note search, summarization, gap analysis, and entity
// extraction.
//
// Tools never fail loudly. Every failure, including a bad argument shape
// from the model, is captured as a structured error Result the orchestrator
// feeds back as a normal tool response, so the model can react to it.
package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// Status of one tool invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Error codes returned to the model.
const (
	// ErrCodeValidation marks arguments that failed schema validation.
	ErrCodeValidation = "invalid_arguments"
	// ErrCodeExecution marks a failure inside the tool body.
	ErrCodeExecution = "execution_failed"
	// ErrCodeUnknownTool marks a call to a name that is not registered.
	ErrCodeUnknownTool = "unknown_tool"
)

// Error is a structured tool failure for model consumption. The code tells
// the model what category went wrong so it can correct course.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the outcome of one tool invocation.
type Result struct {
	Status Status         `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
	Error  *Error         `json:"error,omitempty"`
}

// Success builds a successful Result.
func Success(data map[string]any) Result {
	return Result{Status: StatusSuccess, Data: data}
}

// Failure builds an error Result.
func Failure(code, message string) Result {
	return Result{Status: StatusError, Error: &Error{Code: code, Message: message}}
}

// OK reports whether the invocation succeeded.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// Response flattens the Result into the {success, ...} payload shape sent
// back to the model as a function response.
func (r Result) Response() map[string]any {
	out := make(map[string]any, len(r.Data)+2)
	for k, v := range r.Data {
		out[k] = v
	}
	out["success"] = r.OK()
	if r.Error != nil {
		out["error"] = map[string]any{
			"code":    r.Error.Code,
			"message": r.Error.Message,
		}
	}
	return out
}

// Definition is one callable tool: metadata the model selects on, a
// parameter schema validated before dispatch, and the execution body.
type Definition struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
	Execute     func(ctx context.Context, args map[string]any) Result
}
