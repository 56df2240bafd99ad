// Package llm wraps the Gemini generative API behind small request and
// response types, so the orchestrator and tools never touch the SDK
// directly.
package llm

import (
	"google.golang.org/genai"
)

// Role of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ToolCall is one function invocation the model requested.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult is one completed invocation fed back to the model.
type ToolResult struct {
	Name     string
	Response map[string]any
}

// Message is one entry of a conversation. Exactly one of Content,
// ToolCalls, or ToolResults is normally set; an assistant message may carry
// both text and tool calls.
type Message struct {
	Role        Role
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// Request is one model step: system text, full history, and the tools the
// model may call. OnChunk, when set, receives text deltas as they stream;
// the complete text still comes back in the Response.
type Request struct {
	System   string
	Messages []Message
	Tools    []*genai.FunctionDeclaration
	OnChunk  func(text string)
}

// Response is what one model step produced: final text, tool call
// requests, or both.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// HasToolCalls reports whether the model requested any tool invocations.
func (r *Response) HasToolCalls() bool { return len(r.ToolCalls) > 0 }
