package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(nil, "gemini-2.5-flash", 0.2, nil); err == nil {
		t.Error("expected error for nil client")
	}
	if _, err := NewClient(&genai.Client{}, "", 0.2, nil); err == nil {
		t.Error("expected error for empty model name")
	}
}

func TestToContents(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "find my gardening notes"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{
			{Name: "search_notes", Args: map[string]any{"query": "gardening"}},
		}},
		{Role: RoleUser, ToolResults: []ToolResult{
			{Name: "search_notes", Response: map[string]any{"success": true}},
		}},
		{Role: RoleAssistant, Content: "Here is what I found."},
	}

	contents, err := toContents(messages)
	if err != nil {
		t.Fatalf("toContents failed: %v", err)
	}
	if len(contents) != 4 {
		t.Fatalf("got %d contents, want 4", len(contents))
	}

	if contents[0].Role != genai.RoleUser || contents[0].Parts[0].Text != "find my gardening notes" {
		t.Errorf("unexpected user content: %+v", contents[0])
	}

	if contents[1].Role != genai.RoleModel {
		t.Errorf("tool call role = %q, want model", contents[1].Role)
	}
	fc := contents[1].Parts[0].FunctionCall
	if fc == nil || fc.Name != "search_notes" {
		t.Errorf("function call not carried: %+v", contents[1].Parts[0])
	}

	if contents[2].Role != genai.RoleUser {
		t.Errorf("tool result role = %q, want user", contents[2].Role)
	}
	fr := contents[2].Parts[0].FunctionResponse
	if fr == nil || fr.Name != "search_notes" {
		t.Errorf("function response not carried: %+v", contents[2].Parts[0])
	}

	if contents[3].Role != genai.RoleModel || contents[3].Parts[0].Text != "Here is what I found." {
		t.Errorf("unexpected assistant content: %+v", contents[3])
	}
}

func TestToContents_SystemFoldsToUser(t *testing.T) {
	contents, err := toContents([]Message{{Role: RoleSystem, Content: "be brief"}})
	if err != nil {
		t.Fatalf("toContents failed: %v", err)
	}
	if len(contents) != 1 || contents[0].Role != genai.RoleUser {
		t.Errorf("system message should fold into a user turn: %+v", contents)
	}
}

func TestToContents_EmptyAssistantDropped(t *testing.T) {
	contents, err := toContents([]Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant},
	})
	if err != nil {
		t.Fatalf("toContents failed: %v", err)
	}
	if len(contents) != 1 {
		t.Errorf("empty assistant message should be dropped, got %d contents", len(contents))
	}
}

func TestToContents_UnknownRole(t *testing.T) {
	if _, err := toContents([]Message{{Role: "robot", Content: "x"}}); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestResponse_HasToolCalls(t *testing.T) {
	if (&Response{}).HasToolCalls() {
		t.Error("empty response has no tool calls")
	}
	r := &Response{ToolCalls: []ToolCall{{Name: "search_notes"}}}
	if !r.HasToolCalls() {
		t.Error("expected tool calls")
	}
}
