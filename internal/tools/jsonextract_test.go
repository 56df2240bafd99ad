package tools

import "testing"

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		found bool
	}{
		{
			name:  "bare object",
			input: `{"a": 1}`,
			want:  `{"a": 1}`,
			found: true,
		},
		{
			name:  "object wrapped in prose",
			input: "Sure! Here is the JSON you asked for:\n{\"a\": 1}\nHope that helps.",
			want:  `{"a": 1}`,
			found: true,
		},
		{
			name:  "object in code fence",
			input: "```json\n{\"gaps\": [\"x\"]}\n```",
			want:  `{"gaps": ["x"]}`,
			found: true,
		},
		{
			name:  "nested objects",
			input: `prefix {"outer": {"inner": [1, 2]}} suffix`,
			want:  `{"outer": {"inner": [1, 2]}}`,
			found: true,
		},
		{
			name:  "braces inside string values",
			input: `{"text": "a } inside { a string"}`,
			want:  `{"text": "a } inside { a string"}`,
			found: true,
		},
		{
			name:  "escaped quote inside string",
			input: `{"text": "she said \"}\" loudly"}`,
			want:  `{"text": "she said \"}\" loudly"}`,
			found: true,
		},
		{
			name:  "first of two objects wins",
			input: `{"first": 1} {"second": 2}`,
			want:  `{"first": 1}`,
			found: true,
		},
		{
			name:  "plain prose",
			input: "I don't know",
			found: false,
		},
		{
			name:  "unclosed object",
			input: `{"a": [1, 2`,
			found: false,
		},
		{
			name:  "empty input",
			input: "",
			found: false,
		},
		{
			name:  "stray closing brace ignored",
			input: `} then {"a": 1}`,
			want:  `{"a": 1}`,
			found: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractJSONObject(tt.input)
			if found != tt.found {
				t.Fatalf("found = %v, want %v", found, tt.found)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
