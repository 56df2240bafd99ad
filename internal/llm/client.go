package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// Client talks to the Gemini API. Safe for concurrent use.
type Client struct {
	models      *genai.Models
	model       string
	temperature float32
	logger      *slog.Logger
}

// NewClient creates a Client on an initialized genai client.
func NewClient(client *genai.Client, model string, temperature float32, logger *slog.Logger) (*Client, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}
	if model == "" {
		return nil, errors.New("model name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		models:      client.Models,
		model:       model,
		temperature: temperature,
		logger:      logger,
	}, nil
}

// Generate runs one model step over the full conversation, streaming text
// deltas to req.OnChunk when set and collecting any tool call requests.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	contents, err := toContents(req.Messages)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: req.Tools}}
	}

	resp := &Response{}
	for chunk, err := range c.models.GenerateContentStream(ctx, c.model, contents, config) {
		if err != nil {
			return nil, fmt.Errorf("model call: %w", err)
		}
		if len(chunk.Candidates) == 0 || chunk.Candidates[0].Content == nil {
			continue
		}
		for _, part := range chunk.Candidates[0].Content.Parts {
			if part.Text != "" {
				resp.Text += part.Text
				if req.OnChunk != nil {
					req.OnChunk(part.Text)
				}
			}
			if part.FunctionCall != nil {
				resp.ToolCalls = append(resp.ToolCalls, ToolCall{
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				})
			}
		}
	}

	c.logger.Debug("model step complete",
		"text_length", len(resp.Text),
		"tool_calls", len(resp.ToolCalls))
	return resp, nil
}

// GenerateText issues a single-shot prompt with no history and no tools,
// returning the model's text. The analysis tools run on this.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{Temperature: genai.Ptr(c.temperature)})
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("model returned no text")
	}
	return text, nil
}

// toContents converts conversation messages into the SDK's content form.
// Tool results travel back as user-role function responses, per the Gemini
// function calling protocol.
func toContents(messages []Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			if len(msg.ToolResults) > 0 {
				parts := make([]*genai.Part, 0, len(msg.ToolResults))
				for _, tr := range msg.ToolResults {
					parts = append(parts, genai.NewPartFromFunctionResponse(tr.Name, tr.Response))
				}
				contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})
				continue
			}
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAssistant:
			parts := make([]*genai.Part, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, genai.NewPartFromFunctionCall(tc.Name, tc.Args))
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})
		case RoleSystem:
			// System text is carried via SystemInstruction; a stray
			// system message in history is folded into a user turn.
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		default:
			return nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	return contents, nil
}
