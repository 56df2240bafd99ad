package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Registered names of the generative analysis tools.
const (
	SummarizeNotesName  = "summarize_notes"
	FindGapsName        = "find_gaps"
	ExtractEntitiesName = "extract_entities"
)

// TextGenerator is the single-shot generative call the analysis tools run
// on. Implemented by llm.Client.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// genericClarifyingQuestion is supplied when find_gaps cannot parse the
// model's output into structured suggestions.
const genericClarifyingQuestion = "Could you clarify what specific information you're looking for?"

// NewSummarizeNotes builds the summarize_notes tool. The generated summary
// is returned verbatim.
func NewSummarizeNotes(gen TextGenerator, logger *slog.Logger) Definition {
	if logger == nil {
		logger = slog.Default()
	}

	return Definition{
		Name: SummarizeNotesName,
		Description: "Summarize note content. Produces a concise summary of the given text, " +
			"optionally biased toward a focus topic. " +
			"Use this after search_notes to condense long passages.",
		Schema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"content": {
					Type:        "string",
					Description: "The note content to summarize",
				},
				"focus": {
					Type:        "string",
					Description: "Optional topic to emphasize in the summary",
				},
			},
			Required: []string{"content"},
		},
		Execute: func(ctx context.Context, args map[string]any) Result {
			content := stringArg(args, "content")
			if strings.TrimSpace(content) == "" {
				return Failure(ErrCodeValidation, "content must not be empty")
			}

			var sb strings.Builder
			sb.WriteString("Summarize the following notes concisely. Preserve concrete facts, names, and dates.\n")
			if focus := stringArg(args, "focus"); focus != "" {
				fmt.Fprintf(&sb, "Focus especially on: %s\n", focus)
			}
			sb.WriteString("\nNotes:\n")
			sb.WriteString(content)

			summary, err := gen.GenerateText(ctx, sb.String())
			if err != nil {
				logger.Warn("summarize generation failed", "error", err)
				return Failure(ErrCodeExecution, fmt.Sprintf("summarization failed: %v", err))
			}

			return Success(map[string]any{
				"summary": summary,
			})
		},
	}
}

// NewFindGaps builds the find_gaps tool. It asks the model for content
// suggestions and clarifying questions as JSON; when the model answers in
// prose instead, the whole response becomes a single suggestion and a
// generic clarifying question is added. The tool only fails when the
// generative call itself errors.
func NewFindGaps(gen TextGenerator, logger *slog.Logger) Definition {
	if logger == nil {
		logger = slog.Default()
	}

	return Definition{
		Name: FindGapsName,
		Description: "Analyze what is missing from the user's notes for a given query. " +
			"Returns suggestions for content worth adding and clarifying questions to ask the user. " +
			"Call it with the search results you already have, or with none to note that nothing was found.",
		Schema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {
					Type:        "string",
					Description: "The user's original question or topic",
				},
				"relevantContent": {
					Type:        "string",
					Description: "Note content already found for the query, if any",
				},
				"searchResults": {
					Type:        "array",
					Description: "Source labels of the search hits already found",
					Items:       &jsonschema.Schema{Type: "string"},
				},
			},
			Required: []string{"query"},
		},
		Execute: func(ctx context.Context, args map[string]any) Result {
			query := stringArg(args, "query")
			if strings.TrimSpace(query) == "" {
				return Failure(ErrCodeValidation, "query must not be empty")
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "A user searched their personal notes for: %q\n\n", query)

			relevant := stringArg(args, "relevantContent")
			sources := stringSliceArg(args, "searchResults")
			switch {
			case relevant != "":
				sb.WriteString("The search found this content:\n")
				sb.WriteString(relevant)
				sb.WriteString("\n\n")
			case len(sources) > 0:
				fmt.Fprintf(&sb, "The search matched these sources: %s\n\n", strings.Join(sources, ", "))
			default:
				sb.WriteString("The search found nothing relevant.\n\n")
			}

			sb.WriteString("Identify gaps in the notes for this query. Respond with only a JSON object:\n")
			sb.WriteString(`{"contentSuggestions": ["..."], "clarifyingQuestions": ["..."]}`)

			raw, err := gen.GenerateText(ctx, sb.String())
			if err != nil {
				logger.Warn("gap analysis generation failed", "error", err)
				return Failure(ErrCodeExecution, fmt.Sprintf("gap analysis failed: %v", err))
			}

			suggestions, questions := parseGaps(raw)
			return Success(map[string]any{
				"contentSuggestions":  suggestions,
				"clarifyingQuestions": questions,
			})
		},
	}
}

// parseGaps extracts the two arrays from the model's raw output, falling
// back to the raw text as a single suggestion.
func parseGaps(raw string) (suggestions, questions []string) {
	var parsed struct {
		ContentSuggestions  []string `json:"contentSuggestions"`
		ClarifyingQuestions []string `json:"clarifyingQuestions"`
	}

	if block, ok := ExtractJSONObject(raw); ok {
		if err := json.Unmarshal([]byte(block), &parsed); err == nil {
			if parsed.ContentSuggestions == nil {
				parsed.ContentSuggestions = []string{}
			}
			if parsed.ClarifyingQuestions == nil {
				parsed.ClarifyingQuestions = []string{}
			}
			return parsed.ContentSuggestions, parsed.ClarifyingQuestions
		}
	}

	return []string{strings.TrimSpace(raw)}, []string{genericClarifyingQuestion}
}

// entityKeys is the closed set of entity categories extract_entities
// always returns, parseable or not.
var entityKeys = []string{"people", "dates", "topics", "locations", "organizations", "keywords"}

// NewExtractEntities builds the extract_entities tool. Unparseable model
// output degrades to empty arrays for every category rather than an error.
func NewExtractEntities(gen TextGenerator, logger *slog.Logger) Definition {
	if logger == nil {
		logger = slog.Default()
	}

	return Definition{
		Name: ExtractEntitiesName,
		Description: "Extract named entities from note content. " +
			"Returns people, dates, topics, locations, organizations, and keywords found in the text.",
		Schema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"content": {
					Type:        "string",
					Description: "The note content to extract entities from",
				},
				"entityTypes": {
					Type:        "array",
					Description: "Optional subset of entity categories to prioritize",
					Items:       &jsonschema.Schema{Type: "string"},
				},
			},
			Required: []string{"content"},
		},
		Execute: func(ctx context.Context, args map[string]any) Result {
			content := stringArg(args, "content")
			if strings.TrimSpace(content) == "" {
				return Failure(ErrCodeValidation, "content must not be empty")
			}

			var sb strings.Builder
			sb.WriteString("Extract entities from the following text. Respond with only a JSON object with exactly these keys, each an array of strings:\n")
			sb.WriteString(`{"people": [], "dates": [], "topics": [], "locations": [], "organizations": [], "keywords": []}`)
			sb.WriteString("\n")
			if types := stringSliceArg(args, "entityTypes"); len(types) > 0 {
				fmt.Fprintf(&sb, "Prioritize these categories: %s\n", strings.Join(types, ", "))
			}
			sb.WriteString("\nText:\n")
			sb.WriteString(content)

			raw, err := gen.GenerateText(ctx, sb.String())
			if err != nil {
				logger.Warn("entity extraction generation failed", "error", err)
				return Failure(ErrCodeExecution, fmt.Sprintf("entity extraction failed: %v", err))
			}

			return Success(map[string]any{
				"entities": parseEntities(raw),
			})
		},
	}
}

// parseEntities always yields every category key; unknown keys in the
// model's output are dropped.
func parseEntities(raw string) map[string][]string {
	entities := make(map[string][]string, len(entityKeys))
	for _, key := range entityKeys {
		entities[key] = []string{}
	}

	block, ok := ExtractJSONObject(raw)
	if !ok {
		return entities
	}

	var parsed map[string][]string
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return entities
	}

	for _, key := range entityKeys {
		if values, ok := parsed[key]; ok && values != nil {
			entities[key] = values
		}
	}
	return entities
}
