package tools

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/nbhq/notabene/internal/auth"
	"github.com/nbhq/notabene/internal/knowledge"
)

// SearchNotesName is the registered name of the note search tool.
const SearchNotesName = "search_notes"

// SearchStore is the slice of the vector store the search tool needs.
type SearchStore interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.SearchResult, error)
}

// NewSearchNotes builds the search_notes tool. The tenant comes from the
// request context, never from model-supplied arguments.
func NewSearchNotes(store SearchStore, logger *slog.Logger) Definition {
	if logger == nil {
		logger = slog.Default()
	}

	return Definition{
		Name: SearchNotesName,
		Description: "Search the user's notes using semantic similarity. " +
			"Finds note passages conceptually related to the query. " +
			"Returns passage content, source document name, and a relevance score in [0, 1]. " +
			fmt.Sprintf("Default topK: %d. Maximum topK: %d.", knowledge.DefaultTopK, knowledge.MaxTopK),
		Schema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {
					Type:        "string",
					Description: "The search query string",
				},
				"topK": {
					Type:        "integer",
					Description: "Maximum number of results to return (1-10)",
				},
			},
			Required: []string{"query"},
		},
		Execute: func(ctx context.Context, args map[string]any) Result {
			tenantID, ok := auth.TenantFromContext(ctx)
			if !ok {
				return Failure(ErrCodeExecution, "no tenant in request context")
			}

			query := stringArg(args, "query")
			if query == "" {
				return Failure(ErrCodeValidation, "query must not be empty")
			}
			topK := intArg(args, "topK", knowledge.DefaultTopK)

			results, err := store.Search(ctx, query,
				knowledge.WithTenant(tenantID),
				knowledge.WithTopK(topK))
			if err != nil {
				logger.Warn("note search failed", "error", err)
				return Failure(ErrCodeExecution, fmt.Sprintf("search failed: %v", err))
			}

			hits := make([]map[string]any, 0, len(results))
			for _, res := range results {
				hits = append(hits, map[string]any{
					"content":    res.Content,
					"source":     resolveSourceLabel(res.Metadata),
					"relevance":  roundRelevance(res.Similarity),
					"chunkId":    res.ID.String(),
					"chunkIndex": res.Metadata.ChunkIndex,
				})
			}

			return Success(map[string]any{
				"query":   query,
				"results": hits,
				"count":   len(hits),
			})
		},
	}
}

// resolveSourceLabel picks the label cited for a hit: the logical source
// name, then the legacy file name, then "unknown".
func resolveSourceLabel(meta knowledge.Metadata) string {
	if meta.Source != "" {
		return meta.Source
	}
	if meta.FileName != "" {
		return meta.FileName
	}
	return "unknown"
}

// roundRelevance trims the score to two decimals for citation display.
func roundRelevance(similarity float64) float64 {
	return math.Round(similarity*100) / 100
}
