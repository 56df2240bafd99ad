// Package knowledge persists note chunks with their embeddings and serves
// tenant-scoped similarity search over PostgreSQL + pgvector.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/nbhq/notabene/internal/embed"
)

// Querier defines the database operations Store needs. The interface lives
// with its consumer (like io.Reader or http.RoundTripper); PGQuerier is the
// production implementation and tests substitute in-memory fakes.
type Querier interface {
	InsertChunk(ctx context.Context, arg InsertChunkParams) error
	SearchChunks(ctx context.Context, arg SearchChunksParams) ([]SearchChunksRow, error)
	DeleteChunksBySource(ctx context.Context, source, tenantID string) (int64, error)
	ListSources(ctx context.Context, tenantID string) ([]SourceRow, error)
}

// Store manages chunk persistence and similarity search.
// Safe for concurrent use; all state lives in the database.
type Store struct {
	queries  Querier
	embedder embed.Embedder
	logger   *slog.Logger
}

// New creates a Store.
func New(queries Querier, embedder embed.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  queries,
		embedder: embedder,
		logger:   logger,
	}
}

// Insert embeds content and persists it as one chunk, returning the new
// chunk id. An embedding failure aborts the insert; no row without a vector
// is ever written.
func (s *Store) Insert(ctx context.Context, content, tenantID string, meta Metadata) (uuid.UUID, error) {
	if strings.TrimSpace(content) == "" {
		return uuid.Nil, errors.New("content must not be empty")
	}
	if tenantID == "" {
		return uuid.Nil, errors.New("tenant id is required")
	}

	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return uuid.Nil, fmt.Errorf("embedding chunk for %q: %w", meta.Source, err)
	}

	id := uuid.New()
	uploadedAt := meta.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now()
	}

	err = s.queries.InsertChunk(ctx, InsertChunkParams{
		ID:          id,
		TenantID:    tenantID,
		Content:     content,
		Embedding:   pgvector.NewVector(vec),
		Source:      meta.Source,
		FileName:    meta.FileName,
		ChunkIndex:  meta.ChunkIndex,
		TotalChunks: meta.TotalChunks,
		UploadedAt:  uploadedAt,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting chunk for %q: %w", meta.Source, err)
	}

	s.logger.Debug("inserted chunk",
		"id", id,
		"source", meta.Source,
		"chunk_index", meta.ChunkIndex,
		"content_length", len(content))
	return id, nil
}

// Search embeds the query and returns the topK nearest chunks by cosine
// distance, most similar first. Ties are broken by insertion order.
// Errors surface to the caller; there is no silent empty result.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]SearchResult, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	vec, err := s.embedder.Embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.queries.SearchChunks(queryCtx, SearchChunksParams{
		QueryEmbedding: pgvector.NewVector(vec),
		TenantID:       cfg.tenantID,
		Limit:          cfg.topK,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, SearchResult{
			Chunk: Chunk{
				ID:       row.ID,
				TenantID: row.TenantID,
				Content:  row.Content,
				Metadata: Metadata{
					Source:      row.Source,
					FileName:    row.FileName,
					ChunkIndex:  row.ChunkIndex,
					TotalChunks: row.TotalChunks,
					UploadedAt:  row.UploadedAt,
				},
			},
			Similarity: similarityFromDistance(row.Distance),
		})
	}
	return results, nil
}

// DeleteBySource removes every chunk of the given source owned by tenantID
// and reports how many rows went away. Deleting an unknown source is not an
// error; it returns 0.
func (s *Store) DeleteBySource(ctx context.Context, source, tenantID string) (int64, error) {
	if tenantID == "" {
		return 0, errors.New("tenant id is required")
	}

	count, err := s.queries.DeleteChunksBySource(ctx, source, tenantID)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks for %q: %w", source, err)
	}

	s.logger.Debug("deleted chunks", "source", source, "count", count)
	return count, nil
}

// ListSources aggregates the tenant's chunks per source document, most
// recently updated first.
func (s *Store) ListSources(ctx context.Context, tenantID string) ([]SourceInfo, error) {
	if tenantID == "" {
		return nil, errors.New("tenant id is required")
	}

	rows, err := s.queries.ListSources(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	infos := make([]SourceInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, SourceInfo{
			Source:        row.Source,
			FileName:      row.FileName,
			ChunkCount:    int(row.ChunkCount),
			FirstUploaded: row.FirstUploaded,
			LastUpdated:   row.LastUpdated,
		})
	}
	return infos, nil
}

// similarityFromDistance maps cosine distance, which pgvector reports in
// [0, 2], onto a [0, 1] similarity score. Floating point can nudge the
// distance slightly past 2; the score is clamped rather than going negative.
func similarityFromDistance(distance float64) float64 {
	sim := 1 - distance/2
	if sim < 0 {
		return 0
	}
	return sim
}
