// Package ingest turns raw note documents into embedded, searchable chunks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nbhq/notabene/internal/chunker"
	"github.com/nbhq/notabene/internal/knowledge"
)

// DefaultConcurrency bounds how many chunks embed in parallel.
const DefaultConcurrency = 4

// Store defines the persistence operations the pipeline needs. The
// interface is defined here, by the consumer; knowledge.Store satisfies it.
type Store interface {
	Insert(ctx context.Context, content, tenantID string, meta knowledge.Metadata) (uuid.UUID, error)
	DeleteBySource(ctx context.Context, source, tenantID string) (int64, error)
}

// Pipeline chunks a document and persists each chunk with its embedding.
// Safe for concurrent use.
type Pipeline struct {
	store        Store
	chunkOptions []chunker.Option
	concurrency  int
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConcurrency sets how many chunks may embed at once. Values below 1
// fall back to DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n >= 1 {
			p.concurrency = n
		}
	}
}

// WithChunkOptions overrides the default chunk size and overlap.
func WithChunkOptions(opts ...chunker.Option) Option {
	return func(p *Pipeline) {
		p.chunkOptions = opts
	}
}

// New creates a Pipeline with the default chunker settings.
func New(store Store, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		store:       store,
		concurrency: DefaultConcurrency,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest splits rawText into chunks, embeds each one, and persists them for
// tenantID. Chunks are processed concurrently but keep their document-order
// index in metadata.
//
// Delivery is at-least-once: a chunk failure does not roll back chunks
// already written. Ingest reports how many chunks landed alongside any
// error, so callers can tell a partial ingest from a clean one.
func (p *Pipeline) Ingest(ctx context.Context, sourceName, rawText, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, errors.New("tenant id is required")
	}
	if sourceName == "" {
		return 0, errors.New("source name is required")
	}

	chunks := chunker.Chunk(rawText, p.chunkOptions...)
	if len(chunks) == 0 {
		p.logger.Info("nothing to ingest", "source", sourceName)
		return 0, nil
	}

	uploadedAt := time.Now()
	total := len(chunks)

	var stored atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, content := range chunks {
		g.Go(func() error {
			meta := knowledge.Metadata{
				Source:      sourceName,
				FileName:    sourceName,
				ChunkIndex:  i,
				TotalChunks: total,
				UploadedAt:  uploadedAt,
			}
			if _, err := p.store.Insert(gctx, content, tenantID, meta); err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			stored.Add(1)
			return nil
		})
	}

	err := g.Wait()
	count := int(stored.Load())

	if err != nil {
		p.logger.Warn("partial ingest",
			"source", sourceName,
			"stored", count,
			"total", total,
			"error", err)
		return count, fmt.Errorf("ingesting %q: %w", sourceName, err)
	}

	p.logger.Info("ingested document",
		"source", sourceName,
		"chunks", count)
	return count, nil
}

// Replace removes every existing chunk of sourceName for the tenant and then
// ingests rawText fresh. The two steps are not atomic; a failed ingest after
// a successful delete leaves the source partially indexed, which a retry
// repairs.
func (p *Pipeline) Replace(ctx context.Context, sourceName, rawText, tenantID string) (int, error) {
	if _, err := p.store.DeleteBySource(ctx, sourceName, tenantID); err != nil {
		return 0, fmt.Errorf("replacing %q: %w", sourceName, err)
	}
	return p.Ingest(ctx, sourceName, rawText, tenantID)
}
