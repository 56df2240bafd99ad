package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// InsertChunkParams carries one chunk row.
type InsertChunkParams struct {
	ID          uuid.UUID
	TenantID    string
	Content     string
	Embedding   pgvector.Vector
	Source      string
	FileName    string
	ChunkIndex  int
	TotalChunks int
	UploadedAt  time.Time
}

// SearchChunksParams carries one similarity query. An empty TenantID means
// unscoped search (used only by internal tooling and tests).
type SearchChunksParams struct {
	QueryEmbedding pgvector.Vector
	TenantID       string
	Limit          int
}

// SearchChunksRow is one search hit with its raw cosine distance.
type SearchChunksRow struct {
	ID          uuid.UUID
	TenantID    string
	Content     string
	Source      string
	FileName    string
	ChunkIndex  int
	TotalChunks int
	UploadedAt  time.Time
	Distance    float64
}

// SourceRow is one per-source aggregate.
type SourceRow struct {
	Source        string
	FileName      string
	ChunkCount    int64
	FirstUploaded time.Time
	LastUpdated   time.Time
}

// PGQuerier implements Querier with hand-written pgx queries. All
// statements are parameterized; tenant filtering happens in SQL so no
// cross-tenant row ever reaches Go code.
type PGQuerier struct {
	db DBTX
}

// NewPGQuerier creates a PGQuerier on the given pool or transaction.
func NewPGQuerier(db DBTX) *PGQuerier {
	return &PGQuerier{db: db}
}

const insertChunkSQL = `
INSERT INTO chunks (id, tenant_id, content, embedding, source, file_name, chunk_index, total_chunks, uploaded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// InsertChunk writes one chunk row.
func (q *PGQuerier) InsertChunk(ctx context.Context, arg InsertChunkParams) error {
	_, err := q.db.Exec(ctx, insertChunkSQL,
		arg.ID,
		arg.TenantID,
		arg.Content,
		arg.Embedding,
		arg.Source,
		arg.FileName,
		arg.ChunkIndex,
		arg.TotalChunks,
		arg.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	return nil
}

// The seq tie-break keeps equal-distance results in insertion order, which
// makes search output reproducible.
const searchChunksSQL = `
SELECT id, tenant_id, content, source, file_name, chunk_index, total_chunks, uploaded_at,
       embedding <=> $1 AS distance
FROM chunks
WHERE ($2 = '' OR tenant_id = $2)
ORDER BY distance, seq
LIMIT $3`

// SearchChunks returns the nearest chunks by cosine distance, ascending.
func (q *PGQuerier) SearchChunks(ctx context.Context, arg SearchChunksParams) ([]SearchChunksRow, error) {
	rows, err := q.db.Query(ctx, searchChunksSQL, arg.QueryEmbedding, arg.TenantID, arg.Limit)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var out []SearchChunksRow
	for rows.Next() {
		var r SearchChunksRow
		if err := rows.Scan(
			&r.ID, &r.TenantID, &r.Content, &r.Source, &r.FileName,
			&r.ChunkIndex, &r.TotalChunks, &r.UploadedAt, &r.Distance,
		); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search rows: %w", err)
	}
	return out, nil
}

const deleteChunksBySourceSQL = `
DELETE FROM chunks WHERE source = $1 AND tenant_id = $2`

// DeleteChunksBySource removes a source's chunks for one tenant.
func (q *PGQuerier) DeleteChunksBySource(ctx context.Context, source, tenantID string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteChunksBySourceSQL, source, tenantID)
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}

const listSourcesSQL = `
SELECT source,
       min(file_name)    AS file_name,
       count(*)          AS chunk_count,
       min(uploaded_at)  AS first_uploaded,
       max(uploaded_at)  AS last_updated
FROM chunks
WHERE tenant_id = $1
GROUP BY source
ORDER BY last_updated DESC`

// ListSources aggregates chunks per source for one tenant.
func (q *PGQuerier) ListSources(ctx context.Context, tenantID string) ([]SourceRow, error) {
	rows, err := q.db.Query(ctx, listSourcesSQL, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []SourceRow
	for rows.Next() {
		var r SourceRow
		if err := rows.Scan(&r.Source, &r.FileName, &r.ChunkCount, &r.FirstUploaded, &r.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source rows: %w", err)
	}
	return out, nil
}
