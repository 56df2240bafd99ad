package knowledge

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockEmbedder implements embed.Embedder for testing.
type mockEmbedder struct {
	embedding []float32 // custom vector to return
	embedErr  error     // error to return
	delay     time.Duration

	callCount int
	lastInput string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.callCount++
	m.lastInput = text

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.embedding != nil {
		return m.embedding, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbedder) Dimension() int {
	if m.embedding != nil {
		return len(m.embedding)
	}
	return 3
}

// mockQuerier implements Querier for testing.
type mockQuerier struct {
	insertErr error
	searchErr error
	deleteErr error
	listErr   error

	searchResults []SearchChunksRow
	deleteCount   int64
	listResults   []SourceRow

	insertCalls int
	searchCalls int
	deleteCalls int
	listCalls   int

	lastInsertParams InsertChunkParams
	lastSearchParams SearchChunksParams
	lastDeleteSource string
	lastDeleteTenant string
	lastListTenant   string
}

func (m *mockQuerier) InsertChunk(_ context.Context, arg InsertChunkParams) error {
	m.insertCalls++
	m.lastInsertParams = arg
	return m.insertErr
}

func (m *mockQuerier) SearchChunks(_ context.Context, arg SearchChunksParams) ([]SearchChunksRow, error) {
	m.searchCalls++
	m.lastSearchParams = arg
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResults, nil
}

func (m *mockQuerier) DeleteChunksBySource(_ context.Context, source, tenantID string) (int64, error) {
	m.deleteCalls++
	m.lastDeleteSource = source
	m.lastDeleteTenant = tenantID
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	return m.deleteCount, nil
}

func (m *mockQuerier) ListSources(_ context.Context, tenantID string) ([]SourceRow, error) {
	m.listCalls++
	m.lastListTenant = tenantID
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listResults, nil
}

// ============================================================================
// Constructor Tests
// ============================================================================

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		logger *slog.Logger
	}{
		{name: "with custom logger", logger: slog.Default()},
		{name: "with nil logger (uses default)", logger: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := New(&mockQuerier{}, &mockEmbedder{}, tt.logger)
			if store == nil {
				t.Fatal("New returned nil")
			}
			if store.logger == nil {
				t.Error("logger should never be nil")
			}
		})
	}
}

// ============================================================================
// Store.Insert Tests
// ============================================================================

func TestStore_Insert_Success(t *testing.T) {
	querier := &mockQuerier{}
	embedder := &mockEmbedder{embedding: []float32{0.5, 0.6, 0.7}}
	store := New(querier, embedder, nil)

	meta := Metadata{
		Source:      "meeting-notes.md",
		FileName:    "meeting-notes.md",
		ChunkIndex:  2,
		TotalChunks: 5,
		UploadedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	id, err := store.Insert(context.Background(), "quarterly planning notes", "tenant-a", meta)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id == uuid.Nil {
		t.Error("expected a non-nil chunk id")
	}

	if embedder.callCount != 1 {
		t.Errorf("embedder calls = %d, want 1", embedder.callCount)
	}
	if embedder.lastInput != "quarterly planning notes" {
		t.Errorf("embedder received %q", embedder.lastInput)
	}

	if querier.insertCalls != 1 {
		t.Fatalf("insert calls = %d, want 1", querier.insertCalls)
	}
	params := querier.lastInsertParams
	if params.ID != id {
		t.Errorf("insert id = %v, want %v", params.ID, id)
	}
	if params.TenantID != "tenant-a" {
		t.Errorf("tenant = %q, want tenant-a", params.TenantID)
	}
	if params.Content != "quarterly planning notes" {
		t.Error("content mismatch")
	}
	if params.Source != meta.Source || params.ChunkIndex != 2 || params.TotalChunks != 5 {
		t.Error("metadata not carried through")
	}
	if !params.UploadedAt.Equal(meta.UploadedAt) {
		t.Errorf("uploadedAt = %v, want %v", params.UploadedAt, meta.UploadedAt)
	}
	if got := params.Embedding.Slice(); len(got) != 3 {
		t.Errorf("embedding dimension = %d, want 3", len(got))
	}
}

func TestStore_Insert_DefaultsUploadedAt(t *testing.T) {
	querier := &mockQuerier{}
	store := New(querier, &mockEmbedder{}, nil)

	before := time.Now()
	if _, err := store.Insert(context.Background(), "content", "tenant-a", Metadata{Source: "s"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	got := querier.lastInsertParams.UploadedAt
	if got.Before(before) || got.After(time.Now()) {
		t.Errorf("uploadedAt not defaulted to now: %v", got)
	}
}

func TestStore_Insert_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		tenant  string
	}{
		{name: "empty content", content: "", tenant: "tenant-a"},
		{name: "whitespace content", content: "  \n\t ", tenant: "tenant-a"},
		{name: "missing tenant", content: "real content", tenant: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			querier := &mockQuerier{}
			embedder := &mockEmbedder{}
			store := New(querier, embedder, nil)

			_, err := store.Insert(context.Background(), tt.content, tt.tenant, Metadata{})
			if err == nil {
				t.Fatal("expected validation error")
			}
			if embedder.callCount != 0 {
				t.Error("embedder should not be called on invalid input")
			}
			if querier.insertCalls != 0 {
				t.Error("querier should not be called on invalid input")
			}
		})
	}
}

func TestStore_Insert_EmbeddingErrorAbortsInsert(t *testing.T) {
	querier := &mockQuerier{}
	embedErr := errors.New("embedding service unavailable")
	store := New(querier, &mockEmbedder{embedErr: embedErr}, nil)

	_, err := store.Insert(context.Background(), "content", "tenant-a", Metadata{Source: "notes.md"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, embedErr) {
		t.Errorf("error should wrap the embedding failure: %v", err)
	}
	if querier.insertCalls != 0 {
		t.Error("no row may be written when embedding fails")
	}
}

func TestStore_Insert_QuerierError(t *testing.T) {
	querier := &mockQuerier{insertErr: errors.New("connection reset")}
	store := New(querier, &mockEmbedder{}, nil)

	_, err := store.Insert(context.Background(), "content", "tenant-a", Metadata{Source: "notes.md"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "notes.md") {
		t.Errorf("error should name the source: %v", err)
	}
}

// ============================================================================
// Store.Search Tests
// ============================================================================

func searchRow(content, source string, index int, distance float64) SearchChunksRow {
	return SearchChunksRow{
		ID:          uuid.New(),
		TenantID:    "tenant-a",
		Content:     content,
		Source:      source,
		FileName:    source,
		ChunkIndex:  index,
		TotalChunks: 3,
		UploadedAt:  time.Now(),
		Distance:    distance,
	}
}

func TestStore_Search_Success(t *testing.T) {
	querier := &mockQuerier{
		searchResults: []SearchChunksRow{
			searchRow("closest", "a.md", 0, 0.2),
			searchRow("further", "b.md", 1, 0.8),
		},
	}
	store := New(querier, &mockEmbedder{}, nil)

	results, err := store.Search(context.Background(), "planning", WithTenant("tenant-a"))
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	if results[0].Content != "closest" {
		t.Errorf("ordering not preserved: first result is %q", results[0].Content)
	}
	if got, want := results[0].Similarity, 0.9; math.Abs(got-want) > 1e-9 {
		t.Errorf("similarity = %v, want %v", got, want)
	}
	if got, want := results[1].Similarity, 0.6; math.Abs(got-want) > 1e-9 {
		t.Errorf("similarity = %v, want %v", got, want)
	}
	if results[0].Metadata.Source != "a.md" {
		t.Errorf("metadata source = %q", results[0].Metadata.Source)
	}

	if querier.lastSearchParams.TenantID != "tenant-a" {
		t.Error("tenant scope not forwarded to query")
	}
	if querier.lastSearchParams.Limit != DefaultTopK {
		t.Errorf("limit = %d, want %d", querier.lastSearchParams.Limit, DefaultTopK)
	}
}

func TestStore_Search_TopKClamping(t *testing.T) {
	tests := []struct {
		name  string
		opts  []SearchOption
		limit int
	}{
		{name: "default", opts: nil, limit: DefaultTopK},
		{name: "explicit", opts: []SearchOption{WithTopK(7)}, limit: 7},
		{name: "zero falls back to default", opts: []SearchOption{WithTopK(0)}, limit: DefaultTopK},
		{name: "negative falls back to default", opts: []SearchOption{WithTopK(-3)}, limit: DefaultTopK},
		{name: "above max clamps", opts: []SearchOption{WithTopK(50)}, limit: MaxTopK},
		{name: "max allowed", opts: []SearchOption{WithTopK(MaxTopK)}, limit: MaxTopK},
		{name: "minimum", opts: []SearchOption{WithTopK(1)}, limit: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			querier := &mockQuerier{}
			store := New(querier, &mockEmbedder{}, nil)

			if _, err := store.Search(context.Background(), "q", tt.opts...); err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if querier.lastSearchParams.Limit != tt.limit {
				t.Errorf("limit = %d, want %d", querier.lastSearchParams.Limit, tt.limit)
			}
		})
	}
}

func TestStore_Search_EmbedError(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{embedErr: errors.New("quota exceeded")}, nil)

	_, err := store.Search(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error, not a silent empty result")
	}
}

func TestStore_Search_QuerierError(t *testing.T) {
	store := New(&mockQuerier{searchErr: errors.New("relation does not exist")}, &mockEmbedder{}, nil)

	_, err := store.Search(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error, not a silent empty result")
	}
}

func TestStore_Search_EmptyResults(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{}, nil)

	results, err := store.Search(context.Background(), "nothing indexed yet")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

// ============================================================================
// Similarity Mapping Tests
// ============================================================================

func TestSimilarityFromDistance(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     float64
	}{
		{name: "identical direction", distance: 0, want: 1},
		{name: "orthogonal", distance: 1, want: 0.5},
		{name: "opposite direction", distance: 2, want: 0},
		{name: "float drift past 2 clamps to 0", distance: 2.0000001, want: 0},
		{name: "midpoint", distance: 0.5, want: 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := similarityFromDistance(tt.distance)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("similarityFromDistance(%v) = %v, want %v", tt.distance, got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("similarity %v outside [0, 1]", got)
			}
		})
	}
}

// ============================================================================
// Store.DeleteBySource Tests
// ============================================================================

func TestStore_DeleteBySource(t *testing.T) {
	querier := &mockQuerier{deleteCount: 4}
	store := New(querier, &mockEmbedder{}, nil)

	count, err := store.DeleteBySource(context.Background(), "old-notes.md", "tenant-a")
	if err != nil {
		t.Fatalf("DeleteBySource failed: %v", err)
	}
	if count != 4 {
		t.Errorf("count = %d, want 4", count)
	}
	if querier.lastDeleteSource != "old-notes.md" || querier.lastDeleteTenant != "tenant-a" {
		t.Error("delete parameters not forwarded")
	}
}

func TestStore_DeleteBySource_UnknownSource(t *testing.T) {
	store := New(&mockQuerier{deleteCount: 0}, &mockEmbedder{}, nil)

	count, err := store.DeleteBySource(context.Background(), "never-uploaded.md", "tenant-a")
	if err != nil {
		t.Fatalf("deleting an unknown source must not error: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestStore_DeleteBySource_RequiresTenant(t *testing.T) {
	querier := &mockQuerier{}
	store := New(querier, &mockEmbedder{}, nil)

	if _, err := store.DeleteBySource(context.Background(), "notes.md", ""); err == nil {
		t.Fatal("expected error for missing tenant")
	}
	if querier.deleteCalls != 0 {
		t.Error("querier should not be called without a tenant")
	}
}

// ============================================================================
// Store.ListSources Tests
// ============================================================================

func TestStore_ListSources(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	querier := &mockQuerier{
		listResults: []SourceRow{
			{Source: "recent.md", FileName: "recent.md", ChunkCount: 7, FirstUploaded: last, LastUpdated: last},
			{Source: "older.md", FileName: "older.md", ChunkCount: 3, FirstUploaded: first, LastUpdated: first},
		},
	}
	store := New(querier, &mockEmbedder{}, nil)

	infos, err := store.ListSources(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("ListSources failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d sources, want 2", len(infos))
	}
	if infos[0].Source != "recent.md" || infos[0].ChunkCount != 7 {
		t.Errorf("unexpected first source: %+v", infos[0])
	}
	if querier.lastListTenant != "tenant-a" {
		t.Error("tenant not forwarded")
	}
}

func TestStore_ListSources_RequiresTenant(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{}, nil)

	if _, err := store.ListSources(context.Background(), ""); err == nil {
		t.Fatal("expected error for missing tenant")
	}
}
