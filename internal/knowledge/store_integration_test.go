package knowledge

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbhq/notabene/internal/testutil"
)

const testDimension = 1536

func setupIntegrationStore(t *testing.T) (*Store, func()) {
	t.Helper()

	db, cleanup := testutil.SetupTestDB(t)
	embedder := testutil.NewHashEmbedder(testDimension)
	store := New(NewPGQuerier(db.Pool), embedder, testutil.DiscardLogger())
	return store, cleanup
}

func TestStore_InsertAndSearch_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store, cleanup := setupIntegrationStore(t)
	defer cleanup()
	ctx := context.Background()

	id, err := store.Insert(ctx, "gardening tips for growing tomatoes in clay soil", "tenant-a", Metadata{
		Source:      "garden.md",
		FileName:    "garden.md",
		ChunkIndex:  0,
		TotalChunks: 2,
		UploadedAt:  time.Now(),
	})
	require.NoError(t, err)

	_, err = store.Insert(ctx, "notes from the q3 budget review meeting", "tenant-a", Metadata{
		Source:      "budget.md",
		FileName:    "budget.md",
		ChunkIndex:  0,
		TotalChunks: 1,
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, "growing tomatoes", WithTenant("tenant-a"), WithTopK(1))
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, id, results[0].ID)
	assert.Equal(t, "garden.md", results[0].Metadata.Source)
	assert.GreaterOrEqual(t, results[0].Similarity, 0.0)
	assert.LessOrEqual(t, results[0].Similarity, 1.0)
}

func TestStore_Search_TenantIsolation_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store, cleanup := setupIntegrationStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Insert(ctx, "tenant a secret recipe for sourdough bread", "tenant-a", Metadata{Source: "recipes.md"})
	require.NoError(t, err)

	results, err := store.Search(ctx, "sourdough bread recipe", WithTenant("tenant-b"))
	require.NoError(t, err)
	assert.Empty(t, results, "tenant-b must never see tenant-a chunks")

	results, err = store.Search(ctx, "sourdough bread recipe", WithTenant("tenant-a"))
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestStore_Search_OrderedBySimilarity_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store, cleanup := setupIntegrationStore(t)
	defer cleanup()
	ctx := context.Background()

	for i, content := range []string{
		"kubernetes deployment rollout strategies",
		"kubernetes pod scheduling and affinity",
		"pasta carbonara with guanciale",
	} {
		_, err := store.Insert(ctx, content, "tenant-a", Metadata{
			Source:     fmt.Sprintf("doc-%d.md", i),
			ChunkIndex: 0,
		})
		require.NoError(t, err)
	}

	results, err := store.Search(ctx, "kubernetes deployment rollout", WithTenant("tenant-a"), WithTopK(3))
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity,
			"results must be ordered most similar first")
	}
	assert.Equal(t, "doc-0.md", results[0].Metadata.Source)
}

func TestStore_DeleteBySource_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store, cleanup := setupIntegrationStore(t)
	defer cleanup()
	ctx := context.Background()

	for i := range 3 {
		_, err := store.Insert(ctx, fmt.Sprintf("chunk %d of the journal", i), "tenant-a", Metadata{
			Source:      "journal.md",
			ChunkIndex:  i,
			TotalChunks: 3,
		})
		require.NoError(t, err)
	}
	_, err := store.Insert(ctx, "unrelated note kept around", "tenant-a", Metadata{Source: "keep.md"})
	require.NoError(t, err)

	// Tenant B keeps a journal under the same source name.
	for i := range 2 {
		_, err = store.Insert(ctx, fmt.Sprintf("tenant b journal entry %d", i), "tenant-b", Metadata{
			Source:      "journal.md",
			ChunkIndex:  i,
			TotalChunks: 2,
		})
		require.NoError(t, err)
	}

	count, err := store.DeleteBySource(ctx, "journal.md", "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// Second delete is a no-op, not an error.
	count, err = store.DeleteBySource(ctx, "journal.md", "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	sources, err := store.ListSources(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "keep.md", sources[0].Source)

	// Tenant B's chunks under the shared name are untouched.
	sources, err = store.ListSources(ctx, "tenant-b")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "journal.md", sources[0].Source)
	assert.Equal(t, 2, sources[0].ChunkCount)
}

func TestStore_ListSources_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store, cleanup := setupIntegrationStore(t)
	defer cleanup()
	ctx := context.Background()

	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	for i := range 2 {
		_, err := store.Insert(ctx, fmt.Sprintf("old content %d", i), "tenant-a", Metadata{
			Source:      "old.md",
			FileName:    "old.md",
			ChunkIndex:  i,
			TotalChunks: 2,
			UploadedAt:  older,
		})
		require.NoError(t, err)
	}
	_, err := store.Insert(ctx, "new content", "tenant-a", Metadata{
		Source:      "new.md",
		FileName:    "new.md",
		TotalChunks: 1,
		UploadedAt:  newer,
	})
	require.NoError(t, err)

	sources, err := store.ListSources(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, "new.md", sources[0].Source, "most recently updated source comes first")
	assert.Equal(t, 1, sources[0].ChunkCount)
	assert.Equal(t, "old.md", sources[1].Source)
	assert.Equal(t, 2, sources[1].ChunkCount)
	assert.True(t, sources[1].FirstUploaded.Before(sources[0].FirstUploaded))
}
