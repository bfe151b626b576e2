package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func testChunk(pos int, source string, vec ...float32) domain.IndexedChunk {
	return domain.IndexedChunk{
		Chunk: domain.Chunk{
			ID:             source + "-" + string(rune('a'+pos)),
			Text:           "chunk " + string(rune('a'+pos)) + " of " + source,
			SourceFilename: source,
			ChunkIndex:     pos,
			TotalChunks:    2,
		},
		Embedding: vec,
	}
}

func TestNewStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "index.db"), store.Path())
	assert.FileExists(t, store.Path())

	names, err := store.Collections(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestNewStore_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()
	assert.DirExists(t, dir)
}

func TestNewStore_DataSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.ChunkIndex("s1").Replace(ctx, []domain.IndexedChunk{testChunk(0, "a.md", 1, 0)}))
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	chunks, docs, err := second.ChunkIndex("s1").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, chunks)
	assert.Equal(t, 1, docs)

	hits, err := second.ChunkIndex("s1").Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 0, hits[0].Distance, 1e-6)
}

func TestStore_Collections(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, store.ChunkIndex(name).Replace(ctx, []domain.IndexedChunk{testChunk(0, name+".md", 1)}))
	}
	// An empty build still registers the collection.
	require.NoError(t, store.ChunkIndex("empty").Replace(ctx, nil))

	names, err := store.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "empty", "mid", "zeta"}, names)
}

func TestStore_DeleteCollection(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ChunkIndex("keep").Replace(ctx, []domain.IndexedChunk{testChunk(0, "k.md", 1)}))
	require.NoError(t, store.ChunkIndex("drop").Replace(ctx, []domain.IndexedChunk{
		testChunk(0, "d.md", 1), testChunk(1, "d.md", 1),
	}))

	require.NoError(t, store.DeleteCollection(ctx, "drop"))
	require.NoError(t, store.DeleteCollection(ctx, "never-built"))

	names, err := store.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, names)

	chunks, docs, err := store.ChunkIndex("drop").Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, chunks)
	assert.Zero(t, docs)

	chunks, _, err = store.ChunkIndex("keep").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, chunks)
}
