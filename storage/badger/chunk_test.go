package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/storage"
)

func makeChunks(tenantID, docID string, contents ...string) []*core.DocumentChunk {
	chunks := make([]*core.DocumentChunk, len(contents))
	for i, c := range contents {
		chunks[i] = &core.DocumentChunk{
			ID:           core.ChunkID(docID, i),
			DocumentID:   docID,
			TenantID:     tenantID,
			Index:        i,
			Content:      c,
			ContentHash:  core.ContentHash(c),
			EmbeddingRef: core.EmbeddingRef(docID, i),
		}
	}
	return chunks
}

func TestCreateChunks_OrderedByIndex(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	docID := core.NewID()

	chunks := makeChunks("org-1", docID, "zero", "one", "two")
	// Insert out of order; listing must still follow the index.
	require.NoError(t, repos.Chunks.CreateChunks(ctx, chunks[2], chunks[0], chunks[1]))

	got, err := repos.Chunks.ListChunksByDocument(ctx, "org-1", docID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, c := range got {
		assert.Equal(t, i, c.Index)
	}
	assert.Equal(t, "one", got[1].Content)

	other, err := repos.Chunks.ListChunksByDocument(ctx, "org-2", docID)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestCreateChunks_Idempotent(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	docID := core.NewID()

	require.NoError(t, repos.Chunks.CreateChunks(ctx, makeChunks("org-1", docID, "a", "b")...))
	require.NoError(t, repos.Chunks.CreateChunks(ctx, makeChunks("org-1", docID, "a", "b")...))

	count, err := repos.Chunks.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	err = repos.Chunks.CreateChunks(ctx, makeChunks("org-1", docID, "a", "changed")...)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestCreateChunks_LargeDocumentSpansBatches(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	docID := core.NewID()

	contents := make([]string, chunkWriteBatch*2+7)
	for i := range contents {
		contents[i] = "chunk"
	}
	require.NoError(t, repos.Chunks.CreateChunks(ctx, makeChunks("org-1", docID, contents...)...))

	got, err := repos.Chunks.ListChunksByDocument(ctx, "org-1", docID)
	require.NoError(t, err)
	assert.Len(t, got, len(contents))
}

func TestCreateChunks_Validation(t *testing.T) {
	repos := newTestRepos(t)
	err := repos.Chunks.CreateChunks(context.Background(), &core.DocumentChunk{ID: "x"})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestForEachChunk(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Chunks.CreateChunks(ctx, makeChunks("org-1", core.NewID(), "a", "b")...))
	require.NoError(t, repos.Chunks.CreateChunks(ctx, makeChunks("org-2", core.NewID(), "c")...))

	seen := map[string]int{}
	err := repos.Chunks.ForEachChunk(ctx, func(c *core.DocumentChunk) error {
		seen[c.TenantID]++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"org-1": 2, "org-2": 1}, seen)

	stop := assert.AnError
	calls := 0
	err = repos.Chunks.ForEachChunk(ctx, func(c *core.DocumentChunk) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}
