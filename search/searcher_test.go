package search

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lumina/ai/mock"
	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/storage/badger"
	"github.com/poiesic/lumina/vectorindex"
)

const dim = 32

func setupIndex(t *testing.T, texts map[string][]string) *vectorindex.Index {
	t.Helper()
	ctx := context.Background()

	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Backend.Close() })

	idx, err := vectorindex.Open(ctx, repos.Snapshots)
	require.NoError(t, err)

	var records []core.VectorRecord
	for tenant, contents := range texts {
		docID := core.NewID()
		for i, content := range contents {
			records = append(records, core.VectorRecord{
				ID:     core.ChunkID(docID, i),
				Vector: mock.DeterministicVector(content, dim),
				Metadata: core.VectorMetadata{
					TenantID:   tenant,
					DocumentID: docID,
					Content:    content,
				},
			})
		}
	}
	require.NoError(t, idx.UpsertMany(ctx, records))
	return idx
}

func newEmbedder() *mock.MockEmbedder {
	e := mock.NewMockEmbedder()
	e.Dimension = dim
	return e
}

func TestNewSearcher(t *testing.T) {
	idx := setupIndex(t, nil)
	embedder := newEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(idx, embedder)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(idx, embedder, WithLogger(nil), WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("nil index", func(t *testing.T) {
		_, err := NewSearcher(nil, embedder)
		assert.Equal(t, ErrIndexRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewSearcher(idx, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("invalid timeout", func(t *testing.T) {
		_, err := NewSearcher(idx, embedder, WithEmbedTimeout(0))
		assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
	})
}

func TestFindRelevant(t *testing.T) {
	ctx := context.Background()
	idx := setupIndex(t, map[string][]string{
		"org-1": {"refunds are issued within 30 days", "shipping takes a week", "support is open weekdays"},
		"org-2": {"refunds are issued within 30 days"},
	})
	searcher, err := NewSearcher(idx, newEmbedder())
	require.NoError(t, err)

	results, err := searcher.FindRelevant(ctx, "org-1", "refunds are issued within 30 days", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "refunds are issued within 30 days", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.NotEmpty(t, results[0].DocumentID)

	all, err := searcher.FindRelevant(ctx, "org-2", "anything", 10)
	require.NoError(t, err)
	require.Len(t, all, 1, "only the tenant's own chunks are visible")

	none, err := searcher.FindRelevant(ctx, "org-3", "refunds", 5)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestFindRelevant_Errors(t *testing.T) {
	ctx := context.Background()
	idx := setupIndex(t, map[string][]string{"org-1": {"hello"}})

	t.Run("missing tenant", func(t *testing.T) {
		searcher, err := NewSearcher(idx, newEmbedder())
		require.NoError(t, err)
		_, err = searcher.FindRelevant(ctx, "", "hello", 5)
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("non-positive k", func(t *testing.T) {
		searcher, err := NewSearcher(idx, newEmbedder())
		require.NoError(t, err)
		_, err = searcher.FindRelevant(ctx, "org-1", "hello", 0)
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("embedder failure", func(t *testing.T) {
		embedder := newEmbedder()
		embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("model not loaded")
		}
		searcher, err := NewSearcher(idx, embedder)
		require.NoError(t, err)
		_, err = searcher.FindRelevant(ctx, "org-1", "hello", 5)
		assert.ErrorIs(t, err, core.ErrEmbeddingProvider)
	})

	t.Run("embedder timeout", func(t *testing.T) {
		embedder := newEmbedder()
		embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		searcher, err := NewSearcher(idx, embedder, WithEmbedTimeout(10*time.Millisecond))
		require.NoError(t, err)
		_, err = searcher.FindRelevant(ctx, "org-1", "hello", 5)
		assert.ErrorIs(t, err, core.ErrEmbeddingProvider)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.Dimension = dim + 1
		searcher, err := NewSearcher(idx, embedder)
		require.NoError(t, err)
		_, err = searcher.FindRelevant(ctx, "org-1", "hello", 5)
		assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	})
}

type recordingMonitor struct {
	stages []string
}

func (m *recordingMonitor) Start(tenantID, query string)          { m.stages = append(m.stages, "start") }
func (m *recordingMonitor) AfterEmbedding(dimension int)          { m.stages = append(m.stages, "embed") }
func (m *recordingMonitor) AfterIndexQuery(_ []vectorindex.Match) { m.stages = append(m.stages, "query") }
func (m *recordingMonitor) Finish(results []core.ContextChunk)    { m.stages = append(m.stages, "finish") }

func TestFindRelevantWithMonitor(t *testing.T) {
	idx := setupIndex(t, map[string][]string{"org-1": {"hello"}})
	searcher, err := NewSearcher(idx, newEmbedder())
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	_, err = searcher.FindRelevantWithMonitor(context.Background(), "org-1", "hello", 1, monitor)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "embed", "query", "finish"}, monitor.stages)
}

func TestMatchedTerms(t *testing.T) {
	tests := []struct {
		name    string
		content string
		query   string
		want    []string
	}{
		{"matches ignore case and punctuation", "Refunds are issued within 30 days.", "How are REFUNDS issued?", []string{"refunds", "issued"}},
		{"stop words never match", "the policy of the company", "what is the policy", []string{"policy"}},
		{"no overlap", "shipping takes a week", "refunds", []string{}},
		{"duplicates dropped", "refunds refunds", "refunds refunds", []string{"refunds"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchedTerms(tt.content, tt.query))
		})
	}
}
