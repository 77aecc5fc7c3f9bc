package reindex

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lumina/ai/mock"
	"github.com/poiesic/lumina/core"
)

func TestBatchProcessor_Process(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{3, 4}
		}
		return out, nil
	}
	bp := NewBatchProcessor(embedder, 1, time.Millisecond)

	chunks := []*core.DocumentChunk{
		{ID: core.ChunkID("d1", 0), DocumentID: "d1", TenantID: "org-1", Content: "alpha", EmbeddingRef: "vec_d1_0"},
		{ID: core.ChunkID("d1", 1), DocumentID: "d1", TenantID: "org-1", Content: "beta", EmbeddingRef: "vec_d1_1"},
	}
	records, err := bp.Process(context.Background(), chunks)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, chunks[1].ID, records[1].ID)
	assert.Equal(t, core.VectorMetadata{TenantID: "org-1", DocumentID: "d1", Content: "beta"}, records[1].Metadata)
	assert.InDelta(t, 0.6, records[0].Vector[0], 1e-6)
	assert.InDelta(t, 0.8, records[0].Vector[1], 1e-6)
}

func TestBatchProcessor_CountMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}
	bp := NewBatchProcessor(embedder, 1, time.Millisecond)

	_, err := bp.Process(context.Background(), []*core.DocumentChunk{{Content: "a"}, {Content: "b"}})
	assert.ErrorIs(t, err, core.ErrEmbeddingProvider)
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	bp := NewBatchProcessor(embedder, 1, time.Millisecond)

	records, err := bp.Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, embedder.CallCount())
}

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name  string
		input []float32
		want  []float32
	}{
		{"already unit", []float32{1, 0, 0}, []float32{1, 0, 0}},
		{"3-4-5", []float32{3, 4}, []float32{0.6, 0.8}},
		{"negative", []float32{0, -2}, []float32{0, -1}},
		{"zero vector", []float32{0, 0}, []float32{0, 0}},
		{"empty", []float32{}, []float32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeVector(tt.input)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-6)
			}
		})
	}
}

func TestNormalizeVector_DoesNotModifyInput(t *testing.T) {
	input := []float32{3, 4}
	NormalizeVector(input)
	assert.Equal(t, []float32{3, 4}, input)

	var sum float64
	for _, x := range NormalizeVector([]float32{1, 2, 3, 4}) {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}
