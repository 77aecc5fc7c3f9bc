package reindex

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/poiesic/lumina/ai"
	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/retry"
)

// BatchProcessor embeds chunks and turns them into vector records.
type BatchProcessor struct {
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a processor retrying each embedding request up
// to maxRetries times.
func NewBatchProcessor(embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds chunks with one request and returns their records in input
// order.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []*core.DocumentChunk) ([]core.VectorRecord, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	var embeddings [][]float32
	err := retry.WithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", core.ErrEmbeddingProvider, len(chunks), len(embeddings))
	}

	records := make([]core.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = core.VectorRecord{
			ID:     chunk.ID,
			Vector: NormalizeVector(embeddings[i]),
			Metadata: core.VectorMetadata{
				TenantID:   chunk.TenantID,
				DocumentID: chunk.DocumentID,
				Content:    chunk.Content,
			},
		}
	}
	return records, nil
}

// NormalizeVector returns v scaled to unit length. A zero vector stays zero.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}
