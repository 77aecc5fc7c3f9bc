package reindex

import (
	"context"

	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/storage"
)

// DefaultBatchSize is the default number of chunks embedded per request.
const DefaultBatchSize = 100

// ChunkIterator walks the stored chunks in fixed-size batches.
type ChunkIterator struct {
	repo      storage.ChunkRepository
	batchSize int
}

// NewChunkIterator creates an iterator. A non-positive batchSize means
// DefaultBatchSize.
func NewChunkIterator(repo storage.ChunkRepository, batchSize int) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ChunkIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn with consecutive batches. The last batch may be short.
// Iteration stops at the first error from fn or when ctx is cancelled.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func([]*core.DocumentChunk) error) error {
	batch := make([]*core.DocumentChunk, 0, it.batchSize)

	err := it.repo.ForEachChunk(ctx, func(chunk *core.DocumentChunk) error {
		batch = append(batch, chunk)
		if len(batch) < it.batchSize {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		batch = make([]*core.DocumentChunk, 0, it.batchSize)
		return ctx.Err()
	})
	if err != nil {
		return err
	}

	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}
