package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// chunkWriteBatch bounds the chunks written per transaction to stay under
// badger's transaction size limit on large documents.
const chunkWriteBatch = 256

// CreateChunks stores chunks and their per-document index entries.
// Rewriting an identical chunk is accepted so a redelivered ingestion job
// succeeds without creating duplicates.
func (r *ChunkRepository) CreateChunks(ctx context.Context, chunks ...*core.DocumentChunk) error {
	now := time.Now().UTC()
	for start := 0; start < len(chunks); start += chunkWriteBatch {
		end := min(start+chunkWriteBatch, len(chunks))
		if err := r.createBatch(ctx, chunks[start:end], now); err != nil {
			return err
		}
	}
	return nil
}

func (r *ChunkRepository) createBatch(ctx context.Context, chunks []*core.DocumentChunk, now time.Time) error {
	return r.backend.update(ctx, func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if chunk.ID == "" || chunk.DocumentID == "" || chunk.TenantID == "" {
				return fmt.Errorf("%w: chunk requires id, document and tenant", core.ErrValidation)
			}
			key := makeChunkKey(chunk.ID)
			existing, err := readRecord(tx, key, storage.UnmarshalChunk)
			if err != nil {
				return err
			}
			if existing != nil {
				if existing.Content != chunk.Content || existing.DocumentID != chunk.DocumentID || existing.Index != chunk.Index {
					return fmt.Errorf("%w: chunk %s", storage.ErrDuplicateKey, chunk.ID)
				}
				chunk.CreatedAt = existing.CreatedAt
				continue
			}

			if chunk.CreatedAt.IsZero() {
				chunk.CreatedAt = now
			}
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
			if err := tx.Set(makeChunkDocumentKey(chunk.DocumentID, chunk.Index), key); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListChunksByDocument returns a document's chunks ordered by index.
func (r *ChunkRepository) ListChunksByDocument(ctx context.Context, tenantID, documentID string) ([]*core.DocumentChunk, error) {
	var chunks []*core.DocumentChunk
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		all, err := scanIndex(tx, prefixOf(chunkDocumentPrefix, documentID), false, 0, storage.UnmarshalChunk)
		if err != nil {
			return err
		}
		for _, c := range all {
			if c.TenantID == tenantID {
				chunks = append(chunks, c)
			}
		}
		return nil
	})
	return chunks, err
}

// ForEachChunk streams every stored chunk to fn.
func (r *ChunkRepository) ForEachChunk(ctx context.Context, fn func(*core.DocumentChunk) error) error {
	return r.backend.view(ctx, func(tx *badger.Txn) error {
		prefix := prefixOf(chunkPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var chunk *core.DocumentChunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(chunk); err != nil {
				return err
			}
		}
		return nil
	})
}

// CountChunks returns the number of stored chunks.
func (r *ChunkRepository) CountChunks(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixOf(chunkPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	return count, err
}
