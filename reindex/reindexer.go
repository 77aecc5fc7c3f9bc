// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/lumina/ai"
	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/storage"
)

// Config holds configuration for a rebuild.
type Config struct {
	// BatchSize is the number of chunks embedded per request
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per embedding request
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// IndexWriter replaces the contents of the vector index.
type IndexWriter interface {
	Replace(ctx context.Context, records []core.VectorRecord) error
}

// Result summarizes a rebuild.
type Result struct {
	Indexed int
	Skipped int
	Elapsed time.Duration
}

// Reindexer rebuilds the vector index from stored chunks.
type Reindexer struct {
	documents storage.DocumentRepository
	chunks    storage.ChunkRepository
	index     IndexWriter
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *ChunkIterator
	logger    *slog.Logger
}

// NewReindexer creates a reindexer.
// progress: where to write progress output (typically os.Stderr)
func NewReindexer(
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	index IndexWriter,
	embedder ai.Embedder,
	config *Config,
	progress io.Writer,
) *Reindexer {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reindexer{
		documents: documents,
		chunks:    chunks,
		index:     index,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(embedder, config.MaxRetries, config.RetryDelay),
		iterator:  NewChunkIterator(chunks, config.BatchSize),
		logger:    slog.Default().With("component", "reindexer"),
	}
}

// Run re-embeds every chunk of every ACTIVE document and replaces the index
// contents with the result. The previous index stays in place if anything
// fails.
func (r *Reindexer) Run(ctx context.Context) (*Result, error) {
	total, err := r.chunks.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d chunks (batch size: %d)\n", total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, "chunks", total, r.config.ReportInterval)
	tracker.Start()

	active := make(map[string]bool)
	result := &Result{}
	records := make([]core.VectorRecord, 0, total)

	err = r.iterator.ForEach(ctx, func(batch []*core.DocumentChunk) error {
		eligible := make([]*core.DocumentChunk, 0, len(batch))
		for _, chunk := range batch {
			ok, err := r.isActive(ctx, active, chunk)
			if err != nil {
				return err
			}
			if ok {
				eligible = append(eligible, chunk)
			} else {
				result.Skipped++
			}
		}

		batchRecords, err := r.processor.Process(ctx, eligible)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		records = append(records, batchRecords...)
		tracker.Add(len(batch))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := r.index.Replace(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to publish index: %w", err)
	}

	tracker.Finish()
	result.Indexed = len(records)
	result.Elapsed = tracker.Elapsed()

	fmt.Fprintf(r.progress, "Reindex complete. Indexed %d chunks, skipped %d, in %v\n",
		result.Indexed, result.Skipped, result.Elapsed.Round(time.Millisecond))
	r.logger.Info("reindex complete", "indexed", result.Indexed, "skipped", result.Skipped)
	return result, nil
}

// isActive reports whether chunk's document is ACTIVE, caching per document.
func (r *Reindexer) isActive(ctx context.Context, cache map[string]bool, chunk *core.DocumentChunk) (bool, error) {
	if ok, seen := cache[chunk.DocumentID]; seen {
		return ok, nil
	}
	doc, err := r.documents.GetDocument(ctx, chunk.TenantID, chunk.DocumentID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("failed to load document %s: %w", chunk.DocumentID, err)
	}
	ok := doc != nil && doc.Status == core.DocumentStatusActive
	cache[chunk.DocumentID] = ok
	return ok, nil
}
