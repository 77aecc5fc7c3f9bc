package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/lumina/ai"
	"github.com/poiesic/lumina/chunker"
	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/queue"
	"github.com/poiesic/lumina/retry"
	"github.com/poiesic/lumina/storage"
)

const (
	// DefaultEmbedTimeout bounds a single embedding call.
	DefaultEmbedTimeout = 30 * time.Second

	// statusWriteTimeout bounds the ERROR write made after a job's own
	// context has been cancelled.
	statusWriteTimeout = 10 * time.Second
)

// VectorWriter is the part of the vector index the worker writes to.
type VectorWriter interface {
	UpsertMany(ctx context.Context, records []core.VectorRecord) error
}

// Worker processes ingestion jobs.
type Worker struct {
	documents   storage.DocumentRepository
	chunks      storage.ChunkRepository
	audit       storage.AuditRepository
	index       VectorWriter
	embedder    ai.Embedder
	chunker     chunker.Chunker
	concurrency int
	embedTO     time.Duration
	embedRetry  retry.Policy
	logger      *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker) error

// WithConcurrency sets how many jobs run at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithConcurrency(n int) Option {
	return func(w *Worker) error {
		if n < 1 {
			n = 1
		}
		w.concurrency = n
		return nil
	}
}

// WithChunker sets the window size and overlap used to split documents.
func WithChunker(c chunker.Chunker) Option {
	return func(w *Worker) error {
		if err := c.Validate(); err != nil {
			return err
		}
		w.chunker = c
		return nil
	}
}

// WithEmbedTimeout bounds each embedding call.
func WithEmbedTimeout(d time.Duration) Option {
	return func(w *Worker) error {
		if d <= 0 {
			return fmt.Errorf("%w: embed timeout must be positive", core.ErrInvalidConfiguration)
		}
		w.embedTO = d
		return nil
	}
}

// WithEmbedRetries sets how many times a chunk embedding is attempted
// before the job fails.
func WithEmbedRetries(maxAttempts int, baseDelay time.Duration) Option {
	return func(w *Worker) error {
		if maxAttempts <= 0 {
			return fmt.Errorf("%w: %w", core.ErrInvalidConfiguration, retry.ErrInvalidMaxAttempts)
		}
		w.embedRetry = retry.Policy{MaxAttempts: maxAttempts, BaseDelay: baseDelay, MaxDelay: 30 * time.Second}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
		return nil
	}
}

// NewWorker creates an ingestion worker.
func NewWorker(
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	audit storage.AuditRepository,
	index VectorWriter,
	embedder ai.Embedder,
	opts ...Option,
) (*Worker, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if audit == nil {
		return nil, ErrAuditRepositoryRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	concurrency := runtime.NumCPU() / 2
	if concurrency < 1 {
		concurrency = 1
	}

	w := &Worker{
		documents:   documents,
		chunks:      chunks,
		audit:       audit,
		index:       index,
		embedder:    embedder,
		chunker:     chunker.Default(),
		concurrency: concurrency,
		embedTO:     DefaultEmbedTimeout,
		embedRetry:  retry.Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 30 * time.Second},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	w.logger = w.logger.With("component", "ingestion-worker")
	return w, nil
}

// Process runs one job through the document state machine. A returned error
// means the document is left in ERROR (or was never touched, for jobs that
// are invalid or name another tenant's document).
func (w *Worker) Process(ctx context.Context, job *queue.IngestionJob) error {
	if err := job.Validate(); err != nil {
		return retry.Permanent(err)
	}
	logger := w.logger.With("document", job.DocumentID, "tenant", job.TenantID)

	doc, err := w.documents.GetDocument(ctx, job.TenantID, job.DocumentID)
	if errors.Is(err, storage.ErrNotFound) {
		return retry.Permanent(fmt.Errorf("%w: document %s does not belong to tenant %s",
			core.ErrForbidden, job.DocumentID, job.TenantID))
	}
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	switch doc.Status {
	case core.DocumentStatusActive:
		logger.Info("document already indexed, skipping")
		return nil
	case core.DocumentStatusIndexing:
		// Redelivered after a worker died mid-job.
		logger.Warn("resuming document left in INDEXING")
	default:
		if _, err := w.documents.UpdateDocumentStatus(ctx, doc.ID, core.DocumentStatusIndexing); err != nil {
			return fmt.Errorf("failed to mark document indexing: %w", err)
		}
	}

	count, err := w.indexDocument(ctx, doc, job)
	if err != nil {
		w.markFailed(ctx, doc, err)
		return err
	}

	if _, err := w.documents.UpdateDocumentStatus(ctx, doc.ID, core.DocumentStatusActive); err != nil {
		w.markFailed(ctx, doc, err)
		return fmt.Errorf("failed to mark document active: %w", err)
	}

	err = w.audit.RecordEvent(ctx, &core.AuditEvent{
		TenantID: doc.TenantID,
		Type:     core.AuditDocumentProcessed,
		Metadata: map[string]string{
			"documentId": doc.ID,
			"chunkCount": strconv.Itoa(count),
		},
	})
	if err != nil {
		logger.Error("failed to record processed event", "err", err)
	}

	logger.Info("document indexed", "chunks", count)
	return nil
}

// indexDocument decodes, chunks, embeds and stores the document. It returns the
// number of chunks written.
func (w *Worker) indexDocument(ctx context.Context, doc *core.Document, job *queue.IngestionJob) (int, error) {
	raw, err := job.Content()
	if err != nil {
		return 0, retry.Permanent(err)
	}
	text := string(raw)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}

	pieces, err := w.chunker.Split(text)
	if err != nil {
		return 0, retry.Permanent(err)
	}

	embedder := newChunkEmbedder(w.embedder, w.embedTO, w.embedRetry, w.logger)
	records := make([]core.VectorRecord, 0, len(pieces))
	for i, piece := range pieces {
		vector, err := embedder.embed(ctx, piece)
		if err != nil {
			return 0, fmt.Errorf("chunk %d: %w", i, err)
		}

		chunk := &core.DocumentChunk{
			ID:           core.ChunkID(doc.ID, i),
			DocumentID:   doc.ID,
			TenantID:     doc.TenantID,
			Index:        i,
			Content:      piece,
			ContentHash:  core.ContentHash(piece),
			EmbeddingRef: core.EmbeddingRef(doc.ID, i),
		}
		if err := w.chunks.CreateChunks(ctx, chunk); err != nil {
			return 0, fmt.Errorf("failed to store chunk %d: %w", i, err)
		}

		records = append(records, core.VectorRecord{
			ID:     chunk.ID,
			Vector: vector,
			Metadata: core.VectorMetadata{
				TenantID:   doc.TenantID,
				DocumentID: doc.ID,
				Content:    piece,
			},
		})
	}

	if err := w.index.UpsertMany(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to index vectors: %w", err)
	}
	return len(records), nil
}

// markFailed records ERROR and a DOCUMENT_FAILED event. It runs on a context
// detached from ctx so a cancelled job still leaves a terminal status.
func (w *Worker) markFailed(ctx context.Context, doc *core.Document, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	logger := w.logger.With("document", doc.ID, "tenant", doc.TenantID)
	logger.Error("document ingestion failed", "err", cause)

	if _, err := w.documents.UpdateDocumentStatus(ctx, doc.ID, core.DocumentStatusError); err != nil {
		logger.Error("failed to mark document as errored", "err", err)
	}
	err := w.audit.RecordEvent(ctx, &core.AuditEvent{
		TenantID: doc.TenantID,
		Type:     core.AuditDocumentFailed,
		Metadata: map[string]string{
			"documentId": doc.ID,
			"error":      cause.Error(),
		},
	})
	if err != nil {
		logger.Error("failed to record failure event", "err", err)
	}
}

// Run consumes q until ctx is cancelled or the queue closes, processing up
// to the configured concurrency of jobs at once. It returns after in-flight
// jobs finish.
func (w *Worker) Run(ctx context.Context, q queue.Queue) error {
	var wg sync.WaitGroup
	pool, err := ants.NewPool(w.concurrency, ants.WithPanicHandler(func(p any) {
		w.logger.Error("ingestion job panicked", "panic", p)
	}))
	if err != nil {
		return err
	}
	defer pool.Release()

	w.logger.Info("worker started", "concurrency", w.concurrency)
	for {
		d, err := q.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrQueueClosed) {
				break
			}
			w.logger.Error("failed to dequeue job", "err", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			w.handle(ctx, q, d)
		})
		if submitErr != nil {
			wg.Done()
			w.logger.Error("failed to schedule job", "document", d.Job.DocumentID, "err", submitErr)
			w.settle(ctx, q, d, submitErr)
		}
	}

	wg.Wait()
	w.logger.Info("worker stopped")
	return nil
}

func (w *Worker) handle(ctx context.Context, q queue.Queue, d *queue.Delivery) {
	start := time.Now()
	err := w.Process(ctx, d.Job)
	w.logger.Debug("job finished",
		"document", d.Job.DocumentID,
		"attempt", d.Attempt,
		"elapsed", time.Since(start),
		"ok", err == nil)
	w.settle(ctx, q, d, err)
}

// settle acks or nacks d on a detached context.
func (w *Worker) settle(ctx context.Context, q queue.Queue, d *queue.Delivery, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	var err error
	if cause == nil {
		err = q.Ack(ctx, d)
	} else {
		err = q.Nack(ctx, d, cause)
	}
	if err != nil {
		w.logger.Error("failed to settle delivery", "document", d.Job.DocumentID, "err", err)
	}
}
