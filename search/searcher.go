package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/lumina/ai"
	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/vectorindex"
)

// DefaultEmbedTimeout bounds the query embedding call.
const DefaultEmbedTimeout = 15 * time.Second

// VectorQuerier is the read side of the vector index.
type VectorQuerier interface {
	Query(ctx context.Context, vector []float32, k int, filter vectorindex.Filter) ([]vectorindex.Match, error)
}

// Searcher finds the chunks of a tenant's documents closest to a question.
type Searcher struct {
	index        VectorQuerier
	embedder     ai.Embedder
	embedTimeout time.Duration
	logger       *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithEmbedTimeout bounds the query embedding call.
func WithEmbedTimeout(d time.Duration) Option {
	return func(s *Searcher) error {
		if d <= 0 {
			return fmt.Errorf("%w: embed timeout must be positive", core.ErrInvalidConfiguration)
		}
		s.embedTimeout = d
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(index VectorQuerier, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		index:        index,
		embedder:     embedder,
		embedTimeout: DefaultEmbedTimeout,
		logger:       slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// FindRelevant returns up to k chunks of tenantID's documents, most similar
// first.
func (s *Searcher) FindRelevant(ctx context.Context, tenantID, query string, k int) ([]core.ContextChunk, error) {
	return s.FindRelevantWithMonitor(ctx, tenantID, query, k, nil)
}

// FindRelevantWithMonitor is FindRelevant with a monitor receiving a
// callback at each stage.
func (s *Searcher) FindRelevantWithMonitor(ctx context.Context, tenantID, query string, k int, monitor SearchMonitor) ([]core.ContextChunk, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if tenantID == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrValidation, core.ErrMissingTenant)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", core.ErrValidation, k)
	}

	monitor.Start(tenantID, query)

	embedCtx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	embedding, err := s.embedder.EmbedText(embedCtx, query)
	cancel()
	if err != nil {
		s.logger.Error("error generating embedding for query", "tenant", tenantID, "err", err)
		if !errors.Is(err, core.ErrEmbeddingProvider) {
			err = fmt.Errorf("%w: %w", core.ErrEmbeddingProvider, err)
		}
		return nil, err
	}
	monitor.AfterEmbedding(len(embedding))

	matches, err := s.index.Query(ctx, embedding, k, vectorindex.Filter{TenantID: tenantID})
	if err != nil {
		s.logger.Error("error querying vector index", "tenant", tenantID, "err", err)
		return nil, err
	}
	monitor.AfterIndexQuery(matches)

	results := make([]core.ContextChunk, len(matches))
	for i, m := range matches {
		results[i] = core.ContextChunk{
			ID:         m.Record.ID,
			DocumentID: m.Record.Metadata.DocumentID,
			Content:    m.Record.Metadata.Content,
			Score:      m.Score,
		}
	}
	if len(results) == 0 {
		s.logger.Warn("no context found", "tenant", tenantID)
	}

	monitor.Finish(results)
	return results, nil
}
