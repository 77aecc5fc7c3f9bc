package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/poiesic/lumina/core"
)

// Filter scopes a query. TenantID is mandatory; DocumentID optionally
// narrows the search to a single document.
type Filter struct {
	TenantID   string
	DocumentID string
}

func (f Filter) matches(meta core.VectorMetadata) bool {
	if meta.TenantID != f.TenantID {
		return false
	}
	return f.DocumentID == "" || meta.DocumentID == f.DocumentID
}

// Match is a query hit.
type Match struct {
	Record core.VectorRecord
	Score  float32
}

// snapshot is an immutable view of the index once published.
type snapshot struct {
	records   []core.VectorRecord
	byID      map[string]int
	dimension int
}

func newSnapshot(capacity int) *snapshot {
	return &snapshot{
		records: make([]core.VectorRecord, 0, capacity),
		byID:    make(map[string]int, capacity),
	}
}

// put replaces the record with the same ID in place or appends it.
func (s *snapshot) put(rec core.VectorRecord) {
	if i, ok := s.byID[rec.ID]; ok {
		s.records[i] = rec
		return
	}
	s.byID[rec.ID] = len(s.records)
	s.records = append(s.records, rec)
}

func (s *snapshot) clone(extra int) *snapshot {
	next := newSnapshot(len(s.records) + extra)
	next.dimension = s.dimension
	next.records = append(next.records, s.records...)
	for id, i := range s.byID {
		next.byID[id] = i
	}
	return next
}

// Index is an exact cosine similarity index over tenant-tagged vectors.
type Index struct {
	mu        sync.Mutex // serializes writers
	current   atomic.Pointer[snapshot]
	persister Persister
	dimension int
	logger    *slog.Logger
}

// Option configures an Index.
type Option func(*Index) error

// WithLogger sets a custom logger for the index.
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) error {
		idx.logger = logger
		return nil
	}
}

// WithDimension fixes the vector dimension the index accepts.
// Without it the dimension is taken from the first record stored.
func WithDimension(dim int) Option {
	return func(idx *Index) error {
		if dim <= 0 {
			return fmt.Errorf("%w: dimension must be positive, got %d", core.ErrInvalidConfiguration, dim)
		}
		idx.dimension = dim
		return nil
	}
}

// Open loads the persisted snapshot and returns a ready index.
func Open(ctx context.Context, persister Persister, opts ...Option) (*Index, error) {
	if persister == nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidConfiguration, ErrPersisterRequired)
	}

	idx := &Index{
		persister: persister,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(idx); err != nil {
			return nil, err
		}
	}
	idx.logger = idx.logger.With("component", "vector-index")

	data, err := persister.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load vector index: %w", err)
	}

	snap := newSnapshot(0)
	if len(data) > 0 {
		snap, err = decodeSnapshot(data)
		if err != nil {
			return nil, err
		}
	}
	if idx.dimension != 0 {
		if snap.dimension != 0 && snap.dimension != idx.dimension {
			return nil, fmt.Errorf("%w: stored index has dimension %d, configured %d",
				core.ErrDimensionMismatch, snap.dimension, idx.dimension)
		}
		snap.dimension = idx.dimension
	}
	idx.current.Store(snap)

	idx.logger.Info("vector index loaded", "records", len(snap.records), "dimension", snap.dimension)
	return idx, nil
}

// Len returns the number of records in the published snapshot.
func (idx *Index) Len() int {
	return len(idx.current.Load().records)
}

// Dimension returns the vector dimension, or 0 for an empty unconfigured index.
func (idx *Index) Dimension() int {
	return idx.current.Load().dimension
}

// UpsertMany inserts or replaces records by ID. Existing records keep their
// position; new ones are appended in input order. The call either persists
// and publishes every record or none of them.
func (idx *Index) UpsertMany(ctx context.Context, records []core.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	prev := idx.current.Load()
	dim := prev.dimension
	for i, rec := range records {
		if err := validateRecord(rec); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if dim == 0 {
			dim = len(rec.Vector)
		}
		if len(rec.Vector) != dim {
			return fmt.Errorf("%w: record %s has dimension %d, index has %d",
				core.ErrDimensionMismatch, rec.ID, len(rec.Vector), dim)
		}
	}

	next := prev.clone(len(records))
	next.dimension = dim
	for _, rec := range records {
		rec.Vector = slices.Clone(rec.Vector)
		next.put(rec)
	}

	data, err := encodeSnapshot(next)
	if err != nil {
		return err
	}
	if err := idx.persister.Save(ctx, data); err != nil {
		idx.logger.Error("failed to persist snapshot, keeping previous", "records", len(records), "err", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	idx.current.Store(next)
	idx.logger.Debug("upserted vectors", "count", len(records), "total", len(next.records))
	return nil
}

// Replace swaps the whole index for records in one persisted write. The
// dimension is taken from the records unless it was fixed with
// WithDimension. Duplicate IDs keep the last occurrence at the position of
// the first.
func (idx *Index) Replace(ctx context.Context, records []core.VectorRecord) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	dim := idx.dimension
	for i, rec := range records {
		if err := validateRecord(rec); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if dim == 0 {
			dim = len(rec.Vector)
		}
		if len(rec.Vector) != dim {
			return fmt.Errorf("%w: record %s has dimension %d, expected %d",
				core.ErrDimensionMismatch, rec.ID, len(rec.Vector), dim)
		}
	}

	next := newSnapshot(len(records))
	next.dimension = dim
	for _, rec := range records {
		rec.Vector = slices.Clone(rec.Vector)
		next.put(rec)
	}

	data, err := encodeSnapshot(next)
	if err != nil {
		return err
	}
	if err := idx.persister.Save(ctx, data); err != nil {
		idx.logger.Error("failed to persist replacement snapshot, keeping previous", "records", len(records), "err", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	idx.current.Store(next)
	idx.logger.Info("vector index replaced", "total", len(next.records), "dimension", dim)
	return nil
}

// Query returns up to k records matching filter, ordered by descending cosine
// similarity to vector. Ties keep index order. No match is not an error.
func (idx *Index) Query(ctx context.Context, vector []float32, k int, filter Filter) ([]Match, error) {
	if filter.TenantID == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrValidation, core.ErrMissingTenant)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", core.ErrValidation, k)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", core.ErrValidation)
	}

	snap := idx.current.Load()
	if snap.dimension != 0 && len(vector) != snap.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			core.ErrDimensionMismatch, len(vector), snap.dimension)
	}

	matches := make([]Match, 0)
	for i, rec := range snap.records {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !filter.matches(rec.Metadata) {
			continue
		}
		score, err := CosineSimilarity(vector, rec.Vector)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{Record: rec, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func validateRecord(rec core.VectorRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: record id required", core.ErrValidation)
	}
	if len(rec.Vector) == 0 {
		return fmt.Errorf("%w: record %s has no vector", core.ErrValidation, rec.ID)
	}
	if rec.Metadata.TenantID == "" {
		return fmt.Errorf("%w: record %s: %w", core.ErrValidation, rec.ID, core.ErrMissingTenant)
	}
	return nil
}
