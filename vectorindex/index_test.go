package vectorindex

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lumina/core"
)

type memPersister struct {
	mu    sync.Mutex
	data  []byte
	saves int
	fail  error
}

func (p *memPersister) Load(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data, nil
}

func (p *memPersister) Save(ctx context.Context, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.data = append([]byte(nil), data...)
	p.saves++
	return nil
}

func rec(id, tenant, doc string, vec ...float32) core.VectorRecord {
	return core.VectorRecord{
		ID:     id,
		Vector: vec,
		Metadata: core.VectorMetadata{
			TenantID:   tenant,
			DocumentID: doc,
			Content:    "content of " + id,
		},
	}
}

func ids(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Record.ID
	}
	return out
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float32
		want    float32
		wantErr error
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1, nil},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0, nil},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1, nil},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1, nil},
		{"zero magnitude", []float32{0, 0}, []float32{1, 1}, 0, nil},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0, core.ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestOpen_RequiresPersister(t *testing.T) {
	_, err := Open(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

func TestUpsertMany_InsertAndReplace(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	idx, err := Open(ctx, p)
	require.NoError(t, err)

	require.NoError(t, idx.UpsertMany(ctx, []core.VectorRecord{
		rec("a", "t1", "d1", 1, 0),
		rec("b", "t1", "d1", 0, 1),
	}))
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 2, idx.Dimension())

	// Replace a in place, append c.
	require.NoError(t, idx.UpsertMany(ctx, []core.VectorRecord{
		rec("c", "t1", "d1", 1, 1),
		rec("a", "t1", "d1", -1, 0),
	}))
	assert.Equal(t, 3, idx.Len())

	snap := idx.current.Load()
	assert.Equal(t, []string{"a", "b", "c"}, []string{snap.records[0].ID, snap.records[1].ID, snap.records[2].ID})
	assert.Equal(t, []float32{-1, 0}, snap.records[0].Vector)
	assert.Equal(t, 2, p.saves)
}

func TestUpsertMany_ReplayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	idx, err := Open(ctx, p)
	require.NoError(t, err)

	batch := []core.VectorRecord{
		rec("a", "t1", "d1", 1, 0),
		rec("b", "t1", "d1", 0.6, 0.8),
		rec("c", "t1", "d2", 0, 1),
		rec("d", "t2", "d3", 1, 0),
	}
	query := []float32{1, 0.5}

	require.NoError(t, idx.UpsertMany(ctx, batch))
	first, err := idx.Query(ctx, query, 10, Filter{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, first, 3)

	require.NoError(t, idx.UpsertMany(ctx, batch))
	second, err := idx.Query(ctx, query, 10, Filter{TenantID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, 4, idx.Len())
	assert.Equal(t, ids(first), ids(second))
	for i := range first {
		assert.Equal(t, first[i].Score, second[i].Score)
	}
}

func TestUpsertMany_Validation(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, &memPersister{})
	require.NoError(t, err)
	require.NoError(t, idx.UpsertMany(ctx, []core.VectorRecord{rec("a", "t1", "d1", 1, 0)}))

	tests := []struct {
		name    string
		records []core.VectorRecord
		wantErr error
	}{
		{"missing id", []core.VectorRecord{rec("", "t1", "d1", 1, 0)}, core.ErrValidation},
		{"missing tenant", []core.VectorRecord{rec("x", "", "d1", 1, 0)}, core.ErrMissingTenant},
		{"empty vector", []core.VectorRecord{rec("x", "t1", "d1")}, core.ErrValidation},
		{"wrong dimension", []core.VectorRecord{rec("x", "t1", "d1", 1, 0, 0)}, core.ErrDimensionMismatch},
		{"bad record in batch rejects all", []core.VectorRecord{
			rec("ok", "t1", "d1", 1, 0),
			rec("bad", "t1", "d1", 1),
		}, core.ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := idx.UpsertMany(ctx, tt.records)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 1, idx.Len())
		})
	}
}

func TestUpsertMany_FailedFlushKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	idx, err := Open(ctx, p)
	require.NoError(t, err)
	require.NoError(t, idx.UpsertMany(ctx, []core.VectorRecord{rec("a", "t1", "d1", 1, 0)}))

	p.fail = errors.New("disk full")
	err = idx.UpsertMany(ctx, []core.VectorRecord{rec("b", "t1", "d1", 0, 1)})
	assert.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, 1, idx.Len())

	matches, err := idx.Query(ctx, []float32{0, 1}, 5, Filter{TenantID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(matches))
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, &memPersister{})
	require.NoError(t, err)

	require.NoError(t, idx.UpsertMany(ctx, []core.VectorRecord{
		rec("t1-far", "t1", "d1", 0, 1),
		rec("t1-near", "t1", "d1", 1, 0.1),
		rec("t1-tie-a", "t1", "d2", 1, 1),
		rec("t1-tie-b", "t1", "d2", 1, 1),
		rec("t2-exact", "t2", "d3", 1, 0),
	}))

	tests := []struct {
		name   string
		vector []float32
		k      int
		filter Filter
		want   []string
	}{
		{
			name:   "tenant scoped, descending",
			vector: []float32{1, 0},
			k:      10,
			filter: Filter{TenantID: "t1"},
			want:   []string{"t1-near", "t1-tie-a", "t1-tie-b", "t1-far"},
		},
		{
			name:   "top k",
			vector: []float32{1, 0},
			k:      2,
			filter: Filter{TenantID: "t1"},
			want:   []string{"t1-near", "t1-tie-a"},
		},
		{
			name:   "document filter",
			vector: []float32{1, 0},
			k:      10,
			filter: Filter{TenantID: "t1", DocumentID: "d2"},
			want:   []string{"t1-tie-a", "t1-tie-b"},
		},
		{
			name:   "other tenant only sees its own",
			vector: []float32{0, 1},
			k:      10,
			filter: Filter{TenantID: "t2"},
			want:   []string{"t2-exact"},
		},
		{
			name:   "unknown tenant is empty",
			vector: []float32{1, 0},
			k:      3,
			filter: Filter{TenantID: "nobody"},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := idx.Query(ctx, tt.vector, tt.k, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(matches))
			for i := 1; i < len(matches); i++ {
				assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
			}
		})
	}
}

func TestQuery_Errors(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, &memPersister{})
	require.NoError(t, err)
	require.NoError(t, idx.UpsertMany(ctx, []core.VectorRecord{rec("a", "t1", "d1", 1, 0)}))

	_, err = idx.Query(ctx, []float32{1, 0}, 5, Filter{})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = idx.Query(ctx, []float32{1, 0}, 0, Filter{TenantID: "t1"})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = idx.Query(ctx, []float32{1, 0, 0}, 5, Filter{TenantID: "t1"})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestQuery_EmptyIndex(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, &memPersister{})
	require.NoError(t, err)

	matches, err := idx.Query(ctx, []float32{1, 0}, 5, Filter{TenantID: "t1"})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestReopen_FilePersister(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store", "vectors.json")

	idx, err := Open(ctx, NewFilePersister(path))
	require.NoError(t, err)
	require.NoError(t, idx.UpsertMany(ctx, []core.VectorRecord{
		rec("a", "t1", "d1", 1, 0),
		rec("b", "t1", "d1", 0, 1),
	}))

	reopened, err := Open(ctx, NewFilePersister(path))
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Len())
	assert.Equal(t, 2, reopened.Dimension())

	matches, err := reopened.Query(ctx, []float32{0, 1}, 1, Filter{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].Record.ID)
	assert.Equal(t, "content of b", matches[0].Record.Metadata.Content)
}

func TestOpen_DimensionConflict(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	idx, err := Open(ctx, p)
	require.NoError(t, err)
	require.NoError(t, idx.UpsertMany(ctx, []core.VectorRecord{rec("a", "t1", "d1", 1, 0)}))

	_, err = Open(ctx, p, WithDimension(3))
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	_, err = Open(ctx, p, WithDimension(0))
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

func TestOpen_CorruptSnapshot(t *testing.T) {
	p := &memPersister{data: []byte(`{"version":7,"records":[]}`)}
	_, err := Open(context.Background(), p)
	assert.ErrorIs(t, err, ErrCorruptSnapshot)

	p.data = []byte(`not json`)
	_, err = Open(context.Background(), p)
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, &memPersister{})
	require.NoError(t, err)
	require.NoError(t, idx.UpsertMany(ctx, []core.VectorRecord{rec("seed", "t1", "d0", 1, 0)}))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				id := string(rune('a'+w)) + string(rune('a'+i))
				assert.NoError(t, idx.UpsertMany(ctx, []core.VectorRecord{rec(id, "t1", "d1", float32(i), 1)}))
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				matches, err := idx.Query(ctx, []float32{1, 0}, 3, Filter{TenantID: "t1"})
				assert.NoError(t, err)
				assert.NotEmpty(t, matches)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 101, idx.Len())
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	idx, err := Open(ctx, p)
	require.NoError(t, err)
	require.NoError(t, idx.UpsertMany(ctx, []core.VectorRecord{
		rec("a", "t1", "d1", 1, 0),
		rec("b", "t1", "d1", 0, 1),
	}))

	// A new embedding model may change the dimension.
	require.NoError(t, idx.Replace(ctx, []core.VectorRecord{
		rec("c", "t1", "d2", 1, 0, 0),
		rec("c", "t1", "d2", 0, 0, 1),
	}))
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 3, idx.Dimension())

	reopened, err := Open(ctx, p)
	require.NoError(t, err)
	matches, err := reopened.Query(ctx, []float32{0, 0, 1}, 5, Filter{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "c", matches[0].Record.ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)

	err = idx.Replace(ctx, []core.VectorRecord{rec("x", "t1", "d1", 1), rec("y", "t1", "d1", 1, 0)})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	assert.Equal(t, 1, idx.Len())

	require.NoError(t, idx.Replace(ctx, nil))
	assert.Equal(t, 0, idx.Len())
}

func TestReplace_FixedDimension(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, &memPersister{}, WithDimension(2))
	require.NoError(t, err)

	err = idx.Replace(ctx, []core.VectorRecord{rec("a", "t1", "d1", 1, 0, 0)})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}
