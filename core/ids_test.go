package core

import (
	"sort"
	"testing"
)

func TestChunkID(t *testing.T) {
	tests := []struct {
		name     string
		docA     string
		idxA     int
		docB     string
		idxB     int
		wantSame bool
	}{
		{
			name:     "same document and index",
			docA:     "doc-1",
			idxA:     3,
			docB:     "doc-1",
			idxB:     3,
			wantSame: true,
		},
		{
			name:     "different index",
			docA:     "doc-1",
			idxA:     0,
			docB:     "doc-1",
			idxB:     1,
			wantSame: false,
		},
		{
			name:     "different document",
			docA:     "doc-1",
			idxA:     0,
			docB:     "doc-2",
			idxB:     0,
			wantSame: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ChunkID(tt.docA, tt.idxA)
			b := ChunkID(tt.docB, tt.idxB)
			if (a == b) != tt.wantSame {
				t.Errorf("ChunkID() same = %v, want %v (%s vs %s)", a == b, tt.wantSame, a, b)
			}
			if !IsValidID(a) {
				t.Errorf("ChunkID() = %q is not a valid UUID", a)
			}
		})
	}
}

func TestEmbeddingRef(t *testing.T) {
	if got := EmbeddingRef("abc", 7); got != "vec_abc_7" {
		t.Errorf("EmbeddingRef() = %q, want %q", got, "vec_abc_7")
	}
}

func TestContentHash(t *testing.T) {
	h1 := ContentHash("hello")
	h2 := ContentHash("hello")
	h3 := ContentHash("world")

	if h1 != h2 {
		t.Errorf("ContentHash() not deterministic: %s vs %s", h1, h2)
	}
	if h1 == h3 {
		t.Errorf("ContentHash() collided for different content")
	}
	if len(h1) != 32 {
		t.Errorf("ContentHash() length = %d, want 32", len(h1))
	}
}

func TestNewSortableID_Ordered(t *testing.T) {
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = NewSortableID()
	}
	if !sort.StringsAreSorted(ids) {
		t.Errorf("NewSortableID() values are not monotonically ordered")
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("NewID() returned duplicate %s", id)
		}
		seen[id] = true
	}
}
