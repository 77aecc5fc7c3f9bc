package mock

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lumina/core"
)

func TestDeterministicVector(t *testing.T) {
	a := DeterministicVector("hello", 16)
	b := DeterministicVector("hello", 16)
	c := DeterministicVector("world", 16)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockEmbedder(t *testing.T) {
	ctx := context.Background()
	e := NewMockEmbedder()
	e.Dimension = 8

	vecs, err := e.EmbedTexts(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 8)
	assert.Equal(t, 2, e.CallCount())
	assert.Equal(t, []string{"a", "b"}, e.Texts())

	e.Reset()
	assert.Equal(t, 0, e.CallCount())
}

func TestMockGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("streams then EOF", func(t *testing.T) {
		g := NewMockGenerator("a", "b")
		s, err := g.Generate(ctx, "q", nil, nil)
		require.NoError(t, err)

		for _, want := range []string{"a", "b"} {
			got, err := s.Next(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		_, err = s.Next(ctx)
		assert.ErrorIs(t, err, io.EOF)
		assert.Len(t, g.Calls(), 1)
	})

	t.Run("fails mid stream", func(t *testing.T) {
		g := NewMockGenerator("a", "b", "c")
		g.FailAfter = 1
		s, err := g.Generate(ctx, "q", nil, nil)
		require.NoError(t, err)

		_, err = s.Next(ctx)
		require.NoError(t, err)
		_, err = s.Next(ctx)
		assert.ErrorIs(t, err, core.ErrGeneration)
	})

	t.Run("fails before first fragment", func(t *testing.T) {
		g := NewMockGenerator("a")
		g.FailAfter = 0
		_, err := g.Generate(ctx, "q", nil, nil)
		assert.ErrorIs(t, err, core.ErrGeneration)
	})
}
