package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lumina/core"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{"exact multiple without overlap", "1234567890", 5, 0, []string{"12345", "67890"}},
		{"overlap stops at end", "1234567890", 5, 2, []string{"12345", "45678", "7890"}},
		{"shorter than size", "abc", 10, 0, []string{"abc"}},
		{"equal to size", "abcde", 5, 4, []string{"abcde"}},
		{"empty text", "", 4, 0, []string{}},
		{"short tail", "abcdefg", 3, 0, []string{"abc", "def", "g"}},
		{"multibyte runes", "héllo wörld", 4, 1, []string{"héll", "lo w", "wörl", "ld"}},
		{"max overlap", "abcde", 2, 1, []string{"ab", "bc", "cd", "de"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.text, tt.size, tt.overlap)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplit_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -5, 0},
		{"negative overlap", 5, -1},
		{"overlap equals size", 5, 5},
		{"overlap exceeds size", 5, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split("some text", tt.size, tt.overlap)
			assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
		})
	}
}

func TestSplit_Coverage(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 120)
	chunks, err := Split(text, DefaultSize, DefaultOverlap)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// Re-assemble by dropping each chunk's overlap prefix.
	var b strings.Builder
	b.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), DefaultSize)
		b.WriteString(string([]rune(c)[DefaultOverlap:]))
	}
	assert.Equal(t, text, b.String())
}

func TestChunker(t *testing.T) {
	c, err := New(5, 2)
	require.NoError(t, err)

	got, err := c.Split("1234567890")
	require.NoError(t, err)
	assert.Equal(t, []string{"12345", "45678", "7890"}, got)

	_, err = New(3, 3)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)

	assert.NoError(t, Default().Validate())
}
