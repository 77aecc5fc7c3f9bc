package ai

import (
	"context"

	"github.com/poiesic/lumina/core"
)

// Embedder turns text into vectors.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Failures wrap core.ErrEmbeddingProvider.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces an answer as a stream of text fragments.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate starts answering question using the retrieved context and the
	// prior conversation, oldest turn first. An error returned here means no
	// fragment was produced and wraps core.ErrGeneration.
	Generate(ctx context.Context, question string, contextChunks []core.ContextChunk, history []core.Turn) (TokenStream, error)
}

// TokenStream is a pull-based sequence of answer fragments.
//
// Next blocks until the next fragment is available. It returns io.EOF once
// the answer is complete, an error wrapping core.ErrGeneration if the
// provider failed mid-answer, or the context error if ctx was cancelled.
// Close stops the producer and releases its resources; it is safe to call
// more than once and must be called even after io.EOF.
type TokenStream interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// AIProvider aggregates the AI services.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the answer generation service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	Close() error
}
