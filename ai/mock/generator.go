package mock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/poiesic/lumina/ai"
	"github.com/poiesic/lumina/core"
)

// GenerateCall records the arguments of one Generate call.
type GenerateCall struct {
	Question string
	Context  []core.ContextChunk
	History  []core.Turn
}

// MockGenerator is a test double for ai.Generator that streams scripted fragments.
type MockGenerator struct {
	// Fragments are returned in order by every stream.
	Fragments []string

	// FailAfter makes the stream fail once this many fragments were returned.
	// A negative value never fails. Zero fails Generate itself.
	FailAfter int

	// Err is the failure cause. Defaults to a generic provider error.
	Err error

	// Block makes the stream wait for cancellation instead of ending after
	// the last fragment.
	Block bool

	mu    sync.Mutex
	calls []GenerateCall
}

// NewMockGenerator returns a generator streaming fragments successfully.
func NewMockGenerator(fragments ...string) *MockGenerator {
	return &MockGenerator{Fragments: fragments, FailAfter: -1}
}

var _ ai.Generator = (*MockGenerator)(nil)

// Generate records the call and returns a scripted stream.
func (g *MockGenerator) Generate(ctx context.Context, question string, contextChunks []core.ContextChunk, history []core.Turn) (ai.TokenStream, error) {
	g.mu.Lock()
	g.calls = append(g.calls, GenerateCall{
		Question: question,
		Context:  append([]core.ContextChunk(nil), contextChunks...),
		History:  append([]core.Turn(nil), history...),
	})
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.FailAfter == 0 {
		return nil, g.failure()
	}
	return &mockStream{gen: g}, nil
}

func (g *MockGenerator) failure() error {
	cause := g.Err
	if cause == nil {
		cause = errors.New("mock provider failure")
	}
	return fmt.Errorf("%w: %w", core.ErrGeneration, cause)
}

// Calls returns the recorded Generate calls.
func (g *MockGenerator) Calls() []GenerateCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]GenerateCall(nil), g.calls...)
}

type mockStream struct {
	gen    *MockGenerator
	next   int
	closed bool
}

func (s *mockStream) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.closed {
		return "", context.Canceled
	}
	if s.gen.FailAfter > 0 && s.next >= s.gen.FailAfter {
		return "", s.gen.failure()
	}
	if s.next < len(s.gen.Fragments) {
		f := s.gen.Fragments[s.next]
		s.next++
		return f, nil
	}
	if s.gen.Block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return "", io.EOF
}

func (s *mockStream) Close() error {
	s.closed = true
	return nil
}
