package search

import (
	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/vectorindex"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(tenantID, query string)
	AfterEmbedding(dimension int)
	AfterIndexQuery(matches []vectorindex.Match)
	Finish(results []core.ContextChunk)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                     {}
func (n *noopMonitor) AfterEmbedding(_ int)                  {}
func (n *noopMonitor) AfterIndexQuery(_ []vectorindex.Match) {}
func (n *noopMonitor) Finish(_ []core.ContextChunk)          {}
