package main

import (
	"fmt"
	"io"
	"time"

	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/search"
	"github.com/poiesic/lumina/vectorindex"
)

// printMonitor prints each search stage with its elapsed time.
type printMonitor struct {
	w     io.Writer
	start time.Time
}

var (
	_ search.SearchMonitor = (*printMonitor)(nil)
	_ search.SearchMonitor = quietMonitor{}
)

func newPrintMonitor(w io.Writer) *printMonitor {
	return &printMonitor{w: w}
}

func (m *printMonitor) Start(tenantID, query string) {
	m.start = time.Now()
	fmt.Fprintf(m.w, "searching %s for %q\n", tenantID, query)
}

func (m *printMonitor) AfterEmbedding(dimension int) {
	fmt.Fprintf(m.w, "  embedded query (%d dims) in %v\n", dimension, time.Since(m.start).Round(time.Millisecond))
}

func (m *printMonitor) AfterIndexQuery(matches []vectorindex.Match) {
	fmt.Fprintf(m.w, "  index returned %d matches in %v\n", len(matches), time.Since(m.start).Round(time.Millisecond))
}

func (m *printMonitor) Finish(results []core.ContextChunk) {
	fmt.Fprintf(m.w, "  done: %d chunks in %v\n\n", len(results), time.Since(m.start).Round(time.Millisecond))
}

type quietMonitor struct{}

func (quietMonitor) Start(_, _ string)                     {}
func (quietMonitor) AfterEmbedding(_ int)                  {}
func (quietMonitor) AfterIndexQuery(_ []vectorindex.Match) {}
func (quietMonitor) Finish(_ []core.ContextChunk)          {}
