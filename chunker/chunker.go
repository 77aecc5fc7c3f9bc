// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chunker splits document text into overlapping fixed-size windows.
//
// Sizes and offsets count characters (runes), never bytes, so multi-byte
// text is never cut inside a code point.
package chunker

import (
	"fmt"

	"github.com/poiesic/lumina/core"
)

const (
	// DefaultSize is the default window size in characters.
	DefaultSize = 1000
	// DefaultOverlap is the default number of characters shared by adjacent windows.
	DefaultOverlap = 200
)

// Chunker carries a validated window configuration.
type Chunker struct {
	Size    int
	Overlap int
}

// New returns a Chunker with the given parameters after validating them.
func New(size, overlap int) (Chunker, error) {
	c := Chunker{Size: size, Overlap: overlap}
	if err := c.Validate(); err != nil {
		return Chunker{}, err
	}
	return c, nil
}

// Default returns a Chunker using DefaultSize and DefaultOverlap.
func Default() Chunker {
	return Chunker{Size: DefaultSize, Overlap: DefaultOverlap}
}

// Validate checks that the window parameters can make progress.
func (c Chunker) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", core.ErrInvalidConfiguration, c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", core.ErrInvalidConfiguration, c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("%w: overlap %d must be smaller than size %d", core.ErrInvalidConfiguration, c.Overlap, c.Size)
	}
	return nil
}

// Split applies the configured window to text.
func (c Chunker) Split(text string) ([]string, error) {
	return Split(text, c.Size, c.Overlap)
}

// Split cuts text into windows of size characters, each starting
// size-overlap characters after the previous one. The last window may be
// shorter. Splitting stops as soon as a window reaches the end of the text,
// so no trailing window is made up only of overlap.
func Split(text string, size, overlap int) ([]string, error) {
	if err := (Chunker{Size: size, Overlap: overlap}).Validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return []string{}, nil
	}
	if len(runes) <= size {
		return []string{text}, nil
	}

	step := size - overlap
	chunks := make([]string, 0, (len(runes)-overlap+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
