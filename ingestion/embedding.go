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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/lumina/ai"
	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/retry"
)

// chunkEmbedder embeds one chunk at a time, bounding each provider call with
// a timeout and retrying transient failures.
type chunkEmbedder struct {
	embedder ai.Embedder
	timeout  time.Duration
	policy   retry.Policy
	logger   *slog.Logger
}

func newChunkEmbedder(embedder ai.Embedder, timeout time.Duration, policy retry.Policy, logger *slog.Logger) *chunkEmbedder {
	return &chunkEmbedder{
		embedder: embedder,
		timeout:  timeout,
		policy:   policy,
		logger:   logger.With("processor", "embeddings"),
	}
}

// embed returns the vector for text. Failures wrap core.ErrEmbeddingProvider.
func (ce *chunkEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := retry.Do(ctx, ce.policy, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, ce.timeout)
		defer cancel()

		v, err := ce.embedder.EmbedText(callCtx, text)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return fmt.Errorf("%w: empty embedding", core.ErrEmbeddingProvider)
		}
		vector = v
		return nil
	})
	if err != nil {
		if errors.Is(err, core.ErrEmbeddingProvider) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", core.ErrEmbeddingProvider, err)
	}
	return vector, nil
}
