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

package openai

import (
	"log/slog"
	"sync"

	"github.com/poiesic/lumina/ai"
)

// Provider bundles the embedder and generator for one pair of
// OpenAI-compatible endpoints.
type Provider struct {
	embedder  *Embedder
	generator *Generator
	logger    *slog.Logger
	closeOnce sync.Once
}

var _ ai.AIProvider = (*Provider)(nil)

// NewProvider validates config and builds both services from it.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	generator, err := newGenerator(config)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "openai-provider")
	logger.Info("AI provider ready",
		"embeddingHost", config.EmbeddingHost,
		"embeddingModel", config.EmbeddingModel,
		"completionHost", config.CompletionHost,
		"completionModel", config.CompletionModel)

	return &Provider{
		embedder:  embedder,
		generator: generator,
		logger:    logger,
	}, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *Provider) Generator() ai.Generator {
	return p.generator
}

// Close is idempotent. The HTTP clients underneath hold no resources that
// need releasing.
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		p.logger.Debug("AI provider closed")
	})
	return nil
}
