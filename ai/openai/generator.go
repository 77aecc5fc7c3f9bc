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
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/lumina/ai"
	"github.com/poiesic/lumina/core"
)

// Generator implements ai.Generator using OpenAI-compatible chat APIs with
// streaming enabled.
type Generator struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

// newGenerator is an internal constructor that returns the concrete type.
func newGenerator(config *ai.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.CompletionHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.CompletionModel),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidConfiguration, err)
	}

	return newGeneratorWithModel(client, config.Temperature), nil
}

func newGeneratorWithModel(model llms.Model, temperature float64) *Generator {
	return &Generator{
		client:      model,
		temperature: temperature,
		logger:      slog.Default().With("component", "openai-generator"),
	}
}

// NewGenerator creates a new streaming generator using the provided configuration.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

// Generate starts a streaming completion and returns once the first fragment
// has arrived, the answer turned out empty, or the provider failed.
func (g *Generator) Generate(ctx context.Context, question string, contextChunks []core.ContextChunk, history []core.Turn) (ai.TokenStream, error) {
	messages := buildMessages(question, contextChunks, history)
	g.logger.Debug("starting completion",
		"context_chunks", len(contextChunks),
		"history", len(history))

	genCtx, cancel := context.WithCancel(ctx)
	s := newStream(cancel)

	go func() {
		_, err := g.client.GenerateContent(genCtx, messages,
			llms.WithTemperature(g.temperature),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				if len(chunk) == 0 {
					return nil
				}
				return s.push(genCtx, string(chunk))
			}),
		)
		switch {
		case err == nil:
			s.finish(nil)
		case genCtx.Err() != nil:
			// Cancelled by the caller or by Close; report the context's reason.
			s.finish(genCtx.Err())
		default:
			g.logger.Error("completion failed", "err", err)
			s.finish(fmt.Errorf("%w: %w", core.ErrGeneration, err))
		}
	}()

	if err := s.prime(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

var _ ai.TokenStream = (*stream)(nil)
