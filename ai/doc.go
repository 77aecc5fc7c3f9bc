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

// Package ai provides abstractions for the AI services used by lumina.
//
// The package is designed around four interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Generator: Answers a question from retrieved context as a token stream
//   - TokenStream: Pull-based answer fragments with explicit cancellation
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors in ai/openai return interface types. The mock
// constructors return concrete types so tests can inspect calls and inject
// failures.
//
// # Error Handling
//
// Embedding failures wrap core.ErrEmbeddingProvider and generation failures
// wrap core.ErrGeneration, so callers can classify them with errors.Is
// regardless of the provider in use.
package ai
