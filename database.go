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

// Package lumina wires the retrieval pipeline together: durable records in
// badger, the tenant-scoped vector index, ingestion, retrieval and answer
// streaming.
package lumina

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/lumina/ai"
	"github.com/poiesic/lumina/ai/openai"
	"github.com/poiesic/lumina/chat"
	"github.com/poiesic/lumina/ingestion"
	"github.com/poiesic/lumina/reindex"
	"github.com/poiesic/lumina/search"
	"github.com/poiesic/lumina/server"
	"github.com/poiesic/lumina/storage"
	"github.com/poiesic/lumina/storage/badger"
	"github.com/poiesic/lumina/vectorindex"
)

// Database bundles the record store, the vector index and the AI provider
// and builds the pipeline components on top of them.
type Database struct {
	repos    *badger.Repositories
	index    *vectorindex.Index
	provider ai.AIProvider
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig        *ai.Config
	provider        ai.AIProvider
	vectorStorePath string
	inMemory        bool
}

// WithAIConfig sets the configuration of the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithAIProvider uses provider instead of building one from the AI config.
// The database takes ownership and closes it.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithVectorStorePath keeps the vector index snapshot in a file instead of
// the record store.
func WithVectorStorePath(path string) DatabaseOption {
	return func(o *databaseOptions) {
		o.vectorStorePath = path
	}
}

// InMemory opens a throwaway in-memory store; the path is ignored.
func InMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// NewDatabase opens the store at filePath and loads the vector index.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}
	repos := badger.NewRepositories(backend)

	var persister vectorindex.Persister = repos.Snapshots
	if options.vectorStorePath != "" {
		persister = vectorindex.NewFilePersister(options.vectorStorePath)
	}
	index, err := vectorindex.Open(context.Background(), persister)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		repos:    repos,
		index:    index,
		provider: provider,
		logger:   slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}
	if err := db.repos.Backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) Documents() storage.DocumentRepository {
	return db.repos.Documents
}

func (db *Database) Chunks() storage.ChunkRepository {
	return db.repos.Chunks
}

func (db *Database) Chats() storage.ChatRepository {
	return db.repos.Chats
}

func (db *Database) Memberships() storage.MembershipRepository {
	return db.repos.Memberships
}

func (db *Database) Audit() storage.AuditRepository {
	return db.repos.Audit
}

// Index returns the vector index.
func (db *Database) Index() *vectorindex.Index {
	return db.index
}

// NewWorker creates an ingestion worker writing to this database.
func (db *Database) NewWorker(opts ...ingestion.Option) (*ingestion.Worker, error) {
	return ingestion.NewWorker(db.repos.Documents, db.repos.Chunks, db.repos.Audit, db.index, db.provider.Embedder(), opts...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.index, db.provider.Embedder(), opts...)
}

// NewStreamer creates a chat streamer retrieving context with retriever.
func (db *Database) NewStreamer(retriever chat.Retriever, opts ...chat.Option) (*chat.Streamer, error) {
	return chat.NewStreamer(db.repos.Chats, db.repos.Memberships, retriever, db.provider.Generator(), opts...)
}

// NewReindexer creates a reindexer rebuilding the index with embedder, or
// with the provider's embedder when embedder is nil.
func (db *Database) NewReindexer(embedder ai.Embedder, config *reindex.Config, progress io.Writer) *reindex.Reindexer {
	if embedder == nil {
		embedder = db.provider.Embedder()
	}
	return reindex.NewReindexer(db.repos.Documents, db.repos.Chunks, db.index, embedder, config, progress)
}

// NewServer creates the HTTP server over this database.
func (db *Database) NewServer(jobs server.JobPublisher, streamer server.ChatStreamer, opts ...server.Option) (*server.Server, error) {
	if jobs == nil || streamer == nil {
		return nil, fmt.Errorf("server requires a job publisher and a streamer")
	}
	return server.New(server.Dependencies{
		Documents:   db.repos.Documents,
		Chats:       db.repos.Chats,
		Memberships: db.repos.Memberships,
		Audit:       db.repos.Audit,
		Jobs:        jobs,
		Streamer:    streamer,
	}, opts...)
}
