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

// Package storage provides the durable record store abstraction for lumina.
//
// Repository interfaces decouple the ingestion worker, the chat streamer and
// the HTTP surface from the storage engine. The BadgerDB implementation lives
// in storage/badger; tests use the same implementation in memory.
//
// # Architecture
//
//   - DocumentRepository: uploaded documents and their ingestion status
//   - ChunkRepository: immutable document chunks
//   - ChatRepository: chat sessions and their append-only messages
//   - MembershipRepository: tenant membership lookups
//   - AuditRepository: per-tenant audit trail
//
// Records are never deleted by the core. Every lookup that reads
// tenant-owned data takes the tenant id and treats a record owned by a
// different tenant as missing.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    return err
//	}
//	defer backend.Close()
//	docs := badger.NewDocumentRepository(backend)
//
// # Thread Safety
//
// All repository implementations must be safe for concurrent use.
//
// # Serialization
//
// Values are encoded with mus-go and prefixed with a format version.
package storage
