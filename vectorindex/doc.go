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

// Package vectorindex provides an exact, brute-force cosine similarity index
// persisted as a single snapshot.
//
// # Concurrency
//
// Writers serialize on a single lock. Each UpsertMany builds the next
// snapshot as a copy, hands the encoded bytes to a Persister, and only then
// publishes the new snapshot. Readers load the published snapshot through an
// atomic pointer and never block on writers. A failed flush leaves readers on
// the previous snapshot.
//
// # Tenant isolation
//
// Every Query requires a tenant filter. There is no way to search across
// tenants.
//
// # Usage
//
//	idx, err := vectorindex.Open(ctx, vectorindex.NewFilePersister("data/vectors.json"))
//	if err != nil {
//	    return err
//	}
//	err = idx.UpsertMany(ctx, records)
//	matches, err := idx.Query(ctx, queryVec, 5, vectorindex.Filter{TenantID: "org-1"})
package vectorindex
