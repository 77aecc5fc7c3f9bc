// Package reindex rebuilds the vector index from the durable chunk records.
//
// Rebuilding is needed after switching embedding models or when the index
// snapshot is lost. Chunks of documents that are not ACTIVE are left out, so
// the rebuilt index only serves fully ingested documents. Embeddings are
// generated in batches with retry and exponential backoff, and the new index
// is published with a single snapshot write.
package reindex
