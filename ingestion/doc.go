// Package ingestion turns uploaded documents into searchable chunks.
//
// The Worker consumes jobs from a queue.Queue and drives each document
// through PENDING -> INDEXING -> ACTIVE, or ERROR when any step fails:
//   - decode the raw content and split it into overlapping chunks
//   - embed every chunk and store it as a durable DocumentChunk
//   - publish all chunk vectors to the vector index in one write
//
// Jobs run concurrently on a bounded worker pool. The chunks of a single
// document are handled in index order. Failed jobs are handed back to the
// queue, which owns redelivery.
package ingestion
