package core

import (
	"encoding/hex"
	"fmt"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// chunkNamespace seeds deterministic chunk identifiers.
var chunkNamespace = uuid.MustParse("6f1c1d1e-8a0b-4f7e-9d55-2c1b8f0e4a11")

// NewID returns a random identifier for documents and sessions.
func NewID() string {
	return uuid.NewString()
}

// NewSortableID returns a time-ordered identifier for messages and audit events.
// IDs generated later in the same process always sort after earlier ones.
func NewSortableID() string {
	return ulid.Make().String()
}

// IsValidID reports whether id is a well-formed UUID.
func IsValidID(id string) bool {
	return uuid.Validate(id) == nil
}

// ChunkID derives the identifier of the chunk at index within a document.
// The same document and index always produce the same ID, which keeps a
// redelivered ingestion job from layering a second chunk series on the first.
func ChunkID(documentID string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s:%d", documentID, index))).String()
}

// EmbeddingRef builds the reference key tying a chunk to its vector entry.
func EmbeddingRef(documentID string, index int) string {
	return fmt.Sprintf("vec_%s_%d", documentID, index)
}

// ContentHash fingerprints chunk text using BLAKE2b.
func ContentHash(text string) string {
	h, _ := blake2b.New(16, nil) // 128 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
