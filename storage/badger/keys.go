package badger

import (
	"encoding/binary"
	"time"
)

// Key prefixes for different data types
const (
	documentPrefix       = "doc"
	documentTenantPrefix = "docten"
	chunkPrefix          = "chunk"
	chunkDocumentPrefix  = "chunkdoc"
	sessionPrefix        = "sess"
	sessionUserPrefix    = "sessusr"
	messagePrefix        = "msg"
	memberPrefix         = "member"
	auditPrefix          = "audit"
	vectorSnapshotKey    = "vecidx:snapshot"
	vectorPartPrefix     = "vecidx:part"
)

// joinKey builds prefix:part1:part2...
func joinKey(prefix string, parts ...string) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += 1 + len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, p := range parts {
		buf = append(buf, ':')
		buf = append(buf, p...)
	}
	return buf
}

// prefixOf terminates a partial key with a separator so that "t1" never
// matches keys of "t10".
func prefixOf(prefix string, parts ...string) []byte {
	return append(joinKey(prefix, parts...), ':')
}

// appendTime writes t in BigEndian micros so lexicographic order is time order.
func appendTime(buf []byte, t time.Time) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(t.UnixMicro()))
}

// seekLast returns a key positioned after every key sharing prefix, used as
// the starting point of reverse iteration.
func seekLast(prefix []byte) []byte {
	return append(append([]byte{}, prefix...), 0xFF)
}

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id string) []byte {
	return joinKey(documentPrefix, id)
}

// makeDocumentTenantKey indexes documents by tenant and creation time.
// Format: prefix:tenant:timestamp id
func makeDocumentTenantKey(tenantID string, createdAt time.Time, id string) []byte {
	buf := appendTime(prefixOf(documentTenantPrefix, tenantID), createdAt)
	return append(buf, id...)
}

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id string) []byte {
	return joinKey(chunkPrefix, id)
}

// makeChunkDocumentKey indexes chunks by document and position.
// Format: prefix:document:index
func makeChunkDocumentKey(documentID string, index int) []byte {
	return binary.BigEndian.AppendUint64(prefixOf(chunkDocumentPrefix, documentID), uint64(index))
}

// makeSessionKey generates a key for a session by ID.
func makeSessionKey(id string) []byte {
	return joinKey(sessionPrefix, id)
}

// makeSessionUserKey indexes sessions by tenant and user.
func makeSessionUserKey(tenantID, userID, sessionID string) []byte {
	return joinKey(sessionUserPrefix, tenantID, userID, sessionID)
}

// makeMessageKey orders messages within a session by their ULID.
func makeMessageKey(sessionID, messageID string) []byte {
	return joinKey(messagePrefix, sessionID, messageID)
}

// makeMemberKey generates the membership key of a user in a tenant.
func makeMemberKey(tenantID, userID string) []byte {
	return joinKey(memberPrefix, tenantID, userID)
}

// makeAuditKey orders a tenant's audit events by their ULID.
func makeAuditKey(tenantID, eventID string) []byte {
	return joinKey(auditPrefix, tenantID, eventID)
}

// makeSnapshotPartKey locates one slice of a vector index snapshot generation.
// Format: prefix:generation index
func makeSnapshotPartKey(generation uint64, part int) []byte {
	buf := binary.BigEndian.AppendUint64(prefixOf(vectorPartPrefix), generation)
	return binary.BigEndian.AppendUint32(buf, uint32(part))
}

// makeSnapshotGenerationPrefix covers every part of one generation.
func makeSnapshotGenerationPrefix(generation uint64) []byte {
	return binary.BigEndian.AppendUint64(prefixOf(vectorPartPrefix), generation)
}
