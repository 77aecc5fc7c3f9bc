package core

import (
	"time"
)

// DocumentStatus tracks a document through ingestion.
type DocumentStatus string

const (
	// DocumentStatusPending is the state of a freshly uploaded document.
	DocumentStatusPending DocumentStatus = "PENDING"
	// DocumentStatusIndexing marks a document whose ingestion job is running.
	DocumentStatusIndexing DocumentStatus = "INDEXING"
	// DocumentStatusActive marks a searchable document. Terminal.
	DocumentStatusActive DocumentStatus = "ACTIVE"
	// DocumentStatusError marks a document whose ingestion failed.
	DocumentStatusError DocumentStatus = "ERROR"
)

// Role identifies the author of a chat message.
type Role string

const (
	// RoleUser is a message written by the human user.
	RoleUser Role = "USER"
	// RoleAssistant is a message produced by the completion model.
	RoleAssistant Role = "ASSISTANT"
)

// MemberRole is a user's role inside a tenant.
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "ADMIN"
	MemberRoleMember MemberRole = "MEMBER"
)

// Audit event types.
const (
	AuditDocumentUpload    = "DOCUMENT_UPLOAD"
	AuditDocumentProcessed = "DOCUMENT_PROCESSED"
	AuditDocumentFailed    = "DOCUMENT_FAILED"
)

// DefaultSessionTitle is the title a session carries until its first user message.
const DefaultSessionTitle = "New Chat"

// Document is an uploaded source owned by a tenant.
type Document struct {
	ID        string
	TenantID  string
	Title     string
	MimeType  string
	Status    DocumentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentChunk is one contiguous window of a document's text.
// Chunks are written once by the ingestion worker and never modified.
type DocumentChunk struct {
	ID           string
	DocumentID   string
	TenantID     string
	Index        int    // zero-based position within the document
	Content      string
	ContentHash  string // BLAKE2b digest of Content
	EmbeddingRef string // reference column; the vector record shares the chunk ID
	CreatedAt    time.Time
}

// VectorMetadata is the metadata bag stored next to every vector.
type VectorMetadata struct {
	TenantID   string `json:"organizationId"`
	DocumentID string `json:"documentId"`
	Content    string `json:"content"`
}

// VectorRecord is an entry of the vector index. Its ID equals the chunk ID.
type VectorRecord struct {
	ID       string         `json:"id"`
	Vector   []float32      `json:"vector"`
	Metadata VectorMetadata `json:"metadata"`
}

// ChatSession groups an ordered sequence of messages.
type ChatSession struct {
	ID           string
	TenantID     string
	UserID       string
	Title        string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Message is a single, append-only conversational turn.
type Message struct {
	ID        string // ULID; lexical order is creation order
	SessionID string
	Role      Role
	Content   string
	CreatedAt time.Time
}

// Membership grants a user access to a tenant.
type Membership struct {
	TenantID  string
	UserID    string
	Role      MemberRole
	CreatedAt time.Time
}

// AuditEvent records a notable action inside a tenant.
type AuditEvent struct {
	ID        string
	TenantID  string
	UserID    string
	Type      string
	Metadata  map[string]string
	CreatedAt time.Time
}

// ContextChunk is a retrieved chunk handed to the completion model.
type ContextChunk struct {
	ID         string
	DocumentID string
	Content    string
	Score      float32
}

// Turn is one history entry handed to the completion model.
type Turn struct {
	Role    Role
	Content string
}
