package storage

import (
	"context"

	"github.com/poiesic/lumina/core"
)

// DocumentRepository provides operations for uploaded documents.
type DocumentRepository interface {
	// CreateDocument stores a new document. Sets CreatedAt/UpdatedAt if unset.
	// Returns ErrDuplicateKey if the ID is taken.
	CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a document owned by tenantID.
	// Returns ErrNotFound if it doesn't exist or belongs to another tenant.
	GetDocument(ctx context.Context, tenantID, id string) (*core.Document, error)

	// ListDocuments returns up to limit documents of a tenant, newest first.
	ListDocuments(ctx context.Context, tenantID string, limit int) ([]*core.Document, error)

	// UpdateDocumentStatus moves a document to status.
	// Returns core.ErrInvalidTransition if the state machine forbids the move.
	UpdateDocumentStatus(ctx context.Context, id string, status core.DocumentStatus) (*core.Document, error)
}

// ChunkRepository provides operations for document chunks.
type ChunkRepository interface {
	// CreateChunks stores chunks. Writing a chunk whose ID already holds the
	// same content is a no-op; different content returns ErrDuplicateKey.
	CreateChunks(ctx context.Context, chunks ...*core.DocumentChunk) error

	// ListChunksByDocument returns a document's chunks ordered by index.
	ListChunksByDocument(ctx context.Context, tenantID, documentID string) ([]*core.DocumentChunk, error)

	// ForEachChunk calls fn for every stored chunk. Iteration stops at the first error.
	ForEachChunk(ctx context.Context, fn func(*core.DocumentChunk) error) error

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)
}

// ChatRepository provides operations for chat sessions and messages.
type ChatRepository interface {
	// CreateSession stores a new session. An empty title becomes core.DefaultSessionTitle.
	CreateSession(ctx context.Context, session *core.ChatSession) (*core.ChatSession, error)

	// GetSession retrieves a session owned by tenantID.
	// Returns ErrNotFound if it doesn't exist or belongs to another tenant.
	GetSession(ctx context.Context, tenantID, id string) (*core.ChatSession, error)

	// ListSessions returns a user's sessions in a tenant, most recently updated first.
	ListSessions(ctx context.Context, tenantID, userID string) ([]*core.ChatSession, error)

	// AppendMessage appends a message to its session and updates the session
	// counters. The first USER message replaces the default title.
	AppendMessage(ctx context.Context, msg *core.Message) (*core.Message, error)

	// GetRecentMessages returns the last limit messages of a session, oldest first.
	GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]*core.Message, error)

	// GetMessages returns every message of a session, oldest first.
	GetMessages(ctx context.Context, sessionID string) ([]*core.Message, error)
}

// MembershipRepository answers tenant membership questions.
type MembershipRepository interface {
	AddMembership(ctx context.Context, m *core.Membership) error
	IsMember(ctx context.Context, tenantID, userID string) (bool, error)
}

// AuditRepository stores the per-tenant audit trail.
type AuditRepository interface {
	// RecordEvent appends an event. Sets ID and CreatedAt if unset.
	RecordEvent(ctx context.Context, event *core.AuditEvent) error

	// ListEvents returns up to limit events of a tenant, newest first.
	ListEvents(ctx context.Context, tenantID string, limit int) ([]*core.AuditEvent, error)
}
