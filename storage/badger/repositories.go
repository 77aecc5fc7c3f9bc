package badger

// Repositories bundles every repository sharing one backend.
type Repositories struct {
	Backend     *Backend
	Documents   *DocumentRepository
	Chunks      *ChunkRepository
	Chats       *ChatRepository
	Memberships *MembershipRepository
	Audit       *AuditRepository
	Snapshots   *SnapshotPersister
}

// NewRepositories wires every repository to backend.
func NewRepositories(backend *Backend) *Repositories {
	return &Repositories{
		Backend:     backend,
		Documents:   NewDocumentRepository(backend),
		Chunks:      NewChunkRepository(backend),
		Chats:       NewChatRepository(backend),
		Memberships: NewMembershipRepository(backend),
		Audit:       NewAuditRepository(backend),
		Snapshots:   NewSnapshotPersister(backend),
	}
}
