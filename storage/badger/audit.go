package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/storage"
)

// AuditRepository implements storage.AuditRepository for BadgerDB.
type AuditRepository struct {
	backend *Backend
}

var _ storage.AuditRepository = (*AuditRepository)(nil)

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(backend *Backend) *AuditRepository {
	return &AuditRepository{backend: backend}
}

// RecordEvent appends an event to the tenant's trail.
func (r *AuditRepository) RecordEvent(ctx context.Context, event *core.AuditEvent) error {
	if event.TenantID == "" || event.Type == "" {
		return fmt.Errorf("%w: audit event requires tenant and type", core.ErrValidation)
	}
	if event.ID == "" {
		event.ID = core.NewSortableID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	return r.backend.update(ctx, func(tx *badger.Txn) error {
		return tx.Set(makeAuditKey(event.TenantID, event.ID), storage.MarshalAuditEvent(event))
	})
}

// ListEvents returns up to limit events of a tenant, newest first.
func (r *AuditRepository) ListEvents(ctx context.Context, tenantID string, limit int) ([]*core.AuditEvent, error) {
	var events []*core.AuditEvent
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		events, err = scanPrefix(tx, prefixOf(auditPrefix, tenantID), true, limit, storage.UnmarshalAuditEvent)
		return err
	})
	return events, err
}
