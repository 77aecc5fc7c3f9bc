package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{backend: backend}
}

// CreateDocument stores a new document together with its tenant index entry.
func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if doc.Status == "" {
		doc.Status = core.DocumentStatusPending
	}
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}

	key := makeDocumentKey(doc.ID)
	err := r.backend.update(ctx, func(tx *badger.Txn) error {
		existing, err := readValue(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: document %s", storage.ErrDuplicateKey, doc.ID)
		}
		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Set(makeDocumentTenantKey(doc.TenantID, doc.CreatedAt, doc.ID), key)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocument retrieves a document owned by tenantID.
func (r *DocumentRepository) GetDocument(ctx context.Context, tenantID, id string) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		doc, err = readRecord(tx, makeDocumentKey(id), storage.UnmarshalDocument)
		return err
	})
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.TenantID != tenantID {
		return nil, fmt.Errorf("%w: document %s", storage.ErrNotFound, id)
	}
	return doc, nil
}

// ListDocuments returns up to limit documents of a tenant, newest first.
func (r *DocumentRepository) ListDocuments(ctx context.Context, tenantID string, limit int) ([]*core.Document, error) {
	var docs []*core.Document
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		docs, err = scanIndex(tx, prefixOf(documentTenantPrefix, tenantID), true, limit, storage.UnmarshalDocument)
		return err
	})
	return docs, err
}

// UpdateDocumentStatus moves a document along the ingestion state machine.
func (r *DocumentRepository) UpdateDocumentStatus(ctx context.Context, id string, status core.DocumentStatus) (*core.Document, error) {
	if err := core.ValidateStatus(status); err != nil {
		return nil, err
	}

	key := makeDocumentKey(id)
	var doc *core.Document
	err := r.backend.update(ctx, func(tx *badger.Txn) error {
		var err error
		doc, err = readRecord(tx, key, storage.UnmarshalDocument)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("%w: document %s", storage.ErrNotFound, id)
		}
		if err := core.CheckTransition(doc.Status, status); err != nil {
			return err
		}
		doc.Status = status
		doc.UpdatedAt = time.Now().UTC()
		return tx.Set(key, storage.MarshalDocument(doc))
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
