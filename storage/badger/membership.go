package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/storage"
)

// MembershipRepository implements storage.MembershipRepository for BadgerDB.
type MembershipRepository struct {
	backend *Backend
}

var _ storage.MembershipRepository = (*MembershipRepository)(nil)

// NewMembershipRepository creates a new MembershipRepository.
func NewMembershipRepository(backend *Backend) *MembershipRepository {
	return &MembershipRepository{backend: backend}
}

// AddMembership grants a user access to a tenant. Re-adding overwrites the role.
func (r *MembershipRepository) AddMembership(ctx context.Context, m *core.Membership) error {
	if m.TenantID == "" || m.UserID == "" {
		return fmt.Errorf("%w: membership requires tenant and user", core.ErrValidation)
	}
	if m.Role == "" {
		m.Role = core.MemberRoleMember
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return r.backend.update(ctx, func(tx *badger.Txn) error {
		return tx.Set(makeMemberKey(m.TenantID, m.UserID), storage.MarshalMembership(m))
	})
}

// IsMember reports whether userID belongs to tenantID.
func (r *MembershipRepository) IsMember(ctx context.Context, tenantID, userID string) (bool, error) {
	if tenantID == "" || userID == "" {
		return false, nil
	}
	var found bool
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		val, err := readValue(tx, makeMemberKey(tenantID, userID))
		found = val != nil
		return err
	})
	return found, err
}
