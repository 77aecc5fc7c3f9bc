package badger

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/storage"
)

// ChatRepository implements storage.ChatRepository for BadgerDB.
type ChatRepository struct {
	backend *Backend
}

var _ storage.ChatRepository = (*ChatRepository)(nil)

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(backend *Backend) *ChatRepository {
	return &ChatRepository{backend: backend}
}

// CreateSession stores a new session and indexes it under its owner.
func (r *ChatRepository) CreateSession(ctx context.Context, session *core.ChatSession) (*core.ChatSession, error) {
	if session.TenantID == "" || session.UserID == "" {
		return nil, fmt.Errorf("%w: session requires tenant and user", core.ErrValidation)
	}
	if session.ID == "" {
		session.ID = core.NewID()
	}
	if session.Title == "" {
		session.Title = core.DefaultSessionTitle
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	session.UpdatedAt = session.CreatedAt
	session.MessageCount = 0

	key := makeSessionKey(session.ID)
	err := r.backend.update(ctx, func(tx *badger.Txn) error {
		existing, err := readValue(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: session %s", storage.ErrDuplicateKey, session.ID)
		}
		if err := tx.Set(key, storage.MarshalSession(session)); err != nil {
			return err
		}
		return tx.Set(makeSessionUserKey(session.TenantID, session.UserID, session.ID), key)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession retrieves a session owned by tenantID.
func (r *ChatRepository) GetSession(ctx context.Context, tenantID, id string) (*core.ChatSession, error) {
	var session *core.ChatSession
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		session, err = readRecord(tx, makeSessionKey(id), storage.UnmarshalSession)
		return err
	})
	if err != nil {
		return nil, err
	}
	if session == nil || session.TenantID != tenantID {
		return nil, fmt.Errorf("%w: session %s", storage.ErrNotFound, id)
	}
	return session, nil
}

// ListSessions returns a user's sessions in a tenant, most recently updated first.
func (r *ChatRepository) ListSessions(ctx context.Context, tenantID, userID string) ([]*core.ChatSession, error) {
	var sessions []*core.ChatSession
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		sessions, err = scanIndex(tx, prefixOf(sessionUserPrefix, tenantID, userID), false, 0, storage.UnmarshalSession)
		return err
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(sessions, func(a, b *core.ChatSession) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return sessions, nil
}

// AppendMessage appends msg to its session. The session's message count and
// update time move with it, and the first user message replaces the default
// title.
func (r *ChatRepository) AppendMessage(ctx context.Context, msg *core.Message) (*core.Message, error) {
	if err := core.ValidateMessage(msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		msg.ID = core.NewSortableID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	sessionKey := makeSessionKey(msg.SessionID)
	err := r.backend.update(ctx, func(tx *badger.Txn) error {
		session, err := readRecord(tx, sessionKey, storage.UnmarshalSession)
		if err != nil {
			return err
		}
		if session == nil {
			return fmt.Errorf("%w: session %s", storage.ErrNotFound, msg.SessionID)
		}

		if err := tx.Set(makeMessageKey(msg.SessionID, msg.ID), storage.MarshalMessage(msg)); err != nil {
			return err
		}

		if msg.Role == core.RoleUser && session.Title == core.DefaultSessionTitle {
			session.Title = core.DeriveSessionTitle(msg.Content)
		}
		session.MessageCount++
		session.UpdatedAt = msg.CreatedAt
		return tx.Set(sessionKey, storage.MarshalSession(session))
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetRecentMessages returns the last limit messages of a session, oldest first.
func (r *ChatRepository) GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]*core.Message, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	var msgs []*core.Message
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		msgs, err = scanPrefix(tx, prefixOf(messagePrefix, sessionID), true, limit, storage.UnmarshalMessage)
		return err
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// GetMessages returns every message of a session, oldest first.
func (r *ChatRepository) GetMessages(ctx context.Context, sessionID string) ([]*core.Message, error) {
	var msgs []*core.Message
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		msgs, err = scanPrefix(tx, prefixOf(messagePrefix, sessionID), false, 0, storage.UnmarshalMessage)
		return err
	})
	return msgs, err
}
