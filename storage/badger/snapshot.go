package badger

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/lumina/storage"
	"github.com/poiesic/lumina/vectorindex"
)

// snapshotPartSize keeps each stored slice well under badger's per
// transaction size limit.
const snapshotPartSize = 4 << 20

// SnapshotPersister stores vector index snapshots inside badger.
//
// A snapshot is written as a new generation of parts, then published by
// switching a single pointer key. Readers of the pointer therefore always
// see a complete generation. Superseded generations are removed after the
// switch.
type SnapshotPersister struct {
	backend *Backend
}

var _ vectorindex.Persister = (*SnapshotPersister)(nil)

// NewSnapshotPersister creates a SnapshotPersister.
func NewSnapshotPersister(backend *Backend) *SnapshotPersister {
	return &SnapshotPersister{backend: backend}
}

type snapshotPointer struct {
	generation uint64
	parts      uint32
}

func (p snapshotPointer) marshal() []byte {
	buf := binary.BigEndian.AppendUint64(nil, p.generation)
	return binary.BigEndian.AppendUint32(buf, p.parts)
}

func unmarshalPointer(val []byte) (snapshotPointer, error) {
	if len(val) != 12 {
		return snapshotPointer{}, storage.ErrTruncatedData
	}
	return snapshotPointer{
		generation: binary.BigEndian.Uint64(val[:8]),
		parts:      binary.BigEndian.Uint32(val[8:]),
	}, nil
}

func (s *SnapshotPersister) readPointer(tx *badger.Txn) (*snapshotPointer, error) {
	val, err := readValue(tx, []byte(vectorSnapshotKey))
	if err != nil || val == nil {
		return nil, err
	}
	ptr, err := unmarshalPointer(val)
	if err != nil {
		return nil, err
	}
	return &ptr, nil
}

// Load returns the current snapshot, or nil if none has been saved.
func (s *SnapshotPersister) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		ptr, err := s.readPointer(tx)
		if err != nil || ptr == nil {
			return err
		}
		for i := 0; i < int(ptr.parts); i++ {
			part, err := readValue(tx, makeSnapshotPartKey(ptr.generation, i))
			if err != nil {
				return err
			}
			if part == nil {
				return fmt.Errorf("%w: snapshot generation %d is missing part %d", storage.ErrTruncatedData, ptr.generation, i)
			}
			data = append(data, part...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save writes data as a new generation and publishes it.
func (s *SnapshotPersister) Save(ctx context.Context, data []byte) error {
	var prev *snapshotPointer
	if err := s.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		prev, err = s.readPointer(tx)
		return err
	}); err != nil {
		return err
	}

	next := snapshotPointer{generation: 1}
	if prev != nil {
		next.generation = prev.generation + 1
	}

	wb := s.backend.db.NewWriteBatch()
	defer wb.Cancel()
	for offset := 0; offset == 0 || offset < len(data); offset += snapshotPartSize {
		end := min(offset+snapshotPartSize, len(data))
		if err := wb.Set(makeSnapshotPartKey(next.generation, int(next.parts)), data[offset:end]); err != nil {
			return err
		}
		next.parts++
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to write snapshot parts: %w", err)
	}

	if err := s.backend.update(ctx, func(tx *badger.Txn) error {
		return tx.Set([]byte(vectorSnapshotKey), next.marshal())
	}); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}

	if prev != nil {
		if err := s.dropGeneration(prev.generation); err != nil {
			s.backend.logger.Warn("failed to remove superseded snapshot", "generation", prev.generation, "err", err)
		}
	}
	return nil
}

func (s *SnapshotPersister) dropGeneration(generation uint64) error {
	prefix := makeSnapshotGenerationPrefix(generation)
	var keys [][]byte
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	wb := s.backend.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}
