package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/poiesic/lumina/storage"
)

// maxConflictRetries bounds how often a write transaction is replayed after
// badger reports a conflicting concurrent commit.
const maxConflictRetries = 5

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path, or an
// in-memory database when inMemory is set. Creates the directory if it
// doesn't exist.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(filePath, 0755); err != nil {
				return nil, err
			}
			if info, err = os.Stat(filePath); err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	logger := slog.Default().With("component", "badger")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction and fn is expected
// to commit it. The transaction is discarded when fn returns.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// update runs fn in a write transaction and commits it, replaying the whole
// transaction when a concurrent writer touched the same keys.
func (b *Backend) update(ctx context.Context, fn func(tx *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = b.WithTx(func(tx *badger.Txn) error {
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		b.logger.Debug("transaction conflict, retrying", "attempt", attempt+1)
	}
	return err
}

// view runs fn in a read-only transaction.
func (b *Backend) view(ctx context.Context, fn func(tx *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.WithTx(fn, false)
}

// readValue copies the value stored at key. Returns nil, nil if missing.
func readValue(tx *badger.Txn, key []byte) ([]byte, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// readRecord loads and decodes the value at key. Returns nil, nil if missing.
func readRecord[T any](tx *badger.Txn, key []byte, decode func([]byte) (*T, error)) (*T, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec *T
	err = item.Value(func(val []byte) error {
		rec, err = decode(val)
		return err
	})
	return rec, err
}

// scanPrefix decodes every value under prefix in key order, or in reverse
// key order when reverse is set. A limit <= 0 means no limit.
func scanPrefix[T any](tx *badger.Txn, prefix []byte, reverse bool, limit int, decode func([]byte) (*T, error)) ([]*T, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.Reverse = reverse
	iter := tx.NewIterator(opts)
	defer iter.Close()

	start := prefix
	if reverse {
		start = seekLast(prefix)
	}

	var results []*T
	for iter.Seek(start); iter.ValidForPrefix(prefix); iter.Next() {
		if limit > 0 && len(results) >= limit {
			break
		}
		var rec *T
		err := iter.Item().Value(func(val []byte) error {
			var err error
			rec, err = decode(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, nil
}

// scanIndex resolves index entries under prefix, whose values are primary
// keys, into decoded records. Dangling index entries are skipped.
func scanIndex[T any](tx *badger.Txn, prefix []byte, reverse bool, limit int, decode func([]byte) (*T, error)) ([]*T, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.Reverse = reverse
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	start := prefix
	if reverse {
		start = seekLast(prefix)
	}

	var results []*T
	for iter.Seek(start); iter.ValidForPrefix(prefix); iter.Next() {
		if limit > 0 && len(results) >= limit {
			break
		}
		primary, err := iter.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		rec, err := readRecord(tx, primary, decode)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			results = append(results, rec)
		}
	}
	return results, nil
}
