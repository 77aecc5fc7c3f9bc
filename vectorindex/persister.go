package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Persister loads and stores the serialized index snapshot.
// Load returns nil bytes and no error when nothing has been stored yet.
// Save must only return nil once the bytes are durable.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// FilePersister stores the snapshot as a single file.
type FilePersister struct {
	path string
}

var _ Persister = (*FilePersister)(nil)

// NewFilePersister returns a persister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the snapshot file location.
func (p *FilePersister) Path() string {
	return p.path
}

// Load reads the snapshot file. A missing file is an empty index.
func (p *FilePersister) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", p.path, err)
	}
	return data, nil
}

// Save writes data to a temporary file in the same directory, syncs it and
// renames it over the snapshot, so a crash leaves either the old or the new
// file in place.
func (p *FilePersister) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	committed = true

	// Best effort: make the rename itself durable.
	if d, err := os.Open(dir); err == nil {
		d.Sync()
		d.Close()
	}
	return nil
}
