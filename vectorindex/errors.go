package vectorindex

import "errors"

var (
	// ErrPersisterRequired indicates Open was called without a Persister.
	ErrPersisterRequired = errors.New("persister is required")

	// ErrCorruptSnapshot indicates snapshot bytes could not be decoded or encoded.
	ErrCorruptSnapshot = errors.New("corrupt vector index snapshot")

	// ErrPersist indicates the persister failed to durably write a snapshot.
	ErrPersist = errors.New("failed to persist vector index")
)
