package vectorindex

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/poiesic/lumina/core"
)

// snapshotVersion is the on-disk format version.
const snapshotVersion = 1

type snapshotFile struct {
	Version   int                 `json:"version"`
	Dimension int                 `json:"dimension"`
	Records   []core.VectorRecord `json:"records"`
}

func encodeSnapshot(s *snapshot) ([]byte, error) {
	data, err := sonic.Marshal(snapshotFile{
		Version:   snapshotVersion,
		Dimension: s.dimension,
		Records:   s.records,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*snapshot, error) {
	var file snapshotFile
	if err := sonic.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if file.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, file.Version)
	}

	s := newSnapshot(len(file.Records))
	s.dimension = file.Dimension
	for i, rec := range file.Records {
		if s.dimension == 0 {
			s.dimension = len(rec.Vector)
		}
		if len(rec.Vector) != s.dimension {
			return nil, fmt.Errorf("%w: record %d has dimension %d, index has %d",
				ErrCorruptSnapshot, i, len(rec.Vector), s.dimension)
		}
		s.put(rec)
	}
	return s, nil
}
