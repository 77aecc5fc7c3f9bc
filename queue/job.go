// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package queue

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/poiesic/lumina/core"
)

const (
	// JobVersion is the payload version this build reads and writes.
	JobVersion = 1

	// KindIngestDocument tags a document ingestion job.
	KindIngestDocument = "ingest-doc"
)

// IngestionJob asks a worker to chunk, embed and index one document.
type IngestionJob struct {
	Version       int       `json:"version"`
	Kind          string    `json:"kind"`
	TenantID      string    `json:"organizationId"`
	DocumentID    string    `json:"documentId"`
	ContentBase64 string    `json:"contentBase64"`
	Attempt       int       `json:"attempt"`
	EnqueuedAt    time.Time `json:"enqueuedAt"`
}

// NewIngestionJob builds a current-version job for the given raw content.
func NewIngestionJob(tenantID, documentID string, content []byte) *IngestionJob {
	return &IngestionJob{
		Version:       JobVersion,
		Kind:          KindIngestDocument,
		TenantID:      tenantID,
		DocumentID:    documentID,
		ContentBase64: base64.StdEncoding.EncodeToString(content),
		EnqueuedAt:    time.Now().UTC(),
	}
}

// Validate checks the tag, version, identifiers and content encoding.
// Errors match both ErrInvalidJob and core.ErrValidation.
func (j *IngestionJob) Validate() error {
	if j == nil {
		return invalid("job is nil")
	}
	if j.Version != JobVersion {
		return invalid(fmt.Sprintf("unsupported version %d", j.Version))
	}
	if j.Kind != KindIngestDocument {
		return invalid(fmt.Sprintf("unsupported kind %q", j.Kind))
	}
	if j.TenantID == "" {
		return fmt.Errorf("%w: %w: %w", ErrInvalidJob, core.ErrValidation, core.ErrMissingTenant)
	}
	if !core.IsValidID(j.DocumentID) {
		return invalid(fmt.Sprintf("document id %q is not a UUID", j.DocumentID))
	}
	if j.Attempt < 0 {
		return invalid("attempt must not be negative")
	}
	if _, err := base64.StdEncoding.DecodeString(j.ContentBase64); err != nil {
		return invalid("content is not valid base64")
	}
	return nil
}

// Content returns the decoded raw document bytes.
func (j *IngestionJob) Content() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(j.ContentBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrInvalidJob, core.ErrValidation, err)
	}
	return data, nil
}

// Encode validates the job and serializes it for the wire.
func (j *IngestionJob) Encode() ([]byte, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return sonic.Marshal(j)
}

// DecodeJob parses and validates a wire payload.
func DecodeJob(data []byte) (*IngestionJob, error) {
	var job IngestionJob
	if err := sonic.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrInvalidJob, core.ErrValidation, err)
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %w: %s", ErrInvalidJob, core.ErrValidation, msg)
}
