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

package storage

import (
	"fmt"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/lumina/core"
)

// recordVersion prefixes every encoded value.
const recordVersion uint64 = 1

// sizer accumulates the encoded size of a value.
type sizer int

func (s *sizer) str(v string) { *s += sizer(ord.String.Size(v)) }
func (s *sizer) i64(v int64)  { *s += sizer(varint.Int64.Size(v)) }
func (s *sizer) u64(v uint64) { *s += sizer(varint.Uint64.Size(v)) }
func (s *sizer) ts(v time.Time) {
	s.i64(timeToMicros(v))
}

// writer encodes fields into a buffer sized by sizer.
type writer struct {
	bs []byte
	n  int
}

func (w *writer) str(v string) { w.n += ord.String.Marshal(v, w.bs[w.n:]) }
func (w *writer) i64(v int64)  { w.n += varint.Int64.Marshal(v, w.bs[w.n:]) }
func (w *writer) u64(v uint64) { w.n += varint.Uint64.Marshal(v, w.bs[w.n:]) }
func (w *writer) ts(v time.Time) {
	w.i64(timeToMicros(v))
}

// reader decodes fields in order. The first failure sticks.
type reader struct {
	bs  []byte
	n   int
	err error
}

func (r *reader) str() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *reader) i64() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *reader) ts() time.Time {
	return microsToTime(r.i64())
}

// header checks the version prefix.
func (r *reader) header() {
	if len(r.bs) == 0 {
		r.err = ErrTruncatedData
		return
	}
	if v := r.u64(); r.err == nil && v != recordVersion {
		r.err = fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
}

func (r *reader) done(kind string) error {
	if r.err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSerializationFailed, kind, r.err)
	}
	return nil
}

func timeToMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microsToTime(us int64) time.Time {
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

func encode(size func(*sizer), write func(*writer)) []byte {
	s := sizer(varint.Uint64.Size(recordVersion))
	size(&s)
	w := &writer{bs: make([]byte, int(s))}
	w.u64(recordVersion)
	write(w)
	return w.bs[:w.n]
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	return encode(func(s *sizer) {
		s.str(doc.ID)
		s.str(doc.TenantID)
		s.str(doc.Title)
		s.str(doc.MimeType)
		s.str(string(doc.Status))
		s.ts(doc.CreatedAt)
		s.ts(doc.UpdatedAt)
	}, func(w *writer) {
		w.str(doc.ID)
		w.str(doc.TenantID)
		w.str(doc.Title)
		w.str(doc.MimeType)
		w.str(string(doc.Status))
		w.ts(doc.CreatedAt)
		w.ts(doc.UpdatedAt)
	})
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	r := &reader{bs: data}
	r.header()
	doc := &core.Document{
		ID:       r.str(),
		TenantID: r.str(),
		Title:    r.str(),
		MimeType: r.str(),
		Status:   core.DocumentStatus(r.str()),
	}
	doc.CreatedAt = r.ts()
	doc.UpdatedAt = r.ts()
	if err := r.done("document"); err != nil {
		return nil, err
	}
	return doc, nil
}

// MarshalChunk serializes a DocumentChunk to bytes.
func MarshalChunk(chunk *core.DocumentChunk) []byte {
	return encode(func(s *sizer) {
		s.str(chunk.ID)
		s.str(chunk.DocumentID)
		s.str(chunk.TenantID)
		s.i64(int64(chunk.Index))
		s.str(chunk.Content)
		s.str(chunk.ContentHash)
		s.str(chunk.EmbeddingRef)
		s.ts(chunk.CreatedAt)
	}, func(w *writer) {
		w.str(chunk.ID)
		w.str(chunk.DocumentID)
		w.str(chunk.TenantID)
		w.i64(int64(chunk.Index))
		w.str(chunk.Content)
		w.str(chunk.ContentHash)
		w.str(chunk.EmbeddingRef)
		w.ts(chunk.CreatedAt)
	})
}

// UnmarshalChunk deserializes a DocumentChunk from bytes.
func UnmarshalChunk(data []byte) (*core.DocumentChunk, error) {
	r := &reader{bs: data}
	r.header()
	chunk := &core.DocumentChunk{
		ID:         r.str(),
		DocumentID: r.str(),
		TenantID:   r.str(),
	}
	chunk.Index = int(r.i64())
	chunk.Content = r.str()
	chunk.ContentHash = r.str()
	chunk.EmbeddingRef = r.str()
	chunk.CreatedAt = r.ts()
	if err := r.done("chunk"); err != nil {
		return nil, err
	}
	return chunk, nil
}

// MarshalSession serializes a ChatSession to bytes.
func MarshalSession(session *core.ChatSession) []byte {
	return encode(func(s *sizer) {
		s.str(session.ID)
		s.str(session.TenantID)
		s.str(session.UserID)
		s.str(session.Title)
		s.i64(int64(session.MessageCount))
		s.ts(session.CreatedAt)
		s.ts(session.UpdatedAt)
	}, func(w *writer) {
		w.str(session.ID)
		w.str(session.TenantID)
		w.str(session.UserID)
		w.str(session.Title)
		w.i64(int64(session.MessageCount))
		w.ts(session.CreatedAt)
		w.ts(session.UpdatedAt)
	})
}

// UnmarshalSession deserializes a ChatSession from bytes.
func UnmarshalSession(data []byte) (*core.ChatSession, error) {
	r := &reader{bs: data}
	r.header()
	session := &core.ChatSession{
		ID:       r.str(),
		TenantID: r.str(),
		UserID:   r.str(),
		Title:    r.str(),
	}
	session.MessageCount = int(r.i64())
	session.CreatedAt = r.ts()
	session.UpdatedAt = r.ts()
	if err := r.done("session"); err != nil {
		return nil, err
	}
	return session, nil
}

// MarshalMessage serializes a Message to bytes.
func MarshalMessage(msg *core.Message) []byte {
	return encode(func(s *sizer) {
		s.str(msg.ID)
		s.str(msg.SessionID)
		s.str(string(msg.Role))
		s.str(msg.Content)
		s.ts(msg.CreatedAt)
	}, func(w *writer) {
		w.str(msg.ID)
		w.str(msg.SessionID)
		w.str(string(msg.Role))
		w.str(msg.Content)
		w.ts(msg.CreatedAt)
	})
}

// UnmarshalMessage deserializes a Message from bytes.
func UnmarshalMessage(data []byte) (*core.Message, error) {
	r := &reader{bs: data}
	r.header()
	msg := &core.Message{
		ID:        r.str(),
		SessionID: r.str(),
		Role:      core.Role(r.str()),
		Content:   r.str(),
	}
	msg.CreatedAt = r.ts()
	if err := r.done("message"); err != nil {
		return nil, err
	}
	return msg, nil
}

// MarshalMembership serializes a Membership to bytes.
func MarshalMembership(m *core.Membership) []byte {
	return encode(func(s *sizer) {
		s.str(m.TenantID)
		s.str(m.UserID)
		s.str(string(m.Role))
		s.ts(m.CreatedAt)
	}, func(w *writer) {
		w.str(m.TenantID)
		w.str(m.UserID)
		w.str(string(m.Role))
		w.ts(m.CreatedAt)
	})
}

// UnmarshalMembership deserializes a Membership from bytes.
func UnmarshalMembership(data []byte) (*core.Membership, error) {
	r := &reader{bs: data}
	r.header()
	m := &core.Membership{
		TenantID: r.str(),
		UserID:   r.str(),
		Role:     core.MemberRole(r.str()),
	}
	m.CreatedAt = r.ts()
	if err := r.done("membership"); err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalAuditEvent serializes an AuditEvent to bytes.
// Metadata keys are written in sorted order so equal events encode identically.
func MarshalAuditEvent(event *core.AuditEvent) []byte {
	keys := make([]string, 0, len(event.Metadata))
	for k := range event.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return encode(func(s *sizer) {
		s.str(event.ID)
		s.str(event.TenantID)
		s.str(event.UserID)
		s.str(event.Type)
		s.u64(uint64(len(keys)))
		for _, k := range keys {
			s.str(k)
			s.str(event.Metadata[k])
		}
		s.ts(event.CreatedAt)
	}, func(w *writer) {
		w.str(event.ID)
		w.str(event.TenantID)
		w.str(event.UserID)
		w.str(event.Type)
		w.u64(uint64(len(keys)))
		for _, k := range keys {
			w.str(k)
			w.str(event.Metadata[k])
		}
		w.ts(event.CreatedAt)
	})
}

// UnmarshalAuditEvent deserializes an AuditEvent from bytes.
func UnmarshalAuditEvent(data []byte) (*core.AuditEvent, error) {
	r := &reader{bs: data}
	r.header()
	event := &core.AuditEvent{
		ID:       r.str(),
		TenantID: r.str(),
		UserID:   r.str(),
		Type:     r.str(),
	}
	count := r.u64()
	if r.err == nil && count > uint64(len(data)) {
		r.err = ErrTruncatedData
	}
	if r.err == nil && count > 0 {
		event.Metadata = make(map[string]string, count)
		for i := uint64(0); i < count && r.err == nil; i++ {
			k := r.str()
			event.Metadata[k] = r.str()
		}
	}
	event.CreatedAt = r.ts()
	if err := r.done("audit event"); err != nil {
		return nil, err
	}
	return event, nil
}
