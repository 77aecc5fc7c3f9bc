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

package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the longest user message accepted, in characters.
const MaxMessageLength = 4000

// maxTitleLength bounds titles derived from the first user message.
const maxTitleLength = 60

// transitions lists the allowed status changes. PENDING -> ERROR covers an
// upload whose job could not be queued; ERROR -> INDEXING covers a failed
// job being redelivered by the queue.
var transitions = map[DocumentStatus][]DocumentStatus{
	DocumentStatusPending:  {DocumentStatusIndexing, DocumentStatusError},
	DocumentStatusIndexing: {DocumentStatusActive, DocumentStatusError},
	DocumentStatusError:    {DocumentStatusIndexing},
}

// ValidateStatus checks that status is one of the known values.
func ValidateStatus(status DocumentStatus) error {
	switch status {
	case DocumentStatusPending, DocumentStatusIndexing, DocumentStatusActive, DocumentStatusError:
		return nil
	}
	return fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidStatus, status)
}

// CanTransition reports whether a document may move from one status to another.
func CanTransition(from, to DocumentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition is CanTransition returning a descriptive error.
func CheckTransition(from, to DocumentStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// ValidateDocument validates a Document before it is stored.
//
// Validation rules:
//   - TenantID must not be empty
//   - ID must not be empty
//   - Status must be a known value
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrValidation)
	}
	if doc.ID == "" {
		return fmt.Errorf("%w: document id required", ErrValidation)
	}
	if doc.TenantID == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrMissingTenant)
	}
	return ValidateStatus(doc.Status)
}

// ValidateRole validates that a Role has a valid value.
func ValidateRole(role Role) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidRole, role)
	}
	return nil
}

// ValidateMessageContent checks a user message body. Length is counted in runes.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyContent)
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return fmt.Errorf("%w: %w: max %d characters", ErrValidation, ErrContentTooLong, MaxMessageLength)
	}
	return nil
}

// ValidateMessage validates a Message before it is appended to a session.
func ValidateMessage(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrValidation)
	}
	if msg.SessionID == "" {
		return fmt.Errorf("%w: session id required", ErrValidation)
	}
	if err := ValidateRole(msg.Role); err != nil {
		return err
	}
	// assistant replies may legitimately be empty when the model emits nothing
	if msg.Role == RoleUser && strings.TrimSpace(msg.Content) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyContent)
	}
	return nil
}

// DeriveSessionTitle builds a session title from the first user message.
func DeriveSessionTitle(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if title == "" {
		return DefaultSessionTitle
	}
	if utf8.RuneCountInString(title) <= maxTitleLength {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:maxTitleLength])) + "..."
}
