package core

import (
	"errors"
	"strings"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from DocumentStatus
		to   DocumentStatus
		want bool
	}{
		{"pending to indexing", DocumentStatusPending, DocumentStatusIndexing, true},
		{"indexing to active", DocumentStatusIndexing, DocumentStatusActive, true},
		{"indexing to error", DocumentStatusIndexing, DocumentStatusError, true},
		{"error to indexing on redelivery", DocumentStatusError, DocumentStatusIndexing, true},
		{"pending to error when never queued", DocumentStatusPending, DocumentStatusError, true},
		{"pending to active skips indexing", DocumentStatusPending, DocumentStatusActive, false},
		{"active is terminal", DocumentStatusActive, DocumentStatusIndexing, false},
		{"active to error", DocumentStatusActive, DocumentStatusError, false},
		{"error to active", DocumentStatusError, DocumentStatusActive, false},
		{"unknown status", DocumentStatus("BOGUS"), DocumentStatusIndexing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
			err := CheckTransition(tt.from, tt.to)
			if tt.want && err != nil {
				t.Errorf("CheckTransition() unexpected error = %v", err)
			}
			if !tt.want && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("CheckTransition() error = %v, want ErrInvalidTransition", err)
			}
		})
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document",
			doc:     &Document{ID: "d1", TenantID: "t1", Status: DocumentStatusPending},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrValidation,
		},
		{
			name:    "missing tenant",
			doc:     &Document{ID: "d1", Status: DocumentStatusPending},
			wantErr: ErrMissingTenant,
		},
		{
			name:    "missing id",
			doc:     &Document{TenantID: "t1", Status: DocumentStatusPending},
			wantErr: ErrValidation,
		},
		{
			name:    "unknown status",
			doc:     &Document{ID: "d1", TenantID: "t1", Status: "DONE"},
			wantErr: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("ValidateDocument() error = %v should match ErrValidation", err)
			}
		})
	}
}

func TestValidateMessageContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"simple", "What is the refund policy?", nil},
		{"exactly max", strings.Repeat("a", MaxMessageLength), nil},
		{"max in multibyte runes", strings.Repeat("é", MaxMessageLength), nil},
		{"too long", strings.Repeat("a", MaxMessageLength+1), ErrContentTooLong},
		{"empty", "", ErrEmptyContent},
		{"whitespace only", "  \n\t", ErrEmptyContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessageContent(tt.content)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateMessageContent() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrValidation) {
				t.Errorf("ValidateMessageContent() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     *Message
		wantErr error
	}{
		{"user message", &Message{SessionID: "s", Role: RoleUser, Content: "hi"}, nil},
		{"empty assistant reply", &Message{SessionID: "s", Role: RoleAssistant}, nil},
		{"empty user message", &Message{SessionID: "s", Role: RoleUser}, ErrEmptyContent},
		{"bad role", &Message{SessionID: "s", Role: "SYSTEM", Content: "x"}, ErrInvalidRole},
		{"missing session", &Message{Role: RoleUser, Content: "x"}, ErrValidation},
		{"nil", nil, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.msg)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateMessage() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMessage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeriveSessionTitle(t *testing.T) {
	long := strings.Repeat("word ", 30)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"short", "How do refunds work?", "How do refunds work?"},
		{"collapses whitespace", "  How\n\ndo   refunds work?  ", "How do refunds work?"},
		{"blank falls back", "   ", DefaultSessionTitle},
		{"long is truncated", long, strings.TrimSpace(long[:60]) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveSessionTitle(tt.content); got != tt.want {
				t.Errorf("DeriveSessionTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}
