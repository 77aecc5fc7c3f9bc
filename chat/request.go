package chat

import (
	"fmt"

	"github.com/poiesic/lumina/core"
)

// Request is one question asked in a chat session.
type Request struct {
	TenantID  string `json:"organizationId"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// Validate checks that every field is present and the message fits
// core.MaxMessageLength. Errors match core.ErrValidation.
func (r Request) Validate() error {
	if r.TenantID == "" {
		return fmt.Errorf("%w: %w", core.ErrValidation, core.ErrMissingTenant)
	}
	if r.UserID == "" {
		return fmt.Errorf("%w: user id required", core.ErrValidation)
	}
	if r.SessionID == "" {
		return fmt.Errorf("%w: session id required", core.ErrValidation)
	}
	return core.ValidateMessageContent(r.Message)
}

// Sink receives answer fragments. The first successful write commits the
// response: errors after it can no longer be reported out of band.
type Sink interface {
	WriteFragment(fragment string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(fragment string) error

// WriteFragment calls f.
func (f SinkFunc) WriteFragment(fragment string) error {
	return f(fragment)
}
