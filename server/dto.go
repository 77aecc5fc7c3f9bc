package server

import (
	"time"

	"github.com/poiesic/lumina/core"
)

type documentResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"organizationId"`
	Title     string    `json:"title"`
	MimeType  string    `json:"mimeType"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toDocumentResponse(d *core.Document) documentResponse {
	return documentResponse{
		ID:        d.ID,
		TenantID:  d.TenantID,
		Title:     d.Title,
		MimeType:  d.MimeType,
		Status:    string(d.Status),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type sessionResponse struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"organizationId"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toSessionResponse(s *core.ChatSession) sessionResponse {
	return sessionResponse{
		ID:           s.ID,
		TenantID:     s.TenantID,
		UserID:       s.UserID,
		Title:        s.Title,
		MessageCount: s.MessageCount,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

type messageResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func toMessageResponse(m *core.Message) messageResponse {
	return messageResponse{
		ID:        m.ID,
		SessionID: m.SessionID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

// mapSlice converts every element of in with fn, never returning nil.
func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
