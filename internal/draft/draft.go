// Package draft defines the remote draft store the autosave coordinator
// writes to, and an HTTP client for it.
package draft

import (
	"context"
	"encoding/json"
	"time"
)

// Record is a persisted draft.
type Record struct {
	ID        string          `json:"id"`
	Content   json.RawMessage `json:"content"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Service creates and updates drafts. Implementations neither retry nor
// deduplicate; callers decide what to do with an error.
type Service interface {
	CreateDraft(ctx context.Context, content json.RawMessage) (Record, error)
	UpdateDraft(ctx context.Context, id string, content json.RawMessage, updatedAt *time.Time) error
}

// CreateRequest is the body of POST /api/drafts.
type CreateRequest struct {
	Content    json.RawMessage `json:"content" validate:"required"`
	DocumentID string          `json:"documentId,omitempty" validate:"omitempty,max=128"`
}

// UpdateRequest is the body of PUT /api/drafts/{id}.
type UpdateRequest struct {
	Content   json.RawMessage `json:"content" validate:"required"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}
