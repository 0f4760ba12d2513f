package models

import (
	"time"

	"github.com/google/uuid"
)

// Invite is a pending membership grant. It is consumed exactly once or
// expires and is purged by the periodic sweep.
type Invite struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	Token       string     `json:"-"`
	ExpiresAt   time.Time  `json:"expires_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (i *Invite) Accepted() bool {
	return i.AcceptedAt != nil
}

func (i *Invite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
