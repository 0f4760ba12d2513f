package models

import (
	"time"

	"github.com/google/uuid"
)

type Principal struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	LastWorkspaceID *uuid.UUID `json:"last_workspace_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
