package models

import (
	"time"

	"github.com/google/uuid"
)

// Tier is a workspace subscription level.
type Tier string

const (
	TierSolo    Tier = "solo"
	TierAtelier Tier = "atelier"
	TierStudio  Tier = "studio"
)

func (t Tier) Valid() bool {
	switch t {
	case TierSolo, TierAtelier, TierStudio:
		return true
	}
	return false
}

// Workspace is the tenant aggregate root. Every tenant-scoped row carries a
// non-null reference to exactly one workspace.
type Workspace struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Tier      Tier      `json:"tier"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
