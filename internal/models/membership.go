package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a principal's role within a single workspace.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// Membership relates a principal to a workspace. Unique per
// (workspace, principal) pair; a workspace always retains at least one owner.
type Membership struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	PrincipalID uuid.UUID  `json:"principal_id"`
	Role        Role       `json:"role"`
	JoinedAt    time.Time  `json:"joined_at"`
	Principal   *Principal `json:"principal,omitempty"`
}
