// Package authz decides whether a membership role permits an action. Can is
// pure and safe to call concurrently; RequireRole adds the membership lookup
// on top. The backing store's row-level policy enforces the same invariant
// independently.
package authz

import (
	"context"
	"errors"

	"github.com/atelierhq/atelier-api/internal/database"
	"github.com/atelierhq/atelier-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var ErrPermissionDenied = errors.New("permission denied")

// Action is the closed set of checkable operations.
type Action string

const (
	ActionRead              Action = "read"
	ActionCreate            Action = "create"
	ActionUpdate            Action = "update"
	ActionDelete            Action = "delete"
	ActionManageMembers     Action = "manage-members"
	ActionChangePlan        Action = "change-plan"
	ActionDeleteWorkspace   Action = "delete-workspace"
	ActionTransferOwnership Action = "transfer-ownership"
)

// minRoleFor maps each action to the weakest role that may perform it.
// Owner-only actions are never granted to admins.
var minRoleFor = map[Action]models.Role{
	ActionRead:              models.RoleMember,
	ActionCreate:            models.RoleMember,
	ActionUpdate:            models.RoleMember,
	ActionDelete:            models.RoleAdmin,
	ActionManageMembers:     models.RoleAdmin,
	ActionChangePlan:        models.RoleAdmin,
	ActionDeleteWorkspace:   models.RoleOwner,
	ActionTransferOwnership: models.RoleOwner,
}

func roleRank(r models.Role) int {
	switch r {
	case models.RoleOwner:
		return 3
	case models.RoleAdmin:
		return 2
	case models.RoleMember:
		return 1
	}
	return 0
}

// Meets reports whether role satisfies the minimum role, owner ⊇ admin ⊇ member.
func Meets(role, min models.Role) bool {
	if roleRank(role) == 0 || roleRank(min) == 0 {
		return false
	}
	return roleRank(role) >= roleRank(min)
}

// Can reports whether a role permits an action. Unknown actions and unknown
// roles are denied.
func Can(action Action, role models.Role) bool {
	min, ok := minRoleFor[action]
	if !ok {
		return false
	}
	return Meets(role, min)
}

type Policy struct {
	db  *database.DB
	log zerolog.Logger
}

func NewPolicy(db *database.DB, log zerolog.Logger) *Policy {
	return &Policy{db: db, log: log}
}

func (p *Policy) roleOf(ctx context.Context, principalID, workspaceID uuid.UUID) (models.Role, bool, error) {
	var role string
	err := p.db.Pool.QueryRow(ctx, `
		SELECT role FROM memberships WHERE workspace_id = $1 AND principal_id = $2
	`, workspaceID, principalID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return models.Role(role), true, nil
}

// RequireRole reports whether the principal holds at least minRole in the
// workspace. A missing membership is a normal "no access" result, not an
// error.
func (p *Policy) RequireRole(ctx context.Context, principalID, workspaceID uuid.UUID, minRole models.Role) (bool, error) {
	role, found, err := p.roleOf(ctx, principalID, workspaceID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return Meets(role, minRole), nil
}

// Authorize looks up the principal's role and evaluates Can for the action.
func (p *Policy) Authorize(ctx context.Context, principalID, workspaceID uuid.UUID, action Action) (bool, error) {
	role, found, err := p.roleOf(ctx, principalID, workspaceID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	allowed := Can(action, role)
	if !allowed {
		p.log.Debug().
			Str("principal_id", principalID.String()).
			Str("workspace_id", workspaceID.String()).
			Str("action", string(action)).
			Str("role", string(role)).
			Msg("action denied by role policy")
	}
	return allowed, nil
}
