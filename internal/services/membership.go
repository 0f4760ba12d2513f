package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/atelierhq/atelier-api/internal/database"
	"github.com/atelierhq/atelier-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrMembershipNotFound = errors.New("membership not found")
	ErrCannotRemoveOwner  = errors.New("cannot remove workspace owner")
	ErrLastOwner          = errors.New("workspace must retain at least one owner")
	ErrAlreadyMember      = errors.New("principal is already a workspace member")
	ErrInvalidRole        = errors.New("invalid membership role")
)

type MembershipService struct {
	db *database.DB
}

func NewMembershipService(db *database.DB) *MembershipService {
	return &MembershipService{db: db}
}

// RoleOf returns the principal's role in the workspace. found is false when
// no membership exists; that is a normal result, not an error.
func (s *MembershipService) RoleOf(ctx context.Context, workspaceID, principalID uuid.UUID) (models.Role, bool, error) {
	var role string
	err := s.db.Pool.QueryRow(ctx, `
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

func (s *MembershipService) Add(ctx context.Context, workspaceID, principalID uuid.UUID, role models.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	result, err := s.db.Pool.Exec(ctx, `
		INSERT INTO memberships (workspace_id, principal_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (workspace_id, principal_id) DO NOTHING
	`, workspaceID, principalID, string(role))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAlreadyMember
	}
	return nil
}

func (s *MembershipService) Remove(ctx context.Context, workspaceID, principalID uuid.UUID) error {
	var role string
	err := s.db.Pool.QueryRow(ctx, `
		SELECT role FROM memberships WHERE workspace_id = $1 AND principal_id = $2
	`, workspaceID, principalID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrMembershipNotFound
	}
	if err != nil {
		return err
	}

	if models.Role(role) == models.RoleOwner {
		return ErrCannotRemoveOwner
	}

	_, err = s.db.Pool.Exec(ctx, `
		DELETE FROM memberships WHERE workspace_id = $1 AND principal_id = $2
	`, workspaceID, principalID)
	return err
}

// ChangeRole updates a membership's role. Demoting the only owner is
// refused; ownership moves via WorkspaceService.TransferOwnership instead.
func (s *MembershipService) ChangeRole(ctx context.Context, workspaceID, principalID uuid.UUID, newRole models.Role) error {
	if !newRole.Valid() {
		return ErrInvalidRole
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var role string
	err = tx.QueryRow(ctx, `
		SELECT role FROM memberships WHERE workspace_id = $1 AND principal_id = $2 FOR UPDATE
	`, workspaceID, principalID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrMembershipNotFound
	}
	if err != nil {
		return err
	}

	if models.Role(role) == models.RoleOwner && newRole != models.RoleOwner {
		var owners int
		err = tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM memberships WHERE workspace_id = $1 AND role = $2
		`, workspaceID, string(models.RoleOwner)).Scan(&owners)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return ErrLastOwner
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE memberships SET role = $1 WHERE workspace_id = $2 AND principal_id = $3
	`, string(newRole), workspaceID, principalID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *MembershipService) List(ctx context.Context, workspaceID uuid.UUID) ([]models.Membership, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT m.id, m.workspace_id, m.principal_id, m.role, m.joined_at,
		       p.id, p.email, p.name, p.created_at, p.updated_at
		FROM memberships m
		JOIN principals p ON m.principal_id = p.id
		WHERE m.workspace_id = $1
		ORDER BY m.joined_at
	`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Membership
	for rows.Next() {
		var member models.Membership
		var principal models.Principal
		var role string
		if err := rows.Scan(
			&member.ID, &member.WorkspaceID, &member.PrincipalID, &role, &member.JoinedAt,
			&principal.ID, &principal.Email, &principal.Name, &principal.CreatedAt, &principal.UpdatedAt,
		); err != nil {
			return nil, err
		}
		member.Role = models.Role(role)
		member.Principal = &principal
		members = append(members, member)
	}
	return members, rows.Err()
}
