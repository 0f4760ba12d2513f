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
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrInvalidTier       = errors.New("invalid subscription tier")
)

type WorkspaceService struct {
	db *database.DB
}

func NewWorkspaceService(db *database.DB) *WorkspaceService {
	return &WorkspaceService{db: db}
}

// Create inserts the workspace and its owner membership in one transaction,
// so a workspace never exists without an owner.
func (s *WorkspaceService) Create(ctx context.Context, name, slug string, tier models.Tier, ownerID uuid.UUID) (*models.Workspace, error) {
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var workspace models.Workspace
	var tierStr string
	err = tx.QueryRow(ctx, `
		INSERT INTO workspaces (name, slug, tier, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, slug, tier, created_by, created_at, updated_at
	`, name, slug, string(tier), ownerID).Scan(
		&workspace.ID, &workspace.Name, &workspace.Slug, &tierStr,
		&workspace.CreatedBy, &workspace.CreatedAt, &workspace.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	workspace.Tier = models.Tier(tierStr)

	_, err = tx.Exec(ctx, `
		INSERT INTO memberships (workspace_id, principal_id, role)
		VALUES ($1, $2, $3)
	`, workspace.ID, ownerID, string(models.RoleOwner))
	if err != nil {
		return nil, fmt.Errorf("failed to add owner as member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &workspace, nil
}

func (s *WorkspaceService) GetByID(ctx context.Context, workspaceID uuid.UUID) (*models.Workspace, error) {
	return s.getBy(ctx, `
		SELECT id, name, slug, tier, created_by, created_at, updated_at
		FROM workspaces WHERE id = $1
	`, workspaceID)
}

func (s *WorkspaceService) GetBySlug(ctx context.Context, slug string) (*models.Workspace, error) {
	return s.getBy(ctx, `
		SELECT id, name, slug, tier, created_by, created_at, updated_at
		FROM workspaces WHERE slug = $1
	`, slug)
}

func (s *WorkspaceService) getBy(ctx context.Context, query string, arg any) (*models.Workspace, error) {
	var workspace models.Workspace
	var tier string
	err := s.db.Pool.QueryRow(ctx, query, arg).Scan(
		&workspace.ID, &workspace.Name, &workspace.Slug, &tier,
		&workspace.CreatedBy, &workspace.CreatedAt, &workspace.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, err
	}
	workspace.Tier = models.Tier(tier)
	return &workspace, nil
}

// ListForPrincipal returns every workspace the principal holds a membership
// in, with the matching role at the same index.
func (s *WorkspaceService) ListForPrincipal(ctx context.Context, principalID uuid.UUID) ([]models.Workspace, []models.Role, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT w.id, w.name, w.slug, w.tier, w.created_by, w.created_at, w.updated_at, m.role
		FROM workspaces w
		JOIN memberships m ON w.id = m.workspace_id
		WHERE m.principal_id = $1
		ORDER BY w.created_at DESC
	`, principalID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var workspaces []models.Workspace
	var roles []models.Role
	for rows.Next() {
		var w models.Workspace
		var tier, role string
		if err := rows.Scan(&w.ID, &w.Name, &w.Slug, &tier, &w.CreatedBy, &w.CreatedAt, &w.UpdatedAt, &role); err != nil {
			return nil, nil, err
		}
		w.Tier = models.Tier(tier)
		workspaces = append(workspaces, w)
		roles = append(roles, models.Role(role))
	}
	return workspaces, roles, rows.Err()
}

// UpdateTier stores a new subscription tier. Called when the billing provider
// reports a plan change; limits are recomputed from the stored tier on the
// next check. Downgrades never delete existing resources.
func (s *WorkspaceService) UpdateTier(ctx context.Context, workspaceID uuid.UUID, tier models.Tier) (*models.Workspace, error) {
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}

	var workspace models.Workspace
	var tierStr string
	err := s.db.Pool.QueryRow(ctx, `
		UPDATE workspaces SET tier = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id, name, slug, tier, created_by, created_at, updated_at
	`, string(tier), workspaceID).Scan(
		&workspace.ID, &workspace.Name, &workspace.Slug, &tierStr,
		&workspace.CreatedBy, &workspace.CreatedAt, &workspace.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, err
	}
	workspace.Tier = models.Tier(tierStr)
	return &workspace, nil
}

// TransferOwnership demotes the current owner to admin and promotes the new
// owner in one transaction, keeping exactly one owner throughout.
func (s *WorkspaceService) TransferOwnership(ctx context.Context, workspaceID, newOwnerID uuid.UUID) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var role string
	err = tx.QueryRow(ctx, `
		SELECT role FROM memberships WHERE workspace_id = $1 AND principal_id = $2 FOR UPDATE
	`, workspaceID, newOwnerID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrMembershipNotFound
	}
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE memberships SET role = $1 WHERE workspace_id = $2 AND role = $3
	`, string(models.RoleAdmin), workspaceID, string(models.RoleOwner))
	if err != nil {
		return fmt.Errorf("failed to demote previous owner: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE memberships SET role = $1 WHERE workspace_id = $2 AND principal_id = $3
	`, string(models.RoleOwner), workspaceID, newOwnerID)
	if err != nil {
		return fmt.Errorf("failed to promote new owner: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *WorkspaceService) Delete(ctx context.Context, workspaceID uuid.UUID) error {
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, workspaceID)
	return err
}
