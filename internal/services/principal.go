package services

import (
	"context"
	"errors"

	"github.com/atelierhq/atelier-api/internal/database"
	"github.com/atelierhq/atelier-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrPrincipalNotFound = errors.New("principal not found")

type PrincipalService struct {
	db *database.DB
}

func NewPrincipalService(db *database.DB) *PrincipalService {
	return &PrincipalService{db: db}
}

func (s *PrincipalService) Create(ctx context.Context, email, name string) (*models.Principal, error) {
	var p models.Principal
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO principals (email, name)
		VALUES ($1, $2)
		RETURNING id, email, name, last_workspace_id, created_at, updated_at
	`, email, name).Scan(&p.ID, &p.Email, &p.Name, &p.LastWorkspaceID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PrincipalService) GetByID(ctx context.Context, principalID uuid.UUID) (*models.Principal, error) {
	var p models.Principal
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, email, name, last_workspace_id, created_at, updated_at
		FROM principals WHERE id = $1
	`, principalID).Scan(&p.ID, &p.Email, &p.Name, &p.LastWorkspaceID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPrincipalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PrincipalService) GetByEmail(ctx context.Context, email string) (*models.Principal, error) {
	var p models.Principal
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, email, name, last_workspace_id, created_at, updated_at
		FROM principals WHERE email = $1
	`, email).Scan(&p.ID, &p.Email, &p.Name, &p.LastWorkspaceID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPrincipalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LastWorkspace returns the persisted last active workspace id, or uuid.Nil
// when none was recorded. Callers must re-validate the membership before
// trusting it.
func (s *PrincipalService) LastWorkspace(ctx context.Context, principalID uuid.UUID) (uuid.UUID, error) {
	var last *uuid.UUID
	err := s.db.Pool.QueryRow(ctx, `
		SELECT last_workspace_id FROM principals WHERE id = $1
	`, principalID).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	if last == nil {
		return uuid.Nil, nil
	}
	return *last, nil
}

func (s *PrincipalService) SaveLastWorkspace(ctx context.Context, principalID, workspaceID uuid.UUID) error {
	_, err := s.db.Pool.Exec(ctx, `
		UPDATE principals SET last_workspace_id = $1, updated_at = NOW() WHERE id = $2
	`, workspaceID, principalID)
	return err
}
