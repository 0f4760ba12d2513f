package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/atelierhq/atelier-api/internal/database"
	"github.com/atelierhq/atelier-api/internal/models"
	"github.com/google/uuid"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreatePrincipal creates a test principal with default values
func (f *Fixtures) CreatePrincipal(t *testing.T, opts ...PrincipalOption) *models.Principal {
	t.Helper()
	f.counter++

	p := &models.Principal{
		Email: fmt.Sprintf("user%d@example.com", f.counter),
		Name:  fmt.Sprintf("Test User %d", f.counter),
	}

	for _, opt := range opts {
		opt(p)
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO principals (email, name)
		VALUES ($1, $2)
		RETURNING id, email, name, created_at, updated_at
	`, p.Email, p.Name).Scan(&p.ID, &p.Email, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create principal: %v", err)
	}

	return p
}

// PrincipalOption configures a test principal
type PrincipalOption func(*models.Principal)

// WithEmail sets the principal's email
func WithEmail(email string) PrincipalOption {
	return func(p *models.Principal) {
		p.Email = email
	}
}

// CreateWorkspace creates a test workspace with the given owner membership
func (f *Fixtures) CreateWorkspace(t *testing.T, owner *models.Principal, opts ...WorkspaceOption) *models.Workspace {
	t.Helper()
	f.counter++

	ws := &models.Workspace{
		Name:      fmt.Sprintf("Test Workspace %d", f.counter),
		Slug:      fmt.Sprintf("test-workspace-%d", f.counter),
		Tier:      models.TierSolo,
		CreatedBy: owner.ID,
	}

	for _, opt := range opts {
		opt(ws)
	}

	ctx := context.Background()
	tx, err := f.db.Pool.Begin(ctx)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO workspaces (name, slug, tier, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, slug, tier, created_by, created_at, updated_at
	`, ws.Name, ws.Slug, string(ws.Tier), ws.CreatedBy).Scan(
		&ws.ID, &ws.Name, &ws.Slug, &ws.Tier, &ws.CreatedBy, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO memberships (workspace_id, principal_id, role)
		VALUES ($1, $2, $3)
	`, ws.ID, owner.ID, string(models.RoleOwner))
	if err != nil {
		t.Fatalf("failed to add owner membership: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("failed to commit transaction: %v", err)
	}

	return ws
}

// WorkspaceOption configures a test workspace
type WorkspaceOption func(*models.Workspace)

// WithTier sets the workspace's plan tier
func WithTier(tier models.Tier) WorkspaceOption {
	return func(w *models.Workspace) {
		w.Tier = tier
	}
}

// WithSlug sets the workspace's slug
func WithSlug(slug string) WorkspaceOption {
	return func(w *models.Workspace) {
		w.Slug = slug
	}
}

// AddMember adds a principal to a workspace with the given role
func (f *Fixtures) AddMember(t *testing.T, ws *models.Workspace, p *models.Principal, role models.Role) {
	t.Helper()
	ctx := context.Background()

	_, err := f.db.Pool.Exec(ctx, `
		INSERT INTO memberships (workspace_id, principal_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (workspace_id, principal_id) DO NOTHING
	`, ws.ID, p.ID, string(role))
	if err != nil {
		t.Fatalf("failed to add member: %v", err)
	}
}

// CreateClient creates a test client in a workspace
func (f *Fixtures) CreateClient(t *testing.T, ws *models.Workspace, createdBy *models.Principal) *models.Client {
	t.Helper()
	f.counter++

	c := &models.Client{}
	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO clients (workspace_id, name, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, workspace_id, name, created_by, created_at
	`, ws.ID, fmt.Sprintf("Test Client %d", f.counter), createdBy.ID).Scan(
		&c.ID, &c.WorkspaceID, &c.Name, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	return c
}

// CreateProject creates an active test project in a workspace
func (f *Fixtures) CreateProject(t *testing.T, ws *models.Workspace, createdBy *models.Principal) *models.Project {
	t.Helper()
	f.counter++

	p := &models.Project{}
	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO projects (workspace_id, name, status, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, workspace_id, name, status, created_by, created_at
	`, ws.ID, fmt.Sprintf("Test Project %d", f.counter), models.ProjectStatusActive, createdBy.ID).Scan(
		&p.ID, &p.WorkspaceID, &p.Name, &p.Status, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	return p
}

// CreateInvite creates a pending invite in a workspace
func (f *Fixtures) CreateInvite(t *testing.T, ws *models.Workspace, createdBy *models.Principal, email string, role models.Role, expiresAt time.Time) *models.Invite {
	t.Helper()
	f.counter++

	inv := &models.Invite{}
	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO invites (workspace_id, email, role, token, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, workspace_id, email, role, token, expires_at, accepted_at, created_by, created_at
	`, ws.ID, email, string(role), uuid.NewString(), expiresAt, createdBy.ID).Scan(
		&inv.ID, &inv.WorkspaceID, &inv.Email, &inv.Role, &inv.Token,
		&inv.ExpiresAt, &inv.AcceptedAt, &inv.CreatedBy, &inv.CreatedAt)
	if err != nil {
		t.Fatalf("failed to create invite: %v", err)
	}

	return inv
}
