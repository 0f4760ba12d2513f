// Package resources executes tenant-scoped query descriptors against the
// database and guards resource creation behind the role policy and the plan
// quota, in that order.
package resources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atelierhq/atelier-api/internal/database"
	"github.com/atelierhq/atelier-api/internal/models"
	"github.com/atelierhq/atelier-api/internal/scope"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

var ErrUnknownResource = errors.New("unknown resource")

// tableSpec is the allowlist entry for one scoped table. Filter fields not in
// the set are rejected before any SQL is built; predicate values are always
// bound as parameters.
type tableSpec struct {
	columns string
	filters map[string]bool
}

var tables = map[string]tableSpec{
	"clients": {
		columns: "id, workspace_id, name, created_by, created_at",
		filters: map[string]bool{scope.TenantField: true, "id": true, "name": true},
	},
	"projects": {
		columns: "id, workspace_id, name, status, created_by, created_at",
		filters: map[string]bool{scope.TenantField: true, "id": true, "status": true},
	},
	"documents": {
		columns: "id, workspace_id, name, size_bytes, created_by, created_at",
		filters: map[string]bool{scope.TenantField: true, "id": true},
	},
}

// Repository turns scope.Query descriptors into SQL. It is the only code that
// renders predicates, so the tenant filter the descriptor carries is on every
// statement it runs.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{db: db, log: log}
}

func renderWhere(q *scope.Query) (string, []any, error) {
	spec, ok := tables[q.Resource()]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownResource, q.Resource())
	}

	var clauses []string
	var args []any
	for i, p := range q.Predicates() {
		if !spec.filters[p.Field] {
			return "", nil, fmt.Errorf("field %q is not filterable on %q", p.Field, q.Resource())
		}
		clauses = append(clauses, fmt.Sprintf("%s = $%d", p.Field, i+1))
		args = append(args, p.Value)
	}
	return strings.Join(clauses, " AND "), args, nil
}

// noteIfPolicyDenied logs when the database's row security policy rejects a
// statement. The descriptor already carried a workspace filter, so a denial
// here means the two layers disagree and someone should look.
func (r *Repository) noteIfPolicyDenied(err error, resource string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InsufficientPrivilege {
		r.log.Error().
			Str("resource", resource).
			Str("pg_code", pgErr.Code).
			Msg("row security policy rejected a workspace-scoped query")
	}
}

// Clients runs a descriptor built for the clients resource.
func (r *Repository) Clients(ctx context.Context, q *scope.Query) ([]models.Client, error) {
	where, args, err := renderWhere(q)
	if err != nil {
		return nil, err
	}
	if q.Resource() != "clients" {
		return nil, fmt.Errorf("%w: descriptor is for %q, not clients", ErrUnknownResource, q.Resource())
	}

	sql := fmt.Sprintf(`SELECT %s FROM clients WHERE %s ORDER BY created_at`, tables["clients"].columns, where)
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		r.noteIfPolicyDenied(err, "clients")
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var out []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Projects runs a descriptor built for the projects resource.
func (r *Repository) Projects(ctx context.Context, q *scope.Query) ([]models.Project, error) {
	where, args, err := renderWhere(q)
	if err != nil {
		return nil, err
	}
	if q.Resource() != "projects" {
		return nil, fmt.Errorf("%w: descriptor is for %q, not projects", ErrUnknownResource, q.Resource())
	}

	sql := fmt.Sprintf(`SELECT %s FROM projects WHERE %s ORDER BY created_at`, tables["projects"].columns, where)
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		r.noteIfPolicyDenied(err, "projects")
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Status, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count runs a COUNT(*) for any allowlisted resource descriptor.
func (r *Repository) Count(ctx context.Context, q *scope.Query) (int64, error) {
	where, args, err := renderWhere(q)
	if err != nil {
		return 0, err
	}

	sql := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, q.Resource(), where)
	var n int64
	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		r.noteIfPolicyDenied(err, q.Resource())
		return 0, fmt.Errorf("failed to count %s: %w", q.Resource(), err)
	}
	return n, nil
}

func (r *Repository) InsertClient(ctx context.Context, workspaceID uuid.UUID, name string, createdBy uuid.UUID) (*models.Client, error) {
	var c models.Client
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO clients (workspace_id, name, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, workspace_id, name, created_by, created_at
	`, workspaceID, name, createdBy).Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		r.noteIfPolicyDenied(err, "clients")
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &c, nil
}

func (r *Repository) InsertProject(ctx context.Context, workspaceID uuid.UUID, name string, createdBy uuid.UUID) (*models.Project, error) {
	var p models.Project
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO projects (workspace_id, name, status, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, workspace_id, name, status, created_by, created_at
	`, workspaceID, name, models.ProjectStatusActive, createdBy).Scan(
		&p.ID, &p.WorkspaceID, &p.Name, &p.Status, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		r.noteIfPolicyDenied(err, "projects")
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return &p, nil
}
