package resources

import (
	"context"
	"testing"
	"time"

	"github.com/atelierhq/atelier-api/internal/database"
	"github.com/atelierhq/atelier-api/internal/scope"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepository(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewRepository(db, zerolog.Nop()), mock
}

func TestRepository_Clients(t *testing.T) {
	repo, mock := setupRepository(t)
	workspaceID := uuid.New()
	now := time.Now()

	q, err := scope.ScopedID("clients", workspaceID)
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"id", "workspace_id", "name", "created_by", "created_at"}).
		AddRow(uuid.New(), workspaceID, "Maison Delacroix", uuid.New(), now).
		AddRow(uuid.New(), workspaceID, "Galerie Sud", uuid.New(), now)
	mock.ExpectQuery(`SELECT .+ FROM clients WHERE workspace_id = \$1`).
		WithArgs(workspaceID.String()).
		WillReturnRows(rows)

	clients, err := repo.Clients(context.Background(), q)

	require.NoError(t, err)
	assert.Len(t, clients, 2)
	assert.Equal(t, workspaceID, clients[0].WorkspaceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Projects_ExtraPredicate(t *testing.T) {
	repo, mock := setupRepository(t)
	workspaceID := uuid.New()
	now := time.Now()

	q, err := scope.ScopedID("projects", workspaceID)
	require.NoError(t, err)
	q.Where("status", "active")

	rows := pgxmock.NewRows([]string{"id", "workspace_id", "name", "status", "created_by", "created_at"}).
		AddRow(uuid.New(), workspaceID, "Rebrand", "active", uuid.New(), now)
	mock.ExpectQuery(`SELECT .+ FROM projects WHERE workspace_id = \$1 AND status = \$2`).
		WithArgs(workspaceID.String(), "active").
		WillReturnRows(rows)

	projects, err := repo.Projects(context.Background(), q)

	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "active", projects[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Count(t *testing.T) {
	repo, mock := setupRepository(t)
	workspaceID := uuid.New()

	q, err := scope.ScopedID("documents", workspaceID)
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"count"}).AddRow(int64(7))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM documents WHERE workspace_id = \$1`).
		WithArgs(workspaceID.String()).
		WillReturnRows(rows)

	n, err := repo.Count(context.Background(), q)

	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UnknownResource(t *testing.T) {
	repo, mock := setupRepository(t)

	q, err := scope.ScopedID("ledgers", uuid.New())
	require.NoError(t, err)

	_, err = repo.Count(context.Background(), q)

	assert.ErrorIs(t, err, ErrUnknownResource)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RejectsUnknownFilterField(t *testing.T) {
	repo, mock := setupRepository(t)

	q, err := scope.ScopedID("clients", uuid.New())
	require.NoError(t, err)
	q.Where("name; DROP TABLE clients", "x")

	_, err = repo.Clients(context.Background(), q)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertClient(t *testing.T) {
	repo, mock := setupRepository(t)
	workspaceID := uuid.New()
	createdBy := uuid.New()
	clientID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows([]string{"id", "workspace_id", "name", "created_by", "created_at"}).
		AddRow(clientID, workspaceID, "Maison Delacroix", createdBy, now)
	mock.ExpectQuery(`INSERT INTO clients`).
		WithArgs(workspaceID, "Maison Delacroix", createdBy).
		WillReturnRows(rows)

	c, err := repo.InsertClient(context.Background(), workspaceID, "Maison Delacroix", createdBy)

	require.NoError(t, err)
	assert.Equal(t, clientID, c.ID)
	assert.Equal(t, workspaceID, c.WorkspaceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertProject_StartsActive(t *testing.T) {
	repo, mock := setupRepository(t)
	workspaceID := uuid.New()
	createdBy := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows([]string{"id", "workspace_id", "name", "status", "created_by", "created_at"}).
		AddRow(uuid.New(), workspaceID, "Rebrand", "active", createdBy, now)
	mock.ExpectQuery(`INSERT INTO projects`).
		WithArgs(workspaceID, "Rebrand", "active", createdBy).
		WillReturnRows(rows)

	p, err := repo.InsertProject(context.Background(), workspaceID, "Rebrand", createdBy)

	require.NoError(t, err)
	assert.Equal(t, "active", p.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
