package services

import (
	"context"
	"testing"
	"time"

	"github.com/atelierhq/atelier-api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPrincipalService(t *testing.T) (*PrincipalService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewPrincipalService(db), mock
}

func principalColumns() []string {
	return []string{"id", "email", "name", "last_workspace_id", "created_at", "updated_at"}
}

func TestPrincipalService_Create(t *testing.T) {
	svc, mock := setupPrincipalService(t)
	principalID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows(principalColumns()).
		AddRow(principalID, "ines@example.com", "Inès", nil, now, now)
	mock.ExpectQuery(`INSERT INTO principals`).
		WithArgs("ines@example.com", "Inès").
		WillReturnRows(rows)

	p, err := svc.Create(context.Background(), "ines@example.com", "Inès")

	require.NoError(t, err)
	assert.Equal(t, principalID, p.ID)
	assert.Nil(t, p.LastWorkspaceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrincipalService_GetByEmail_NotFound(t *testing.T) {
	svc, mock := setupPrincipalService(t)

	mock.ExpectQuery(`SELECT .+ FROM principals WHERE email`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByEmail(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, ErrPrincipalNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrincipalService_LastWorkspace(t *testing.T) {
	svc, mock := setupPrincipalService(t)
	principalID := uuid.New()
	workspaceID := uuid.New()

	rows := pgxmock.NewRows([]string{"last_workspace_id"}).AddRow(&workspaceID)
	mock.ExpectQuery(`SELECT last_workspace_id FROM principals`).
		WithArgs(principalID).
		WillReturnRows(rows)

	last, err := svc.LastWorkspace(context.Background(), principalID)

	require.NoError(t, err)
	assert.Equal(t, workspaceID, last)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrincipalService_LastWorkspace_NoneRecorded(t *testing.T) {
	svc, mock := setupPrincipalService(t)
	principalID := uuid.New()

	rows := pgxmock.NewRows([]string{"last_workspace_id"}).AddRow(nil)
	mock.ExpectQuery(`SELECT last_workspace_id FROM principals`).
		WithArgs(principalID).
		WillReturnRows(rows)

	last, err := svc.LastWorkspace(context.Background(), principalID)

	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, last)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrincipalService_SaveLastWorkspace(t *testing.T) {
	svc, mock := setupPrincipalService(t)
	principalID := uuid.New()
	workspaceID := uuid.New()

	mock.ExpectExec(`UPDATE principals SET last_workspace_id`).
		WithArgs(workspaceID, principalID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := svc.SaveLastWorkspace(context.Background(), principalID, workspaceID)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
