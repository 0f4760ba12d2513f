package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/atelierhq/atelier-api/internal/database"
	"github.com/atelierhq/atelier-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPolicy(t *testing.T) (*Policy, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewPolicy(db, zerolog.Nop()), mock
}

func TestCan_Matrix(t *testing.T) {
	tests := []struct {
		action Action
		role   models.Role
		want   bool
	}{
		{ActionRead, models.RoleMember, true},
		{ActionCreate, models.RoleMember, true},
		{ActionUpdate, models.RoleMember, true},
		{ActionDelete, models.RoleMember, false},
		{ActionDelete, models.RoleAdmin, true},
		{ActionManageMembers, models.RoleMember, false},
		{ActionManageMembers, models.RoleAdmin, true},
		{ActionChangePlan, models.RoleMember, false},
		{ActionChangePlan, models.RoleAdmin, true},
		{ActionDeleteWorkspace, models.RoleMember, false},
		{ActionDeleteWorkspace, models.RoleAdmin, false},
		{ActionDeleteWorkspace, models.RoleOwner, true},
		{ActionTransferOwnership, models.RoleAdmin, false},
		{ActionTransferOwnership, models.RoleOwner, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.action)+"/"+string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, Can(tt.action, tt.role))
		})
	}
}

func TestCan_RoleOrderingHolds(t *testing.T) {
	// owner ⊇ admin ⊇ member: anything a weaker role may do, every stronger
	// role may do as well.
	actions := []Action{
		ActionRead, ActionCreate, ActionUpdate, ActionDelete,
		ActionManageMembers, ActionChangePlan, ActionDeleteWorkspace, ActionTransferOwnership,
	}
	ordered := []models.Role{models.RoleMember, models.RoleAdmin, models.RoleOwner}

	for _, action := range actions {
		for i, weaker := range ordered {
			for _, stronger := range ordered[i+1:] {
				if Can(action, weaker) {
					assert.True(t, Can(action, stronger),
						"%s permitted for %s but not for %s", action, weaker, stronger)
				}
			}
		}
	}
}

func TestCan_UnknownInputsDenied(t *testing.T) {
	assert.False(t, Can(Action("format-disk"), models.RoleOwner))
	assert.False(t, Can(ActionRead, models.Role("superuser")))
	assert.False(t, Can(ActionRead, models.Role("")))
}

func TestRequireRole_MembershipHeld(t *testing.T) {
	policy, mock := setupPolicy(t)
	ctx := context.Background()
	principalID := uuid.New()
	workspaceID := uuid.New()

	rows := pgxmock.NewRows([]string{"role"}).AddRow("admin")
	mock.ExpectQuery(`SELECT role FROM memberships`).
		WithArgs(workspaceID, principalID).
		WillReturnRows(rows)

	ok, err := policy.RequireRole(ctx, principalID, workspaceID, models.RoleMember)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireRole_InsufficientRole(t *testing.T) {
	policy, mock := setupPolicy(t)
	ctx := context.Background()
	principalID := uuid.New()
	workspaceID := uuid.New()

	rows := pgxmock.NewRows([]string{"role"}).AddRow("member")
	mock.ExpectQuery(`SELECT role FROM memberships`).
		WithArgs(workspaceID, principalID).
		WillReturnRows(rows)

	ok, err := policy.RequireRole(ctx, principalID, workspaceID, models.RoleAdmin)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireRole_NoMembershipIsFalseNotError(t *testing.T) {
	policy, mock := setupPolicy(t)
	ctx := context.Background()
	principalID := uuid.New()
	workspaceID := uuid.New()

	mock.ExpectQuery(`SELECT role FROM memberships`).
		WithArgs(workspaceID, principalID).
		WillReturnError(pgx.ErrNoRows)

	ok, err := policy.RequireRole(ctx, principalID, workspaceID, models.RoleMember)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireRole_InfrastructureErrorPropagates(t *testing.T) {
	policy, mock := setupPolicy(t)
	ctx := context.Background()
	principalID := uuid.New()
	workspaceID := uuid.New()

	mock.ExpectQuery(`SELECT role FROM memberships`).
		WithArgs(workspaceID, principalID).
		WillReturnError(errors.New("connection reset"))

	ok, err := policy.RequireRole(ctx, principalID, workspaceID, models.RoleMember)

	assert.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorize(t *testing.T) {
	policy, mock := setupPolicy(t)
	ctx := context.Background()
	principalID := uuid.New()
	workspaceID := uuid.New()

	rows := pgxmock.NewRows([]string{"role"}).AddRow("member")
	mock.ExpectQuery(`SELECT role FROM memberships`).
		WithArgs(workspaceID, principalID).
		WillReturnRows(rows)

	ok, err := policy.Authorize(ctx, principalID, workspaceID, ActionDeleteWorkspace)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorize_NoMembership(t *testing.T) {
	policy, mock := setupPolicy(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT role FROM memberships`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	ok, err := policy.Authorize(ctx, uuid.New(), uuid.New(), ActionRead)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
