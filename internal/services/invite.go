package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/atelierhq/atelier-api/internal/database"
	"github.com/atelierhq/atelier-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrInviteNotFound        = errors.New("invite not found")
	ErrInviteExpired         = errors.New("invite has expired")
	ErrInviteAlreadyAccepted = errors.New("invite has already been accepted")
)

type InviteService struct {
	db *database.DB
}

func NewInviteService(db *database.DB) *InviteService {
	return &InviteService{db: db}
}

func newInviteToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Create issues a single-use invite for an email address. The token is
// returned once on the created invite and is the only way to redeem it.
func (s *InviteService) Create(ctx context.Context, workspaceID uuid.UUID, email string, role models.Role, ttl time.Duration, createdBy uuid.UUID) (*models.Invite, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	token, err := newInviteToken()
	if err != nil {
		return nil, err
	}

	var invite models.Invite
	var roleStr string
	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO invites (workspace_id, email, role, token, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, workspace_id, email, role, token, expires_at, accepted_at, created_by, created_at
	`, workspaceID, email, string(role), token, time.Now().Add(ttl), createdBy).Scan(
		&invite.ID, &invite.WorkspaceID, &invite.Email, &roleStr, &invite.Token,
		&invite.ExpiresAt, &invite.AcceptedAt, &invite.CreatedBy, &invite.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}
	invite.Role = models.Role(roleStr)
	return &invite, nil
}

// Redeem consumes an invite exactly once: it stamps accepted_at and inserts
// the membership in the same transaction. An expired or already accepted
// invite is a terminal state surfaced to the caller, never retried silently.
func (s *InviteService) Redeem(ctx context.Context, token string, principalID uuid.UUID) (*models.Invite, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var invite models.Invite
	var roleStr string
	err = tx.QueryRow(ctx, `
		SELECT id, workspace_id, email, role, token, expires_at, accepted_at, created_by, created_at
		FROM invites WHERE token = $1
		FOR UPDATE
	`, token).Scan(
		&invite.ID, &invite.WorkspaceID, &invite.Email, &roleStr, &invite.Token,
		&invite.ExpiresAt, &invite.AcceptedAt, &invite.CreatedBy, &invite.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	invite.Role = models.Role(roleStr)

	if invite.Accepted() {
		return nil, ErrInviteAlreadyAccepted
	}
	if invite.Expired(time.Now()) {
		return nil, ErrInviteExpired
	}

	var acceptedAt time.Time
	err = tx.QueryRow(ctx, `
		UPDATE invites SET accepted_at = NOW() WHERE id = $1 RETURNING accepted_at
	`, invite.ID).Scan(&acceptedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to accept invite: %w", err)
	}
	invite.AcceptedAt = &acceptedAt

	_, err = tx.Exec(ctx, `
		INSERT INTO memberships (workspace_id, principal_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (workspace_id, principal_id) DO NOTHING
	`, invite.WorkspaceID, principalID, string(invite.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &invite, nil
}

func (s *InviteService) ListPending(ctx context.Context, workspaceID uuid.UUID) ([]models.Invite, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, workspace_id, email, role, token, expires_at, accepted_at, created_by, created_at
		FROM invites
		WHERE workspace_id = $1 AND accepted_at IS NULL AND expires_at > NOW()
		ORDER BY created_at DESC
	`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []models.Invite
	for rows.Next() {
		var invite models.Invite
		var roleStr string
		if err := rows.Scan(
			&invite.ID, &invite.WorkspaceID, &invite.Email, &roleStr, &invite.Token,
			&invite.ExpiresAt, &invite.AcceptedAt, &invite.CreatedBy, &invite.CreatedAt,
		); err != nil {
			return nil, err
		}
		invite.Role = models.Role(roleStr)
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}

func (s *InviteService) Cancel(ctx context.Context, workspaceID, inviteID uuid.UUID) error {
	result, err := s.db.Pool.Exec(ctx, `
		DELETE FROM invites WHERE id = $1 AND workspace_id = $2 AND accepted_at IS NULL
	`, inviteID, workspaceID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrInviteNotFound
	}
	return nil
}

// SweepExpired purges expired, unaccepted invites so their tokens can never
// be redeemed again. Returns the workspaces that had invites purged, so
// cached pending-invite reads can be invalidated.
func (s *InviteService) SweepExpired(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Pool.Query(ctx, `
		DELETE FROM invites
		WHERE expires_at < NOW() AND accepted_at IS NULL
		RETURNING workspace_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[uuid.UUID]struct{})
	var workspaceIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			workspaceIDs = append(workspaceIDs, id)
		}
	}
	return workspaceIDs, rows.Err()
}
