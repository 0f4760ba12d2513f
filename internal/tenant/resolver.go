package tenant

import (
	"context"

	"github.com/atelierhq/atelier-api/internal/models"
	"github.com/google/uuid"
)

// TokenVerifier resolves a bearer token to the principal id it binds.
type TokenVerifier interface {
	PrincipalID(token string) (uuid.UUID, error)
}

// PrincipalFinder loads the signed-in principal's record.
type PrincipalFinder interface {
	GetByID(ctx context.Context, principalID uuid.UUID) (*models.Principal, error)
}

// Resolver turns a session token into an open Session. Sign-in happens
// upstream; the token is the only credential this subsystem sees.
type Resolver struct {
	tokens     TokenVerifier
	principals PrincipalFinder
	sessions   *Manager
}

func NewResolver(tokens TokenVerifier, principals PrincipalFinder, sessions *Manager) *Resolver {
	return &Resolver{tokens: tokens, principals: principals, sessions: sessions}
}

// FromToken verifies the token, loads its principal, and opens a session with
// the usual restore rules.
func (r *Resolver) FromToken(ctx context.Context, token string) (*Session, error) {
	principalID, err := r.tokens.PrincipalID(token)
	if err != nil {
		return nil, err
	}

	principal, err := r.principals.GetByID(ctx, principalID)
	if err != nil {
		return nil, err
	}

	return r.sessions.Open(ctx, *principal)
}
