package resources

import (
	"context"

	"github.com/atelierhq/atelier-api/internal/authz"
	"github.com/atelierhq/atelier-api/internal/models"
	"github.com/atelierhq/atelier-api/internal/plan"
	"github.com/google/uuid"
)

type Authorizer interface {
	Authorize(ctx context.Context, principalID, workspaceID uuid.UUID, action authz.Action) (bool, error)
}

type LimitChecker interface {
	CheckLimit(ctx context.Context, workspaceID uuid.UUID, kind plan.Kind) (plan.Decision, error)
}

// CreateGuard is the admission check for resource creation: the role policy
// runs first, the quota check only after it passes. A principal without the
// create permission learns nothing about the workspace's plan usage.
type CreateGuard struct {
	policy Authorizer
	limits LimitChecker
}

func NewCreateGuard(policy Authorizer, limits LimitChecker) *CreateGuard {
	return &CreateGuard{policy: policy, limits: limits}
}

// Allow returns nil when the principal may create one more resource of the
// given kind. It returns authz.ErrPermissionDenied or a *plan.LimitError
// depending on which gate refused.
func (g *CreateGuard) Allow(ctx context.Context, principalID, workspaceID uuid.UUID, kind plan.Kind) error {
	ok, err := g.policy.Authorize(ctx, principalID, workspaceID, authz.ActionCreate)
	if err != nil {
		return err
	}
	if !ok {
		return authz.ErrPermissionDenied
	}

	decision, err := g.limits.CheckLimit(ctx, workspaceID, kind)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return &plan.LimitError{Decision: decision}
	}
	return nil
}

// Service is the creation surface for workspace resources. Every create goes
// through the guard before touching the repository.
type Service struct {
	guard *CreateGuard
	repo  *Repository
}

func NewService(guard *CreateGuard, repo *Repository) *Service {
	return &Service{guard: guard, repo: repo}
}

func (s *Service) CreateClient(ctx context.Context, principalID, workspaceID uuid.UUID, name string) (*models.Client, error) {
	if err := s.guard.Allow(ctx, principalID, workspaceID, plan.KindClients); err != nil {
		return nil, err
	}
	return s.repo.InsertClient(ctx, workspaceID, name, principalID)
}

func (s *Service) CreateProject(ctx context.Context, principalID, workspaceID uuid.UUID, name string) (*models.Project, error) {
	if err := s.guard.Allow(ctx, principalID, workspaceID, plan.KindProjects); err != nil {
		return nil, err
	}
	return s.repo.InsertProject(ctx, workspaceID, name, principalID)
}
