package plan

import (
	"context"
	"errors"
	"fmt"

	"github.com/atelierhq/atelier-api/internal/database"
	"github.com/atelierhq/atelier-api/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrLimitExceeded = errors.New("plan limit exceeded")

var kindNouns = map[Kind]string{
	KindSeats:        "seats",
	KindProjects:     "active projects",
	KindClients:      "clients",
	KindStorageBytes: "bytes of storage",
}

// Decision is the outcome of a limit check. When denied, Reason is a
// display-ready message naming the plan and the limit.
type Decision struct {
	Allowed bool
	Tier    models.Tier
	Kind    Kind
	Limit   int64
	Current int64
	Reason  string
}

// LimitError wraps a denied Decision for callers that want an error value.
// errors.Is(err, ErrLimitExceeded) matches it.
type LimitError struct {
	Decision Decision
}

func (e *LimitError) Error() string {
	return e.Decision.Reason
}

func (e *LimitError) Is(target error) bool {
	return target == ErrLimitExceeded
}

// Enforcer counts live resources and compares them against the workspace
// tier's quota. Count-then-insert is a soft limit: two concurrent creations
// may both pass; downgrades never delete existing data, they only block new
// creation until the count falls under the new cap.
type Enforcer struct {
	db  *database.DB
	log zerolog.Logger
}

func NewEnforcer(db *database.DB, log zerolog.Logger) *Enforcer {
	return &Enforcer{db: db, log: log}
}

var countQueries = map[Kind]string{
	KindSeats:        `SELECT COUNT(*) FROM memberships WHERE workspace_id = $1`,
	KindProjects:     `SELECT COUNT(*) FROM projects WHERE workspace_id = $1 AND status = 'active'`,
	KindClients:      `SELECT COUNT(*) FROM clients WHERE workspace_id = $1`,
	KindStorageBytes: `SELECT COALESCE(SUM(size_bytes), 0) FROM documents WHERE workspace_id = $1`,
}

func (e *Enforcer) tierOf(ctx context.Context, workspaceID uuid.UUID) (models.Tier, error) {
	var tier string
	err := e.db.Pool.QueryRow(ctx, `
		SELECT tier FROM workspaces WHERE id = $1
	`, workspaceID).Scan(&tier)
	if err != nil {
		return "", fmt.Errorf("failed to look up workspace tier: %w", err)
	}
	return models.Tier(tier), nil
}

// CheckLimit decides whether one more resource of the given kind fits within
// the workspace's quota. Unlimited quotas skip the count entirely.
func (e *Enforcer) CheckLimit(ctx context.Context, workspaceID uuid.UUID, kind Kind) (Decision, error) {
	query, ok := countQueries[kind]
	if !ok {
		return Decision{}, fmt.Errorf("unknown resource kind %q", kind)
	}

	tier, err := e.tierOf(ctx, workspaceID)
	if err != nil {
		return Decision{}, err
	}

	limit := ForTier(tier).For(kind)
	if limit == Unlimited {
		return Decision{Allowed: true, Tier: tier, Kind: kind, Limit: Unlimited}, nil
	}

	var current int64
	if err := e.db.Pool.QueryRow(ctx, query, workspaceID).Scan(&current); err != nil {
		return Decision{}, fmt.Errorf("failed to count %s: %w", kind, err)
	}

	d := Decision{
		Allowed: current < limit,
		Tier:    tier,
		Kind:    kind,
		Limit:   limit,
		Current: current,
	}
	if !d.Allowed {
		d.Reason = fmt.Sprintf("the %s plan allows at most %d %s; this workspace already has %d",
			DisplayName(tier), limit, kindNouns[kind], current)
		e.log.Info().
			Str("workspace_id", workspaceID.String()).
			Str("kind", string(kind)).
			Int64("limit", limit).
			Int64("current", current).
			Msg("creation blocked by plan limit")
	}
	return d, nil
}

// HasFeature reports whether the workspace's tier includes a feature flag.
func (e *Enforcer) HasFeature(ctx context.Context, workspaceID uuid.UUID, feature Feature) (bool, error) {
	tier, err := e.tierOf(ctx, workspaceID)
	if err != nil {
		return false, err
	}
	return ForTier(tier).HasFeature(feature), nil
}
