package tenant

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atelierhq/atelier-api/internal/models"
)

var (
	// ErrNotAMember denies a switch to a workspace the principal does not
	// belong to. A denial, not a crash. This is the switch-time access
	// decision; services.ErrMembershipNotFound is the data layer reporting a
	// missing row, and the two are deliberately distinct sentinels.
	ErrNotAMember = errors.New("principal is not a member of the target workspace")
	ErrSwitchInProgress   = errors.New("a workspace switch is already in progress")
)

// RoleFinder checks a live membership for the switch target. found is false
// when no membership exists.
type RoleFinder interface {
	RoleOf(ctx context.Context, workspaceID, principalID uuid.UUID) (role models.Role, found bool, err error)
}

// Invalidator drops every cached read for one workspace in a single bulk
// operation.
type Invalidator interface {
	InvalidateWorkspace(ctx context.Context, workspaceID uuid.UUID) (int64, error)
}

const (
	stateIdle int32 = iota
	stateSwitching
)

// Switcher orchestrates the Idle -> Switching -> Idle transition between
// active workspaces: membership check, session swap, bulk cache invalidation
// for the old workspace, then a workspace-changed notification.
type Switcher struct {
	roles      RoleFinder
	workspaces WorkspaceLister
	prefs      PrefStore
	cache      Invalidator
	notifier   *Notifier
	log        zerolog.Logger
	state      atomic.Int32
}

func NewSwitcher(roles RoleFinder, workspaces WorkspaceLister, prefs PrefStore, cache Invalidator, notifier *Notifier, log zerolog.Logger) *Switcher {
	return &Switcher{roles: roles, workspaces: workspaces, prefs: prefs, cache: cache, notifier: notifier, log: log}
}

// SwitchTo makes workspaceID the session's active workspace. Once the context
// is swapped the switch is not cancellable; reads in flight from before the
// swap self-discard via the session epoch.
func (sw *Switcher) SwitchTo(ctx context.Context, sess *Session, workspaceID uuid.UUID) error {
	if !sw.state.CompareAndSwap(stateIdle, stateSwitching) {
		return ErrSwitchInProgress
	}
	defer sw.state.Store(stateIdle)

	principal := sess.Principal()

	_, found, err := sw.roles.RoleOf(ctx, workspaceID, principal.ID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotAMember
	}

	if current, ok := sess.CurrentWorkspace(); ok && current.ID == workspaceID {
		return nil
	}

	// The membership exists but may postdate sign-in; re-sync the session's
	// workspace list so the new active workspace resolves.
	if !sess.knows(workspaceID) {
		list, _, err := sw.workspaces.ListForPrincipal(ctx, principal.ID)
		if err != nil {
			return err
		}
		sess.setWorkspaces(list)
	}

	old := sess.activate(workspaceID)

	if old != uuid.Nil {
		if _, err := sw.cache.InvalidateWorkspace(ctx, old); err != nil {
			// The swap already happened; stale entries expire via TTL.
			sw.log.Warn().Err(err).
				Str("workspace_id", old.String()).
				Msg("failed to invalidate cache for previous workspace")
		}
	}

	if err := sw.prefs.SaveLastWorkspace(ctx, principal.ID, workspaceID); err != nil {
		sw.log.Warn().Err(err).
			Str("principal_id", principal.ID.String()).
			Msg("failed to persist last active workspace")
	}

	sw.notifier.Publish(Change{PrincipalID: principal.ID, Old: old, New: workspaceID})

	sw.log.Info().
		Str("principal_id", principal.ID.String()).
		Str("old_workspace_id", old.String()).
		Str("new_workspace_id", workspaceID.String()).
		Msg("active workspace switched")
	return nil
}
