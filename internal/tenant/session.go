// Package tenant owns "who is signed in" and "which workspace is active".
// The Session is an explicit per-principal object threaded through calls, not
// an ambient singleton; it is the single writer of the active workspace id.
package tenant

import (
	"context"
	"errors"
	"sync"

	"github.com/atelierhq/atelier-api/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNoActiveWorkspace = errors.New("no active workspace selected")
	// ErrStaleRead marks a read that resolved after the session switched
	// workspaces; the result must be discarded, never rendered.
	ErrStaleRead = errors.New("read resolved after workspace switch; result discarded")
)

// WorkspaceLister loads the workspaces a principal belongs to, with roles.
type WorkspaceLister interface {
	ListForPrincipal(ctx context.Context, principalID uuid.UUID) ([]models.Workspace, []models.Role, error)
}

// PrefStore persists the last active workspace per principal across sessions.
type PrefStore interface {
	LastWorkspace(ctx context.Context, principalID uuid.UUID) (uuid.UUID, error)
	SaveLastWorkspace(ctx context.Context, principalID, workspaceID uuid.UUID) error
}

// Session holds the authenticated principal, their memberships, and the
// active workspace. All mutation goes through the Switcher; everything else
// reads. The epoch counter increments on every switch and backs the
// stale-response guard.
type Session struct {
	mu         sync.RWMutex
	principal  models.Principal
	workspaces []models.Workspace
	active     uuid.UUID
	epoch      uint64
}

func (s *Session) Principal() models.Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal
}

// CurrentWorkspace returns the active workspace, or false when none is
// selected.
func (s *Session) CurrentWorkspace() (models.Workspace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == uuid.Nil {
		return models.Workspace{}, false
	}
	for _, w := range s.workspaces {
		if w.ID == s.active {
			return w, true
		}
	}
	return models.Workspace{}, false
}

// Workspaces returns a copy of the principal's workspaces. Ordering is not
// significant.
func (s *Session) Workspaces() []models.Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Workspace, len(s.workspaces))
	copy(out, s.workspaces)
	return out
}

// HasWorkspaces routes first-time users to workspace creation instead of the
// main app.
func (s *Session) HasWorkspaces() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.workspaces) > 0
}

// Epoch returns the current switch generation. Pair with Current to discard
// reads that started before a switch.
func (s *Session) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Current reports whether the given epoch is still the live one.
func (s *Session) Current(epoch uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch == epoch
}

// snapshot returns the active workspace together with the epoch it was
// observed at, under one lock acquisition. Reading the two separately would
// let a switch land in between, pairing the old workspace with the new epoch
// and silently defeating the stale-read check.
func (s *Session) snapshot() (models.Workspace, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == uuid.Nil {
		return models.Workspace{}, 0, false
	}
	for _, w := range s.workspaces {
		if w.ID == s.active {
			return w, s.epoch, true
		}
	}
	return models.Workspace{}, 0, false
}

func (s *Session) memberOf(workspaceID uuid.UUID) bool {
	for _, w := range s.workspaces {
		if w.ID == workspaceID {
			return true
		}
	}
	return false
}

func (s *Session) knows(workspaceID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memberOf(workspaceID)
}

func (s *Session) setWorkspaces(workspaces []models.Workspace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaces = workspaces
}

// activate swaps the active workspace and bumps the epoch. Returns the
// previous id.
func (s *Session) activate(workspaceID uuid.UUID) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.active
	s.active = workspaceID
	s.epoch++
	return old
}

// Fetch runs fn against the active workspace and discards the result with
// ErrStaleRead if the session switched while fn was in flight.
func Fetch[T any](ctx context.Context, s *Session, fn func(ctx context.Context, workspaceID uuid.UUID) (T, error)) (T, error) {
	var zero T

	ws, epoch, ok := s.snapshot()
	if !ok {
		return zero, ErrNoActiveWorkspace
	}

	v, err := fn(ctx, ws.ID)
	if err != nil {
		return zero, err
	}
	if !s.Current(epoch) {
		return zero, ErrStaleRead
	}
	return v, nil
}

// Manager constructs sessions at sign-in time.
type Manager struct {
	workspaces WorkspaceLister
	prefs      PrefStore
	log        zerolog.Logger
}

func NewManager(workspaces WorkspaceLister, prefs PrefStore, log zerolog.Logger) *Manager {
	return &Manager{workspaces: workspaces, prefs: prefs, log: log}
}

// Open loads the principal's memberships once and picks the active workspace:
// exactly one membership activates it automatically; otherwise the previously
// selected workspace is restored only if the membership still exists. With
// zero workspaces the caller routes to onboarding; with several and no valid
// restore, to an explicit selection screen.
func (m *Manager) Open(ctx context.Context, principal models.Principal) (*Session, error) {
	workspaces, _, err := m.workspaces.ListForPrincipal(ctx, principal.ID)
	if err != nil {
		return nil, err
	}

	sess := &Session{principal: principal, workspaces: workspaces}

	switch len(workspaces) {
	case 0:
		// Onboarding; nothing to activate.
	case 1:
		sess.active = workspaces[0].ID
	default:
		last, err := m.prefs.LastWorkspace(ctx, principal.ID)
		if err != nil {
			return nil, err
		}
		// A removed member must not resume access via a stale preference.
		if last != uuid.Nil && sess.memberOf(last) {
			sess.active = last
		}
	}

	m.log.Debug().
		Str("principal_id", principal.ID.String()).
		Int("workspaces", len(workspaces)).
		Bool("active", sess.active != uuid.Nil).
		Msg("session opened")
	return sess, nil
}
