package tenant

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/atelierhq/atelier-api/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoleFinder struct {
	roles map[uuid.UUID]models.Role
	err   error
}

func (f *fakeRoleFinder) RoleOf(_ context.Context, workspaceID, _ uuid.UUID) (models.Role, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	role, ok := f.roles[workspaceID]
	return role, ok, nil
}

type fakeInvalidator struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
	err         error
}

func (f *fakeInvalidator) InvalidateWorkspace(_ context.Context, workspaceID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, workspaceID)
	return 3, f.err
}

func newSwitchFixture(t *testing.T, workspaces ...models.Workspace) (*Switcher, *Session, *fakeInvalidator, *fakePrefStore) {
	t.Helper()

	roles := make(map[uuid.UUID]models.Role, len(workspaces))
	for _, w := range workspaces {
		roles[w.ID] = models.RoleMember
	}

	sess := &Session{principal: principal(), workspaces: workspaces}
	inval := &fakeInvalidator{}
	prefs := &fakePrefStore{}
	lister := &fakeWorkspaceLister{workspaces: workspaces}
	sw := NewSwitcher(&fakeRoleFinder{roles: roles}, lister, prefs, inval, NewNotifier(), zerolog.Nop())
	return sw, sess, inval, prefs
}

func TestSwitchTo_ActivatesTarget(t *testing.T) {
	a, b := ws("a"), ws("b")
	sw, sess, _, prefs := newSwitchFixture(t, a, b)
	sess.active = a.ID

	err := sw.SwitchTo(context.Background(), sess, b.ID)

	require.NoError(t, err)
	current, ok := sess.CurrentWorkspace()
	require.True(t, ok)
	assert.Equal(t, b.ID, current.ID)
	assert.Equal(t, []uuid.UUID{b.ID}, prefs.saved)
}

func TestSwitchTo_DeniedWithoutMembership(t *testing.T) {
	a := ws("a")
	sw, sess, inval, _ := newSwitchFixture(t, a)
	sess.active = a.ID

	err := sw.SwitchTo(context.Background(), sess, uuid.New())

	assert.ErrorIs(t, err, ErrNotAMember)

	// Nothing swapped, nothing invalidated.
	current, ok := sess.CurrentWorkspace()
	require.True(t, ok)
	assert.Equal(t, a.ID, current.ID)
	assert.Empty(t, inval.invalidated)
}

func TestSwitchTo_InvalidatesOldWorkspaceCache(t *testing.T) {
	a, b := ws("a"), ws("b")
	sw, sess, inval, _ := newSwitchFixture(t, a, b)
	sess.active = a.ID

	require.NoError(t, sw.SwitchTo(context.Background(), sess, b.ID))

	assert.Equal(t, []uuid.UUID{a.ID}, inval.invalidated)
}

func TestSwitchTo_FirstSelectionSkipsInvalidation(t *testing.T) {
	a := ws("a")
	sw, sess, inval, _ := newSwitchFixture(t, a)

	require.NoError(t, sw.SwitchTo(context.Background(), sess, a.ID))

	assert.Empty(t, inval.invalidated)
}

func TestSwitchTo_NotifiesOldAndNewIDs(t *testing.T) {
	a, b := ws("a"), ws("b")
	sw, sess, _, _ := newSwitchFixture(t, a, b)
	sess.active = a.ID

	changes, cancel := sw.notifier.Subscribe(1)
	defer cancel()

	require.NoError(t, sw.SwitchTo(context.Background(), sess, b.ID))

	change := <-changes
	assert.Equal(t, a.ID, change.Old)
	assert.Equal(t, b.ID, change.New)
	assert.Equal(t, sess.Principal().ID, change.PrincipalID)
}

func TestSwitchTo_SameWorkspaceIsNoOp(t *testing.T) {
	a := ws("a")
	sw, sess, inval, prefs := newSwitchFixture(t, a)
	sess.active = a.ID
	epoch := sess.Epoch()

	require.NoError(t, sw.SwitchTo(context.Background(), sess, a.ID))

	assert.Equal(t, epoch, sess.Epoch())
	assert.Empty(t, inval.invalidated)
	assert.Empty(t, prefs.saved)
}

func TestSwitchTo_BumpsEpochSoInFlightReadsDiscard(t *testing.T) {
	a, b := ws("a"), ws("b")
	sw, sess, _, _ := newSwitchFixture(t, a, b)
	sess.active = a.ID

	epoch := sess.Epoch()
	require.NoError(t, sw.SwitchTo(context.Background(), sess, b.ID))

	assert.False(t, sess.Current(epoch))
}

func TestSwitchTo_ResyncsStaleWorkspaceList(t *testing.T) {
	a, b := ws("a"), ws("b")

	// The session was opened before the principal joined workspace b.
	roles := map[uuid.UUID]models.Role{a.ID: models.RoleOwner, b.ID: models.RoleMember}
	sess := &Session{principal: principal(), workspaces: []models.Workspace{a}, active: a.ID}
	lister := &fakeWorkspaceLister{workspaces: []models.Workspace{a, b}}
	sw := NewSwitcher(&fakeRoleFinder{roles: roles}, lister, &fakePrefStore{}, &fakeInvalidator{}, NewNotifier(), zerolog.Nop())

	require.NoError(t, sw.SwitchTo(context.Background(), sess, b.ID))

	current, ok := sess.CurrentWorkspace()
	require.True(t, ok)
	assert.Equal(t, b.ID, current.ID)
}

func TestSwitchTo_RoleLookupErrorPropagates(t *testing.T) {
	a := ws("a")
	sess := &Session{principal: principal(), workspaces: []models.Workspace{a}}
	sw := NewSwitcher(&fakeRoleFinder{err: errors.New("timeout")}, &fakeWorkspaceLister{}, &fakePrefStore{}, &fakeInvalidator{}, NewNotifier(), zerolog.Nop())

	err := sw.SwitchTo(context.Background(), sess, a.ID)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAMember)
}

func TestNotifier_SubscribeCancelPublish(t *testing.T) {
	n := NewNotifier()

	ch1, cancel1 := n.Subscribe(1)
	ch2, cancel2 := n.Subscribe(1)
	defer cancel2()

	change := Change{Old: uuid.New(), New: uuid.New()}
	n.Publish(change)

	assert.Equal(t, change, <-ch1)
	assert.Equal(t, change, <-ch2)

	cancel1()
	_, open := <-ch1
	assert.False(t, open)

	// Publishing after a cancel only reaches the remaining subscriber.
	n.Publish(change)
	assert.Equal(t, change, <-ch2)
}

func TestNotifier_FullBufferDoesNotBlock(t *testing.T) {
	n := NewNotifier()

	ch, cancel := n.Subscribe(1)
	defer cancel()

	n.Publish(Change{New: uuid.New()})
	n.Publish(Change{New: uuid.New()}) // dropped, not blocked

	assert.Len(t, ch, 1)
}
