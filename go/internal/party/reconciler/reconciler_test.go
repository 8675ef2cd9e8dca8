package reconciler

import (
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/partyroom/go/internal/party/room"
)

const testGrace = 30 * time.Second

type removal struct {
	res    room.RemoveResult
	state  room.GameState
	reason string
}

// recordingNotifier captures removal notifications for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	removals []removal
}

func (n *recordingNotifier) NotifyPlayerRemoved(res room.RemoveResult, state room.GameState, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.removals = append(n.removals, removal{res: res, state: state, reason: reason})
}

func (n *recordingNotifier) all() []removal {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]removal, len(n.removals))
	copy(out, n.removals)
	return out
}

type fixture struct {
	store    *room.Store
	clock    *clockwork.FakeClock
	notifier *recordingNotifier
	rec      *Reconciler
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	store := room.NewStore(clock, 16)
	notifier := &recordingNotifier{}
	rec := New(store, notifier, clock, testGrace, capacity)
	t.Cleanup(rec.Shutdown)
	return &fixture{store: store, clock: clock, notifier: notifier, rec: rec}
}

// bind attaches a connection handle to an existing player.
func (f *fixture) bind(t *testing.T, code, playerID, connID string) {
	t.Helper()
	require.NoError(t, f.store.Mutate(code, func(r *room.Room) error {
		p, ok := r.Player(playerID)
		if !ok {
			return room.ErrPlayerNotFound
		}
		p.ConnID = connID
		return nil
	}))
}

func (f *fixture) setState(t *testing.T, code string, state room.GameState) {
	t.Helper()
	require.NoError(t, f.store.Mutate(code, func(r *room.Room) error {
		r.State = state
		return nil
	}))
}

// twoPlayerRoom creates a room with Alice (owner, conn-a) and Bob (conn-b).
func (f *fixture) twoPlayerRoom(t *testing.T) (code, aliceID, bobID string) {
	t.Helper()
	snap, ownerID, err := f.store.Create("Alice", room.ModeCustom, "")
	require.NoError(t, err)
	_, bob, err := f.store.AddPlayer(snap.Code, "Bob")
	require.NoError(t, err)
	f.bind(t, snap.Code, ownerID, "conn-a")
	f.bind(t, snap.Code, bob.ID, "conn-b")
	return snap.Code, ownerID, bob.ID
}

func TestReconciler_UnboundConnIgnored(t *testing.T) {
	f := newFixture(t, 8)
	f.rec.OnDisconnect("never-bound")
	assert.Equal(t, 0, f.rec.PendingCount())
	assert.Empty(t, f.notifier.all())
}

func TestReconciler_GraceExpiryRemovesPlayer(t *testing.T) {
	f := newFixture(t, 8)
	code, _, bobID := f.twoPlayerRoom(t)

	f.rec.OnDisconnect("conn-b")
	assert.Equal(t, 1, f.rec.PendingCount())

	snap, ok := f.store.Get(code)
	require.True(t, ok)
	assert.False(t, snap.Players[1].Connected, "player detached, not removed")

	f.clock.Advance(testGrace + time.Second)

	require.Eventually(t, func() bool {
		snap, ok := f.store.Get(code)
		return ok && len(snap.Players) == 1
	}, 2*time.Second, 10*time.Millisecond, "player not removed after grace expiry")

	removals := f.notifier.all()
	require.Len(t, removals, 1)
	assert.Equal(t, bobID, removals[0].res.Removed.ID)
	assert.Equal(t, ReasonGraceExpired, removals[0].reason)
	assert.Equal(t, 0, f.rec.PendingCount())
}

func TestReconciler_ExpiryTransfersOwnership(t *testing.T) {
	f := newFixture(t, 8)
	code, _, bobID := f.twoPlayerRoom(t)
	f.setState(t, code, room.StatePlaying)

	// Owner drops mid-game and never comes back.
	f.rec.OnDisconnect("conn-a")
	f.clock.Advance(testGrace + time.Second)

	require.Eventually(t, func() bool {
		snap, ok := f.store.Get(code)
		return ok && snap.OwnerID == bobID
	}, 2*time.Second, 10*time.Millisecond, "ownership did not transfer")

	removals := f.notifier.all()
	require.Len(t, removals, 1)
	assert.Equal(t, bobID, removals[0].res.NewOwnerID)
}

func TestReconciler_RejoinCancelsTimer(t *testing.T) {
	f := newFixture(t, 8)
	code, _, bobID := f.twoPlayerRoom(t)

	f.rec.OnDisconnect("conn-b")
	require.Equal(t, 1, f.rec.PendingCount())

	// Transport rebinds the new connection first, then cancels the timer.
	f.bind(t, code, bobID, "conn-b-2")
	f.rec.OnRejoin(code, bobID)
	assert.Equal(t, 0, f.rec.PendingCount())

	f.clock.Advance(testGrace * 2)

	assert.Never(t, func() bool {
		snap, ok := f.store.Get(code)
		return !ok || len(snap.Players) != 2
	}, 200*time.Millisecond, 20*time.Millisecond, "cancelled timer still removed the player")
	assert.Empty(t, f.notifier.all())
}

func TestReconciler_LateRejoinDefusesFire(t *testing.T) {
	// Even if the timer fires, a player who already rebound survives the
	// fire-time re-validation.
	f := newFixture(t, 8)
	code, _, bobID := f.twoPlayerRoom(t)

	f.rec.OnDisconnect("conn-b")
	f.clock.Advance(testGrace + time.Second)
	// Rebind after the timer has fired but possibly before expiry ran.
	f.bind(t, code, bobID, "conn-b-2")
	f.rec.OnRejoin(code, bobID)

	assert.Never(t, func() bool {
		snap, ok := f.store.Get(code)
		return !ok || len(snap.Players) != 2
	}, 200*time.Millisecond, 20*time.Millisecond)
}

func TestReconciler_AssigningRemovesImmediately(t *testing.T) {
	f := newFixture(t, 8)
	code, aliceID, bobID := f.twoPlayerRoom(t)
	require.NoError(t, f.store.Mutate(code, func(r *room.Room) error {
		return r.StartCustom(map[string]string{aliceID: bobID, bobID: aliceID})
	}))

	f.rec.OnDisconnect("conn-b")

	assert.Equal(t, 0, f.rec.PendingCount(), "no grace timer during assigning")
	snap, ok := f.store.Get(code)
	require.True(t, ok)
	assert.Len(t, snap.Players, 1)
	assert.Equal(t, room.StateFinished, snap.State, "interrupted assignment force-finishes")

	removals := f.notifier.all()
	require.Len(t, removals, 1)
	assert.Equal(t, ReasonLeftDuringAssignment, removals[0].reason)
	assert.True(t, removals[0].res.ForcedFinish)
}

func TestReconciler_FinishedRemovesImmediately(t *testing.T) {
	f := newFixture(t, 8)
	code, _, _ := f.twoPlayerRoom(t)
	f.setState(t, code, room.StateFinished)

	f.rec.OnDisconnect("conn-b")

	assert.Equal(t, 0, f.rec.PendingCount())
	snap, ok := f.store.Get(code)
	require.True(t, ok)
	assert.Len(t, snap.Players, 1)

	removals := f.notifier.all()
	require.Len(t, removals, 1)
	assert.Equal(t, ReasonRoundOver, removals[0].reason)
}

func TestReconciler_LastPlayerExpiryDeletesRoom(t *testing.T) {
	f := newFixture(t, 8)
	snap, ownerID, err := f.store.Create("Alice", room.ModeCustom, "")
	require.NoError(t, err)
	f.bind(t, snap.Code, ownerID, "conn-a")

	f.rec.OnDisconnect("conn-a")
	f.clock.Advance(testGrace + time.Second)

	require.Eventually(t, func() bool {
		_, ok := f.store.Get(snap.Code)
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "room with no players left must be deleted")

	removals := f.notifier.all()
	require.Len(t, removals, 1)
	assert.True(t, removals[0].res.Deleted)
}

func TestReconciler_CapacityEvictsOldest(t *testing.T) {
	f := newFixture(t, 2)
	snap, ownerID, err := f.store.Create("Alice", room.ModeCustom, "")
	require.NoError(t, err)
	code := snap.Code
	f.bind(t, code, ownerID, "conn-a")

	ids := make(map[string]string)
	for _, name := range []string{"Bob", "Carol", "Dave"} {
		_, p, err := f.store.AddPlayer(code, name)
		require.NoError(t, err)
		ids[name] = p.ID
		f.bind(t, code, p.ID, "conn-"+name)
	}

	f.rec.OnDisconnect("conn-Bob")
	f.rec.OnDisconnect("conn-Carol")
	require.Equal(t, 2, f.rec.PendingCount())

	// Third entry evicts Bob's, the oldest.
	f.rec.OnDisconnect("conn-Dave")
	assert.Equal(t, 2, f.rec.PendingCount())

	f.clock.Advance(testGrace + time.Second)

	// Carol and Dave expire normally; Bob's evicted entry never fires, so
	// he stays detached until something else cleans him up.
	require.Eventually(t, func() bool {
		snap, ok := f.store.Get(code)
		return ok && len(snap.Players) == 2
	}, 2*time.Second, 10*time.Millisecond)

	snap2, ok := f.store.Get(code)
	require.True(t, ok)
	remaining := make(map[string]bool)
	for _, p := range snap2.Players {
		remaining[p.ID] = true
	}
	assert.True(t, remaining[ownerID])
	assert.True(t, remaining[ids["Bob"]])
}

func TestReconciler_RejoinReleasesTimerGoroutine(t *testing.T) {
	f := newFixture(t, 8)
	code, _, bobID := f.twoPlayerRoom(t)

	before := runtime.NumGoroutine()

	// A player flapping between disconnect and rejoin must not accumulate
	// parked timer goroutines; cancellation has to release them.
	for i := 0; i < 200; i++ {
		connID := fmt.Sprintf("conn-cycle-%d", i)
		f.bind(t, code, bobID, connID)
		f.rec.OnDisconnect(connID)
		f.bind(t, code, bobID, connID+"-next")
		f.rec.OnRejoin(code, bobID)
	}
	require.Equal(t, 0, f.rec.PendingCount())

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+10
	}, 2*time.Second, 20*time.Millisecond, "cancelled grace timers left goroutines behind")
}

func TestReconciler_EvictionReleasesTimerGoroutine(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := room.NewStore(clock, 128)
	notifier := &recordingNotifier{}
	rec := New(store, notifier, clock, testGrace, 1)
	t.Cleanup(rec.Shutdown)

	snap, ownerID, err := store.Create("Alice", room.ModeCustom, "")
	require.NoError(t, err)
	code := snap.Code
	f := &fixture{store: store, clock: clock, notifier: notifier, rec: rec}
	f.bind(t, code, ownerID, "conn-a")

	const guests = 100
	for i := 0; i < guests; i++ {
		_, p, err := store.AddPlayer(code, fmt.Sprintf("Guest%d", i))
		require.NoError(t, err)
		f.bind(t, code, p.ID, fmt.Sprintf("conn-g%d", i))
	}

	before := runtime.NumGoroutine()
	for i := 0; i < guests; i++ {
		rec.OnDisconnect(fmt.Sprintf("conn-g%d", i))
	}
	require.Equal(t, 1, rec.PendingCount())

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+10
	}, 2*time.Second, 20*time.Millisecond, "evicted grace entries left goroutines behind")
}

func TestReconciler_CapacityFloor(t *testing.T) {
	// Non-positive capacity is treated as one pending entry, not zero.
	f := newFixture(t, 0)
	f.twoPlayerRoom(t)

	f.rec.OnDisconnect("conn-a")
	assert.Equal(t, 1, f.rec.PendingCount())

	f.rec.OnDisconnect("conn-b")
	assert.Equal(t, 1, f.rec.PendingCount(), "second entry evicts the first instead of growing")
}

func TestReconciler_Shutdown(t *testing.T) {
	f := newFixture(t, 8)
	f.twoPlayerRoom(t)

	f.rec.OnDisconnect("conn-b")
	require.Equal(t, 1, f.rec.PendingCount())

	f.rec.Shutdown()
	assert.Equal(t, 0, f.rec.PendingCount())
	// Idempotent.
	f.rec.Shutdown()
}
