// Package reconciler tracks in-flight disconnects and decides, per the
// room's state, whether a dropped player is removed immediately or given a
// grace window to rejoin. Timers are cancellable and idempotent: a fire
// racing a rejoin is defused by re-validating room and player existence
// inside the store's critical section at fire time.
package reconciler

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/partyroom/go/internal/party/room"
)

// Notifier receives the removals the reconciler performs so the transport
// layer can broadcast them.
type Notifier interface {
	NotifyPlayerRemoved(res room.RemoveResult, state room.GameState, reason string)
}

// Removal reasons surfaced to Notifier.
const (
	ReasonLeftDuringAssignment = "left_during_assignment"
	ReasonRoundOver            = "disconnected_after_round"
	ReasonGraceExpired         = "grace_period_expired"
)

type entry struct {
	connID   string
	roomCode string
	playerID string
	timer    clockwork.Timer
	armedAt  time.Time
	done     chan struct{} // closed when the entry leaves the table
}

// Reconciler arms one grace timer per dropped connection, bounded by a
// capacity ceiling. When an insert would exceed the ceiling the oldest
// entry is evicted and its timer cancelled: a bounded-memory approximation
// under pathological connection churn, logged rather than surfaced.
type Reconciler struct {
	store    *room.Store
	notifier Notifier
	clock    clockwork.Clock
	grace    time.Duration
	capacity int

	mu      sync.Mutex
	pending map[string]*entry
	order   []string // connIDs oldest first

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a Reconciler. grace is the rejoin window; capacity bounds
// the pending-timer table and is floored at one.
func New(store *room.Store, notifier Notifier, clock clockwork.Clock, grace time.Duration, capacity int) *Reconciler {
	if capacity < 1 {
		capacity = 1
	}
	return &Reconciler{
		store:    store,
		notifier: notifier,
		clock:    clock,
		grace:    grace,
		capacity: capacity,
		pending:  make(map[string]*entry),
		stopCh:   make(chan struct{}),
	}
}

// OnDisconnect handles a transport-level drop of the given connection. If
// the connection was bound to a player, the room-state policy is applied
// atomically in the store; a kept player gets a grace timer keyed by the
// dropped connection's identity.
func (r *Reconciler) OnDisconnect(connID string) {
	code, playerID, ok := r.store.FindByConn(connID)
	if !ok {
		return
	}

	outcome, err := r.store.DisconnectPlayer(code, playerID)
	if err != nil {
		log.Error().Err(err).
			Str("room_code", code).
			Str("player_id", playerID).
			Msg("disconnect handling failed")
		return
	}

	switch outcome.Action {
	case room.DisconnectNone:
		return

	case room.DisconnectDetached:
		r.arm(connID, code, playerID)
		log.Info().
			Str("room_code", code).
			Str("player_id", playerID).
			Str("conn_id", connID).
			Dur("grace", r.grace).
			Msg("grace period armed")

	case room.DisconnectRemoved:
		reason := ReasonRoundOver
		if outcome.State == room.StateAssigning {
			reason = ReasonLeftDuringAssignment
		}
		log.Info().
			Str("room_code", code).
			Str("player_id", playerID).
			Str("reason", reason).
			Msg("player removed on disconnect")
		r.notifier.NotifyPlayerRemoved(outcome.Result, outcome.State, reason)
	}
}

// OnRejoin cancels any grace timer pending for the given player. The
// caller rebinds the connection handle before calling this, so even a
// timer that already fired no-ops at its re-validation.
func (r *Reconciler) OnRejoin(roomCode, playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for connID, e := range r.pending {
		if e.roomCode == roomCode && e.playerID == playerID {
			r.dropLocked(connID)
			log.Info().
				Str("room_code", roomCode).
				Str("player_id", playerID).
				Str("conn_id", connID).
				Msg("grace timer cancelled by rejoin")
			return
		}
	}
}

// PendingCount returns the number of armed grace timers.
func (r *Reconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Shutdown cancels every pending timer and stops their goroutines.
func (r *Reconciler) Shutdown() {
	r.stopOnce.Do(func() { close(r.stopCh) })

	r.mu.Lock()
	defer r.mu.Unlock()
	for connID := range r.pending {
		r.dropLocked(connID)
	}
}

func (r *Reconciler) arm(connID, roomCode, playerID string) {
	r.mu.Lock()

	for len(r.pending) >= r.capacity && len(r.order) > 0 {
		oldest := r.order[0]
		if e, ok := r.pending[oldest]; ok {
			log.Warn().
				Str("room_code", e.roomCode).
				Str("player_id", e.playerID).
				Str("conn_id", oldest).
				Msg("pending-timer table full, evicting oldest grace entry")
		}
		r.dropLocked(oldest)
	}

	timer := r.clock.NewTimer(r.grace)
	e := &entry{
		connID:   connID,
		roomCode: roomCode,
		playerID: playerID,
		timer:    timer,
		armedAt:  r.clock.Now(),
		done:     make(chan struct{}),
	}
	r.pending[connID] = e
	r.order = append(r.order, connID)
	r.mu.Unlock()

	go func() {
		select {
		case <-timer.Chan():
			r.expire(connID)
		case <-e.done:
			stopAndDrainTimer(timer)
		case <-r.stopCh:
			stopAndDrainTimer(timer)
		}
	}()
}

// expire runs when a grace timer fires. The entry is always discarded;
// the removal itself re-validates room and player existence at fire time
// inside the store, so an entry whose player already rejoined, left, or
// lost their room is a no-op.
func (r *Reconciler) expire(connID string) {
	r.mu.Lock()
	e, ok := r.pending[connID]
	if !ok {
		// Cancelled after the timer fired but before we got here.
		r.mu.Unlock()
		return
	}
	r.dropLocked(connID)
	r.mu.Unlock()

	res, removed, err := r.store.RemovePlayerIfDisconnected(e.roomCode, e.playerID)
	if err != nil {
		log.Error().Err(err).
			Str("room_code", e.roomCode).
			Str("player_id", e.playerID).
			Msg("grace expiry removal failed")
		return
	}
	if !removed {
		log.Debug().
			Str("room_code", e.roomCode).
			Str("player_id", e.playerID).
			Msg("grace expired but player already rebound or gone")
		return
	}

	log.Info().
		Str("room_code", e.roomCode).
		Str("player_id", e.playerID).
		Msg("grace period expired, player removed")

	state := room.StateWaiting
	if res.Room != nil {
		state = res.Room.State
	}
	r.notifier.NotifyPlayerRemoved(res, state, ReasonGraceExpired)
}

// dropLocked removes the entry from the table and order list, releasing
// its waiting goroutine. Caller holds r.mu.
func (r *Reconciler) dropLocked(connID string) {
	if e, ok := r.pending[connID]; ok {
		close(e.done)
		delete(r.pending, connID)
	}
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel so the
// waiting goroutine cannot leak, following the time.Timer.Stop pattern.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
