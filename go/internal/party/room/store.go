package room

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// codeLength gives ~2x10^9 possible codes, plenty for the live-room count
// this server will ever hold.
const codeLength = 6

// Store owns every live room. A single mutex serializes the room table and
// all room mutation sequences; rooms are small, short-lived, and low-QPS,
// so one lock is preferable to per-room locking with its interleaving
// hazards. Every compound sequence (remove + ownership transfer + possible
// deletion, assignment + auto-transition, timer-fire re-validation) runs
// inside one critical section.
type Store struct {
	mu         sync.Mutex
	rooms      map[string]*Room
	clock      clockwork.Clock
	maxPlayers int
	rng        *rand.Rand
}

// NewStore creates an empty store. maxPlayers caps room membership.
func NewStore(clock clockwork.Clock, maxPlayers int) *Store {
	return &Store{
		rooms:      make(map[string]*Room),
		clock:      clock,
		maxPlayers: maxPlayers,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RemoveResult describes what a player removal did to the room.
type RemoveResult struct {
	Room          *Snapshot // nil when the room was deleted
	Removed       Player
	NewOwnerID    string // set when ownership transferred
	Deleted       bool
	ForcedFinish  bool // removal happened during assigning
	RemovedIsLast bool
}

// Create makes a new room with a fresh unique code and the creator as sole
// member and owner. Preset rooms must carry a category; custom rooms must
// not.
func (s *Store) Create(ownerName string, mode GameMode, category string) (Snapshot, string, error) {
	name := strings.TrimSpace(ownerName)
	if name == "" {
		return Snapshot{}, "", ErrInvalidName
	}

	switch mode {
	case ModePreset:
		if category == "" {
			return Snapshot{}, "", ErrMissingCategory
		}
	case ModeCustom:
		if category != "" {
			return Snapshot{}, "", fmt.Errorf("%w: custom mode takes no category", ErrInvalidMode)
		}
	default:
		return Snapshot{}, "", fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	owner := &Player{
		ID:       uuid.New().String(),
		Name:     name,
		JoinedAt: now,
	}

	r := &Room{
		Code:       s.newCodeLocked(),
		OwnerID:    owner.ID,
		Players:    []*Player{owner},
		Mode:       mode,
		State:      StateWaiting,
		Round:      1,
		CreatedAt:  now,
		LastActive: now,
	}
	switch mode {
	case ModePreset:
		r.Preset = &PresetGame{Category: category}
	case ModeCustom:
		r.Custom = &CustomGame{}
	}

	s.rooms[r.Code] = r

	log.Info().
		Str("room_code", r.Code).
		Str("owner_id", owner.ID).
		Str("mode", string(mode)).
		Msg("room created")

	return r.SnapshotOf(), owner.ID, nil
}

// Get returns a snapshot of the room, if it exists.
func (s *Store) Get(code string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return Snapshot{}, false
	}
	return r.SnapshotOf(), true
}

// AddPlayer joins a new player to the room.
func (s *Store) AddPlayer(code, name string) (Snapshot, Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return Snapshot{}, Player{}, ErrRoomNotFound
	}
	if len(r.Players) >= s.maxPlayers {
		return Snapshot{}, Player{}, ErrRoomFull
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Snapshot{}, Player{}, ErrInvalidName
	}
	for _, p := range r.Players {
		if p.Name == trimmed {
			return Snapshot{}, Player{}, ErrPlayerAlreadyPresent
		}
	}

	now := s.clock.Now()
	p := &Player{
		ID:       uuid.New().String(),
		Name:     trimmed,
		JoinedAt: now,
	}
	r.Players = append(r.Players, p)
	r.LastActive = now

	return r.SnapshotOf(), *p, nil
}

// RemovePlayer removes a member and applies the cascading side effects in
// the same critical section: ownership transfers to the first remaining
// player in join order, a room left empty is deleted outright, and a
// removal mid-assigning force-finishes the round.
func (s *Store) RemovePlayer(code, playerID string) (RemoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removePlayerLocked(code, playerID)
}

func (s *Store) removePlayerLocked(code, playerID string) (RemoveResult, error) {
	r, ok := s.rooms[code]
	if !ok {
		return RemoveResult{}, ErrRoomNotFound
	}

	idx := -1
	for i, p := range r.Players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return RemoveResult{}, ErrPlayerNotFound
	}

	res := RemoveResult{Removed: *r.Players[idx]}
	wasOwner := r.IsOwner(playerID)
	wasAssigning := r.State == StateAssigning

	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	r.LastActive = s.clock.Now()

	if len(r.Players) == 0 {
		delete(s.rooms, code)
		res.Deleted = true
		res.RemovedIsLast = true
		log.Info().Str("room_code", code).Msg("room deleted, last player left")
		return res, nil
	}

	if wasOwner {
		r.OwnerID = r.Players[0].ID
		res.NewOwnerID = r.OwnerID
		log.Info().
			Str("room_code", code).
			Str("new_owner_id", r.OwnerID).
			Msg("ownership transferred")
	}

	if wasAssigning {
		r.ForceFinish()
		res.ForcedFinish = true
	}

	snap := r.SnapshotOf()
	res.Room = &snap
	return res, nil
}

// RemovePlayerIfDisconnected removes the player only when the room and
// player still exist and the player has no live connection. Check and
// removal share one critical section, which is what makes a grace-timer
// fire racing a rejoin harmless: whichever runs second sees the other's
// completed effect. The removed flag reports whether a removal happened;
// a vanished room or player is a clean no-op, not an error.
func (s *Store) RemovePlayerIfDisconnected(code, playerID string) (RemoveResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return RemoveResult{}, false, nil
	}
	p, ok := r.Player(playerID)
	if !ok {
		return RemoveResult{}, false, nil
	}
	if p.Connected() {
		return RemoveResult{}, false, nil
	}

	res, err := s.removePlayerLocked(code, playerID)
	if err != nil {
		return RemoveResult{}, false, err
	}
	return res, true, nil
}

// DisconnectAction says what DisconnectPlayer did.
type DisconnectAction int

const (
	// DisconnectNone: room or player no longer exists.
	DisconnectNone DisconnectAction = iota
	// DisconnectDetached: handle cleared, player kept; caller should arm a
	// grace timer.
	DisconnectDetached
	// DisconnectRemoved: player removed immediately.
	DisconnectRemoved
)

// DisconnectOutcome reports the action taken and, for removals, the
// cascading result.
type DisconnectOutcome struct {
	Action DisconnectAction
	State  GameState
	Result RemoveResult
}

// DisconnectPlayer applies the transport-disconnect policy in one critical
// section so the state read and the action cannot interleave with other
// room operations. During assigning the player is removed immediately and
// the round force-finishes (an assignment round cannot tolerate an absent
// participant); in finished the player is removed with nothing lost; in
// waiting or playing the connection handle is cleared and the player kept,
// leaving the caller to arm a grace timer.
func (s *Store) DisconnectPlayer(code, playerID string) (DisconnectOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return DisconnectOutcome{Action: DisconnectNone}, nil
	}
	p, ok := r.Player(playerID)
	if !ok {
		return DisconnectOutcome{Action: DisconnectNone}, nil
	}

	state := r.State
	switch state {
	case StateWaiting, StatePlaying:
		p.ConnID = ""
		r.LastActive = s.clock.Now()
		return DisconnectOutcome{Action: DisconnectDetached, State: state}, nil
	default: // assigning or finished: no grace period
		res, err := s.removePlayerLocked(code, playerID)
		if err != nil {
			return DisconnectOutcome{}, err
		}
		return DisconnectOutcome{Action: DisconnectRemoved, State: state, Result: res}, nil
	}
}

// Mutate runs fn on the room under the store lock, so fn's whole
// read-modify-write sequence is atomic with respect to every other room
// operation. The room's last-active time is touched when fn succeeds.
func (s *Store) Mutate(code string, fn func(*Room) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	if err := fn(r); err != nil {
		return err
	}
	r.LastActive = s.clock.Now()
	return nil
}

// Delete removes the room outright. Returns false if it was not present.
func (s *Store) Delete(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[code]; !ok {
		return false
	}
	delete(s.rooms, code)
	return true
}

// ListAll snapshots every live room.
func (s *Store) ListAll() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Snapshot, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r.SnapshotOf())
	}
	return out
}

// Count returns the number of live rooms.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// LastActive returns the room's last mutation time, for the idle sweep.
func (s *Store) LastActive(code string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return time.Time{}, false
	}
	return r.LastActive, true
}

// FindByConn locates the player currently bound to the given connection.
// Room counts are small, so a scan beats maintaining a reverse index that
// every membership change would have to keep consistent.
func (s *Store) FindByConn(connID string) (code string, playerID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rooms {
		for _, p := range r.Players {
			if p.ConnID == connID {
				return r.Code, p.ID, true
			}
		}
	}
	return "", "", false
}

// newCodeLocked generates a code not currently in use. Caller holds s.mu.
func (s *Store) newCodeLocked() string {
	for {
		b := make([]byte, codeLength)
		for i := range b {
			b[i] = codeAlphabet[s.rng.Intn(len(codeAlphabet))]
		}
		code := string(b)
		if _, taken := s.rooms[code]; !taken {
			return code
		}
	}
}
