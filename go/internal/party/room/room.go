// Package room owns the authoritative in-memory state of party-game
// sessions: the data model, the per-round state machine, the item
// assignment rules, per-viewer projections, and the store that serializes
// all mutations.
package room

import "time"

// GameMode selects how characters are handed out for a round.
type GameMode string

const (
	// ModePreset draws characters at random from a category pool.
	ModePreset GameMode = "preset"
	// ModeCustom has every player write a character for their paired target.
	ModeCustom GameMode = "custom"
)

// GameState is the per-round lifecycle of a room.
//
//	waiting → assigning → playing → finished
//	waiting → playing (preset mode skips the assigning phase)
//	finished → waiting (next round)
type GameState string

const (
	StateWaiting   GameState = "waiting"
	StateAssigning GameState = "assigning"
	StatePlaying   GameState = "playing"
	StateFinished  GameState = "finished"
)

// Player is one human in a room. The ID is stable across reconnects;
// ConnID tracks the live transport connection and is empty while the
// player is detached.
type Player struct {
	ID       string
	Name     string
	ConnID   string
	JoinedAt time.Time
}

// Connected reports whether the player has a live connection bound.
func (p *Player) Connected() bool {
	return p.ConnID != ""
}

// Assignment records that a target player has received a character.
// AssignerID is empty in preset mode.
type Assignment struct {
	TargetID   string
	Item       string
	AssignerID string
}

// PresetGame carries the fields that only exist in preset mode.
type PresetGame struct {
	Category string
}

// CustomGame carries the fields that only exist in custom mode. Pairing
// maps each player to the one other player they must assign a character
// to; it is computed when the round starts and nil outside a round.
type CustomGame struct {
	Pairing map[string]string
}

// Room is one game session. Exactly one of Preset or Custom is non-nil,
// matching Mode, so mode-specific state cannot exist for the wrong mode.
// Rooms are only ever touched through the Store, which serializes every
// mutation sequence; the struct itself carries no lock.
type Room struct {
	Code        string
	OwnerID     string
	Players     []*Player
	Mode        GameMode
	Preset      *PresetGame
	Custom      *CustomGame
	State       GameState
	Assignments []Assignment
	Round       int
	CreatedAt   time.Time
	LastActive  time.Time
}

// Player returns the member with the given ID.
func (r *Room) Player(id string) (*Player, bool) {
	for _, p := range r.Players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// PlayerIDs returns the member IDs in join order.
func (r *Room) PlayerIDs() []string {
	ids := make([]string, len(r.Players))
	for i, p := range r.Players {
		ids[i] = p.ID
	}
	return ids
}

// IsOwner reports whether the given player owns the room.
func (r *Room) IsOwner(id string) bool {
	return r.OwnerID == id
}

// ConnectedCount returns how many members have a live connection.
func (r *Room) ConnectedCount() int {
	n := 0
	for _, p := range r.Players {
		if p.Connected() {
			n++
		}
	}
	return n
}

// AssignmentFor returns the assignment targeting the given player.
func (r *Room) AssignmentFor(targetID string) (Assignment, bool) {
	for _, a := range r.Assignments {
		if a.TargetID == targetID {
			return a, true
		}
	}
	return Assignment{}, false
}

// AssignmentBy returns the assignment authored by the given player.
func (r *Room) AssignmentBy(assignerID string) (Assignment, bool) {
	for _, a := range r.Assignments {
		if a.AssignerID == assignerID {
			return a, true
		}
	}
	return Assignment{}, false
}

// PairingTarget returns who the given player must assign to, when a
// pairing is in effect.
func (r *Room) PairingTarget(from string) (string, bool) {
	if r.Custom == nil || r.Custom.Pairing == nil {
		return "", false
	}
	to, ok := r.Custom.Pairing[from]
	return to, ok
}
