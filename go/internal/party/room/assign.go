package room

import "math/rand"

// CanAssign reports whether assigner may give target a character right
// now. It is a pure predicate: callers record the assignment only after it
// returns true. It is false when the assigner targets themselves, either
// ID is unknown, a pairing is in effect and target is not the assigner's
// designated partner, the target already has a character, or the assigner
// has already authored one.
func (r *Room) CanAssign(assignerID, targetID string) bool {
	if assignerID == targetID {
		return false
	}
	if _, ok := r.Player(assignerID); !ok {
		return false
	}
	if _, ok := r.Player(targetID); !ok {
		return false
	}
	if paired, ok := r.PairingTarget(assignerID); ok && paired != targetID {
		return false
	}
	if _, taken := r.AssignmentFor(targetID); taken {
		return false
	}
	if _, authored := r.AssignmentBy(assignerID); authored {
		return false
	}
	return true
}

// AllAssigned reports whether every member has received a character.
func (r *Room) AllAssigned() bool {
	return len(r.Assignments) == len(r.Players)
}

// presetAssignments draws a distinct random item for every player: a
// player-count-sized subset of the pool, zipped against an independently
// shuffled player order. No two players share an item.
func presetAssignments(players []*Player, pool []string) ([]Assignment, error) {
	if len(pool) < len(players) {
		return nil, ErrInsufficientItems
	}

	items := make([]string, len(pool))
	copy(items, pool)
	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})

	order := make([]*Player, len(players))
	copy(order, players)
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	assignments := make([]Assignment, len(order))
	for i, p := range order {
		assignments[i] = Assignment{TargetID: p.ID, Item: items[i]}
	}
	return assignments, nil
}
