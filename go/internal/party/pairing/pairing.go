package pairing

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrInsufficientPlayers is returned when fewer than two players are available
var ErrInsufficientPlayers = errors.New("insufficient players for pairing")

// Generate produces a random assignment cycle over the given player IDs:
// every player is mapped to exactly one distinct other player, and every
// player is the target of exactly one other player.
//
// For two players the result is the mutual swap. For three or more the IDs
// are shuffled and each maps to its successor in shuffled order, with the
// last wrapping to the first. A nonzero rotation of a shuffled order can
// never map an ID to itself, so the result always satisfies Validate.
func Generate(ids []string) (map[string]string, error) {
	if len(ids) < 2 {
		return nil, ErrInsufficientPlayers
	}

	if len(ids) == 2 {
		return map[string]string{
			ids[0]: ids[1],
			ids[1]: ids[0],
		}, nil
	}

	shuffled := make([]string, len(ids))
	copy(shuffled, ids)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	result := make(map[string]string, len(shuffled))
	for i, id := range shuffled {
		result[id] = shuffled[(i+1)%len(shuffled)]
	}
	return result, nil
}

// Validate re-checks a pairing against the known player IDs: every ID has
// exactly one outgoing entry, no ID pairs with itself, every target is a
// known ID, and every ID is targeted exactly once. Callers accepting an
// externally supplied pairing must run this before storing it.
func Validate(p map[string]string, ids []string) error {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	if len(p) != len(ids) {
		return fmt.Errorf("pairing has %d entries, expected %d", len(p), len(ids))
	}

	inbound := make(map[string]int, len(ids))
	for from, to := range p {
		if !known[from] {
			return fmt.Errorf("pairing contains unknown player %s", from)
		}
		if !known[to] {
			return fmt.Errorf("pairing targets unknown player %s", to)
		}
		if from == to {
			return fmt.Errorf("player %s is paired with itself", from)
		}
		inbound[to]++
	}

	for _, id := range ids {
		if inbound[id] != 1 {
			return fmt.Errorf("player %s is targeted %d times, expected once", id, inbound[id])
		}
	}
	return nil
}
