package pairing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_TooFewPlayers(t *testing.T) {
	_, err := Generate(nil)
	assert.ErrorIs(t, err, ErrInsufficientPlayers)

	_, err = Generate([]string{"solo"})
	assert.ErrorIs(t, err, ErrInsufficientPlayers)
}

func TestGenerate_TwoPlayersSwap(t *testing.T) {
	p, err := Generate([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "b", "b": "a"}, p)
}

func TestGenerate_PermutationWithoutFixedPoints(t *testing.T) {
	// Re-generate many times so shuffle randomness is exercised; every
	// result must be a fixed-point-free permutation.
	for _, n := range []int{2, 3, 4, 5, 8, 17} {
		t.Run(fmt.Sprintf("%d players", n), func(t *testing.T) {
			ids := make([]string, n)
			for i := range ids {
				ids[i] = fmt.Sprintf("player-%d", i)
			}

			for run := 0; run < 50; run++ {
				p, err := Generate(ids)
				require.NoError(t, err)
				require.Len(t, p, n)

				inbound := make(map[string]int)
				for from, to := range p {
					assert.NotEqual(t, from, to, "player paired with itself")
					inbound[to]++
				}
				for _, id := range ids {
					assert.Equal(t, 1, inbound[id], "player %s inbound count", id)
				}

				assert.NoError(t, Validate(p, ids), "generated pairing must validate")
			}
		})
	}
}

func TestValidate_Rejections(t *testing.T) {
	ids := []string{"a", "b", "c"}

	tests := []struct {
		name    string
		pairing map[string]string
	}{
		{"missing entry", map[string]string{"a": "b", "b": "a"}},
		{"self pairing", map[string]string{"a": "a", "b": "c", "c": "b"}},
		{"unknown source", map[string]string{"a": "b", "b": "c", "x": "a"}},
		{"unknown target", map[string]string{"a": "b", "b": "x", "c": "a"}},
		{"double inbound", map[string]string{"a": "c", "b": "c", "c": "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Validate(tt.pairing, ids))
		})
	}
}

func TestValidate_AcceptsCycle(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	assert.NoError(t, Validate(map[string]string{
		"a": "b", "b": "c", "c": "d", "d": "a",
	}, ids))

	// A union of two 2-cycles is also a valid cycle cover.
	assert.NoError(t, Validate(map[string]string{
		"a": "b", "b": "a", "c": "d", "d": "c",
	}, ids))
}
