package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customRoom(n int) *Room {
	r := &Room{
		Code:   "TESTAB",
		Mode:   ModeCustom,
		Custom: &CustomGame{},
		State:  StateWaiting,
		Round:  1,
	}
	for i := 0; i < n; i++ {
		p := &Player{ID: string(rune('a' + i)), Name: "p" + string(rune('a'+i))}
		r.Players = append(r.Players, p)
	}
	if n > 0 {
		r.OwnerID = r.Players[0].ID
	}
	return r
}

func presetRoom(n int) *Room {
	r := customRoom(n)
	r.Mode = ModePreset
	r.Custom = nil
	r.Preset = &PresetGame{Category: "animals"}
	return r
}

func ringPairing(r *Room) map[string]string {
	ids := r.PlayerIDs()
	p := make(map[string]string, len(ids))
	for i, id := range ids {
		p[id] = ids[(i+1)%len(ids)]
	}
	return p
}

func TestRoom_StartCustom(t *testing.T) {
	r := customRoom(3)
	require.NoError(t, r.StartCustom(ringPairing(r)))
	assert.Equal(t, StateAssigning, r.State)
	assert.NotNil(t, r.Custom.Pairing)
}

func TestRoom_StartCustom_Preconditions(t *testing.T) {
	t.Run("wrong mode", func(t *testing.T) {
		r := presetRoom(3)
		assert.ErrorIs(t, r.StartCustom(nil), ErrInvalidMode)
		assert.Equal(t, StateWaiting, r.State)
	})
	t.Run("wrong state", func(t *testing.T) {
		r := customRoom(3)
		r.State = StatePlaying
		assert.ErrorIs(t, r.StartCustom(ringPairing(r)), ErrWrongState)
	})
	t.Run("too few players", func(t *testing.T) {
		r := customRoom(1)
		assert.ErrorIs(t, r.StartCustom(nil), ErrInsufficientPlayers)
		assert.Equal(t, StateWaiting, r.State)
	})
}

func TestRoom_StartPreset(t *testing.T) {
	r := presetRoom(3)
	require.NoError(t, r.StartPreset([]string{"cat", "dog", "owl", "fox"}))
	assert.Equal(t, StatePlaying, r.State, "preset mode skips the assigning phase")
	assert.Len(t, r.Assignments, 3)
}

func TestRoom_StartPreset_Preconditions(t *testing.T) {
	t.Run("wrong mode", func(t *testing.T) {
		r := customRoom(3)
		assert.ErrorIs(t, r.StartPreset([]string{"a", "b", "c"}), ErrInvalidMode)
	})
	t.Run("wrong state", func(t *testing.T) {
		r := presetRoom(3)
		r.State = StateFinished
		assert.ErrorIs(t, r.StartPreset([]string{"a", "b", "c"}), ErrWrongState)
	})
	t.Run("too few players", func(t *testing.T) {
		r := presetRoom(1)
		assert.ErrorIs(t, r.StartPreset([]string{"a", "b"}), ErrInsufficientPlayers)
	})
	t.Run("pool smaller than roster", func(t *testing.T) {
		r := presetRoom(3)
		assert.ErrorIs(t, r.StartPreset([]string{"a", "b"}), ErrInsufficientItems)
		assert.Equal(t, StateWaiting, r.State, "failed start must not advance state")
		assert.Empty(t, r.Assignments)
	})
}

func TestRoom_RecordAssignment_AutoTransition(t *testing.T) {
	r := customRoom(3)
	require.NoError(t, r.StartCustom(ringPairing(r)))

	started, err := r.RecordAssignment("a", "b", "Sherlock Holmes")
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, StateAssigning, r.State)

	started, err = r.RecordAssignment("b", "c", "Hermione Granger")
	require.NoError(t, err)
	assert.False(t, started)

	// Final assignment flips the room to playing without any owner action.
	started, err = r.RecordAssignment("c", "a", "Gandalf")
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, StatePlaying, r.State)

	a, ok := r.AssignmentFor("b")
	require.True(t, ok)
	assert.Equal(t, "Sherlock Holmes", a.Item)
	assert.Equal(t, "a", a.AssignerID)
}

func TestRoom_RecordAssignment_WrongState(t *testing.T) {
	r := customRoom(3)
	_, err := r.RecordAssignment("a", "b", "x")
	assert.ErrorIs(t, err, ErrWrongState)
}

func TestRoom_RecordAssignment_NotAllowed(t *testing.T) {
	r := customRoom(3)
	require.NoError(t, r.StartCustom(ringPairing(r)))

	_, err := r.RecordAssignment("a", "c", "x")
	assert.ErrorIs(t, err, ErrAssignmentNotAllowed, "must follow the pairing")
	assert.Empty(t, r.Assignments, "rejected assignment leaves no trace")
}

func TestRoom_EndRound(t *testing.T) {
	r := customRoom(2)
	r.State = StatePlaying
	require.NoError(t, r.EndRound())
	assert.Equal(t, StateFinished, r.State)

	r.State = StateWaiting
	assert.ErrorIs(t, r.EndRound(), ErrWrongState)
}

func TestRoom_StartNextRound(t *testing.T) {
	r := customRoom(3)
	require.NoError(t, r.StartCustom(ringPairing(r)))
	_, err := r.RecordAssignment("a", "b", "x")
	require.NoError(t, err)
	r.State = StateFinished

	require.NoError(t, r.StartNextRound())
	assert.Equal(t, StateWaiting, r.State)
	assert.Equal(t, 2, r.Round)
	assert.Empty(t, r.Assignments)
	assert.Nil(t, r.Custom.Pairing, "stale pairing must not leak into the next round")
}

func TestRoom_StartNextRound_WrongState(t *testing.T) {
	r := customRoom(2)
	r.State = StatePlaying
	assert.ErrorIs(t, r.StartNextRound(), ErrWrongState)
	assert.Equal(t, 1, r.Round)
}

func TestRoom_ForceFinish(t *testing.T) {
	r := customRoom(3)
	require.NoError(t, r.StartCustom(ringPairing(r)))
	r.ForceFinish()
	assert.Equal(t, StateFinished, r.State)
}
