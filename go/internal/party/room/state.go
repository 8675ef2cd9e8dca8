package room

// State machine transitions. Owner gating for the owner-only actions
// happens in the action layer; these methods enforce the state, mode, and
// player-count preconditions and apply the transition's side effects.
// Nothing is mutated when a precondition fails.

// StartCustom moves a custom-mode room from waiting to assigning with the
// given pairing for the round. The pairing must already be validated.
func (r *Room) StartCustom(pairing map[string]string) error {
	if r.Mode != ModeCustom {
		return ErrInvalidMode
	}
	if r.State != StateWaiting {
		return ErrWrongState
	}
	if len(r.Players) < 2 {
		return ErrInsufficientPlayers
	}

	r.Custom.Pairing = pairing
	r.State = StateAssigning
	return nil
}

// StartPreset moves a preset-mode room from waiting straight to playing,
// distributing items from the pool in the same step. There is no partial
// assignment phase in preset mode.
func (r *Room) StartPreset(pool []string) error {
	if r.Mode != ModePreset {
		return ErrInvalidMode
	}
	if r.State != StateWaiting {
		return ErrWrongState
	}
	if len(r.Players) < 2 {
		return ErrInsufficientPlayers
	}

	assignments, err := presetAssignments(r.Players, pool)
	if err != nil {
		return err
	}

	r.Assignments = assignments
	r.State = StatePlaying
	return nil
}

// RecordAssignment stores one player-authored assignment during the
// assigning phase. When it completes the set, the room transitions to
// playing automatically and started is true; that transition is not
// owner-gated.
func (r *Room) RecordAssignment(assignerID, targetID, item string) (started bool, err error) {
	if r.State != StateAssigning {
		return false, ErrWrongState
	}
	if !r.CanAssign(assignerID, targetID) {
		return false, ErrAssignmentNotAllowed
	}

	r.Assignments = append(r.Assignments, Assignment{
		TargetID:   targetID,
		Item:       item,
		AssignerID: assignerID,
	})

	if r.AllAssigned() {
		r.State = StatePlaying
		return true, nil
	}
	return false, nil
}

// EndRound moves playing to finished. Any member may trigger it.
func (r *Room) EndRound() error {
	if r.State != StatePlaying {
		return ErrWrongState
	}
	r.State = StateFinished
	return nil
}

// StartNextRound resets a finished room back to waiting: the round counter
// increments, assignments are cleared, and any pairing is discarded so the
// next round computes a fresh one.
func (r *Room) StartNextRound() error {
	if r.State != StateFinished {
		return ErrWrongState
	}

	r.Round++
	r.Assignments = nil
	if r.Custom != nil {
		r.Custom.Pairing = nil
	}
	r.State = StateWaiting
	return nil
}

// ForceFinish ends the round immediately regardless of state. Used when a
// player drops out of an assigning round, which cannot be salvaged.
func (r *Room) ForceFinish() {
	r.State = StateFinished
}
