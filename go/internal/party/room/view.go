package room

import "time"

// PlayerView is the per-viewer projection of a room. The viewer's own
// character is never included: their entry carries Assigned=true but an
// empty Item, while everyone else's character is visible once assigned.
// This holds for every view ever produced, including the one resent right
// after a reconnection.
type PlayerView struct {
	RoomCode     string       `json:"room_code"`
	Mode         GameMode     `json:"mode"`
	State        GameState    `json:"state"`
	Round        int          `json:"round"`
	PlayerID     string       `json:"player_id"`
	AssignTarget string       `json:"assign_target,omitempty"`
	Players      []ViewPlayer `json:"players"`
}

// ViewPlayer is one roster entry inside a PlayerView.
type ViewPlayer struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Connected  bool   `json:"connected"`
	IsOwner    bool   `json:"is_owner"`
	IsYou      bool   `json:"is_you"`
	Assigned   bool   `json:"assigned"`
	Item       string `json:"item,omitempty"`
	AssignedBy string `json:"assigned_by,omitempty"`
}

// Snapshot is the room-wide representation used for broadcasts that go to
// every member identically. It carries who has been assigned but never the
// items themselves; items only travel inside personalized views.
type Snapshot struct {
	Code           string           `json:"code"`
	OwnerID        string           `json:"owner_id"`
	Mode           GameMode         `json:"mode"`
	PresetCategory string           `json:"preset_category,omitempty"`
	State          GameState        `json:"state"`
	Round          int              `json:"round"`
	CreatedAt      time.Time        `json:"created_at"`
	Players        []SnapshotPlayer `json:"players"`
	AssignedCount  int              `json:"assigned_count"`
}

// SnapshotPlayer is one roster entry inside a Snapshot.
type SnapshotPlayer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	IsOwner   bool   `json:"is_owner"`
	Assigned  bool   `json:"assigned"`
}

// ViewFor projects the room for one viewer.
func (r *Room) ViewFor(playerID string) (PlayerView, error) {
	if _, ok := r.Player(playerID); !ok {
		return PlayerView{}, ErrPlayerNotFound
	}

	view := PlayerView{
		RoomCode: r.Code,
		Mode:     r.Mode,
		State:    r.State,
		Round:    r.Round,
		PlayerID: playerID,
		Players:  make([]ViewPlayer, len(r.Players)),
	}

	if r.State == StateAssigning {
		if target, ok := r.PairingTarget(playerID); ok {
			view.AssignTarget = target
		}
	}

	for i, p := range r.Players {
		entry := ViewPlayer{
			ID:        p.ID,
			Name:      p.Name,
			Connected: p.Connected(),
			IsOwner:   r.IsOwner(p.ID),
			IsYou:     p.ID == playerID,
		}
		if a, ok := r.AssignmentFor(p.ID); ok {
			entry.Assigned = true
			entry.AssignedBy = a.AssignerID
			if p.ID != playerID {
				entry.Item = a.Item
			}
		}
		view.Players[i] = entry
	}

	return view, nil
}

// SnapshotOf returns the broadcast-safe representation of the room.
func (r *Room) SnapshotOf() Snapshot {
	snap := Snapshot{
		Code:          r.Code,
		OwnerID:       r.OwnerID,
		Mode:          r.Mode,
		State:         r.State,
		Round:         r.Round,
		CreatedAt:     r.CreatedAt,
		Players:       make([]SnapshotPlayer, len(r.Players)),
		AssignedCount: len(r.Assignments),
	}
	if r.Preset != nil {
		snap.PresetCategory = r.Preset.Category
	}
	for i, p := range r.Players {
		_, assigned := r.AssignmentFor(p.ID)
		snap.Players[i] = SnapshotPlayer{
			ID:        p.ID,
			Name:      p.Name,
			Connected: p.Connected(),
			IsOwner:   r.IsOwner(p.ID),
			Assigned:  assigned,
		}
	}
	return snap
}
