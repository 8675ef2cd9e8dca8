// Package events defines the room-scoped broadcast events pushed to
// connected clients, shared between the service and gateway packages.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/partyroom/go/internal/party/room"
)

// Type identifies a broadcast event.
type Type string

const (
	TypeRoomCreated            Type = "room_created"
	TypeRoomUpdated            Type = "room_updated"
	TypePlayerJoined           Type = "player_joined"
	TypePlayerLeft             Type = "player_left"
	TypeGameStarted            Type = "game_started"
	TypeRoundEnded             Type = "round_ended"
	TypeRoundStarted           Type = "round_started"
	TypeAssignmentInterrupted  Type = "player_left_during_assignment"
	TypeError                  Type = "error"
)

// Event is the wire envelope for everything the server pushes.
type Event struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	RoomCode  string          `json:"room_code,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// New builds an event envelope with a marshaled payload.
func New(t Type, roomCode string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Event{
		ID:        uuid.New().String(),
		Type:      t,
		RoomCode:  roomCode,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// RoomCreatedPayload is sent to the creator of a room.
type RoomCreatedPayload struct {
	Room     room.Snapshot `json:"room"`
	PlayerID string        `json:"player_id"`
}

// RoomUpdatedPayload is broadcast whenever shared room state changes.
type RoomUpdatedPayload struct {
	Room room.Snapshot `json:"room"`
}

// PlayerJoinedPayload is broadcast when a player joins.
type PlayerJoinedPayload struct {
	Room       room.Snapshot `json:"room"`
	PlayerID   string        `json:"player_id"`
	PlayerName string        `json:"player_name"`
}

// PlayerLeftPayload is broadcast when a player leaves or times out.
type PlayerLeftPayload struct {
	Room       *room.Snapshot `json:"room,omitempty"`
	PlayerID   string         `json:"player_id"`
	PlayerName string         `json:"player_name"`
	NewOwnerID string         `json:"new_owner_id,omitempty"`
	Reason     string         `json:"reason"`
}

// GameStartedPayload carries one member's personalized view; each member
// receives their own, never a room-wide identical copy.
type GameStartedPayload struct {
	View room.PlayerView `json:"view"`
}

// RoundEndedPayload is broadcast when a round finishes.
type RoundEndedPayload struct {
	Room   room.Snapshot `json:"room"`
	Forced bool          `json:"forced"`
	Reason string        `json:"reason,omitempty"`
}

// RoundStartedPayload is broadcast when the owner starts a new round.
type RoundStartedPayload struct {
	Room  room.Snapshot `json:"room"`
	Round int           `json:"round"`
}

// ErrorPayload is sent to the originating connection only.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
