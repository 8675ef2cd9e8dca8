package gateway

import "encoding/json"

// ClientMessage is the envelope for every inbound client action.
type ClientMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Client action names.
const (
	ActionCreateRoom    = "create_room"
	ActionJoinRoom      = "join_room"
	ActionRejoinRoom    = "rejoin_room"
	ActionLeaveRoom     = "leave_room"
	ActionStartGame     = "start_game"
	ActionAssign        = "assign_character"
	ActionEndRound      = "end_round"
	ActionStartNewRound = "start_new_round"
)

type createRoomRequest struct {
	PlayerName     string `json:"player_name"`
	Mode           string `json:"mode"`
	PresetCategory string `json:"preset_category,omitempty"`
}

type joinRoomRequest struct {
	RoomCode   string `json:"room_code"`
	PlayerName string `json:"player_name"`
}

type rejoinRoomRequest struct {
	RoomCode string `json:"room_code"`
	PlayerID string `json:"player_id"`
}

type assignRequest struct {
	TargetPlayerID string `json:"target_player_id"`
	Character      string `json:"character"`
}
