package gateway

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/partyroom/go/internal/party/events"
	"github.com/mcdev12/partyroom/go/internal/party/reconciler"
	"github.com/mcdev12/partyroom/go/internal/party/room"
	"github.com/mcdev12/partyroom/go/internal/party/service"
	"github.com/mcdev12/partyroom/go/internal/validate"
)

// Error codes surfaced to clients.
const (
	codeNotFound      = "not_found"
	codeInvalidInput  = "invalid_input"
	codePrecondition  = "precondition_failed"
	codeConfiguration = "configuration_error"
	codeCapacity      = "capacity_exceeded"
	codeInternal      = "internal"
)

// Router dispatches inbound client actions to the service layer and turns
// the results into room-scoped broadcasts. It also implements
// reconciler.Notifier so removals driven by grace-timer expiry reach the
// room the same way action-driven ones do.
type Router struct {
	svc        *service.Service
	cm         *ConnectionManager
	reconciler *reconciler.Reconciler
}

// NewRouter wires the action router.
func NewRouter(svc *service.Service, cm *ConnectionManager, rec *reconciler.Reconciler) *Router {
	return &Router{svc: svc, cm: cm, reconciler: rec}
}

// HandleMessage implements MessageHandler.
func (rt *Router) HandleMessage(conn *Connection, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		rt.sendError(conn, codeInvalidInput, "malformed message")
		return
	}

	switch msg.Action {
	case ActionCreateRoom:
		rt.handleCreateRoom(conn, msg.Data)
	case ActionJoinRoom:
		rt.handleJoinRoom(conn, msg.Data)
	case ActionRejoinRoom:
		rt.handleRejoinRoom(conn, msg.Data)
	case ActionLeaveRoom:
		rt.handleLeaveRoom(conn)
	case ActionStartGame:
		rt.handleStartGame(conn)
	case ActionAssign:
		rt.handleAssign(conn, msg.Data)
	case ActionEndRound:
		rt.handleEndRound(conn)
	case ActionStartNewRound:
		rt.handleStartNewRound(conn)
	default:
		rt.sendError(conn, codeInvalidInput, "unknown action "+msg.Action)
	}
}

// HandleDisconnect implements MessageHandler: a transport-level drop is
// handed to the reconciler, which applies the grace-period policy.
func (rt *Router) HandleDisconnect(conn *Connection) {
	rt.reconciler.OnDisconnect(conn.ID)
}

// NotifyPlayerRemoved implements reconciler.Notifier.
func (rt *Router) NotifyPlayerRemoved(res room.RemoveResult, state room.GameState, reason string) {
	rt.broadcastRemoval(res, reason)
}

func (rt *Router) handleCreateRoom(conn *Connection, data json.RawMessage) {
	var req createRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		rt.sendError(conn, codeInvalidInput, "malformed create_room payload")
		return
	}
	if !validate.PlayerName(req.PlayerName) {
		rt.sendError(conn, codeInvalidInput, "invalid player name")
		return
	}
	mode := room.GameMode(req.Mode)
	if mode != room.ModePreset && mode != room.ModeCustom {
		rt.sendError(conn, codeInvalidInput, "mode must be preset or custom")
		return
	}

	snap, ownerID, err := rt.svc.CreateRoom(req.PlayerName, mode, req.PresetCategory, conn.ID)
	if err != nil {
		rt.sendServiceError(conn, err)
		return
	}

	rt.cm.Bind(conn, snap.Code, ownerID)
	rt.sendEvent(conn, events.TypeRoomCreated, snap.Code, events.RoomCreatedPayload{
		Room:     snap,
		PlayerID: ownerID,
	})
}

func (rt *Router) handleJoinRoom(conn *Connection, data json.RawMessage) {
	var req joinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		rt.sendError(conn, codeInvalidInput, "malformed join_room payload")
		return
	}
	if !validate.RoomCode(req.RoomCode) {
		rt.sendError(conn, codeInvalidInput, "invalid room code")
		return
	}
	if !validate.PlayerName(req.PlayerName) {
		rt.sendError(conn, codeInvalidInput, "invalid player name")
		return
	}

	snap, p, err := rt.svc.Join(req.RoomCode, req.PlayerName, conn.ID)
	if err != nil {
		rt.sendServiceError(conn, err)
		return
	}

	rt.cm.Bind(conn, snap.Code, p.ID)
	rt.broadcast(snap.Code, events.TypePlayerJoined, events.PlayerJoinedPayload{
		Room:       snap,
		PlayerID:   p.ID,
		PlayerName: p.Name,
	})
}

func (rt *Router) handleRejoinRoom(conn *Connection, data json.RawMessage) {
	var req rejoinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		rt.sendError(conn, codeInvalidInput, "malformed rejoin_room payload")
		return
	}
	if !validate.RoomCode(req.RoomCode) {
		rt.sendError(conn, codeInvalidInput, "invalid room code")
		return
	}
	if req.PlayerID == "" {
		rt.sendError(conn, codeInvalidInput, "player_id is required")
		return
	}

	// Rebind the handle first; a grace timer firing in this window sees a
	// connected player and no-ops. Cancelling the timer afterwards is then
	// just cleanup.
	snap, view, err := rt.svc.Rejoin(req.RoomCode, req.PlayerID, conn.ID)
	if err != nil {
		rt.sendServiceError(conn, err)
		return
	}
	rt.reconciler.OnRejoin(req.RoomCode, req.PlayerID)

	rt.cm.Bind(conn, snap.Code, req.PlayerID)
	rt.broadcast(snap.Code, events.TypeRoomUpdated, events.RoomUpdatedPayload{Room: snap})

	if view != nil {
		rt.sendToPlayer(snap.Code, req.PlayerID, events.TypeGameStarted, events.GameStartedPayload{View: *view})
	}
}

func (rt *Router) handleLeaveRoom(conn *Connection) {
	code, playerID, bound := rt.cm.Binding(conn)
	if !bound {
		return // leaving nothing is a no-op, not an error
	}

	res, err := rt.svc.Remove(code, playerID)
	rt.cm.Unbind(conn)
	if err != nil {
		if !errors.Is(err, room.ErrRoomNotFound) && !errors.Is(err, room.ErrPlayerNotFound) {
			rt.sendServiceError(conn, err)
		}
		return
	}

	rt.broadcastRemoval(res, "left")
}

func (rt *Router) handleStartGame(conn *Connection) {
	code, playerID, bound := rt.cm.Binding(conn)
	if !bound {
		rt.sendError(conn, codePrecondition, "not in a room")
		return
	}

	res, err := rt.svc.StartGame(code, playerID)
	if err != nil {
		rt.sendServiceError(conn, err)
		return
	}

	rt.sendViews(code, res.Views)
}

func (rt *Router) handleAssign(conn *Connection, data json.RawMessage) {
	code, playerID, bound := rt.cm.Binding(conn)
	if !bound {
		rt.sendError(conn, codePrecondition, "not in a room")
		return
	}

	var req assignRequest
	if err := json.Unmarshal(data, &req); err != nil {
		rt.sendError(conn, codeInvalidInput, "malformed assign_character payload")
		return
	}
	if !validate.ItemText(req.Character) {
		rt.sendError(conn, codeInvalidInput, "invalid character text")
		return
	}

	res, err := rt.svc.Assign(code, playerID, req.TargetPlayerID, req.Character)
	if err != nil {
		rt.sendServiceError(conn, err)
		return
	}

	rt.broadcast(code, events.TypeRoomUpdated, events.RoomUpdatedPayload{Room: res.Room})
	if res.Started {
		rt.sendViews(code, res.Views)
	}
}

func (rt *Router) handleEndRound(conn *Connection) {
	code, playerID, bound := rt.cm.Binding(conn)
	if !bound {
		rt.sendError(conn, codePrecondition, "not in a room")
		return
	}

	snap, err := rt.svc.EndRound(code, playerID)
	if err != nil {
		rt.sendServiceError(conn, err)
		return
	}

	rt.broadcast(code, events.TypeRoundEnded, events.RoundEndedPayload{Room: snap})
}

func (rt *Router) handleStartNewRound(conn *Connection) {
	code, playerID, bound := rt.cm.Binding(conn)
	if !bound {
		rt.sendError(conn, codePrecondition, "not in a room")
		return
	}

	snap, err := rt.svc.NextRound(code, playerID)
	if err != nil {
		rt.sendServiceError(conn, err)
		return
	}

	rt.broadcast(code, events.TypeRoundStarted, events.RoundStartedPayload{
		Room:  snap,
		Round: snap.Round,
	})
}

// broadcastRemoval announces a removal with its cascading effects. A
// deleted room has nobody left to notify; a force-finished assigning round
// additionally gets the informational interruption event.
func (rt *Router) broadcastRemoval(res room.RemoveResult, reason string) {
	if res.Deleted {
		return
	}

	payload := events.PlayerLeftPayload{
		Room:       res.Room,
		PlayerID:   res.Removed.ID,
		PlayerName: res.Removed.Name,
		NewOwnerID: res.NewOwnerID,
		Reason:     reason,
	}
	code := res.Room.Code
	rt.broadcast(code, events.TypePlayerLeft, payload)

	if res.ForcedFinish {
		rt.broadcast(code, events.TypeAssignmentInterrupted, events.RoundEndedPayload{
			Room:   *res.Room,
			Forced: true,
			Reason: reason,
		})
	}
}

func (rt *Router) sendViews(code string, views map[string]room.PlayerView) {
	for playerID, view := range views {
		rt.sendToPlayer(code, playerID, events.TypeGameStarted, events.GameStartedPayload{View: view})
	}
}

func (rt *Router) broadcast(code string, t events.Type, payload any) {
	ev, err := events.New(t, code, payload)
	if err != nil {
		log.Error().Err(err).Str("room_code", code).Msg("failed to build broadcast event")
		return
	}
	rt.cm.BroadcastToRoom(code, ev)
}

func (rt *Router) sendToPlayer(code, playerID string, t events.Type, payload any) {
	ev, err := events.New(t, code, payload)
	if err != nil {
		log.Error().Err(err).Str("room_code", code).Msg("failed to build player event")
		return
	}
	rt.cm.SendToPlayer(code, playerID, ev)
}

func (rt *Router) sendEvent(conn *Connection, t events.Type, code string, payload any) {
	ev, err := events.New(t, code, payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to build event")
		return
	}
	rt.cm.SendToConn(conn, ev)
}

func (rt *Router) sendError(conn *Connection, code, message string) {
	rt.sendEvent(conn, events.TypeError, "", events.ErrorPayload{Code: code, Message: message})
}

// sendServiceError maps domain errors onto the client-facing taxonomy.
func (rt *Router) sendServiceError(conn *Connection, err error) {
	code := codeInternal
	switch {
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, room.ErrPlayerNotFound):
		code = codeNotFound
	case errors.Is(err, room.ErrRoomFull):
		code = codeCapacity
	case errors.Is(err, room.ErrMissingCategory),
		errors.Is(err, room.ErrInsufficientItems),
		errors.Is(err, service.ErrUnknownCategory):
		code = codeConfiguration
	case errors.Is(err, room.ErrInvalidMode), errors.Is(err, room.ErrInvalidName):
		code = codeInvalidInput
	case errors.Is(err, room.ErrNotOwner),
		errors.Is(err, room.ErrWrongState),
		errors.Is(err, room.ErrInsufficientPlayers),
		errors.Is(err, room.ErrAssignmentNotAllowed),
		errors.Is(err, room.ErrPlayerAlreadyPresent):
		code = codePrecondition
	default:
		log.Error().Err(err).Msg("internal error handling action")
	}
	rt.sendError(conn, code, err.Error())
}
