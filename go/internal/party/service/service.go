// Package service is the action layer: one entrypoint per inbound player
// action. Each entrypoint resolves the room, checks the actor and state
// machine preconditions, applies the mutation atomically through the
// store, and returns the snapshots and personalized views the gateway
// needs for its broadcasts.
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/partyroom/go/internal/party/pairing"
	"github.com/mcdev12/partyroom/go/internal/party/presets"
	"github.com/mcdev12/partyroom/go/internal/party/room"
)

// ErrUnknownCategory is returned when a preset room references a category
// the library does not have.
var ErrUnknownCategory = errors.New("unknown preset category")

// Service coordinates the room store, the pairing algorithm, and the
// preset library.
type Service struct {
	store   *room.Store
	library *presets.Library
}

// New creates a Service backed by the given store and preset library.
func New(store *room.Store, library *presets.Library) *Service {
	return &Service{store: store, library: library}
}

// Store exposes the underlying store for the health surface and sweeper.
func (s *Service) Store() *room.Store {
	return s.store
}

// StartResult is what a successful game start produces: the updated room
// and one personalized view per member.
type StartResult struct {
	Room  room.Snapshot
	Views map[string]room.PlayerView
}

// AssignResult is what recording an assignment produces. Started is true
// when this assignment completed the set and the room auto-transitioned
// to playing, in which case Views carries the game-started views.
type AssignResult struct {
	Room    room.Snapshot
	Started bool
	Views   map[string]room.PlayerView
}

// CreateRoom creates a room owned by a new player and binds the creating
// connection to them.
func (s *Service) CreateRoom(playerName string, mode room.GameMode, category, connID string) (room.Snapshot, string, error) {
	if mode == room.ModePreset && !s.library.Has(category) {
		return room.Snapshot{}, "", fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	snap, ownerID, err := s.store.Create(playerName, mode, category)
	if err != nil {
		return room.Snapshot{}, "", err
	}

	if err := s.bindConn(snap.Code, ownerID, connID, &snap); err != nil {
		return room.Snapshot{}, "", err
	}
	return snap, ownerID, nil
}

// Join adds a new player to the room and binds their connection.
func (s *Service) Join(code, playerName, connID string) (room.Snapshot, room.Player, error) {
	snap, p, err := s.store.AddPlayer(code, playerName)
	if err != nil {
		return room.Snapshot{}, room.Player{}, err
	}

	if err := s.bindConn(code, p.ID, connID, &snap); err != nil {
		return room.Snapshot{}, room.Player{}, err
	}
	p.ConnID = connID
	return snap, p, nil
}

// Rejoin rebinds an existing player to a new connection. When the room is
// mid-round the player's personalized view is returned so the client can
// recover full context without replaying history.
func (s *Service) Rejoin(code, playerID, connID string) (room.Snapshot, *room.PlayerView, error) {
	var snap room.Snapshot
	var view *room.PlayerView

	err := s.store.Mutate(code, func(r *room.Room) error {
		p, ok := r.Player(playerID)
		if !ok {
			return room.ErrPlayerNotFound
		}
		p.ConnID = connID
		snap = r.SnapshotOf()

		if r.State != room.StateWaiting {
			v, err := r.ViewFor(playerID)
			if err != nil {
				return err
			}
			view = &v
		}
		return nil
	})
	if err != nil {
		return room.Snapshot{}, nil, err
	}

	log.Info().
		Str("room_code", code).
		Str("player_id", playerID).
		Str("conn_id", connID).
		Msg("player rejoined")

	return snap, view, nil
}

// DetachConn clears a player's connection handle without removing them,
// used while a grace period is pending.
func (s *Service) DetachConn(code, playerID string) error {
	return s.store.Mutate(code, func(r *room.Room) error {
		p, ok := r.Player(playerID)
		if !ok {
			return room.ErrPlayerNotFound
		}
		p.ConnID = ""
		return nil
	})
}

// Remove takes a player out of their room with all cascading effects.
func (s *Service) Remove(code, playerID string) (room.RemoveResult, error) {
	return s.store.RemovePlayer(code, playerID)
}

// RemoveIfStillGone removes the player only if the room and player still
// exist and no new connection was bound in the meantime. This is the
// fire-time re-validation for grace timers: the whole check-then-remove
// runs in one store critical section, so a racing rejoin either lands
// before (and the removal no-ops) or after (and sees the standard removal
// result).
func (s *Service) RemoveIfStillGone(code, playerID string) (room.RemoveResult, bool, error) {
	return s.store.RemovePlayerIfDisconnected(code, playerID)
}

// StartGame runs the owner's start-game action. In custom mode the room
// enters the assigning phase with a freshly generated pairing; in preset
// mode characters are distributed immediately and play begins.
func (s *Service) StartGame(code, actorID string) (StartResult, error) {
	var res StartResult

	err := s.store.Mutate(code, func(r *room.Room) error {
		if !r.IsOwner(actorID) {
			return room.ErrNotOwner
		}

		switch r.Mode {
		case room.ModeCustom:
			ids := r.PlayerIDs()
			p, err := pairing.Generate(ids)
			if err != nil {
				return room.ErrInsufficientPlayers
			}
			if err := pairing.Validate(p, ids); err != nil {
				return fmt.Errorf("generated pairing failed validation: %w", err)
			}
			if err := r.StartCustom(p); err != nil {
				return err
			}

		case room.ModePreset:
			pool, ok := s.library.Items(r.Preset.Category)
			if !ok {
				return fmt.Errorf("%w: %q", ErrUnknownCategory, r.Preset.Category)
			}
			if err := r.StartPreset(pool); err != nil {
				return err
			}
		}

		res.Room = r.SnapshotOf()
		views, err := viewsForAll(r)
		if err != nil {
			return err
		}
		res.Views = views
		return nil
	})
	if err != nil {
		return StartResult{}, err
	}

	log.Info().
		Str("room_code", code).
		Str("state", string(res.Room.State)).
		Int("players", len(res.Room.Players)).
		Msg("game started")

	return res, nil
}

// Assign records one character assignment. The auto-transition to playing
// happens in the same critical section as the assignment itself, so two
// racing assignments cannot both observe an incomplete set.
func (s *Service) Assign(code, actorID, targetID, item string) (AssignResult, error) {
	var res AssignResult

	err := s.store.Mutate(code, func(r *room.Room) error {
		started, err := r.RecordAssignment(actorID, targetID, strings.TrimSpace(item))
		if err != nil {
			return err
		}

		res.Room = r.SnapshotOf()
		res.Started = started
		if started {
			views, err := viewsForAll(r)
			if err != nil {
				return err
			}
			res.Views = views
		}
		return nil
	})
	if err != nil {
		return AssignResult{}, err
	}
	return res, nil
}

// EndRound moves the room to finished. Any member may end the round.
func (s *Service) EndRound(code, actorID string) (room.Snapshot, error) {
	var snap room.Snapshot
	err := s.store.Mutate(code, func(r *room.Room) error {
		if _, ok := r.Player(actorID); !ok {
			return room.ErrPlayerNotFound
		}
		if err := r.EndRound(); err != nil {
			return err
		}
		snap = r.SnapshotOf()
		return nil
	})
	return snap, err
}

// NextRound is the owner's start-new-round action.
func (s *Service) NextRound(code, actorID string) (room.Snapshot, error) {
	var snap room.Snapshot
	err := s.store.Mutate(code, func(r *room.Room) error {
		if !r.IsOwner(actorID) {
			return room.ErrNotOwner
		}
		if err := r.StartNextRound(); err != nil {
			return err
		}
		snap = r.SnapshotOf()
		return nil
	})
	return snap, err
}

// bindConn attaches the connection handle to a freshly created player and
// refreshes the caller's snapshot.
func (s *Service) bindConn(code, playerID, connID string, snap *room.Snapshot) error {
	return s.store.Mutate(code, func(r *room.Room) error {
		p, ok := r.Player(playerID)
		if !ok {
			return room.ErrPlayerNotFound
		}
		p.ConnID = connID
		*snap = r.SnapshotOf()
		return nil
	})
}

func viewsForAll(r *room.Room) (map[string]room.PlayerView, error) {
	views := make(map[string]room.PlayerView, len(r.Players))
	for _, id := range r.PlayerIDs() {
		v, err := r.ViewFor(id)
		if err != nil {
			return nil, err
		}
		views[id] = v
	}
	return views, nil
}
