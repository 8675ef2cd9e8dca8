package room

import "errors"

var (
	// ErrRoomNotFound is returned when no live room has the given code.
	ErrRoomNotFound = errors.New("room not found")

	// ErrPlayerNotFound is returned when a player ID is not in the room.
	ErrPlayerNotFound = errors.New("player not in room")

	// ErrPlayerAlreadyPresent is returned when a join would duplicate a player.
	ErrPlayerAlreadyPresent = errors.New("player already in room")

	// ErrInvalidName is returned when a player name is empty after trimming.
	ErrInvalidName = errors.New("player name is empty")

	// ErrRoomFull is returned when a join would exceed the room capacity.
	ErrRoomFull = errors.New("room is full")

	// ErrNotOwner is returned when a non-owner triggers an owner-only action.
	ErrNotOwner = errors.New("only the room owner can do that")

	// ErrWrongState is returned when the game state does not allow a transition.
	ErrWrongState = errors.New("not allowed in current game state")

	// ErrInsufficientPlayers is returned when a game starts with fewer than
	// two players.
	ErrInsufficientPlayers = errors.New("need at least two players")

	// ErrInsufficientItems is returned when a preset pool is smaller than
	// the player count.
	ErrInsufficientItems = errors.New("preset pool smaller than player count")

	// ErrMissingCategory is returned when a preset room is created or
	// started without a category.
	ErrMissingCategory = errors.New("preset mode requires a category")

	// ErrInvalidMode is returned for an unknown game mode or an invalid
	// mode/category combination.
	ErrInvalidMode = errors.New("invalid game mode")

	// ErrAssignmentNotAllowed is returned when an assignment violates the
	// pairing or uniqueness rules.
	ErrAssignmentNotAllowed = errors.New("assignment not allowed")
)
