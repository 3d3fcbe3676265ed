// internal/game/errors.go
package game

import "errors"

// Join and action errors. All of these are recovered locally and surfaced as
// a structured result to the caller; none of them terminate a session.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrGameFinished     = errors.New("game already finished")
	ErrGameInProgress   = errors.New("game already in progress")
	ErrRoomFull         = errors.New("room is full")
	ErrInvalidTeamIndex = errors.New("invalid team index")
	ErrNotEnoughPlayers = errors.New("need at least 1 player to start")
	ErrWrongPhase       = errors.New("action not allowed in current phase")
)
