package room

import "errors"

var (
	ErrPlayerNotFound    = errors.New("player not found in room")
	ErrRoomFull          = errors.New("room is full")
	ErrGameInProgress    = errors.New("cannot join game in progress")
	ErrNotEnoughPlayers  = errors.New("not enough players to start")
	ErrNotHost           = errors.New("only the host can perform this action")
	ErrInvalidPhase      = errors.New("action not allowed in current phase")
	ErrAlreadyVoted      = errors.New("player has already voted")
	ErrDeadPlayer        = errors.New("dead players cannot do that")
	ErrCannotEliminate   = errors.New("cannot eliminate target")
	ErrNoReportableBody  = errors.New("no body within reporting range")
	ErrNotImpostor       = errors.New("only impostors can do that")
	ErrNotCrewmate       = errors.New("only crewmates can do that")
)
