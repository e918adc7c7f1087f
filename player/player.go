// Package player holds the per-player record owned by a room. The room
// serializes all access, so Player itself carries no lock.
package player

import (
	"time"

	"github.com/crewdeck/gameserver/logic"
)

// Role is assigned exactly once per game, at game start.
type Role string

const (
	RoleUnassigned Role = ""
	RoleCrewmate   Role = "crewmate"
	RoleImpostor   Role = "impostor"
)

// LifeState is monotonic within a game: once dead, never alive again.
type LifeState string

const (
	StateAlive LifeState = "alive"
	StateDead  LifeState = "dead"
)

type Player struct {
	ID             string
	Name           string
	RoomCode       string
	Role           Role
	State          LifeState
	Position       logic.Position
	TasksCompleted int
	HasVoted       bool
	LastVote       string
	JoinedAt       time.Time
}

func New(id, name, roomCode string) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		RoomCode: roomCode,
		State:    StateAlive,
		JoinedAt: time.Now(),
	}
}

// AssignRole sets the player's role, once per game.
func (p *Player) AssignRole(role Role) {
	p.Role = role
}

// Kill marks the player dead. There is no revive within a game.
func (p *Player) Kill() {
	p.State = StateDead
}

// CompleteTask bumps the task counter for an alive crewmate and reports
// whether the completion was accepted.
func (p *Player) CompleteTask() bool {
	if p.Role != RoleCrewmate || p.State != StateAlive {
		return false
	}
	p.TasksCompleted++
	return true
}

// Vote latches the player's ballot for the current meeting. The empty
// target is a skip. Returns false if the player is dead or already voted.
func (p *Player) Vote(targetID string) bool {
	if p.State != StateAlive || p.HasVoted {
		return false
	}
	p.HasVoted = true
	p.LastVote = targetID
	return true
}

// ResetVote clears the ballot latch at the start of each meeting.
func (p *Player) ResetVote() {
	p.HasVoted = false
	p.LastVote = ""
}

func (p *Player) IsAlive() bool    { return p.State == StateAlive }
func (p *Player) IsDead() bool     { return p.State == StateDead }
func (p *Player) IsImpostor() bool { return p.Role == RoleImpostor }
func (p *Player) IsCrewmate() bool { return p.Role == RoleCrewmate }

// Pos satisfies logic.Combatant.
func (p *Player) Pos() logic.Position { return p.Position }

// Snapshot is the wire representation of a player.
type Snapshot struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	RoomCode       string         `json:"roomCode"`
	Role           Role           `json:"role,omitempty"`
	State          LifeState      `json:"state"`
	Position       logic.Position `json:"position"`
	TasksCompleted int            `json:"tasksCompleted"`
	HasVoted       bool           `json:"hasVoted"`
	JoinedAt       int64          `json:"joinedAt"`
}

// ToSnapshot copies the player into its wire shape. includeRole guards
// role privacy: the lobby roster and room-wide broadcasts omit roles.
func (p *Player) ToSnapshot(includeRole bool) Snapshot {
	s := Snapshot{
		ID:             p.ID,
		Name:           p.Name,
		RoomCode:       p.RoomCode,
		State:          p.State,
		Position:       p.Position,
		TasksCompleted: p.TasksCompleted,
		HasVoted:       p.HasVoted,
		JoinedAt:       p.JoinedAt.UnixMilli(),
	}
	if includeRole {
		s.Role = p.Role
	}
	return s
}
