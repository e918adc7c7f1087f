package network

import (
	"github.com/crewdeck/gameserver/logic"
	"github.com/crewdeck/gameserver/player"
	"github.com/crewdeck/gameserver/room"
	"github.com/crewdeck/gameserver/state"
)

// Client -> server request payloads.

type CreateRoomRequest struct {
	Name string `json:"name"`
}

type JoinRoomRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type MoveRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type KillRequest struct {
	TargetID string `json:"targetId"`
}

// VoteRequest carries nil TargetID for a skip vote.
type VoteRequest struct {
	TargetID *string `json:"targetId"`
}

type ReportBodyRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type SabotageRequest struct {
	Kind string `json:"kind"`
}

// Server -> client push payloads.

type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type RoomCreatedPayload struct {
	RoomCode string `json:"roomCode"`
	IsHost   bool   `json:"isHost"`
}

type RoomJoinedPayload struct {
	RoomCode string            `json:"roomCode"`
	Players  []player.Snapshot `json:"players"`
	IsHost   bool              `json:"isHost"`
}

type PlayerJoinedPayload struct {
	Player  player.Snapshot   `json:"player"`
	Players []player.Snapshot `json:"players"`
}

type PlayerLeftPayload struct {
	PlayerID string            `json:"playerId"`
	Players  []player.Snapshot `json:"players"`
	NewHost  string            `json:"newHost,omitempty"`
}

type RoomListPayload struct {
	Rooms []room.Listing `json:"rooms"`
}

// GameStartedPayload is delivered to each player individually; Role is
// the recipient's own and nobody else's.
type GameStartedPayload struct {
	Role       player.Role          `json:"role"`
	Players    []player.Snapshot    `json:"players"`
	Phase      state.Phase          `json:"phase"`
	Tasks      []logic.TaskLocation `json:"tasks"`
	TotalTasks int                  `json:"totalTasks"`
}

type PlayerMovedPayload struct {
	PlayerID string         `json:"playerId"`
	Position logic.Position `json:"position"`
}

type PlayerKilledPayload struct {
	KilledPlayer string        `json:"killedPlayer"`
	Body         room.DeadBody `json:"body"`
}

type TaskCompletedPayload struct {
	TasksCompleted int `json:"tasksCompleted"`
}

type MeetingCalledPayload struct {
	CallerID string            `json:"callerId"`
	Reason   string            `json:"reason"`
	Players  []player.Snapshot `json:"players"`
}

type VoteCastPayload struct {
	VoterID string `json:"voterId"`
	Voted   int    `json:"voted"`
	Total   int    `json:"total"`
}

type VotingCompletePayload struct {
	Result  logic.VoteResult `json:"result"`
	Ejected *player.Snapshot `json:"ejected,omitempty"`
}

// GameEndedPayload reveals every role once the outcome is decided.
type GameEndedPayload struct {
	Winner  string            `json:"winner"`
	Reason  string            `json:"reason"`
	Players []player.Snapshot `json:"players"`
}

type SabotageAlertPayload struct {
	Kind     string `json:"kind"`
	Saboteur string `json:"saboteur"`
}

type StateSnapshotPayload struct {
	Room   room.Snapshot        `json:"room"`
	Player player.Snapshot      `json:"player"`
	Tasks  []logic.TaskLocation `json:"tasks"`
}
