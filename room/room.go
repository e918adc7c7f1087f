// Package room implements one game session: membership, the phase
// machine, the dead-body log, the current meeting's ballot box and win
// evaluation. A room is the unit of mutual exclusion; every public
// method takes the room lock for its whole duration and broadcast
// fan-out happens outside, from the returned result values.
package room

import (
	"sync"
	"time"

	"github.com/crewdeck/gameserver/logic"
	"github.com/crewdeck/gameserver/player"
	"github.com/crewdeck/gameserver/state"
)

// Settings carries the per-room tuning values, copied from config at
// room creation so a config reload never changes a live game.
type Settings struct {
	MinPlayers       int
	MaxPlayers       int
	ImpostorRatio    float64
	KillRange        float64
	TaskRange        float64
	TasksPerCrewmate int
	Bounds           logic.Bounds
}

// DeadBody is one entry in the append-only body log.
type DeadBody struct {
	PlayerID  string         `json:"playerId"`
	Position  logic.Position `json:"position"`
	Timestamp time.Time      `json:"timestamp"`
}

type Room struct {
	Code string

	mu            sync.Mutex
	hostID        string
	players       map[string]*player.Player
	joinOrder     []string // host reassignment follows insertion order
	phase         *state.Machine
	deadBodies    []DeadBody
	ballots       map[string]string // voterID -> targetID, logic.SkipVote for skip
	meetingCaller string
	meetingReason string
	impostorCount int
	settings      Settings
	winner        *WinResult
	createdAt     time.Time
	startedAt     time.Time
	lastActivity  time.Time
}

func New(code, hostID string, settings Settings) *Room {
	now := time.Now()
	return &Room{
		Code:         code,
		hostID:       hostID,
		players:      make(map[string]*player.Player),
		phase:        state.NewMachine(),
		ballots:      make(map[string]string),
		settings:     settings,
		createdAt:    now,
		lastActivity: now,
	}
}

// AddPlayer adds a player to the lobby. Membership is frozen once the
// phase leaves lobby.
func (r *Room) AddPlayer(p *player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.phase.Is(state.PhaseLobby) {
		return ErrGameInProgress
	}
	if len(r.players) >= r.settings.MaxPlayers {
		return ErrRoomFull
	}

	r.players[p.ID] = p
	r.joinOrder = append(r.joinOrder, p.ID)
	r.touch()
	return nil
}

// LeaveResult reports everything a departure changed.
type LeaveResult struct {
	Removed   bool
	Name      string
	NewHostID string
	Empty     bool
	Win       *WinResult
	// Votes is set when the departure completed a meeting (the leaver
	// was the last alive holdout).
	Votes *VoteOutcome
}

// RemovePlayer removes a player in any phase. Disconnects are ordinary
// departures, so this never fails; removing an unknown id is a no-op.
func (r *Room) RemovePlayer(id string) LeaveResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.players[id]
	if !exists {
		return LeaveResult{}
	}

	delete(r.players, id)
	for i, pid := range r.joinOrder {
		if pid == id {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			break
		}
	}
	delete(r.ballots, id)

	result := LeaveResult{Removed: true, Name: p.Name, Empty: len(r.players) == 0}

	if r.hostID == id && len(r.joinOrder) > 0 {
		r.hostID = r.joinOrder[0]
		result.NewHostID = r.hostID
	}

	// A disconnect can decide the game.
	if r.phase.Is(state.PhasePlaying) {
		result.Win = r.endOnWin(r.evaluateWin())
	} else if r.phase.Is(state.PhaseMeeting) && r.votingComplete() {
		result.Votes = r.resolveVotes()
	}

	r.touch()
	return result
}

func (r *Room) Player(id string) (*player.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	return p, ok
}

func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

func (r *Room) Phase() state.Phase {
	return r.phase.Current()
}

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Room) IsEmpty() bool {
	return r.PlayerCount() == 0
}

// OccupantIDs returns the ids of everyone in the room, in join order.
func (r *Room) OccupantIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.joinOrder))
	copy(ids, r.joinOrder)
	return ids
}

// Roster returns player snapshots in join order. Roles are included
// only for private, per-player payloads.
func (r *Room) Roster(includeRoles bool) []player.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rosterLocked(includeRoles)
}

func (r *Room) rosterLocked(includeRoles bool) []player.Snapshot {
	roster := make([]player.Snapshot, 0, len(r.players))
	for _, id := range r.joinOrder {
		if p, ok := r.players[id]; ok {
			roster = append(roster, p.ToSnapshot(includeRoles))
		}
	}
	return roster
}

// RoleOf returns a player's assigned role.
func (r *Room) RoleOf(id string) (player.Role, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return player.RoleUnassigned, false
	}
	return p.Role, true
}

// DeadBodies returns a copy of the body log.
func (r *Room) DeadBodies() []DeadBody {
	r.mu.Lock()
	defer r.mu.Unlock()
	bodies := make([]DeadBody, len(r.deadBodies))
	copy(bodies, r.deadBodies)
	return bodies
}

func (r *Room) Winner() *WinResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.winner == nil {
		return nil
	}
	w := *r.winner
	return &w
}

func (r *Room) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}

func (r *Room) CreatedAt() time.Time {
	return r.createdAt
}

// StartedAt returns when the current game began (zero in lobby).
func (r *Room) StartedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startedAt
}

func (r *Room) touch() {
	r.lastActivity = time.Now()
}

// Listing is the lobby-browser view of a room.
type Listing struct {
	Code        string `json:"code"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	HostName    string `json:"hostName"`
}

// ToListing returns the listing view, or false when the room is not in
// the lobby phase (in-progress games are not listed).
func (r *Room) ToListing() (Listing, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.phase.Is(state.PhaseLobby) {
		return Listing{}, false
	}
	hostName := ""
	if host, ok := r.players[r.hostID]; ok {
		hostName = host.Name
	}
	return Listing{
		Code:        r.Code,
		PlayerCount: len(r.players),
		MaxPlayers:  r.settings.MaxPlayers,
		HostName:    hostName,
	}, true
}

// Snapshot is a full room state dump for reconnecting or newly curious
// clients.
type Snapshot struct {
	Code          string            `json:"code"`
	HostID        string            `json:"hostId"`
	Phase         state.Phase       `json:"phase"`
	Players       []player.Snapshot `json:"players"`
	ImpostorCount int               `json:"impostorCount"`
	TotalTasks    int               `json:"totalTasks"`
	DeadBodies    []DeadBody        `json:"deadBodies"`
	Winner        *WinResult        `json:"winner,omitempty"`
	CreatedAt     int64             `json:"createdAt"`
}

func (r *Room) ToSnapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	bodies := make([]DeadBody, len(r.deadBodies))
	copy(bodies, r.deadBodies)

	return Snapshot{
		Code:          r.Code,
		HostID:        r.hostID,
		Phase:         r.phase.Current(),
		Players:       r.rosterLocked(false),
		ImpostorCount: r.impostorCount,
		TotalTasks:    r.settings.TasksPerCrewmate,
		DeadBodies:    bodies,
		Winner:        r.winner,
		CreatedAt:     r.createdAt.UnixMilli(),
	}
}
