package room

import (
	"time"

	"github.com/crewdeck/gameserver/logic"
	"github.com/crewdeck/gameserver/player"
	"github.com/crewdeck/gameserver/state"
)

const (
	WinnerImpostors = "impostors"
	WinnerCrewmates = "crewmates"

	ReasonOutnumber     = "Impostors outnumber crewmates"
	ReasonAllEliminated = "All impostors eliminated"
	ReasonTasksComplete = "All tasks completed"
)

const (
	MeetingReasonEmergency = "emergency"
	MeetingReasonBody      = "body-reported"
)

// WinResult names the winning side and why.
type WinResult struct {
	Winner string `json:"winner"`
	Reason string `json:"reason"`
}

// StartResult summarizes a successful game start. Per-player roles are
// read through RoleOf for the private payloads.
type StartResult struct {
	ImpostorCount int
	Spawn         logic.Position
}

// StartGame assigns roles and moves the room into the playing phase.
// Only the host may start; the lobby must hold between MinPlayers and
// MaxPlayers participants.
func (r *Room) StartGame(callerID string) (*StartResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if callerID != r.hostID {
		return nil, ErrNotHost
	}
	if !r.phase.Is(state.PhaseLobby) {
		return nil, ErrInvalidPhase
	}
	n := len(r.players)
	if n < r.settings.MinPlayers || n > r.settings.MaxPlayers {
		return nil, ErrNotEnoughPlayers
	}

	// Fresh permutation every start; the first impostorCount ids in the
	// shuffle become impostors.
	shuffled := logic.ShuffledIDs(r.joinOrder)
	r.impostorCount = logic.ImpostorCount(n, r.settings.ImpostorRatio)
	for i, id := range shuffled {
		role := player.RoleCrewmate
		if i < r.impostorCount {
			role = player.RoleImpostor
		}
		r.players[id].AssignRole(role)
	}

	spawn := logic.SpawnPosition(r.settings.Bounds)
	for _, p := range r.players {
		p.Position = spawn
	}

	if err := r.phase.Transition(state.PhasePlaying); err != nil {
		return nil, err
	}
	r.startedAt = time.Now()
	r.touch()

	return &StartResult{ImpostorCount: r.impostorCount, Spawn: spawn}, nil
}

// Move updates a player's position, clamped to the map bounds. Accepted
// only while the game is playing; this is the hot path, so it does the
// minimum under the lock.
func (r *Room) Move(id string, pos logic.Position) (logic.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.phase.Is(state.PhasePlaying) {
		return logic.Position{}, ErrInvalidPhase
	}
	p, ok := r.players[id]
	if !ok {
		return logic.Position{}, ErrPlayerNotFound
	}

	clamped := logic.Clamp(pos, r.settings.Bounds)
	p.Position = clamped
	r.touch()
	return clamped, nil
}

// KillResult reports a successful elimination.
type KillResult struct {
	TargetID   string
	TargetName string
	Body       DeadBody
	Win        *WinResult
}

// Eliminate kills target if the killer is an alive impostor in range.
func (r *Room) Eliminate(killerID, targetID string) (*KillResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.phase.Is(state.PhasePlaying) {
		return nil, ErrInvalidPhase
	}
	killer, ok := r.players[killerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	target, ok := r.players[targetID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	if !logic.CanEliminate(killer, target, r.settings.KillRange) {
		return nil, ErrCannotEliminate
	}

	target.Kill()
	body := DeadBody{
		PlayerID:  targetID,
		Position:  target.Position,
		Timestamp: time.Now(),
	}
	r.deadBodies = append(r.deadBodies, body)
	r.touch()

	return &KillResult{
		TargetID:   targetID,
		TargetName: target.Name,
		Body:       body,
		Win:        r.endOnWin(r.evaluateWin()),
	}, nil
}

// TaskResult reports a completed task.
type TaskResult struct {
	TasksCompleted int
	Win            *WinResult
}

// CompleteTask credits one task to an alive crewmate. Proximity to a
// task station is deliberately not checked server-side; the client
// reports completion and the server validates role and aliveness only.
func (r *Room) CompleteTask(id string) (*TaskResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.phase.Is(state.PhasePlaying) {
		return nil, ErrInvalidPhase
	}
	p, ok := r.players[id]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	if p.IsDead() {
		return nil, ErrDeadPlayer
	}
	if !p.IsCrewmate() {
		return nil, ErrNotCrewmate
	}

	p.CompleteTask()
	r.touch()

	return &TaskResult{
		TasksCompleted: p.TasksCompleted,
		Win:            r.endOnWin(r.evaluateWin()),
	}, nil
}

// MeetingInfo describes a meeting that just started.
type MeetingInfo struct {
	CallerID   string
	Reason     string
	AliveCount int
}

// StartMeeting pauses the game for a vote. The caller must be alive.
// A body report additionally requires a logged body within task range
// of the reporter's server-side position.
func (r *Room) StartMeeting(callerID, reason string) (*MeetingInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.phase.Is(state.PhasePlaying) {
		return nil, ErrInvalidPhase
	}
	caller, ok := r.players[callerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	if caller.IsDead() {
		return nil, ErrDeadPlayer
	}
	if reason == MeetingReasonBody && !r.bodyInRangeLocked(caller) {
		return nil, ErrNoReportableBody
	}

	if err := r.phase.Transition(state.PhaseMeeting); err != nil {
		return nil, err
	}

	r.ballots = make(map[string]string)
	for _, p := range r.players {
		p.ResetVote()
	}
	r.meetingCaller = callerID
	r.meetingReason = reason
	r.touch()

	return &MeetingInfo{
		CallerID:   callerID,
		Reason:     reason,
		AliveCount: r.aliveCountLocked(),
	}, nil
}

func (r *Room) bodyInRangeLocked(reporter *player.Player) bool {
	for _, body := range r.deadBodies {
		if logic.CanReportBody(reporter, body.Position, r.settings.TaskRange) {
			return true
		}
	}
	return false
}

// VoteOutcome reports a cast ballot and, once the last alive voter has
// spoken, the meeting's resolution.
type VoteOutcome struct {
	Complete bool
	Voted    int
	Total    int
	Result   *logic.VoteResult
	Ejected  *player.Snapshot
	Win      *WinResult
}

// CastVote records one ballot. logic.SkipVote (the empty target) is a
// skip. The meeting resolves automatically on the last alive vote.
func (r *Room) CastVote(voterID, targetID string) (*VoteOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.phase.Is(state.PhaseMeeting) {
		return nil, ErrInvalidPhase
	}
	voter, ok := r.players[voterID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	if voter.IsDead() {
		return nil, ErrDeadPlayer
	}
	if voter.HasVoted {
		return nil, ErrAlreadyVoted
	}

	voter.Vote(targetID)
	r.ballots[voterID] = targetID
	r.touch()

	if r.votingComplete() {
		return r.resolveVotes(), nil
	}

	return &VoteOutcome{
		Voted: r.votedCountLocked(),
		Total: r.aliveCountLocked(),
	}, nil
}

// ForceResolveVotes ends the meeting on timeout: every alive holdout is
// counted as a skip and the ballots resolve as usual.
func (r *Room) ForceResolveVotes() (*VoteOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.phase.Is(state.PhaseMeeting) {
		return nil, ErrInvalidPhase
	}
	for id, p := range r.players {
		if p.IsAlive() && !p.HasVoted {
			p.Vote(logic.SkipVote)
			r.ballots[id] = logic.SkipVote
		}
	}
	return r.resolveVotes(), nil
}

func (r *Room) votingComplete() bool {
	for _, p := range r.players {
		if p.IsAlive() && !p.HasVoted {
			return false
		}
	}
	return true
}

func (r *Room) votedCountLocked() int {
	n := 0
	for _, p := range r.players {
		if p.IsAlive() && p.HasVoted {
			n++
		}
	}
	return n
}

func (r *Room) aliveCountLocked() int {
	n := 0
	for _, p := range r.players {
		if p.IsAlive() {
			n++
		}
	}
	return n
}

// resolveVotes tallies the ballot box, ejects the loser if there is
// one, returns the room to playing and re-evaluates win conditions.
// Caller holds the lock and has verified the meeting phase.
func (r *Room) resolveVotes() *VoteOutcome {
	tally := logic.TallyVotes(r.ballots)

	outcome := &VoteOutcome{
		Complete: true,
		Voted:    r.votedCountLocked(),
		Total:    r.aliveCountLocked(),
		Result:   &tally,
	}

	if tally.Ejected != "" {
		if ejected, ok := r.players[tally.Ejected]; ok {
			ejected.Kill()
			snap := ejected.ToSnapshot(true)
			outcome.Ejected = &snap
		}
	}

	// Ballots are consumed by the resolution.
	r.ballots = make(map[string]string)
	r.meetingCaller = ""
	r.meetingReason = ""

	r.phase.Transition(state.PhasePlaying)
	outcome.Win = r.endOnWin(r.evaluateWin())
	r.touch()
	return outcome
}

// evaluateWin checks the win conditions in their required order:
// impostor parity first, then impostor extinction, then task totals.
// Caller holds the lock.
func (r *Room) evaluateWin() *WinResult {
	aliveImpostors, aliveCrewmates := 0, 0
	crewmates, tasksDone := 0, 0

	for _, p := range r.players {
		if p.IsImpostor() {
			if p.IsAlive() {
				aliveImpostors++
			}
		}
		if p.IsCrewmate() {
			crewmates++
			tasksDone += p.TasksCompleted
			if p.IsAlive() {
				aliveCrewmates++
			}
		}
	}

	if aliveImpostors >= aliveCrewmates && aliveImpostors > 0 {
		return &WinResult{Winner: WinnerImpostors, Reason: ReasonOutnumber}
	}
	if aliveImpostors == 0 {
		return &WinResult{Winner: WinnerCrewmates, Reason: ReasonAllEliminated}
	}
	if tasksDone >= crewmates*r.settings.TasksPerCrewmate {
		return &WinResult{Winner: WinnerCrewmates, Reason: ReasonTasksComplete}
	}
	return nil
}

// endOnWin ends the game if win is non-nil. Caller holds the lock.
func (r *Room) endOnWin(win *WinResult) *WinResult {
	if win == nil {
		return nil
	}
	if r.winner == nil {
		r.winner = win
	}
	r.phase.Transition(state.PhaseEnded)
	return win
}

// endGame forces the room into the terminal phase regardless of rule
// evaluation. Idempotent: the first winner sticks.
func (r *Room) endGame(win WinResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endOnWin(&win)
	r.touch()
}

// ValidateSabotage checks a sabotage request: alive impostor, game in
// progress. Sabotage changes no room state, it only fans out, so the
// room contributes validation only.
func (r *Room) ValidateSabotage(callerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.phase.Is(state.PhasePlaying) {
		return ErrInvalidPhase
	}
	p, ok := r.players[callerID]
	if !ok {
		return ErrPlayerNotFound
	}
	if p.IsDead() {
		return ErrDeadPlayer
	}
	if !p.IsImpostor() {
		return ErrNotImpostor
	}
	r.touch()
	return nil
}
