package room

import (
	"fmt"
	"testing"

	"github.com/crewdeck/gameserver/logic"
	"github.com/crewdeck/gameserver/player"
	"github.com/crewdeck/gameserver/state"
)

func testSettings() Settings {
	return Settings{
		MinPlayers:       2,
		MaxPlayers:       10,
		ImpostorRatio:    0.25,
		KillRange:        50,
		TaskRange:        40,
		TasksPerCrewmate: 5,
		Bounds:           logic.Bounds{Width: 800, Height: 600, Margin: 20},
	}
}

// newTestRoom builds a room with n players; the first one is the host
// with id "p0".
func newTestRoom(t *testing.T, n int) *Room {
	t.Helper()
	r := New("ABC123", "p0", testSettings())
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("p%d", i)
		p := player.New(id, fmt.Sprintf("Player%d", i), r.Code)
		if err := r.AddPlayer(p); err != nil {
			t.Fatalf("AddPlayer(%s) failed: %v", id, err)
		}
	}
	return r
}

// forceRoles makes role assignment deterministic after a start: the
// given ids become the impostors, everyone else a crewmate.
func forceRoles(r *Room, impostors ...string) {
	isImpostor := make(map[string]bool)
	for _, id := range impostors {
		isImpostor[id] = true
	}
	for id, p := range r.players {
		if isImpostor[id] {
			p.AssignRole(player.RoleImpostor)
		} else {
			p.AssignRole(player.RoleCrewmate)
		}
	}
	r.impostorCount = len(impostors)
}

func startTestGame(t *testing.T, n int, impostors ...string) *Room {
	t.Helper()
	r := newTestRoom(t, n)
	if _, err := r.StartGame("p0"); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	if len(impostors) > 0 {
		forceRoles(r, impostors...)
	}
	return r
}

func TestAddPlayer_FullRoom(t *testing.T) {
	r := newTestRoom(t, 10)
	extra := player.New("extra", "Extra", r.Code)
	if err := r.AddPlayer(extra); err != ErrRoomFull {
		t.Errorf("Expected ErrRoomFull, got %v", err)
	}
}

func TestAddPlayer_FrozenAfterStart(t *testing.T) {
	r := startTestGame(t, 4)
	late := player.New("late", "Late", r.Code)
	if err := r.AddPlayer(late); err != ErrGameInProgress {
		t.Errorf("Expected ErrGameInProgress, got %v", err)
	}
}

func TestStartGame_RoleAssignment(t *testing.T) {
	r := newTestRoom(t, 8)

	result, err := r.StartGame("p0")
	if err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	if result.ImpostorCount != 2 {
		t.Errorf("Expected 2 impostors for 8 players, got %d", result.ImpostorCount)
	}
	if r.Phase() != state.PhasePlaying {
		t.Errorf("Expected playing phase, got %s", r.Phase())
	}

	impostors, crewmates := 0, 0
	for _, p := range r.players {
		switch p.Role {
		case player.RoleImpostor:
			impostors++
		case player.RoleCrewmate:
			crewmates++
		default:
			t.Errorf("Player %s has no role after start", p.ID)
		}
		if p.Position != result.Spawn {
			t.Errorf("Player %s not at spawn: %v", p.ID, p.Position)
		}
	}
	if impostors != 2 || crewmates != 6 {
		t.Errorf("Expected 2 impostors / 6 crewmates, got %d / %d", impostors, crewmates)
	}
}

func TestStartGame_Guards(t *testing.T) {
	r := newTestRoom(t, 4)

	if _, err := r.StartGame("p1"); err != ErrNotHost {
		t.Errorf("Non-host start: expected ErrNotHost, got %v", err)
	}

	solo := New("SOLO01", "h", testSettings())
	solo.AddPlayer(player.New("h", "Host", solo.Code))
	if _, err := solo.StartGame("h"); err != ErrNotEnoughPlayers {
		t.Errorf("Solo start: expected ErrNotEnoughPlayers, got %v", err)
	}

	if _, err := r.StartGame("p0"); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	if _, err := r.StartGame("p0"); err != ErrInvalidPhase {
		t.Errorf("Double start: expected ErrInvalidPhase, got %v", err)
	}
}

func TestMove(t *testing.T) {
	r := newTestRoom(t, 2)

	// Movement is rejected in the lobby.
	if _, err := r.Move("p0", logic.Position{X: 100, Y: 100}); err != ErrInvalidPhase {
		t.Errorf("Lobby move: expected ErrInvalidPhase, got %v", err)
	}

	r.StartGame("p0")

	clamped, err := r.Move("p0", logic.Position{X: 10, Y: 10})
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if clamped.X != 20 || clamped.Y != 20 {
		t.Errorf("Expected clamp to (20,20), got (%f,%f)", clamped.X, clamped.Y)
	}

	// Repeating the same move keeps the position stable.
	again, _ := r.Move("p0", logic.Position{X: 10, Y: 10})
	if again != clamped {
		t.Errorf("Repeated move changed position: %v vs %v", again, clamped)
	}

	if _, err := r.Move("ghost", logic.Position{X: 100, Y: 100}); err != ErrPlayerNotFound {
		t.Errorf("Unknown mover: expected ErrPlayerNotFound, got %v", err)
	}
}

func TestEliminate(t *testing.T) {
	r := startTestGame(t, 4, "p0")

	// Everyone spawns at the same point, so the target is in range.
	result, err := r.Eliminate("p0", "p1")
	if err != nil {
		t.Fatalf("Eliminate failed: %v", err)
	}
	if result.Body.PlayerID != "p1" {
		t.Errorf("Body log records %s, want p1", result.Body.PlayerID)
	}
	if p, _ := r.Player("p1"); !p.IsDead() {
		t.Error("Target should be dead")
	}
	if len(r.DeadBodies()) != 1 {
		t.Errorf("Expected 1 dead body, got %d", len(r.DeadBodies()))
	}
	if result.Win != nil {
		t.Errorf("4-player game should continue after one kill, got win %v", result.Win)
	}
}

func TestEliminate_OutOfRange(t *testing.T) {
	r := startTestGame(t, 4, "p0")
	r.Move("p1", logic.Position{X: 700, Y: 500})

	if _, err := r.Eliminate("p0", "p1"); err != ErrCannotEliminate {
		t.Errorf("Expected ErrCannotEliminate, got %v", err)
	}
	if p, _ := r.Player("p1"); p.IsDead() {
		t.Error("Out-of-range target must survive")
	}
}

func TestEliminate_CrewmateCannotKill(t *testing.T) {
	r := startTestGame(t, 4, "p0")
	if _, err := r.Eliminate("p1", "p2"); err != ErrCannotEliminate {
		t.Errorf("Expected ErrCannotEliminate for crewmate killer, got %v", err)
	}
}

func TestEliminate_TwoPlayerEndToEnd(t *testing.T) {
	r := startTestGame(t, 2)

	// With two players exactly one is the impostor.
	var impostor, crewmate string
	for id, p := range r.players {
		if p.IsImpostor() {
			impostor = id
		} else {
			crewmate = id
		}
	}
	if impostor == "" || crewmate == "" {
		t.Fatal("Expected one impostor and one crewmate")
	}

	result, err := r.Eliminate(impostor, crewmate)
	if err != nil {
		t.Fatalf("Eliminate failed: %v", err)
	}
	if result.Win == nil || result.Win.Winner != WinnerImpostors {
		t.Fatalf("Expected impostor win, got %v", result.Win)
	}
	if r.Phase() != state.PhaseEnded {
		t.Errorf("Expected ended phase, got %s", r.Phase())
	}
}

func TestCompleteTask(t *testing.T) {
	r := startTestGame(t, 4, "p0")

	result, err := r.CompleteTask("p1")
	if err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	if result.TasksCompleted != 1 {
		t.Errorf("Expected 1 task completed, got %d", result.TasksCompleted)
	}

	if _, err := r.CompleteTask("p0"); err != ErrNotCrewmate {
		t.Errorf("Impostor task: expected ErrNotCrewmate, got %v", err)
	}

	r.players["p1"].Kill()
	if _, err := r.CompleteTask("p1"); err != ErrDeadPlayer {
		t.Errorf("Dead crewmate task: expected ErrDeadPlayer, got %v", err)
	}
}

func TestCompleteTask_TasksWin(t *testing.T) {
	r := startTestGame(t, 4, "p0")

	// Three crewmates, five tasks each; the last completion ends it.
	var last *TaskResult
	for _, id := range []string{"p1", "p2", "p3"} {
		for i := 0; i < 5; i++ {
			result, err := r.CompleteTask(id)
			if err != nil {
				t.Fatalf("CompleteTask(%s) failed: %v", id, err)
			}
			last = result
		}
	}
	if last.Win == nil || last.Win.Winner != WinnerCrewmates || last.Win.Reason != ReasonTasksComplete {
		t.Fatalf("Expected crewmate task win, got %v", last.Win)
	}
}

func TestWinOrdering_ParityBeforeTasks(t *testing.T) {
	r := startTestGame(t, 4, "p0")

	// All tasks done but nothing has re-evaluated yet.
	for _, id := range []string{"p1", "p2", "p3"} {
		r.players[id].TasksCompleted = 5
	}
	// Kill down to one impostor vs one crewmate; the parity rule must
	// fire even though tasks are at 100%.
	r.players["p2"].Kill()

	result, err := r.Eliminate("p0", "p3")
	if err != nil {
		t.Fatalf("Eliminate failed: %v", err)
	}
	if result.Win == nil || result.Win.Winner != WinnerImpostors || result.Win.Reason != ReasonOutnumber {
		t.Fatalf("Parity must beat task completion, got %v", result.Win)
	}
}

func TestStartMeeting_Emergency(t *testing.T) {
	r := startTestGame(t, 4, "p0")

	info, err := r.StartMeeting("p1", MeetingReasonEmergency)
	if err != nil {
		t.Fatalf("StartMeeting failed: %v", err)
	}
	if r.Phase() != state.PhaseMeeting {
		t.Errorf("Expected meeting phase, got %s", r.Phase())
	}
	if info.CallerID != "p1" || info.Reason != MeetingReasonEmergency {
		t.Errorf("Meeting info wrong: %+v", info)
	}
	if info.AliveCount != 4 {
		t.Errorf("Expected 4 alive voters, got %d", info.AliveCount)
	}
}

func TestStartMeeting_Guards(t *testing.T) {
	r := startTestGame(t, 4, "p0")

	r.players["p1"].Kill()
	if _, err := r.StartMeeting("p1", MeetingReasonEmergency); err != ErrDeadPlayer {
		t.Errorf("Dead caller: expected ErrDeadPlayer, got %v", err)
	}

	// No bodies logged yet, so a report is rejected.
	if _, err := r.StartMeeting("p2", MeetingReasonBody); err != ErrNoReportableBody {
		t.Errorf("Report without body: expected ErrNoReportableBody, got %v", err)
	}

	r.StartMeeting("p2", MeetingReasonEmergency)
	if _, err := r.StartMeeting("p3", MeetingReasonEmergency); err != ErrInvalidPhase {
		t.Errorf("Meeting in meeting: expected ErrInvalidPhase, got %v", err)
	}
}

func TestStartMeeting_BodyReport(t *testing.T) {
	r := startTestGame(t, 4, "p0")

	if _, err := r.Eliminate("p0", "p1"); err != nil {
		t.Fatalf("Eliminate failed: %v", err)
	}

	// p2 stands at spawn next to the body.
	info, err := r.StartMeeting("p2", MeetingReasonBody)
	if err != nil {
		t.Fatalf("Body report failed: %v", err)
	}
	if info.Reason != MeetingReasonBody {
		t.Errorf("Expected body-reported reason, got %s", info.Reason)
	}
	if info.AliveCount != 3 {
		t.Errorf("Expected 3 alive voters, got %d", info.AliveCount)
	}
}

func TestStartMeeting_BodyReportOutOfRange(t *testing.T) {
	r := startTestGame(t, 4, "p0")
	r.Eliminate("p0", "p1")
	r.Move("p2", logic.Position{X: 700, Y: 500})

	if _, err := r.StartMeeting("p2", MeetingReasonBody); err != ErrNoReportableBody {
		t.Errorf("Far reporter: expected ErrNoReportableBody, got %v", err)
	}
}

func TestVoting_EndToEnd(t *testing.T) {
	r := startTestGame(t, 4, "p0")
	if _, err := r.StartMeeting("p1", MeetingReasonEmergency); err != nil {
		t.Fatalf("StartMeeting failed: %v", err)
	}

	// Ballots: p1, p1, p2, skip. The fourth vote resolves the meeting.
	outcome, err := r.CastVote("p0", "p1")
	if err != nil || outcome.Complete {
		t.Fatalf("First vote: err=%v complete=%v", err, outcome.Complete)
	}
	if outcome.Voted != 1 || outcome.Total != 4 {
		t.Errorf("Progress after first vote: %d/%d", outcome.Voted, outcome.Total)
	}

	r.CastVote("p1", "p1")
	r.CastVote("p2", "p2")
	outcome, err = r.CastVote("p3", logic.SkipVote)
	if err != nil {
		t.Fatalf("Last vote failed: %v", err)
	}
	if !outcome.Complete {
		t.Fatal("Last alive vote should resolve the meeting")
	}
	if outcome.Result.Ejected != "p1" || outcome.Result.Tie {
		t.Errorf("Expected p1 ejected without tie, got %+v", outcome.Result)
	}
	if p, _ := r.Player("p1"); !p.IsDead() {
		t.Error("Ejected player should be dead")
	}
	if r.Phase() != state.PhasePlaying {
		t.Errorf("Expected playing after resolution, got %s", r.Phase())
	}
}

func TestVoting_TieEjectsNobody(t *testing.T) {
	r := startTestGame(t, 4, "p0")
	r.StartMeeting("p1", MeetingReasonEmergency)

	r.CastVote("p0", "p1")
	r.CastVote("p1", "p2")
	r.CastVote("p2", "p1")
	outcome, err := r.CastVote("p3", "p2")
	if err != nil {
		t.Fatalf("Vote failed: %v", err)
	}
	if outcome.Result.Ejected != "" || !outcome.Result.Tie {
		t.Errorf("Expected tie with nobody ejected, got %+v", outcome.Result)
	}
	for _, id := range []string{"p1", "p2"} {
		if p, _ := r.Player(id); p.IsDead() {
			t.Errorf("Tie must not kill %s", id)
		}
	}
}

func TestVoting_Guards(t *testing.T) {
	r := startTestGame(t, 4, "p0")

	if _, err := r.CastVote("p0", "p1"); err != ErrInvalidPhase {
		t.Errorf("Vote outside meeting: expected ErrInvalidPhase, got %v", err)
	}

	r.StartMeeting("p1", MeetingReasonEmergency)
	r.players["p2"].Kill()

	if _, err := r.CastVote("p2", "p1"); err != ErrDeadPlayer {
		t.Errorf("Dead voter: expected ErrDeadPlayer, got %v", err)
	}

	if _, err := r.CastVote("p0", "p1"); err != nil {
		t.Fatalf("Vote failed: %v", err)
	}
	if _, err := r.CastVote("p0", "p3"); err != ErrAlreadyVoted {
		t.Errorf("Double vote: expected ErrAlreadyVoted, got %v", err)
	}
}

func TestForceResolveVotes(t *testing.T) {
	r := startTestGame(t, 4, "p0")
	r.StartMeeting("p1", MeetingReasonEmergency)

	r.CastVote("p0", "p1")

	outcome, err := r.ForceResolveVotes()
	if err != nil {
		t.Fatalf("ForceResolveVotes failed: %v", err)
	}
	if !outcome.Complete {
		t.Fatal("Forced resolution should complete the meeting")
	}
	// One real vote against three auto-skips: p1 still has the strict
	// maximum and is ejected.
	if outcome.Result.Ejected != "p1" {
		t.Errorf("Expected p1 ejected, got %q", outcome.Result.Ejected)
	}
	if r.Phase() != state.PhasePlaying {
		t.Errorf("Expected playing after forced resolution, got %s", r.Phase())
	}

	if _, err := r.ForceResolveVotes(); err != ErrInvalidPhase {
		t.Errorf("Second force: expected ErrInvalidPhase, got %v", err)
	}
}

func TestRemovePlayer_HostReassignment(t *testing.T) {
	r := newTestRoom(t, 3)

	result := r.RemovePlayer("p0")
	if !result.Removed {
		t.Fatal("Host removal should succeed")
	}
	// Insertion order makes p1 the next host.
	if result.NewHostID != "p1" || r.HostID() != "p1" {
		t.Errorf("Expected p1 as new host, got %q", result.NewHostID)
	}
}

func TestRemovePlayer_EmptyRoom(t *testing.T) {
	r := newTestRoom(t, 1)
	result := r.RemovePlayer("p0")
	if !result.Empty {
		t.Error("Removing the last player should flag the room empty")
	}
}

func TestRemovePlayer_Unknown(t *testing.T) {
	r := newTestRoom(t, 2)
	result := r.RemovePlayer("ghost")
	if result.Removed {
		t.Error("Removing an unknown id should be a no-op")
	}
}

func TestRemovePlayer_DisconnectDecidesGame(t *testing.T) {
	r := startTestGame(t, 3, "p0")

	// The only impostor leaves mid-game.
	result := r.RemovePlayer("p0")
	if result.Win == nil || result.Win.Winner != WinnerCrewmates {
		t.Fatalf("Expected crewmate win after impostor left, got %v", result.Win)
	}
	if r.Phase() != state.PhaseEnded {
		t.Errorf("Expected ended phase, got %s", r.Phase())
	}
}

func TestRemovePlayer_LastHoldoutResolvesMeeting(t *testing.T) {
	r := startTestGame(t, 4, "p0")
	r.StartMeeting("p1", MeetingReasonEmergency)

	r.CastVote("p0", "p1")
	r.CastVote("p1", "p1")
	r.CastVote("p2", "p1")

	// p3 never votes and disconnects; the meeting must not hang.
	result := r.RemovePlayer("p3")
	if result.Votes == nil || !result.Votes.Complete {
		t.Fatal("Departure of the last holdout should resolve the meeting")
	}
	if result.Votes.Result.Ejected != "p1" {
		t.Errorf("Expected p1 ejected, got %q", result.Votes.Result.Ejected)
	}
}

func TestEndedRoomRejectsMutation(t *testing.T) {
	r := startTestGame(t, 2)
	r.endGame(WinResult{Winner: WinnerCrewmates, Reason: ReasonAllEliminated})

	if _, err := r.Move("p0", logic.Position{X: 100, Y: 100}); err != ErrInvalidPhase {
		t.Errorf("Move on ended room: expected ErrInvalidPhase, got %v", err)
	}
	if _, err := r.Eliminate("p0", "p1"); err != ErrInvalidPhase {
		t.Errorf("Eliminate on ended room: expected ErrInvalidPhase, got %v", err)
	}
	if _, err := r.CompleteTask("p1"); err != ErrInvalidPhase {
		t.Errorf("CompleteTask on ended room: expected ErrInvalidPhase, got %v", err)
	}
	if _, err := r.StartMeeting("p0", MeetingReasonEmergency); err != ErrInvalidPhase {
		t.Errorf("StartMeeting on ended room: expected ErrInvalidPhase, got %v", err)
	}

	// endGame stays idempotent and the leave bookkeeping still works.
	r.endGame(WinResult{Winner: WinnerImpostors, Reason: ReasonOutnumber})
	if w := r.Winner(); w == nil || w.Winner != WinnerCrewmates {
		t.Errorf("First result must stick, got %v", w)
	}
	if result := r.RemovePlayer("p0"); !result.Removed {
		t.Error("Leave must succeed on an ended room")
	}
}

func TestSabotageValidation(t *testing.T) {
	r := startTestGame(t, 4, "p0")

	if err := r.ValidateSabotage("p0"); err != nil {
		t.Errorf("Alive impostor sabotage should pass, got %v", err)
	}
	if err := r.ValidateSabotage("p1"); err != ErrNotImpostor {
		t.Errorf("Crewmate sabotage: expected ErrNotImpostor, got %v", err)
	}

	r.players["p0"].Kill()
	if err := r.ValidateSabotage("p0"); err != ErrDeadPlayer {
		t.Errorf("Dead impostor sabotage: expected ErrDeadPlayer, got %v", err)
	}
}

func TestToListing(t *testing.T) {
	r := newTestRoom(t, 3)

	listing, ok := r.ToListing()
	if !ok {
		t.Fatal("Lobby room should be listable")
	}
	if listing.PlayerCount != 3 || listing.MaxPlayers != 10 || listing.HostName != "Player0" {
		t.Errorf("Unexpected listing: %+v", listing)
	}

	r.StartGame("p0")
	if _, ok := r.ToListing(); ok {
		t.Error("In-progress room should not be listable")
	}
}

func TestRosterRolePrivacy(t *testing.T) {
	r := startTestGame(t, 4, "p0")

	for _, snap := range r.Roster(false) {
		if snap.Role != player.RoleUnassigned {
			t.Errorf("Public roster leaked role for %s", snap.ID)
		}
	}
	for _, snap := range r.Roster(true) {
		if snap.Role == player.RoleUnassigned {
			t.Errorf("Private roster missing role for %s", snap.ID)
		}
	}
}
