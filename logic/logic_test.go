package logic

import (
	"math"
	"testing"
)

// fakeCombatant is a test double for the Combatant interface.
type fakeCombatant struct {
	impostor bool
	alive    bool
	pos      Position
}

func (f *fakeCombatant) IsImpostor() bool { return f.impostor }
func (f *fakeCombatant) IsCrewmate() bool { return !f.impostor }
func (f *fakeCombatant) IsAlive() bool    { return f.alive }
func (f *fakeCombatant) Pos() Position    { return f.pos }

func TestDistance(t *testing.T) {
	a := Position{X: 0, Y: 0}
	b := Position{X: 3, Y: 4}

	if d := Distance(a, b); d != 5 {
		t.Errorf("Expected distance 5, got %f", d)
	}
	if d := Distance(a, a); d != 0 {
		t.Errorf("Expected distance 0 for identical points, got %f", d)
	}
}

func TestWithinRange(t *testing.T) {
	a := Position{X: 0, Y: 0}
	b := Position{X: 50, Y: 0}

	if !WithinRange(a, b, 50) {
		t.Error("Exactly at range should count as within range")
	}
	if WithinRange(a, b, 49.9) {
		t.Error("Beyond range should not count as within range")
	}
}

func TestClamp(t *testing.T) {
	bounds := Bounds{Width: 800, Height: 600, Margin: 20}

	clamped := Clamp(Position{X: 10, Y: 10}, bounds)
	if clamped.X != 20 || clamped.Y != 20 {
		t.Errorf("Expected (20,20), got (%f,%f)", clamped.X, clamped.Y)
	}

	clamped = Clamp(Position{X: 5000, Y: -100}, bounds)
	if clamped.X != 780 || clamped.Y != 20 {
		t.Errorf("Expected (780,20), got (%f,%f)", clamped.X, clamped.Y)
	}

	// Clamping is idempotent: a clamped position clamps to itself.
	again := Clamp(clamped, bounds)
	if again != clamped {
		t.Errorf("Clamp is not idempotent: %v vs %v", again, clamped)
	}

	inside := Position{X: 400, Y: 300}
	if Clamp(inside, bounds) != inside {
		t.Error("In-bounds position should be unchanged")
	}
}

func TestCanEliminate(t *testing.T) {
	impostor := &fakeCombatant{impostor: true, alive: true, pos: Position{X: 100, Y: 100}}
	victim := &fakeCombatant{alive: true, pos: Position{X: 120, Y: 100}}

	if !CanEliminate(impostor, victim, 50) {
		t.Error("Alive impostor in range should be able to eliminate")
	}

	// Out of range.
	far := &fakeCombatant{alive: true, pos: Position{X: 500, Y: 100}}
	if CanEliminate(impostor, far, 50) {
		t.Error("Target out of range should not be eliminable")
	}

	// Crewmates never eliminate.
	crew := &fakeCombatant{alive: true, pos: Position{X: 100, Y: 100}}
	if CanEliminate(crew, victim, 50) {
		t.Error("Crewmate should not be able to eliminate")
	}

	// Dead actors and dead targets are out.
	deadImpostor := &fakeCombatant{impostor: true, pos: Position{X: 100, Y: 100}}
	if CanEliminate(deadImpostor, victim, 50) {
		t.Error("Dead impostor should not be able to eliminate")
	}
	deadVictim := &fakeCombatant{pos: Position{X: 120, Y: 100}}
	if CanEliminate(impostor, deadVictim, 50) {
		t.Error("Dead target should not be eliminable")
	}

	if CanEliminate(nil, victim, 50) || CanEliminate(impostor, nil, 50) {
		t.Error("Nil participants should never satisfy the predicate")
	}
}

func TestCanCompleteTask(t *testing.T) {
	crew := &fakeCombatant{alive: true, pos: Position{X: 150, Y: 150}}
	task := Position{X: 160, Y: 150}

	if !CanCompleteTask(crew, task, 40) {
		t.Error("Alive crewmate in range should be able to complete a task")
	}
	if CanCompleteTask(crew, Position{X: 400, Y: 400}, 40) {
		t.Error("Task out of range should not be completable")
	}

	impostor := &fakeCombatant{impostor: true, alive: true, pos: Position{X: 150, Y: 150}}
	if CanCompleteTask(impostor, task, 40) {
		t.Error("Impostor should not be able to complete tasks")
	}

	dead := &fakeCombatant{pos: Position{X: 150, Y: 150}}
	if CanCompleteTask(dead, task, 40) {
		t.Error("Dead crewmate should not be able to complete tasks")
	}
}

func TestImpostorCount(t *testing.T) {
	cases := []struct {
		players int
		want    int
	}{
		{2, 1},
		{3, 1},
		{4, 1},
		{7, 1},
		{8, 2},
		{10, 2},
	}
	for _, c := range cases {
		if got := ImpostorCount(c.players, 0.25); got != c.want {
			t.Errorf("ImpostorCount(%d, 0.25) = %d, want %d", c.players, got, c.want)
		}
	}
}

func TestShuffledIDs(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	shuffled := ShuffledIDs(ids)

	if len(shuffled) != len(ids) {
		t.Fatalf("Shuffle changed length: %d vs %d", len(shuffled), len(ids))
	}

	seen := make(map[string]bool)
	for _, id := range shuffled {
		seen[id] = true
	}
	for _, id := range ids {
		if !seen[id] {
			t.Errorf("Shuffle lost id %q", id)
		}
	}

	// Original slice must not be mutated.
	if ids[0] != "a" || ids[4] != "e" {
		t.Error("ShuffledIDs mutated its input")
	}
}

func TestTallyVotes_ClearWinner(t *testing.T) {
	ballots := map[string]string{
		"v1": "A", "v2": "A", "v3": "A", "v4": "A",
		"v5": "B", "v6": "B",
	}
	result := TallyVotes(ballots)

	if result.Ejected != "A" {
		t.Errorf("Expected A ejected, got %q", result.Ejected)
	}
	if result.Tie {
		t.Error("Expected no tie")
	}
	if result.MaxVotes != 4 {
		t.Errorf("Expected max 4 votes, got %d", result.MaxVotes)
	}
}

func TestTallyVotes_Tie(t *testing.T) {
	ballots := map[string]string{
		"v1": "A", "v2": "A", "v3": "A",
		"v4": "B", "v5": "B", "v6": "B",
	}
	result := TallyVotes(ballots)

	if result.Ejected != "" {
		t.Errorf("Tie should eject nobody, got %q", result.Ejected)
	}
	if !result.Tie {
		t.Error("Expected tie to be reported")
	}
}

func TestTallyVotes_AllSkip(t *testing.T) {
	ballots := map[string]string{
		"v1": SkipVote, "v2": SkipVote, "v3": SkipVote,
	}
	result := TallyVotes(ballots)

	if result.Ejected != "" {
		t.Errorf("All-skip should eject nobody, got %q", result.Ejected)
	}
	if result.Tie {
		t.Error("All-skip is not a tie")
	}
	if result.MaxVotes != 0 {
		t.Errorf("Expected zero max votes, got %d", result.MaxVotes)
	}
}

func TestTallyVotes_SkipsDoNotCountForCandidates(t *testing.T) {
	ballots := map[string]string{
		"v1": "A", "v2": "A", "v3": "B", "v4": SkipVote,
	}
	result := TallyVotes(ballots)

	if result.Ejected != "A" || result.Tie {
		t.Errorf("Expected A ejected without tie, got %q tie=%v", result.Ejected, result.Tie)
	}
	if len(result.Counts) != 2 {
		t.Errorf("Skip should not appear as a candidate, counts: %v", result.Counts)
	}
}

func TestGenerateRoomCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := GenerateRoomCode()
		normalized, ok := NormalizeRoomCode(code)
		if !ok || normalized != code {
			t.Fatalf("Generated code %q does not validate", code)
		}
	}
}

func TestNormalizeRoomCode(t *testing.T) {
	code, ok := NormalizeRoomCode("ab12cd")
	if !ok || code != "AB12CD" {
		t.Errorf("Expected AB12CD valid, got %q ok=%v", code, ok)
	}

	if _, ok := NormalizeRoomCode("short"); ok {
		t.Error("5-character code should be invalid")
	}
	if _, ok := NormalizeRoomCode("ABC 12"); ok {
		t.Error("Code with space should be invalid")
	}
	if _, ok := NormalizeRoomCode("ABC!12"); ok {
		t.Error("Code with punctuation should be invalid")
	}
}

func TestSanitizeAndValidateName(t *testing.T) {
	if got := SanitizeName("  <b>Red</b>  "); got != "bRed/b" {
		t.Errorf("Unexpected sanitized name %q", got)
	}

	long := SanitizeName("abcdefghijklmnopqrstuvwxyz")
	if len([]rune(long)) != 20 {
		t.Errorf("Expected 20-rune cap, got %d", len([]rune(long)))
	}

	valid := []string{"Red", "player one", "x"}
	for _, name := range valid {
		if !ValidName(name) {
			t.Errorf("Expected %q to be valid", name)
		}
	}

	invalid := []string{"", " padded", "padded ", "admin", "Server", "NULL"}
	for _, name := range invalid {
		if ValidName(name) {
			t.Errorf("Expected %q to be invalid", name)
		}
	}
}

func TestTaskLocations(t *testing.T) {
	tasks := TaskLocations()
	if len(tasks) != 8 {
		t.Fatalf("Expected 8 task stations, got %d", len(tasks))
	}

	bounds := Bounds{Width: 800, Height: 600, Margin: 20}
	for _, task := range tasks {
		p := Position{X: task.X, Y: task.Y}
		if Clamp(p, bounds) != p {
			t.Errorf("Task %q is outside map bounds", task.Name)
		}
	}

	// Callers get a copy, not the shared table.
	tasks[0].Name = "mutated"
	if TaskLocations()[0].Name == "mutated" {
		t.Error("TaskLocations should return a copy")
	}
}

func TestSpawnPosition(t *testing.T) {
	b := Bounds{Width: 800, Height: 600, Margin: 20}
	spawn := SpawnPosition(b)
	if math.Abs(spawn.X-400) > 1e-9 || math.Abs(spawn.Y-300) > 1e-9 {
		t.Errorf("Expected center spawn (400,300), got (%f,%f)", spawn.X, spawn.Y)
	}
}
