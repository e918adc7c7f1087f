// Package logic holds the pure game rules: spatial checks, role math,
// vote tallying and input validation. Nothing in here has state or
// side effects, so every function degrades to a zero value or false
// on bad input instead of returning an error.
package logic

import (
	"math"
	"math/rand"
	"strings"
)

// Position is a point on the map.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bounds describes the playable map rectangle. Margin is kept clear on
// every edge so players cannot sit exactly on a wall.
type Bounds struct {
	Width  float64
	Height float64
	Margin float64
}

// Combatant is the minimal view of a player the rule predicates need.
// Defined here to keep logic free of a dependency on the player package.
type Combatant interface {
	IsImpostor() bool
	IsCrewmate() bool
	IsAlive() bool
	Pos() Position
}

func Distance(a, b Position) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func WithinRange(a, b Position, r float64) bool {
	return Distance(a, b) <= r
}

// Clamp forces a client-supplied position inside the bounds. Every
// externally reported position goes through here before it is trusted.
func Clamp(p Position, b Bounds) Position {
	return Position{
		X: math.Max(b.Margin, math.Min(b.Width-b.Margin, p.X)),
		Y: math.Max(b.Margin, math.Min(b.Height-b.Margin, p.Y)),
	}
}

// SpawnPosition is where everyone stands when a game starts.
func SpawnPosition(b Bounds) Position {
	return Position{X: b.Width / 2, Y: b.Height / 2}
}

// CanEliminate reports whether actor may kill target at the given range.
func CanEliminate(actor, target Combatant, killRange float64) bool {
	if actor == nil || target == nil {
		return false
	}
	if !actor.IsImpostor() || !actor.IsAlive() || !target.IsAlive() {
		return false
	}
	return WithinRange(actor.Pos(), target.Pos(), killRange)
}

// CanCompleteTask reports whether actor may complete a task at taskPos.
func CanCompleteTask(actor Combatant, taskPos Position, taskRange float64) bool {
	if actor == nil || !actor.IsCrewmate() || !actor.IsAlive() {
		return false
	}
	return WithinRange(actor.Pos(), taskPos, taskRange)
}

// CanReportBody reports whether reporter is alive and close enough to the
// body to report it.
func CanReportBody(reporter Combatant, bodyPos Position, reportRange float64) bool {
	if reporter == nil || !reporter.IsAlive() {
		return false
	}
	return WithinRange(reporter.Pos(), bodyPos, reportRange)
}

// ImpostorCount returns how many impostors a lobby of n players gets.
func ImpostorCount(n int, ratio float64) int {
	count := int(math.Floor(float64(n) * ratio))
	if count < 1 {
		count = 1
	}
	return count
}

// ShuffledIDs returns a fresh uniformly random permutation of ids. Role
// assignment picks the first ImpostorCount entries as impostors, so the
// shuffle must be re-randomized on every game start.
func ShuffledIDs(ids []string) []string {
	shuffled := make([]string, len(ids))
	copy(shuffled, ids)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

// SkipVote is the ballot value for a skip.
const SkipVote = ""

// VoteResult is the outcome of one meeting's ballots.
type VoteResult struct {
	Ejected  string         `json:"ejected"` // empty when nobody is ejected
	Tie      bool           `json:"tie"`
	Counts   map[string]int `json:"votes"`
	MaxVotes int            `json:"maxVotes"`
}

// TallyVotes resolves a ballot set. The candidate with strictly the most
// votes is ejected; a tie for the nonzero maximum, or an all-skip ballot
// set, ejects nobody. Skips count toward the total but never toward a
// candidate.
func TallyVotes(ballots map[string]string) VoteResult {
	counts := make(map[string]int)
	for _, target := range ballots {
		if target == SkipVote {
			continue
		}
		counts[target]++
	}

	result := VoteResult{Counts: counts}
	for candidate, n := range counts {
		switch {
		case n > result.MaxVotes:
			result.MaxVotes = n
			result.Ejected = candidate
			result.Tie = false
		case n == result.MaxVotes && result.MaxVotes > 0:
			result.Tie = true
		}
	}
	if result.Tie || result.MaxVotes == 0 {
		result.Ejected = ""
	}
	return result
}

const roomCodeLength = 6
const roomCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateRoomCode returns a random 6-character uppercase alphanumeric
// code. Uniqueness is the caller's problem.
func GenerateRoomCode() string {
	b := make([]byte, roomCodeLength)
	for i := range b {
		b[i] = roomCodeChars[rand.Intn(len(roomCodeChars))]
	}
	return string(b)
}

// NormalizeRoomCode uppercases a code and reports whether it has the
// expected shape.
func NormalizeRoomCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != roomCodeLength {
		return code, false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return code, false
		}
	}
	return code, true
}

// reservedNames are rejected as player names regardless of casing.
var reservedNames = map[string]bool{
	"admin":     true,
	"server":    true,
	"bot":       true,
	"null":      true,
	"undefined": true,
}

// SanitizeName trims a raw name, strips angle brackets and caps the
// length at 20 runes.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("<", "", ">", "").Replace(name)
	runes := []rune(name)
	if len(runes) > 20 {
		runes = runes[:20]
	}
	return strings.TrimSpace(string(runes))
}

// ValidName reports whether a sanitized name is acceptable: 1-20 runes,
// no surrounding whitespace, not a reserved word.
func ValidName(name string) bool {
	if name == "" || strings.TrimSpace(name) != name {
		return false
	}
	if n := len([]rune(name)); n < 1 || n > 20 {
		return false
	}
	return !reservedNames[strings.ToLower(name)]
}
