// models/models.go
package models

import (
	"time"
)

// MatchRecord is the persisted summary of one finished game.
type MatchRecord struct {
	MatchID   string        `json:"match_id"`
	RoomCode  string        `json:"room_code"`
	Winner    string        `json:"winner"`
	Reason    string        `json:"reason"`
	Players   []MatchPlayer `json:"players"`
	Duration  int           `json:"duration"` // seconds
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
}

// MatchPlayer captures one participant's final standing.
type MatchPlayer struct {
	PlayerID       string `json:"player_id"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	Outcome        string `json:"outcome"` // win/lose
	TasksCompleted int    `json:"tasks_completed"`
	Survived       bool   `json:"survived"`
}

// WinTally aggregates finished matches by winning side.
type WinTally struct {
	Total     int `json:"total"`
	Impostors int `json:"impostors"`
	Crewmates int `json:"crewmates"`
}
