package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crewdeck/gameserver/models"
	"github.com/crewdeck/gameserver/persistence"
	"github.com/crewdeck/gameserver/player"
	"github.com/crewdeck/gameserver/room"
)

// RecordService turns finished games into match records and answers
// history queries. It is only constructed when persistence is enabled.
type RecordService struct {
	store persistence.Store
}

func NewRecordService(store persistence.Store) *RecordService {
	return &RecordService{store: store}
}

// BuildRecord snapshots a finished room into a MatchRecord. The room must
// have a winner; rooms that dissolve mid-lobby are never recorded.
func BuildRecord(r *room.Room) (*models.MatchRecord, error) {
	win := r.Winner()
	if win == nil {
		return nil, fmt.Errorf("room %s has no winner", r.Code)
	}

	ended := time.Now()
	started := r.StartedAt()

	roster := r.Roster(true)
	participants := make([]models.MatchPlayer, 0, len(roster))
	for _, snap := range roster {
		participants = append(participants, models.MatchPlayer{
			PlayerID:       snap.ID,
			Name:           snap.Name,
			Role:           string(snap.Role),
			Outcome:        outcomeFor(snap.Role, win.Winner),
			TasksCompleted: snap.TasksCompleted,
			Survived:       snap.State == player.StateAlive,
		})
	}

	return &models.MatchRecord{
		MatchID:   uuid.New().String(),
		RoomCode:  r.Code,
		Winner:    win.Winner,
		Reason:    win.Reason,
		Players:   participants,
		Duration:  int(ended.Sub(started).Seconds()),
		StartedAt: started,
		EndedAt:   ended,
	}, nil
}

func outcomeFor(role player.Role, winner string) string {
	if (role == player.RoleImpostor) == (winner == room.WinnerImpostors) {
		return "win"
	}
	return "lose"
}

// RecordMatch persists one finished match.
func (s *RecordService) RecordMatch(record *models.MatchRecord) error {
	if record == nil || record.MatchID == "" {
		return fmt.Errorf("incomplete match record")
	}
	return s.store.SaveMatch(record)
}

// History returns the most recent matches across all rooms.
func (s *RecordService) History(limit int) ([]models.MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.RecentMatches(limit)
}

// RoomHistory returns the most recent matches played under one room code.
func (s *RecordService) RoomHistory(roomCode string, limit int) ([]models.MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.RoomMatches(roomCode, limit)
}

// WinRates reports the match tally by winning side.
func (s *RecordService) WinRates() (models.WinTally, error) {
	return s.store.WinTally()
}
