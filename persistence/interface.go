// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/crewdeck/gameserver/models"
)

// Store persists finished-match records. Both the GORM and the raw
// database/sql implementations satisfy it; which one runs is a config
// choice.
type Store interface {
	SaveMatch(record *models.MatchRecord) error
	RecentMatches(limit int) ([]models.MatchRecord, error)
	RoomMatches(roomCode string, limit int) ([]models.MatchRecord, error)
	WinTally() (models.WinTally, error)
	Close() error
}

var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
