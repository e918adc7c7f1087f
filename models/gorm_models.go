// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormMatch is the GORM row for a finished match. The participant list is
// stored as a JSONB document rather than a join table; match history is
// write-once and always read whole.
type GormMatch struct {
	gorm.Model
	MatchID  string `gorm:"uniqueIndex;not null"`
	RoomCode string `gorm:"index;not null"`
	Winner   string `gorm:"index;not null"`
	Reason   string `gorm:"not null"`
	Players  []byte `gorm:"type:jsonb;not null"`
	Duration int    `gorm:"default:0"` // seconds
}
