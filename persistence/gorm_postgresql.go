// persistence/gorm_postgresql.go
package persistence

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/crewdeck/gameserver/models"
)

// GormStore is the GORM-backed PostgreSQL implementation of Store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens a PostgreSQL connection through GORM and migrates the
// match table.
func NewGormStore(host string, port int, user, password, dbname string) (*GormStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormMatch{}); err != nil {
		return nil, err
	}

	return &GormStore{db: db}, nil
}

// SaveMatch writes one finished match. MatchID is unique, so replaying the
// same record is an error rather than a duplicate row.
func (g *GormStore) SaveMatch(record *models.MatchRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	row := models.GormMatch{
		MatchID:  record.MatchID,
		RoomCode: record.RoomCode,
		Winner:   record.Winner,
		Reason:   record.Reason,
		Players:  players,
		Duration: record.Duration,
	}
	row.CreatedAt = record.EndedAt

	return g.db.Create(&row).Error
}

// RecentMatches returns up to limit matches, newest first.
func (g *GormStore) RecentMatches(limit int) ([]models.MatchRecord, error) {
	var rows []models.GormMatch
	err := g.db.Order("created_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return recordsFromRows(rows)
}

// RoomMatches returns up to limit matches played under one room code,
// newest first.
func (g *GormStore) RoomMatches(roomCode string, limit int) ([]models.MatchRecord, error) {
	var rows []models.GormMatch
	err := g.db.Where("room_code = ?", roomCode).
		Order("created_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return recordsFromRows(rows)
}

// WinTally counts finished matches by winning side.
func (g *GormStore) WinTally() (models.WinTally, error) {
	var tally models.WinTally

	type winCount struct {
		Winner string
		N      int
	}
	var counts []winCount
	err := g.db.Model(&models.GormMatch{}).
		Select("winner, count(*) as n").
		Group("winner").
		Scan(&counts).Error
	if err != nil {
		return tally, err
	}

	for _, c := range counts {
		tally.Total += c.N
		switch c.Winner {
		case "impostors":
			tally.Impostors = c.N
		case "crewmates":
			tally.Crewmates = c.N
		}
	}
	return tally, nil
}

// Close releases the underlying connection pool.
func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func recordsFromRows(rows []models.GormMatch) ([]models.MatchRecord, error) {
	records := make([]models.MatchRecord, 0, len(rows))
	for _, row := range rows {
		var players []models.MatchPlayer
		if err := json.Unmarshal(row.Players, &players); err != nil {
			return nil, err
		}
		ended := row.CreatedAt
		records = append(records, models.MatchRecord{
			MatchID:   row.MatchID,
			RoomCode:  row.RoomCode,
			Winner:    row.Winner,
			Reason:    row.Reason,
			Players:   players,
			Duration:  row.Duration,
			StartedAt: ended.Add(-time.Duration(row.Duration) * time.Second),
			EndedAt:   ended,
		})
	}
	return records, nil
}
