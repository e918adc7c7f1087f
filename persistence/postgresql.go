// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL driver
	_ "github.com/lib/pq"

	"github.com/crewdeck/gameserver/models"
)

const queryTimeout = 5 * time.Second

// PostgreSQL is the raw database/sql implementation of Store.
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL opens a PostgreSQL connection and creates the match table.
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS matches (
            id SERIAL PRIMARY KEY,
            match_id VARCHAR(64) UNIQUE NOT NULL,
            room_code VARCHAR(16) NOT NULL,
            winner VARCHAR(32) NOT NULL,
            reason VARCHAR(64) NOT NULL,
            players JSONB NOT NULL,
            duration INT NOT NULL DEFAULT 0,
            started_at TIMESTAMP NOT NULL,
            ended_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_matches_room_code ON matches(room_code);
        CREATE INDEX IF NOT EXISTS idx_matches_winner ON matches(winner);
        CREATE INDEX IF NOT EXISTS idx_matches_ended_at ON matches(ended_at);
    `)

	return err
}

// SaveMatch writes one finished match.
func (p *PostgreSQL) SaveMatch(record *models.MatchRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err = p.db.ExecContext(ctx, `
        INSERT INTO matches (match_id, room_code, winner, reason, players, duration, started_at, ended_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, record.MatchID, record.RoomCode, record.Winner, record.Reason,
		players, record.Duration, record.StartedAt, record.EndedAt)

	return err
}

// RecentMatches returns up to limit matches, newest first.
func (p *PostgreSQL) RecentMatches(limit int) ([]models.MatchRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
        SELECT match_id, room_code, winner, reason, players, duration, started_at, ended_at
        FROM matches ORDER BY ended_at DESC LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMatches(rows)
}

// RoomMatches returns up to limit matches played under one room code,
// newest first.
func (p *PostgreSQL) RoomMatches(roomCode string, limit int) ([]models.MatchRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
        SELECT match_id, room_code, winner, reason, players, duration, started_at, ended_at
        FROM matches WHERE room_code = $1 ORDER BY ended_at DESC LIMIT $2
    `, roomCode, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMatches(rows)
}

// WinTally counts finished matches by winning side.
func (p *PostgreSQL) WinTally() (models.WinTally, error) {
	var tally models.WinTally

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
        SELECT winner, COUNT(*) FROM matches GROUP BY winner
    `)
	if err != nil {
		return tally, err
	}
	defer rows.Close()

	for rows.Next() {
		var winner string
		var n int
		if err := rows.Scan(&winner, &n); err != nil {
			return tally, err
		}
		tally.Total += n
		switch winner {
		case "impostors":
			tally.Impostors = n
		case "crewmates":
			tally.Crewmates = n
		}
	}
	return tally, rows.Err()
}

// Close releases the connection pool.
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

func scanMatches(rows *sql.Rows) ([]models.MatchRecord, error) {
	var records []models.MatchRecord
	for rows.Next() {
		var rec models.MatchRecord
		var players []byte
		err := rows.Scan(&rec.MatchID, &rec.RoomCode, &rec.Winner, &rec.Reason,
			&players, &rec.Duration, &rec.StartedAt, &rec.EndedAt)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(players, &rec.Players); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
