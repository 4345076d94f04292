// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/wfunc/bingoserver/models"
)

// PostgreSQL stores game results with plain SQL over lib/pq.
type PostgreSQL struct {
	db *sql.DB
}

func NewPostgreSQL(dsn string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init tables: %w", err)
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS game_results (
            id BIGSERIAL PRIMARY KEY,
            room_code VARCHAR(32) NOT NULL,
            outcome VARCHAR(32) NOT NULL,
            player_id VARCHAR(64) NOT NULL,
            player_name TEXT NOT NULL,
            slot INTEGER NOT NULL,
            result VARCHAR(32) NOT NULL,
            lines INTEGER NOT NULL DEFAULT 0,
            calls TEXT,
            started_at TIMESTAMPTZ NOT NULL,
            ended_at TIMESTAMPTZ NOT NULL,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_game_results_room_code ON game_results(room_code);
        CREATE INDEX IF NOT EXISTS idx_game_results_player_name ON game_results(player_name);
    `)
	return err
}

// SaveGameRecord writes one row per player in a single transaction.
func (p *PostgreSQL) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	rows, err := models.ResultRows(record)
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO game_results
            (room_code, outcome, player_id, player_name, slot, result, lines, calls, started_at, ended_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, query,
			r.RoomCode, r.Outcome, r.PlayerID, r.PlayerName, r.Slot,
			r.Result, r.Lines, r.Calls, r.StartedAt.UTC(), r.EndedAt.UTC()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *PostgreSQL) GetPlayerStats(ctx context.Context, name string) (models.PlayerStats, error) {
	var total, wins, losses, draws int
	err := p.db.QueryRowContext(ctx, `
        SELECT
            COUNT(*),
            COALESCE(SUM(CASE WHEN result = 'win' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN result = 'lose' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN result = 'draw' THEN 1 ELSE 0 END), 0)
        FROM game_results
        WHERE player_name = $1`, name).Scan(&total, &wins, &losses, &draws)
	if err != nil {
		return models.PlayerStats{}, err
	}
	return statsFromCounts(name, total, wins, losses, draws)
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
