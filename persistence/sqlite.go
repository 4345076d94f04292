// persistence/sqlite.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/wfunc/bingoserver/models"
)

// SQLite stores game results in a local file. Timestamps are unix millis.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time keeps SQLite out of SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS game_results (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            room_code TEXT NOT NULL,
            outcome TEXT NOT NULL,
            player_id TEXT NOT NULL,
            player_name TEXT NOT NULL,
            slot INTEGER NOT NULL,
            result TEXT NOT NULL,
            lines INTEGER NOT NULL DEFAULT 0,
            calls TEXT,
            started_at INTEGER NOT NULL,
            ended_at INTEGER NOT NULL
        );
        CREATE INDEX IF NOT EXISTS idx_game_results_player_name ON game_results(player_name);
    `); err != nil {
		db.Close()
		return nil, fmt.Errorf("init tables: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	rows, err := models.ResultRows(record)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO game_results
                (room_code, outcome, player_id, player_name, slot, result, lines, calls, started_at, ended_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RoomCode, r.Outcome, r.PlayerID, r.PlayerName, r.Slot,
			r.Result, r.Lines, r.Calls, r.StartedAt.UTC().UnixMilli(), r.EndedAt.UTC().UnixMilli()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLite) GetPlayerStats(ctx context.Context, name string) (models.PlayerStats, error) {
	var total, wins, losses, draws int
	err := s.db.QueryRowContext(ctx, `
        SELECT
            COUNT(*),
            COALESCE(SUM(CASE WHEN result = 'win' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN result = 'lose' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN result = 'draw' THEN 1 ELSE 0 END), 0)
        FROM game_results
        WHERE player_name = ?`, name).Scan(&total, &wins, &losses, &draws)
	if err != nil {
		return models.PlayerStats{}, err
	}
	return statsFromCounts(name, total, wins, losses, draws)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
