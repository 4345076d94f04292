// persistence/interface.go
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/bingoserver/config"
	"github.com/wfunc/bingoserver/models"
)

// Database stores finished games. Live rooms are never persisted.
type Database interface {
	SaveGameRecord(ctx context.Context, record models.GameRecord) error
	GetPlayerStats(ctx context.Context, name string) (models.PlayerStats, error)
	Close() error
}

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrNoDatabase     = errors.New("no database configured")
)

// Open connects the store selected by cfg.Driver. The "none" driver returns
// ErrNoDatabase.
func Open(cfg config.DatabaseConfig) (Database, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLite(cfg.SQLite.Path)
	case "postgres":
		return NewPostgreSQL(cfg.Postgres.DSN())
	case "gorm":
		return NewGormPostgreSQL(cfg.Postgres.DSN())
	case "none", "":
		return nil, ErrNoDatabase
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// statsFromCounts fills in the abandoned count. A player with no stored
// games is ErrRecordNotFound.
func statsFromCounts(name string, total, wins, losses, draws int) (models.PlayerStats, error) {
	if total == 0 {
		return models.PlayerStats{}, ErrRecordNotFound
	}
	return models.PlayerStats{
		Name:       name,
		TotalGames: total,
		Wins:       wins,
		Losses:     losses,
		Draws:      draws,
		Abandoned:  total - wins - losses - draws,
	}, nil
}
