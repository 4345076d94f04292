// models/gorm_models.go
package models

import (
	"encoding/json"
	"time"
)

// GormGameResult is one row of game_results: a single player's result in one game.
type GormGameResult struct {
	ID         uint      `gorm:"primaryKey"`
	RoomCode   string    `gorm:"index;not null"`
	Outcome    string    `gorm:"not null"`
	PlayerID   string    `gorm:"not null"`
	PlayerName string    `gorm:"index;not null"`
	Slot       int       `gorm:"not null"`
	Result     string    `gorm:"not null"`
	Lines      int       `gorm:"default:0"`
	Calls      string    `gorm:"type:text"` // JSON array in call order
	StartedAt  time.Time `gorm:"not null"`
	EndedAt    time.Time `gorm:"not null"`
	CreatedAt  time.Time
}

func (GormGameResult) TableName() string {
	return "game_results"
}

// ResultRows flattens a record into one GormGameResult per player.
func ResultRows(record GameRecord) ([]GormGameResult, error) {
	calls, err := json.Marshal(record.Called)
	if err != nil {
		return nil, err
	}
	rows := make([]GormGameResult, 0, len(record.Players))
	for _, p := range record.Players {
		rows = append(rows, GormGameResult{
			RoomCode:   record.RoomCode,
			Outcome:    record.Outcome,
			PlayerID:   p.PlayerID,
			PlayerName: p.Name,
			Slot:       p.Slot,
			Result:     p.Result,
			Lines:      p.Lines,
			Calls:      string(calls),
			StartedAt:  record.StartedAt,
			EndedAt:    record.EndedAt,
		})
	}
	return rows, nil
}
