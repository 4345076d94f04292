// models/models.go
package models

import (
	"time"
)

// Per-player results stored with a finished game.
const (
	ResultWin          = "win"
	ResultLose         = "lose"
	ResultDraw         = "draw"
	ResultOpponentLeft = "opponent_left"
	ResultLeft         = "left"
	ResultIdle         = "idle"
)

// GameRecord describes one game that reached the gaming phase.
type GameRecord struct {
	RoomCode  string         `json:"room_code"`
	Outcome   string         `json:"outcome"` // winner/draw/opponent_left/idle
	Players   []PlayerResult `json:"players"`
	Called    []int          `json:"called"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
}

// PlayerResult is one player's side of a GameRecord.
type PlayerResult struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Slot     int    `json:"slot"`
	Result   string `json:"result"`
	Lines    int    `json:"lines"`
}

// PlayerStats aggregates the stored results for one player name.
type PlayerStats struct {
	Name       string `json:"name"`
	TotalGames int    `json:"total_games"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	Draws      int    `json:"draws"`
	Abandoned  int    `json:"abandoned"` // left, opponent_left or idle
}

// Add counts one result into the stats.
func (s *PlayerStats) Add(result string) {
	s.TotalGames++
	switch result {
	case ResultWin:
		s.Wins++
	case ResultLose:
		s.Losses++
	case ResultDraw:
		s.Draws++
	default:
		s.Abandoned++
	}
}
