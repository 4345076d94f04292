package network

import "github.com/wfunc/bingoserver/card"

// Inbound payloads.

type CreateRoomRequest struct {
	PlayerName string `json:"player_name"`
}

type JoinRoomRequest struct {
	RoomCode   string `json:"room_code"`
	PlayerName string `json:"player_name"`
}

type LeaveRoomRequest struct {
	RoomCode string `json:"room_code"`
	PlayerID string `json:"player_id"`
}

type ResumeRequest struct {
	PlayerID string `json:"player_id"`
}

type CallNumberRequest struct {
	RoomCode string `json:"room_code"`
	PlayerID string `json:"player_id"`
	Number   int    `json:"number"`
}

// Outbound payloads.

type CreateRoomResponse struct {
	RoomCode string `json:"room_code"`
}

type JoinedMessage struct {
	RoomCode string `json:"room_code"`
	PlayerID string `json:"player_id"`
	Slot     int    `json:"slot"`
}

type WaitingMessage struct {
	RoomCode string `json:"room_code"`
	Message  string `json:"message"`
}

// GameStartMessage is private to one player: it carries only that player's card.
// It is also sent to a player that resumes on a new connection.
type GameStartMessage struct {
	RoomCode string                    `json:"room_code"`
	Slot     int                       `json:"slot"`
	Opponent string                    `json:"opponent"`
	Grid     [card.Size][card.Size]int `json:"grid"`
	YourTurn bool                      `json:"your_turn"`
	Called   []int                     `json:"called"`
}

type TurnMessage struct {
	YourTurn bool `json:"your_turn"`
	Lines    int  `json:"lines"`
}

type CalledMessage struct {
	Called []int `json:"called"`
	Last   int   `json:"last"`
}

type WinnerMessage struct {
	WinnerSlot int    `json:"winner_slot"`
	WinnerName string `json:"winner_name"`
	Lines      [2]int `json:"lines"`
	Ended      bool   `json:"ended"`
}

type DrawMessage struct {
	Lines [2]int `json:"lines"`
	Ended bool   `json:"ended"`
}

type OpponentLeftMessage struct {
	Reason string `json:"reason"`
	Ended  bool   `json:"ended"`
}

type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RoomCountMessage struct {
	Count int `json:"count"`
}

type ShutdownMessage struct {
	Message string `json:"message"`
}
