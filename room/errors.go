package room

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrGameNotStarted     = errors.New("game has not started")
	ErrGameOver           = errors.New("game is over")
	ErrCodeSpaceExhausted = errors.New("no free room code")
)
