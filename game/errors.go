package game

import (
	"errors"

	"github.com/wfunc/bingoserver/room"
	"github.com/wfunc/bingoserver/state"
)

var (
	ErrRoomRequired = errors.New("room code required")
	ErrBadRequest   = errors.New("bad request")
	ErrRateLimited  = errors.New("rate limited")
)

// Error codes sent to clients.
const (
	CodeRoomRequired   = "ROOM_REQUIRED"
	CodeRoomNotFound   = "ROOM_NOT_FOUND"
	CodeRoomFull       = "ROOM_FULL"
	CodeAlreadyCalled  = "ALREADY_CALLED"
	CodeOutOfTurn      = "OUT_OF_TURN"
	CodePlayerNotFound = "PLAYER_NOT_FOUND"
	CodeInvalidNumber  = "INVALID_NUMBER"
	CodeGameNotStarted = "GAME_NOT_STARTED"
	CodeGameOver       = "GAME_OVER"
	CodeBadRequest     = "BAD_REQUEST"
	CodeRateLimited    = "RATE_LIMITED"
	CodeInternal       = "INTERNAL"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrRoomRequired, CodeRoomRequired},
	{room.ErrRoomNotFound, CodeRoomNotFound},
	{room.ErrRoomFull, CodeRoomFull},
	{room.ErrPlayerNotFound, CodePlayerNotFound},
	{room.ErrGameNotStarted, CodeGameNotStarted},
	{room.ErrGameOver, CodeGameOver},
	{state.ErrAlreadyCalled, CodeAlreadyCalled},
	{state.ErrOutOfTurn, CodeOutOfTurn},
	{state.ErrInvalidNumber, CodeInvalidNumber},
	{ErrBadRequest, CodeBadRequest},
	{ErrRateLimited, CodeRateLimited},
}

// ErrorCode maps err to the code reported to the client. Unknown errors are INTERNAL.
func ErrorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
