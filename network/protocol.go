package network

const (
	MsgTypeHeartbeat = 1
	MsgTypeError     = 2

	MsgTypeJoinRoom   = 101
	MsgTypeLeaveRoom  = 102
	MsgTypeCreateRoom = 103
	MsgTypeResume     = 104
	MsgTypeRoomCount  = 105

	MsgTypeCallNumber = 201

	MsgTypeWaiting        = 301
	MsgTypeTurn           = 302
	MsgTypeGameStart      = 303
	MsgTypeCalled         = 304
	MsgTypeWinner         = 305
	MsgTypeDraw           = 306
	MsgTypeOpponentLeft   = 307
	MsgTypeServerShutdown = 310
)
