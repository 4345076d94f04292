// state/interfaces.go
package state

// RoomContext is the view of a room that states and transition guards need.
// It keeps state free of an import on room.
type RoomContext interface {
	GetID() string
	PlayerCount() int
}
