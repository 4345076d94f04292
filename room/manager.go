// room/manager.go
package room

import (
	"sync"
)

const maxCodeAttempts = 32

// Manager owns every live room and the player -> room index. Its lock is
// never held while a room lock is taken.
type Manager struct {
	rooms   map[string]*Room
	players map[string]string // playerID -> room code
	codes   CodeGenerator
	mutex   sync.RWMutex
}

// NewRoomManager creates an empty registry that names rooms with codes.
func NewRoomManager(codes CodeGenerator) *Manager {
	return &Manager{
		rooms:   make(map[string]*Room),
		players: make(map[string]string),
		codes:   codes,
	}
}

// CreateRoom registers a new room under a code no live room uses.
func (m *Manager) CreateRoom(opts Options) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := m.codes()
		if err != nil {
			return nil, err
		}
		if _, taken := m.rooms[code]; taken {
			continue
		}
		room := NewRoom(code, opts)
		m.rooms[code] = room
		return room, nil
	}
	return nil, ErrCodeSpaceExhausted
}

// RemoveRoom drops a room and reports whether it was registered.
func (m *Manager) RemoveRoom(code string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.rooms[code]; !exists {
		return false
	}
	delete(m.rooms, code)
	return true
}

func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[code]
	return room, exists
}

// Rooms returns a snapshot of the live rooms.
func (m *Manager) Rooms() []*Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

func (m *Manager) BindPlayer(playerID, code string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.players[playerID] = code
}

func (m *Manager) UnbindPlayer(playerID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.players, playerID)
}

// PlayerRoom returns the code of the room playerID is seated in.
func (m *Manager) PlayerRoom(playerID string) (string, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	code, ok := m.players[playerID]
	return code, ok
}
