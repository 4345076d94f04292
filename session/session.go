// session/session.go
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/wfunc/bingoserver/network"
)

// ErrDetached is returned when sending to a session that has no connection.
var ErrDetached = errors.New("session has no connection")

// Session is a player's identity. The connection behind it can be swapped
// without changing the ID.
type Session struct {
	ID        string
	Name      string
	RoomCode  string
	CreatedAt time.Time
	conn      network.Connection
	mutex     sync.RWMutex
}

func NewSession(id, name string, conn network.Connection) *Session {
	return &Session{
		ID:        id,
		Name:      name,
		conn:      conn,
		CreatedAt: time.Now(),
	}
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.mutex.RLock()
	conn := s.conn
	s.mutex.RUnlock()

	if conn == nil {
		return ErrDetached
	}
	return conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Conn() network.Connection {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.conn
}

// Rebind points the session at conn and returns the previous connection.
func (s *Session) Rebind(conn network.Connection) network.Connection {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	old := s.conn
	s.conn = conn
	return old
}

// Detach clears the connection only if it is still conn. It reports whether
// conn was the current connection.
func (s *Session) Detach(conn network.Connection) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.conn == nil || s.conn != conn {
		return false
	}
	s.conn = nil
	return true
}

// Manager maps player IDs to sessions.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

// Remove reports whether the session was registered.
func (m *Manager) Remove(sessionID string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return false
	}
	delete(m.sessions, sessionID)
	return true
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// All returns a snapshot of every session.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}
