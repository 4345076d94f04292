// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/session"
)

// Broadcaster fans one frame out to many sessions.
type Broadcaster interface {
	BroadcastToAll(msgID uint16, data []byte) int
}

// SessionBroadcaster sends through the live sessions of a session.Manager.
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{
		sessionManager: sessionManager,
	}
}

// BroadcastToAll returns how many sessions accepted the frame.
func (b *SessionBroadcaster) BroadcastToAll(msgID uint16, data []byte) int {
	sent := 0
	for _, s := range b.sessionManager.All() {
		if b.send(s, msgID, data) {
			sent++
		}
	}
	return sent
}

func (b *SessionBroadcaster) send(s *session.Session, msgID uint16, data []byte) bool {
	if err := s.Send(msgID, data); err != nil {
		logger.Log.Debugf("broadcast %d to %s: %v", msgID, s.ID, err)
		return false
	}
	return true
}
