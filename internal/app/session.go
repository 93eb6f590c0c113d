package app

import (
	"github.com/dkeye/voicesignal/internal/core"
	"github.com/dkeye/voicesignal/internal/domain"
)

// Session is the per-connection binding to at most one (room, user) pair.
// It holds identifiers only and is owned by the connection's read loop,
// so it needs no locking.
type Session struct {
	ID core.SessionID

	room  domain.RoomID
	user  domain.UserID
	bound bool
}

func NewSession(id core.SessionID) *Session {
	return &Session{ID: id}
}

// Bind overwrites any previous binding. Leaving the old room is the
// dispatcher's job.
func (s *Session) Bind(room domain.RoomID, user domain.UserID) {
	s.room, s.user, s.bound = room, user, true
}

func (s *Session) Unbind() {
	s.room, s.user, s.bound = "", "", false
}

func (s *Session) Current() (domain.RoomID, domain.UserID, bool) {
	return s.room, s.user, s.bound
}
