package core

import (
	"errors"

	"github.com/dkeye/voicesignal/internal/domain"
)

var ErrPeerNotFound = errors.New("peer not found")

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SentTo  int
	Dropped []SessionID
}

// Broadcaster is the fan-out side of the transport: per-room groups of live
// connections kept in lockstep with registry membership by the dispatcher.
type Broadcaster interface {
	Join(room domain.RoomID, sid SessionID, user domain.UserID)
	Leave(room domain.RoomID, sid SessionID)
	Owner(room domain.RoomID, user domain.UserID) (SessionID, bool)
	BroadcastToRoom(room domain.RoomID, except SessionID, event string, payload any) PublishResult
	SendTo(room domain.RoomID, user domain.UserID, event string, payload any) error
	Disconnect(sid SessionID)
}
