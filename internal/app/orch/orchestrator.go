package orch

import (
	"sync"

	"github.com/dkeye/voicesignal/internal/app"
	"github.com/dkeye/voicesignal/internal/core"
	"github.com/dkeye/voicesignal/internal/domain"
	"github.com/rs/zerolog/log"
)

// Outbound event names.
const (
	EventUserJoined = "user-joined"
	EventUserLeft   = "user-left"
	EventSignal     = "signal"
)

// ErrCodeBadRequest is the only failure code a join ack carries.
const ErrCodeBadRequest = "BAD_REQUEST"

// JoinEvent is an inbound join as decoded from the wire. Fields stay
// untyped until the dispatcher normalizes them.
type JoinEvent struct {
	RoomID        any
	UserID        any
	DisplayName   any
	SignalAddress any
}

type LeaveEvent struct {
	RoomID any
	UserID any
}

// JoinAck answers a join request.
type JoinAck struct {
	OK    bool            `json:"ok"`
	Peers []domain.Member `json:"peers,omitempty"`
	Error string          `json:"error,omitempty"`
}

// AckFunc delivers a JoinAck back to the requesting connection.
// A nil AckFunc means the client asked for no acknowledgement.
type AckFunc func(JoinAck)

type UserLeft struct {
	UserID domain.UserID `json:"userId"`
}

// Orchestrator dispatches per-connection events to the registry and fans
// membership changes out through the broadcast groups.
//
// mu serializes membership changes: the registry update, the group update
// and the resulting broadcast form one step, so every member either sees a
// peer in its join snapshot or receives the event about it.
type Orchestrator struct {
	Registry *app.Registry
	Groups   core.Broadcaster
	Policy   app.Policy

	mu sync.Mutex
}

func (o *Orchestrator) broadcast(room domain.RoomID, except core.SessionID, event string, payload any) {
	res := o.Groups.BroadcastToRoom(room, except, event, payload)
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.DisconnectPeer:
			log.Warn().Str("module", "orch").Str("sid", string(slow)).Str("room", string(room)).Msg("peer dropped a broadcast, disconnecting")
			o.Groups.Disconnect(slow)
		case app.NoAction:
		}
	}
}

func ack(fn AckFunc, resp JoinAck) {
	if fn != nil {
		fn(resp)
	}
}
