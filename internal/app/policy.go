package app

import (
	"github.com/dkeye/voicesignal/internal/core"
	"github.com/dkeye/voicesignal/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DisconnectPeer
)

// Policy decides what happens to a peer that could not take a broadcast.
// It never affects the membership change that triggered the broadcast.
type Policy interface {
	OnBackPressure(room domain.RoomID, sid core.SessionID) BackpressureAction
}

// SimplePolicy disconnects peers whose send buffer is full.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.RoomID, core.SessionID) BackpressureAction {
	return DisconnectPeer
}

// TolerantPolicy ignores dropped broadcasts.
type TolerantPolicy struct{}

func (TolerantPolicy) OnBackPressure(domain.RoomID, core.SessionID) BackpressureAction {
	return NoAction
}
