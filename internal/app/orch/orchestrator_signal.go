package orch

import (
	"errors"
	"fmt"

	"github.com/dkeye/voicesignal/internal/app"
	"github.com/dkeye/voicesignal/internal/core"
	"github.com/dkeye/voicesignal/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotInRoom     = errors.New("not in a room")
	ErrInvalidSignal = errors.New("invalid signal")
)

// SignalEvent carries either a session description or an ICE candidate
// addressed to another member of the sender's room.
type SignalEvent struct {
	To          any
	Description *webrtc.SessionDescription
	Candidate   *webrtc.ICECandidateInit
}

type SignalMessage struct {
	From        domain.UserID              `json:"from"`
	Description *webrtc.SessionDescription `json:"description,omitempty"`
	Candidate   *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

// OnSignal relays addressing metadata between two members of one room.
// Media never passes through here.
func (o *Orchestrator) OnSignal(sess *app.Session, ev SignalEvent) error {
	roomID, from, ok := sess.Current()
	if !ok {
		return ErrNotInRoom
	}
	// The binding goes stale when another connection removed this member.
	if _, ok := o.Registry.Member(roomID, from); !ok {
		return ErrNotInRoom
	}
	to := domain.NormalizeUserID(ev.To)
	if to == "" || to == from {
		return fmt.Errorf("%w: bad recipient", ErrInvalidSignal)
	}
	if err := validateSignal(ev); err != nil {
		return err
	}
	if _, ok := o.Registry.Member(roomID, to); !ok {
		return core.ErrPeerNotFound
	}

	msg := SignalMessage{From: from, Description: ev.Description, Candidate: ev.Candidate}
	if err := o.Groups.SendTo(roomID, to, EventSignal, msg); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sess.ID)).Str("to", string(to)).Msg("signal relay failed")
		return err
	}
	log.Debug().Str("module", "orch").Str("room", string(roomID)).Str("from", string(from)).Str("to", string(to)).Msg("signal relayed")
	return nil
}

func validateSignal(ev SignalEvent) error {
	if (ev.Description == nil) == (ev.Candidate == nil) {
		return fmt.Errorf("%w: need exactly one of description or candidate", ErrInvalidSignal)
	}
	if ev.Candidate != nil {
		return nil
	}
	switch ev.Description.Type {
	case webrtc.SDPTypeOffer, webrtc.SDPTypeAnswer, webrtc.SDPTypePranswer:
	default:
		return fmt.Errorf("%w: unsupported description type %q", ErrInvalidSignal, ev.Description.Type.String())
	}
	if _, err := ev.Description.Unmarshal(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignal, err)
	}
	return nil
}
