package signal

import (
	"encoding/json"

	"github.com/dkeye/voicesignal/internal/app"
	"github.com/dkeye/voicesignal/internal/app/orch"
	"github.com/rs/zerolog/log"
)

// ErrCodeRateLimited acks joins refused by the transport's rate limiter.
const ErrCodeRateLimited = "RATE_LIMITED"

type ackMessage struct {
	AckID json.RawMessage `json:"ackId"`
	orch.JoinAck
}

// ackFunc returns nil when the client did not ask for an ack.
func (ctl *SignalWSController) ackFunc(conn *WsSignalConn, ackID json.RawMessage) orch.AckFunc {
	if len(ackID) == 0 || string(ackID) == "null" {
		return nil
	}
	return func(a orch.JoinAck) {
		ctl.sendJSON(conn, "ack", ackMessage{AckID: ackID, JoinAck: a})
	}
}

func (ctl *SignalWSController) handleJoin(
	sess *app.Session,
	conn *WsSignalConn,
	env envelope,
	data []byte,
) {
	type joinPayload struct {
		RoomID        any `json:"roomId"`
		UserID        any `json:"userId"`
		DisplayName   any `json:"displayName"`
		SignalAddress any `json:"signalAddress"`
	}
	ack := ctl.ackFunc(conn, env.AckID)

	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		if ack != nil {
			ack(orch.JoinAck{OK: false, Error: orch.ErrCodeBadRequest})
		}
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(sess.ID) {
		log.Warn().Str("module", "signal").Str("sid", string(sess.ID)).Msg("join rate limited")
		if ack != nil {
			ack(orch.JoinAck{OK: false, Error: ErrCodeRateLimited})
		}
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sess.ID)).Msg("join")
	ctl.Orch.OnJoin(sess, orch.JoinEvent{
		RoomID:        p.RoomID,
		UserID:        p.UserID,
		DisplayName:   p.DisplayName,
		SignalAddress: p.SignalAddress,
	}, ack)
}

// handleLeave leaves a room; the connection itself stays open and nothing
// is sent back.
func (ctl *SignalWSController) handleLeave(
	sess *app.Session,
	data []byte,
) {
	type leavePayload struct {
		RoomID any `json:"roomId"`
		UserID any `json:"userId"`
	}
	var p leavePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad leave payload")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID)).Msg("leave")
	ctl.Orch.OnLeave(sess, orch.LeaveEvent{RoomID: p.RoomID, UserID: p.UserID})
}
