package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/voicesignal/internal/app"
	"github.com/dkeye/voicesignal/internal/app/orch"
	"github.com/dkeye/voicesignal/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// handleRelay forwards an offer/answer or ICE candidate to another member
// of the sender's room.
func (ctl *SignalWSController) handleRelay(
	sess *app.Session,
	conn *WsSignalConn,
	data []byte,
) {
	type relayPayload struct {
		To          any                        `json:"to"`
		Description *webrtc.SessionDescription `json:"description"`
		Candidate   *webrtc.ICECandidateInit   `json:"candidate"`
	}
	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad signal payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	err := ctl.Orch.OnSignal(sess, orch.SignalEvent{
		To:          p.To,
		Description: p.Description,
		Candidate:   p.Candidate,
	})
	switch {
	case err == nil:
	case errors.Is(err, orch.ErrNotInRoom):
		ctl.sendError(conn, "not_in_room")
	case errors.Is(err, orch.ErrInvalidSignal):
		ctl.sendError(conn, "invalid_signal")
	case errors.Is(err, core.ErrPeerNotFound):
		ctl.sendError(conn, "peer_not_found")
	default:
		ctl.sendError(conn, "send_failed")
	}
}
