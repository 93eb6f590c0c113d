package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/voicesignal/internal/app"
	"github.com/dkeye/voicesignal/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const defaultWriteWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	var ping <-chan time.Time
	if ctl.opts.PingPeriod > 0 {
		ticker := time.NewTicker(ctl.opts.PingPeriod)
		defer ticker.Stop()
		ping = ticker.C
	}
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.writeWait())); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ping:
			deadline := time.Now().Add(ctl.writeWait())
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) writeWait() time.Duration {
	if ctl.opts.WriteWait <= 0 {
		return defaultWriteWait
	}
	return ctl.opts.WriteWait
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sess *app.Session, c *WsSignalConn) {
	sid := sess.ID
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(sess)
		ctl.Hub.Unregister(sid)
		if ctl.Limiter != nil {
			ctl.Limiter.Forget(sid)
		}
		cancel()
		c.Close()
	}()

	if ctl.opts.PongWait > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
		})
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			if ctl.opts.PongWait > 0 {
				_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
			}
			ctl.handleSignal(sess, c, data)
		}
	}
}

// envelope is the part every inbound message shares.
type envelope struct {
	Type  string          `json:"type"`
	AckID json.RawMessage `json:"ackId,omitempty"`
}

func (ctl *SignalWSController) handleSignal(sess *app.Session, c *WsSignalConn, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sess.ID)).Msg("bad json")
		return
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(sess, c, env, data)
	case "leave":
		ctl.handleLeave(sess, data)
	case "signal":
		ctl.handleRelay(sess, c, data)
	case "whoami":
		ctl.handleWhoAmI(sess, c)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, event string, v any) {
	b, err := core.Encode(event, v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("event", event).Msg("sendJSON dropped")
	}
}

func (ctl *SignalWSController) sendError(c core.SignalConnection, code string) {
	ctl.sendJSON(c, "error", map[string]string{"error": code})
}
