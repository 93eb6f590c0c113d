package core

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dkeye/voicesignal/internal/domain"
	"github.com/rs/zerolog/log"
)

// group is one room's broadcast group.
type group struct {
	bySID  map[SessionID]domain.UserID
	byUser map[domain.UserID]SessionID
}

// GroupHub is a threadsafe registry of live connections and the per-room
// groups they belong to. It never closes adapter-owned resources except
// through Disconnect.
type GroupHub struct {
	mu     sync.RWMutex
	conns  map[SessionID]SignalConnection
	groups map[domain.RoomID]*group
}

func NewGroupHub() *GroupHub {
	return &GroupHub{
		conns:  make(map[SessionID]SignalConnection),
		groups: make(map[domain.RoomID]*group),
	}
}

func (h *GroupHub) Register(sid SessionID, conn SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[sid] = conn
	log.Debug().Str("module", "core.hub").Str("sid", string(sid)).Msg("connection registered")
}

// Unregister forgets the connection and drops it from every group.
func (h *GroupHub) Unregister(sid SessionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, sid)
	for room := range h.groups {
		h.leaveLocked(room, sid)
	}
	log.Debug().Str("module", "core.hub").Str("sid", string(sid)).Msg("connection unregistered")
}

func (h *GroupHub) Join(room domain.RoomID, sid SessionID, user domain.UserID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.groups[room]
	if !ok {
		g = &group{
			bySID:  make(map[SessionID]domain.UserID),
			byUser: make(map[domain.UserID]SessionID),
		}
		h.groups[room] = g
	}
	if prev, ok := g.bySID[sid]; ok && g.byUser[prev] == sid {
		delete(g.byUser, prev)
	}
	g.bySID[sid] = user
	g.byUser[user] = sid
	log.Debug().Str("module", "core.hub").Str("sid", string(sid)).Str("room", string(room)).Msg("joined group")
}

func (h *GroupHub) Leave(room domain.RoomID, sid SessionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, sid)
}

func (h *GroupHub) leaveLocked(room domain.RoomID, sid SessionID) {
	g, ok := h.groups[room]
	if !ok {
		return
	}
	if u, ok := g.bySID[sid]; ok {
		if g.byUser[u] == sid {
			delete(g.byUser, u)
		}
		delete(g.bySID, sid)
	}
	if len(g.bySID) == 0 {
		delete(h.groups, room)
	}
}

// Owner returns the connection that most recently joined the room as user.
func (h *GroupHub) Owner(room domain.RoomID, user domain.UserID) (SessionID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	g, ok := h.groups[room]
	if !ok {
		return "", false
	}
	sid, ok := g.byUser[user]
	return sid, ok
}

// GroupSize reports how many connections are attached to the room's group.
func (h *GroupHub) GroupSize(room domain.RoomID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if g, ok := h.groups[room]; ok {
		return len(g.bySID)
	}
	return 0
}

func (h *GroupHub) BroadcastToRoom(room domain.RoomID, except SessionID, event string, payload any) PublishResult {
	res := PublishResult{}
	frame, err := Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "core.hub").Str("event", event).Msg("broadcast encode")
		return res
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	g, ok := h.groups[room]
	if !ok {
		return res
	}
	for sid := range g.bySID {
		if sid == except {
			continue
		}
		conn, ok := h.conns[sid]
		if !ok {
			continue
		}
		if err := conn.TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, sid)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.hub").Str("room", string(room)).Str("event", event).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// SendTo delivers one message to the connection that most recently joined
// the room as user.
func (h *GroupHub) SendTo(room domain.RoomID, user domain.UserID, event string, payload any) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	g, ok := h.groups[room]
	if !ok {
		return ErrPeerNotFound
	}
	sid, ok := g.byUser[user]
	if !ok {
		return ErrPeerNotFound
	}
	conn, ok := h.conns[sid]
	if !ok {
		return ErrPeerNotFound
	}
	return conn.TrySend(frame)
}

// Disconnect closes the connection; the adapter's read loop then reports
// the disconnect as usual.
func (h *GroupHub) Disconnect(sid SessionID) {
	h.mu.RLock()
	conn, ok := h.conns[sid]
	h.mu.RUnlock()
	if !ok {
		return
	}
	log.Info().Str("module", "core.hub").Str("sid", string(sid)).Msg("disconnecting peer")
	conn.Close()
}

// Encode renders payload as a JSON object with an extra "type" field.
// A nil payload yields {"type": event}.
func Encode(event string, payload any) (Frame, error) {
	fields := map[string]json.RawMessage{}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", event, err)
		}
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("%s payload is not an object: %w", event, err)
		}
		if fields == nil {
			fields = map[string]json.RawMessage{}
		}
	}
	t, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	fields["type"] = t
	return json.Marshal(fields)
}
