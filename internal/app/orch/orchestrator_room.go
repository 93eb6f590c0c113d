package orch

import (
	"github.com/dkeye/voicesignal/internal/app"
	"github.com/dkeye/voicesignal/internal/domain"
	"github.com/rs/zerolog/log"
)

// OnJoin validates the request, leaves the connection's previous room if it
// differs, installs the member and tells the other room members about it.
// An invalid request is acked with BAD_REQUEST and changes nothing.
func (o *Orchestrator) OnJoin(sess *app.Session, ev JoinEvent, fn AckFunc) {
	roomID := domain.NormalizeRoomID(ev.RoomID)
	member, err := domain.NewMember(ev.UserID, ev.DisplayName, ev.SignalAddress)
	if roomID == "" || err != nil {
		log.Warn().Str("module", "orch").Str("sid", string(sess.ID)).Msg("join rejected: bad request")
		ack(fn, JoinAck{OK: false, Error: ErrCodeBadRequest})
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if prevRoom, prevUser, ok := sess.Current(); ok && (prevRoom != roomID || prevUser != member.UserID) {
		log.Info().Str("module", "orch").Str("sid", string(sess.ID)).Str("from_room", string(prevRoom)).Str("room", string(roomID)).Msg("leaving previous room before join")
		o.leave(sess, prevRoom, prevUser)
	}

	peers, err := o.Registry.Join(roomID, member.UserID, member.DisplayName, member.SignalAddress)
	if err != nil {
		ack(fn, JoinAck{OK: false, Error: ErrCodeBadRequest})
		return
	}
	// The newest connection for a user takes over; the old one stops
	// receiving the room's events.
	if prev, ok := o.Groups.Owner(roomID, member.UserID); ok && prev != sess.ID {
		log.Info().Str("module", "orch").Str("sid", string(prev)).Str("room", string(roomID)).Str("user", string(member.UserID)).Msg("superseded by newer connection")
		o.Groups.Leave(roomID, prev)
	}
	o.Groups.Join(roomID, sess.ID, member.UserID)
	sess.Bind(roomID, member.UserID)
	log.Info().Str("module", "orch").Str("sid", string(sess.ID)).Str("room", string(roomID)).Str("user", string(member.UserID)).Int("peers", len(peers)).Msg("joined")

	ack(fn, JoinAck{OK: true, Peers: peers})
	o.broadcast(roomID, sess.ID, EventUserJoined, member)
}

// OnLeave removes the named member. Requests missing a room or user are
// ignored; there is nobody to report the failure to.
func (o *Orchestrator) OnLeave(sess *app.Session, ev LeaveEvent) {
	roomID := domain.NormalizeRoomID(ev.RoomID)
	userID := domain.NormalizeUserID(ev.UserID)
	if roomID == "" || userID == "" {
		log.Debug().Str("module", "orch").Str("sid", string(sess.ID)).Msg("leave ignored: bad request")
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.leave(sess, roomID, userID)
}

// OnDisconnect performs the leave for whatever the connection is bound to.
func (o *Orchestrator) OnDisconnect(sess *app.Session) {
	roomID, userID, ok := sess.Current()
	if !ok {
		return
	}
	log.Info().Str("module", "orch").Str("sid", string(sess.ID)).Str("room", string(roomID)).Str("user", string(userID)).Msg("disconnect cleanup")
	o.mu.Lock()
	defer o.mu.Unlock()
	o.leave(sess, roomID, userID)
}

// leave must be called with o.mu held.
func (o *Orchestrator) leave(sess *app.Session, roomID domain.RoomID, userID domain.UserID) {
	boundRoom, boundUser, bound := sess.Current()
	self := bound && boundRoom == roomID && boundUser == userID
	owner, owned := o.Groups.Owner(roomID, userID)

	// A newer connection owns this member now; only this connection's
	// attachment goes away.
	if self && owned && owner != sess.ID {
		log.Info().Str("module", "orch").Str("sid", string(sess.ID)).Str("room", string(roomID)).Str("user", string(userID)).Msg("superseded connection left, member kept")
		sess.Unbind()
		o.Groups.Leave(roomID, sess.ID)
		return
	}

	removed, _ := o.Registry.Leave(roomID, userID)
	// A connection bound to this room as someone else stays attached.
	if self || !bound || boundRoom != roomID {
		if self {
			sess.Unbind()
		}
		o.Groups.Leave(roomID, sess.ID)
	}
	// The member's own connection stops receiving the room's events.
	if owned && owner != sess.ID {
		o.Groups.Leave(roomID, owner)
	}
	// Every connection still attached belongs in the room, including a
	// requester that removed someone else.
	if removed {
		o.broadcast(roomID, "", EventUserLeft, UserLeft{UserID: userID})
	}
}
