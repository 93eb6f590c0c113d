package signal

import (
	"github.com/dkeye/voicesignal/internal/app"
	"github.com/dkeye/voicesignal/internal/domain"
)

func (ctl *SignalWSController) handleWhoAmI(
	sess *app.Session,
	conn *WsSignalConn,
) {
	resp := struct {
		Session     string        `json:"session"`
		Room        domain.RoomID `json:"room,omitempty"`
		UserID      domain.UserID `json:"userId,omitempty"`
		DisplayName string        `json:"displayName,omitempty"`
	}{
		Session: string(sess.ID),
	}
	if roomID, userID, ok := sess.Current(); ok {
		// A member removed by someone else's leave no longer reports the room.
		if m, ok := ctl.Orch.Registry.Member(roomID, userID); ok {
			resp.Room = roomID
			resp.UserID = userID
			resp.DisplayName = m.DisplayName
		}
	}
	ctl.sendJSON(conn, "whoami", resp)
}
