package domain

import "strings"

type RoomID string

// NormalizeRoomID trims and uppercases the raw value, so "room-1" and
// " ROOM-1 " denote the same room. Empty output means invalid.
func NormalizeRoomID(raw any) RoomID {
	return RoomID(strings.ToUpper(coerce(raw)))
}

// RoomInfo is a read-only view of a room for diagnostics.
type RoomInfo struct {
	ID          RoomID `json:"id"`
	MemberCount int    `json:"member_count"`
}
