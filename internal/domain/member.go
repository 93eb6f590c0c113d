package domain

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	UserID        UserID `json:"userId"`
	DisplayName   string `json:"displayName"`
	SignalAddress string `json:"signalAddress"`
}

// NewMember normalizes its inputs and refuses to build a member without
// a user id or a signal address.
func NewMember(userID, displayName, signalAddress any) (Member, error) {
	m := Member{
		UserID:        NormalizeUserID(userID),
		DisplayName:   NormalizeDisplayName(displayName),
		SignalAddress: NormalizeSignalAddress(signalAddress),
	}
	if m.UserID == "" || m.SignalAddress == "" {
		return Member{}, ErrInvalidRequest
	}
	return m, nil
}

// NormalizeSignalAddress trims the peer's signaling identifier.
func NormalizeSignalAddress(raw any) string {
	return coerce(raw)
}
