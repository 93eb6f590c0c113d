package core

import "github.com/dkeye/voicesignal/internal/domain"

// Room is an insertion-ordered set of members keyed by user id.
// It is not synchronized; the owner guards it.
type Room struct {
	ID      domain.RoomID
	members map[domain.UserID]domain.Member
	order   []domain.UserID
}

func NewRoom(id domain.RoomID) *Room {
	return &Room{
		ID:      id,
		members: make(map[domain.UserID]domain.Member),
	}
}

// Put inserts m or overwrites the member with the same user id in place.
func (r *Room) Put(m domain.Member) (replaced bool) {
	if _, ok := r.members[m.UserID]; ok {
		replaced = true
	} else {
		r.order = append(r.order, m.UserID)
	}
	r.members[m.UserID] = m
	return replaced
}

func (r *Room) Remove(user domain.UserID) bool {
	if _, ok := r.members[user]; !ok {
		return false
	}
	delete(r.members, user)
	for i, u := range r.order {
		if u == user {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Room) Get(user domain.UserID) (domain.Member, bool) {
	m, ok := r.members[user]
	return m, ok
}

func (r *Room) Len() int { return len(r.members) }

// Snapshot copies the members out in join order.
func (r *Room) Snapshot() []domain.Member {
	out := make([]domain.Member, 0, len(r.order))
	for _, u := range r.order {
		out = append(out, r.members[u])
	}
	return out
}

func (r *Room) Info() domain.RoomInfo {
	return domain.RoomInfo{ID: r.ID, MemberCount: len(r.members)}
}
