package app

import (
	"sort"
	"sync"

	"github.com/dkeye/voicesignal/internal/core"
	"github.com/dkeye/voicesignal/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry owns every room and member in the process.
// A single lock covers room creation, membership changes and the removal
// of rooms that became empty, so no empty room is ever observable.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*core.Room
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[domain.RoomID]*core.Room),
	}
}

// Join inserts or replaces the member and returns the room's members in
// join order. It fails with domain.ErrInvalidRequest, without touching any
// state, when the room id, user id or signal address normalizes to empty.
func (r *Registry) Join(roomID domain.RoomID, userID domain.UserID, displayName, signalAddress string) ([]domain.Member, error) {
	rid := domain.NormalizeRoomID(roomID)
	if rid == "" {
		return nil, domain.ErrInvalidRequest
	}
	m, err := domain.NewMember(userID, displayName, signalAddress)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[rid]
	if !ok {
		room = core.NewRoom(rid)
		r.rooms[rid] = room
		log.Info().Str("module", "app.registry").Str("room", string(rid)).Msg("room created")
	}
	replaced := room.Put(m)
	log.Info().Str("module", "app.registry").Str("room", string(rid)).Str("user", string(m.UserID)).Bool("replaced", replaced).Msg("member joined")
	return room.Snapshot(), nil
}

// Leave removes the member if present. Unknown rooms and users are a no-op.
func (r *Registry) Leave(roomID domain.RoomID, userID domain.UserID) (removed, roomEmpty bool) {
	rid := domain.NormalizeRoomID(roomID)
	uid := domain.NormalizeUserID(userID)
	if rid == "" || uid == "" {
		return false, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[rid]
	if !ok || !room.Remove(uid) {
		return false, false
	}
	log.Info().Str("module", "app.registry").Str("room", string(rid)).Str("user", string(uid)).Msg("member left")
	if room.Len() == 0 {
		delete(r.rooms, rid)
		log.Info().Str("module", "app.registry").Str("room", string(rid)).Msg("room removed")
		return true, true
	}
	return true, false
}

// Snapshot returns a copy of the room's members, or an empty list.
func (r *Registry) Snapshot(roomID domain.RoomID) []domain.Member {
	rid := domain.NormalizeRoomID(roomID)
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[rid]
	if !ok {
		return []domain.Member{}
	}
	return room.Snapshot()
}

// Member looks up a single member of a room.
func (r *Registry) Member(roomID domain.RoomID, userID domain.UserID) (domain.Member, bool) {
	rid := domain.NormalizeRoomID(roomID)
	uid := domain.NormalizeUserID(userID)
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[rid]
	if !ok {
		return domain.Member{}, false
	}
	return room.Get(uid)
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// List reports every live room ordered by id.
func (r *Registry) List() []domain.RoomInfo {
	r.mu.RLock()
	out := make([]domain.RoomInfo, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room.Info())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
