package room

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Committer persists room snapshots. Commit must reject a snapshot whose
// Version does not follow the stored one.
type Committer interface {
	Commit(ctx context.Context, r *Room) error
	Remove(ctx context.Context, roomID string) error
}

type nopCommitter struct{}

func (nopCommitter) Commit(context.Context, *Room) error  { return nil }
func (nopCommitter) Remove(context.Context, string) error { return nil }

// slot owns one room. Its mutex serializes every mutation of that room.
type slot struct {
	mu      sync.Mutex
	room    *Room
	removed bool
}

// Manager 管理所有房间，每个房间独立串行写入
type Manager struct {
	rooms     map[string]*slot
	codes     map[string]string // code -> room id
	mutex     sync.RWMutex
	committer Committer
	now       func() time.Time
}

// NewRoomManager 创建一个新的房间管理器。committer 为 nil 时不持久化。
func NewRoomManager(committer Committer) *Manager {
	if committer == nil {
		committer = nopCommitter{}
	}
	return &Manager{
		rooms:     make(map[string]*slot),
		codes:     make(map[string]string),
		committer: committer,
		now:       time.Now,
	}
}

// SetClock replaces the time source used to stamp commits.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Now returns the manager's current time.
func (m *Manager) Now() time.Time { return m.now() }

// CreateRoom registers a new room and commits its first version.
func (m *Manager) CreateRoom(ctx context.Context, r *Room) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.rooms[r.ID]; exists {
		return nil, validationf("room %s already exists", r.ID)
	}
	if _, taken := m.codes[r.Code]; taken {
		return nil, ErrCodeTaken
	}
	created := r.Clone()
	created.Version = 1
	if err := m.committer.Commit(ctx, created); err != nil {
		return nil, err
	}
	m.rooms[r.ID] = &slot{room: created}
	m.codes[r.Code] = r.ID
	return created.Clone(), nil
}

// GetRoom returns a snapshot of the room.
func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	s, exists := m.rooms[id]
	m.mutex.RUnlock()
	if !exists {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return nil, false
	}
	return s.room.Clone(), true
}

// FindByCode resolves a join code to a room id.
func (m *Manager) FindByCode(code string) (string, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	id, ok := m.codes[code]
	return id, ok
}

// Mutate applies fn to a copy of the room and commits it. The stored room
// only changes when fn and the commit both succeed.
func (m *Manager) Mutate(ctx context.Context, id string, fn func(*Room) error) (*Room, error) {
	r, _, err := m.MutateOrRemove(ctx, id, func(r *Room) (bool, error) {
		return false, fn(r)
	})
	return r, err
}

// MutateOrRemove is Mutate for operations that may end the room. When fn
// reports removal the room is deleted instead of committed, and the returned
// room is the last snapshot fn produced.
func (m *Manager) MutateOrRemove(ctx context.Context, id string, fn func(*Room) (bool, error)) (*Room, bool, error) {
	m.mutex.RLock()
	s, exists := m.rooms[id]
	m.mutex.RUnlock()
	if !exists {
		return nil, false, notFoundf("room %s", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return nil, false, notFoundf("room %s", id)
	}

	next := s.room.Clone()
	remove, err := fn(next)
	if err != nil {
		return nil, false, err
	}
	if remove {
		if err := m.committer.Remove(ctx, id); err != nil {
			return nil, false, err
		}
		s.removed = true
		m.mutex.Lock()
		delete(m.rooms, id)
		delete(m.codes, s.room.Code)
		m.mutex.Unlock()
		return next, true, nil
	}

	next.Version = s.room.Version + 1
	next.UpdatedAt = m.now()
	if err := m.committer.Commit(ctx, next); err != nil {
		return nil, false, err
	}
	s.room = next
	return next.Clone(), false, nil
}

// RemoveRoom deletes a room after authorize accepts the current state.
func (m *Manager) RemoveRoom(ctx context.Context, id string, authorize func(*Room) error) (*Room, error) {
	r, _, err := m.MutateOrRemove(ctx, id, func(r *Room) (bool, error) {
		if authorize != nil {
			if err := authorize(r); err != nil {
				return false, err
			}
		}
		return true, nil
	})
	return r, err
}

// ListRooms returns snapshots of every room, newest first.
func (m *Manager) ListRooms() []*Room {
	m.mutex.RLock()
	slots := make([]*slot, 0, len(m.rooms))
	for _, s := range m.rooms {
		slots = append(slots, s)
	}
	m.mutex.RUnlock()

	rooms := make([]*Room, 0, len(slots))
	for _, s := range slots {
		s.mu.Lock()
		if !s.removed {
			rooms = append(rooms, s.room.Clone())
		}
		s.mu.Unlock()
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms
}

// Restore loads rooms read back from storage without committing them again.
func (m *Manager) Restore(rooms []*Room) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, r := range rooms {
		m.rooms[r.ID] = &slot{room: r.Clone()}
		m.codes[r.Code] = r.ID
	}
}

// Replace swaps in a newer snapshot of a live room, typically one read back
// from storage after a version conflict. Older or equal versions are ignored.
func (m *Manager) Replace(r *Room) bool {
	m.mutex.RLock()
	s, exists := m.rooms[r.ID]
	m.mutex.RUnlock()
	if !exists {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed || r.Version <= s.room.Version {
		return false
	}
	fresh := r.Clone()
	fresh.rng = s.room.rng
	s.room = fresh
	return true
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}
