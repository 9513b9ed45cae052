package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/tysiac/models"
)

// Memory keeps everything in process. It is the default store and the one
// the unit tests run against.
type Memory struct {
	mu      sync.RWMutex
	rooms   map[string]models.RoomRecord
	winners []models.WinnerRecord
	games   []models.GameRecord
}

func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]models.RoomRecord)}
}

func (m *Memory) SaveRoom(_ context.Context, rec models.RoomRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.rooms[rec.RoomID]
	switch {
	case rec.Version == 1 && exists:
		return ErrVersionConflict
	case rec.Version > 1 && (!exists || current.Version != rec.Version-1):
		return ErrVersionConflict
	}
	rec.Snapshot = append([]byte(nil), rec.Snapshot...)
	if exists {
		rec.CreatedAt = current.CreatedAt
	}
	m.rooms[rec.RoomID] = rec
	return nil
}

func (m *Memory) LoadRoom(_ context.Context, roomID string) (models.RoomRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.rooms[roomID]
	if !ok {
		return models.RoomRecord{}, ErrRecordNotFound
	}
	rec.Snapshot = append([]byte(nil), rec.Snapshot...)
	return rec, nil
}

func (m *Memory) DeleteRoom(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
	return nil
}

func (m *Memory) ListActiveRooms(_ context.Context) ([]models.RoomRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.RoomRecord
	for _, rec := range m.rooms {
		for _, s := range activeStatuses {
			if rec.Status == s {
				rec.Snapshot = append([]byte(nil), rec.Snapshot...)
				out = append(out, rec)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeleteFinishedRooms(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, rec := range m.rooms {
		if rec.Status == finishedStatus && rec.UpdatedAt.Before(before) {
			delete(m.rooms, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) SaveWinner(_ context.Context, w models.WinnerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.winners = append(m.winners, w)
	return nil
}

func (m *Memory) LatestWinner(_ context.Context) (models.WinnerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.winners) == 0 {
		return models.WinnerRecord{}, ErrRecordNotFound
	}
	latest := m.winners[0]
	for _, w := range m.winners[1:] {
		if !w.WonAt.Before(latest.WonAt) {
			latest = w
		}
	}
	return latest, nil
}

func (m *Memory) SaveGameRecord(_ context.Context, rec models.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Players = append([]models.PlayerInfo(nil), rec.Players...)
	m.games = append(m.games, rec)
	return nil
}

// GameRecords returns the finished games recorded so far.
func (m *Memory) GameRecords() []models.GameRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.GameRecord(nil), m.games...)
}

func (m *Memory) Close() error { return nil }
