package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/tysiac/state"
)

// recordingCommitter remembers committed versions and can be told to fail.
type recordingCommitter struct {
	mu       sync.Mutex
	versions map[string]int64
	removed  []string
	fail     error
}

func newRecordingCommitter() *recordingCommitter {
	return &recordingCommitter{versions: make(map[string]int64)}
}

func (c *recordingCommitter) Commit(_ context.Context, r *Room) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	if r.Version != c.versions[r.ID]+1 {
		return fmt.Errorf("version %d does not follow %d", r.Version, c.versions[r.ID])
	}
	c.versions[r.ID] = r.Version
	return nil
}

func (c *recordingCommitter) Remove(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	delete(c.versions, id)
	c.removed = append(c.removed, id)
	return nil
}

func newManagedRoom(t *testing.T, m *Manager, id, code string, maxPlayers int) *Room {
	t.Helper()
	r, err := New(CreateParams{ID: id, Code: code, Name: "table " + id, HostID: "host-" + id, Nickname: "host", MaxPlayers: maxPlayers}, m.Now())
	require.NoError(t, err)
	created, err := m.CreateRoom(context.Background(), r)
	require.NoError(t, err)
	return created
}

func TestRoomManager_CreateAndGetRoom(t *testing.T) {
	committer := newRecordingCommitter()
	manager := NewRoomManager(committer)

	created := newManagedRoom(t, manager, "room-a", "AAAAAA", 4)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, int64(1), committer.versions["room-a"])

	got, ok := manager.GetRoom("room-a")
	require.True(t, ok)
	assert.Equal(t, "room-a", got.ID)

	got.Name = "changed outside"
	again, _ := manager.GetRoom("room-a")
	assert.Equal(t, "table room-a", again.Name, "snapshots are copies")

	id, ok := manager.FindByCode("AAAAAA")
	assert.True(t, ok)
	assert.Equal(t, "room-a", id)

	_, ok = manager.GetRoom("missing")
	assert.False(t, ok)
}

func TestRoomManager_CodeCollision(t *testing.T) {
	manager := NewRoomManager(nil)
	newManagedRoom(t, manager, "room-a", "SAME22", 2)

	r, err := New(CreateParams{ID: "room-b", Code: "SAME22", Name: "b", HostID: "h", Nickname: "h", MaxPlayers: 2}, time.Now())
	require.NoError(t, err)
	_, err = manager.CreateRoom(context.Background(), r)
	assert.ErrorIs(t, err, ErrCodeTaken)
	assert.Equal(t, 1, manager.Count())
}

func TestRoomManager_MutateCommitsNewVersion(t *testing.T) {
	manager := NewRoomManager(newRecordingCommitter())
	stamp := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	manager.SetClock(func() time.Time { return stamp })
	newManagedRoom(t, manager, "room-a", "AAAAAA", 3)

	updated, err := manager.Mutate(context.Background(), "room-a", func(r *Room) error {
		_, err := r.Join("guest", "guest", stamp)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, stamp, updated.UpdatedAt)
	assert.Len(t, updated.Players, 2)
}

func TestRoomManager_FailedOperationLeavesRoomUntouched(t *testing.T) {
	manager := NewRoomManager(newRecordingCommitter())
	newManagedRoom(t, manager, "room-a", "AAAAAA", 3)

	_, err := manager.Mutate(context.Background(), "room-a", func(r *Room) error {
		r.Name = "half applied"
		return r.StartGame("host-room-a", time.Now())
	})
	assert.ErrorIs(t, err, ErrValidation)

	got, _ := manager.GetRoom("room-a")
	assert.Equal(t, "table room-a", got.Name)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, state.PhaseLobby, got.Phase)
}

func TestRoomManager_FailedCommitRollsBack(t *testing.T) {
	committer := newRecordingCommitter()
	manager := NewRoomManager(committer)
	newManagedRoom(t, manager, "room-a", "AAAAAA", 3)

	storageDown := errors.New("storage down")
	committer.fail = storageDown
	_, err := manager.Mutate(context.Background(), "room-a", func(r *Room) error {
		_, err := r.Join("guest", "guest", time.Now())
		return err
	})
	assert.ErrorIs(t, err, storageDown)

	got, _ := manager.GetRoom("room-a")
	assert.Len(t, got.Players, 1)
	assert.Equal(t, int64(1), got.Version)

	_, err = manager.RemoveRoom(context.Background(), "room-a", nil)
	assert.ErrorIs(t, err, storageDown)
	assert.Equal(t, 1, manager.Count())
}

func TestRoomManager_RemoveRoom(t *testing.T) {
	committer := newRecordingCommitter()
	manager := NewRoomManager(committer)
	newManagedRoom(t, manager, "room-a", "AAAAAA", 2)

	_, err := manager.RemoveRoom(context.Background(), "room-a", func(r *Room) error {
		return r.AuthorizeDelete("someone")
	})
	assert.ErrorIs(t, err, ErrAuthorization)

	removed, err := manager.RemoveRoom(context.Background(), "room-a", func(r *Room) error {
		return r.AuthorizeDelete("host-room-a")
	})
	require.NoError(t, err)
	assert.Equal(t, "room-a", removed.ID)
	assert.Equal(t, []string{"room-a"}, committer.removed)

	_, ok := manager.GetRoom("room-a")
	assert.False(t, ok)
	_, ok = manager.FindByCode("AAAAAA")
	assert.False(t, ok)

	_, err = manager.Mutate(context.Background(), "room-a", func(*Room) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoomManager_MutateOrRemoveOnHostLeave(t *testing.T) {
	manager := NewRoomManager(nil)
	newManagedRoom(t, manager, "room-a", "AAAAAA", 2)

	_, removed, err := manager.MutateOrRemove(context.Background(), "room-a", func(r *Room) (bool, error) {
		return r.Leave("host-room-a")
	})
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Zero(t, manager.Count())
}

func TestRoomManager_SerializesConcurrentMutations(t *testing.T) {
	committer := newRecordingCommitter()
	manager := NewRoomManager(committer)
	newManagedRoom(t, manager, "room-a", "AAAAAA", 4)
	newManagedRoom(t, manager, "room-b", "BBBBBB", 4)

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		for _, id := range []string{"room-a", "room-b"} {
			wg.Add(1)
			go func(id string, ready bool) {
				defer wg.Done()
				_, err := manager.Mutate(context.Background(), id, func(r *Room) error {
					return r.SetReady("host-"+id, ready)
				})
				assert.NoError(t, err)
			}(id, i%2 == 0)
		}
	}
	wg.Wait()

	for _, id := range []string{"room-a", "room-b"} {
		got, _ := manager.GetRoom(id)
		assert.Equal(t, int64(writers+1), got.Version)
		assert.Equal(t, int64(writers+1), committer.versions[id])
	}
}

func TestRoomManager_ListRoomsNewestFirst(t *testing.T) {
	manager := NewRoomManager(nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		at := base.Add(time.Duration(i) * time.Minute)
		manager.SetClock(func() time.Time { return at })
		newManagedRoom(t, manager, id, "CODE"+id, 2)
	}

	var ids []string
	for _, r := range manager.ListRooms() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"new", "mid", "old"}, ids)
}

func TestRoomManager_Restore(t *testing.T) {
	manager := NewRoomManager(newRecordingCommitter())
	r, err := New(CreateParams{ID: "saved", Code: "SAVED2", Name: "n", HostID: "h", Nickname: "h", MaxPlayers: 2}, time.Now())
	require.NoError(t, err)
	r.Version = 7
	manager.Restore([]*Room{r})

	got, ok := manager.GetRoom("saved")
	require.True(t, ok)
	assert.Equal(t, int64(7), got.Version)
	id, _ := manager.FindByCode("SAVED2")
	assert.Equal(t, "saved", id)
}

func TestRoomManager_ReplaceTakesOnlyNewerVersions(t *testing.T) {
	manager := NewRoomManager(nil)
	newManagedRoom(t, manager, "room-a", "AAAAAA", 2)

	stored, _ := manager.GetRoom("room-a")
	stored.Name = "renamed elsewhere"
	assert.False(t, manager.Replace(stored), "same version")

	stored.Version = 5
	assert.True(t, manager.Replace(stored))
	got, _ := manager.GetRoom("room-a")
	assert.Equal(t, "renamed elsewhere", got.Name)
	assert.Equal(t, int64(5), got.Version)

	assert.False(t, manager.Replace(&Room{ID: "missing", Version: 9}))
}
