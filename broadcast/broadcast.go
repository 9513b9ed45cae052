// broadcast/broadcast.go
package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/wfunc/tysiac/logger"
	"github.com/wfunc/tysiac/network"
	"github.com/wfunc/tysiac/room"
	"github.com/wfunc/tysiac/session"
)

// 广播接口
type Broadcaster interface {
	BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) int
}

// Notifier is told about every committed room change.
type Notifier interface {
	RoomChanged(ctx context.Context, r *room.Room)
	RoomRemoved(ctx context.Context, r *room.Room)
}

// RoomClosed is the body of a room_closed packet.
type RoomClosed struct {
	RoomID string `json:"roomId"`
}

// Hub pushes each seated player their own redacted view over WebSocket.
// Views of one room go out in version order; a snapshot older than the
// last one sent for its room is dropped.
type Hub struct {
	sessionManager *session.Manager
	feeds          map[string]*roomFeed
	mutex          sync.Mutex
}

// roomFeed serializes the sends of one room.
type roomFeed struct {
	mu      sync.Mutex
	version int64
}

func NewHub(sessionManager *session.Manager) *Hub {
	return &Hub{sessionManager: sessionManager, feeds: make(map[string]*roomFeed)}
}

func (h *Hub) feed(roomID string) *roomFeed {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	f, ok := h.feeds[roomID]
	if !ok {
		f = &roomFeed{}
		h.feeds[roomID] = f
	}
	return f
}

// BroadcastToPlayers sends to every open session of the given players and
// returns how many sessions accepted the packet.
func (h *Hub) BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) int {
	delivered := 0
	for _, playerID := range playerIDs {
		for _, s := range h.sessionManager.GetByPlayerID(playerID) {
			if err := s.Send(msgID, data); err != nil {
				// 发送失败的连接由读循环负责清理
				logger.Log.Debugw("send failed", "session_id", s.ID, "player_id", playerID, "error", err)
				continue
			}
			delivered++
		}
	}
	return delivered
}

func (h *Hub) RoomChanged(_ context.Context, r *room.Room) {
	f := h.feed(r.ID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Version < f.version {
		logger.Log.Debugw("stale room view dropped", "room_id", r.ID, "version", r.Version, "sent", f.version)
		return
	}
	f.version = r.Version
	for _, playerID := range r.PlayerIDs() {
		data, err := json.Marshal(r.View(playerID))
		if err != nil {
			logger.Log.Errorw("encode room view", "room_id", r.ID, "player_id", playerID, "error", err)
			continue
		}
		h.BroadcastToPlayers([]string{playerID}, network.MsgTypeRoomState, data)
	}
}

func (h *Hub) RoomRemoved(_ context.Context, r *room.Room) {
	h.mutex.Lock()
	delete(h.feeds, r.ID)
	h.mutex.Unlock()
	data, _ := json.Marshal(RoomClosed{RoomID: r.ID})
	h.BroadcastToPlayers(r.PlayerIDs(), network.MsgTypeRoomClosed, data)
}

// Fanout forwards every notification to each notifier in order.
type Fanout []Notifier

func (f Fanout) RoomChanged(ctx context.Context, r *room.Room) {
	for _, n := range f {
		n.RoomChanged(ctx, r)
	}
}

func (f Fanout) RoomRemoved(ctx context.Context, r *room.Room) {
	for _, n := range f {
		n.RoomRemoved(ctx, r)
	}
}
