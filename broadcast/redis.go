package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wfunc/tysiac/logger"
	"github.com/wfunc/tysiac/room"
	"github.com/wfunc/tysiac/state"
)

const summaryTTL = 2 * time.Hour

// Event is published on the room channel after every change. It carries no
// hidden information.
type Event struct {
	RoomID  string      `json:"roomId"`
	Version int64       `json:"version"`
	Phase   state.Phase `json:"phase"`
	Status  room.Status `json:"status"`
	Deleted bool        `json:"deleted"`
}

func NewEvent(r *room.Room, deleted bool) Event {
	return Event{RoomID: r.ID, Version: r.Version, Phase: r.Phase, Status: r.Status, Deleted: deleted}
}

// RedisPublisher publishes room events and keeps a lobby summary per room
// so other processes can list rooms without the game state.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "tysiac"
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel is the pub/sub channel for one room.
func (p *RedisPublisher) Channel(roomID string) string {
	return p.prefix + ":room:" + roomID
}

// SummaryKey holds the room's lobby summary.
func (p *RedisPublisher) SummaryKey(roomID string) string {
	return p.prefix + ":summary:" + roomID
}

func (p *RedisPublisher) RoomChanged(ctx context.Context, r *room.Room) {
	event, err := json.Marshal(NewEvent(r, false))
	if err != nil {
		logger.Log.Errorw("encode room event", "room_id", r.ID, "error", err)
		return
	}
	summary, err := json.Marshal(r.Summary())
	if err != nil {
		logger.Log.Errorw("encode room summary", "room_id", r.ID, "error", err)
		return
	}

	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.SummaryKey(r.ID), summary, summaryTTL)
	pipe.Publish(ctx, p.Channel(r.ID), event)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Warnw("redis publish failed", "room_id", r.ID, "version", r.Version, "error", err)
	}
}

func (p *RedisPublisher) RoomRemoved(ctx context.Context, r *room.Room) {
	event, err := json.Marshal(NewEvent(r, true))
	if err != nil {
		logger.Log.Errorw("encode room event", "room_id", r.ID, "error", err)
		return
	}

	pipe := p.client.TxPipeline()
	pipe.Del(ctx, p.SummaryKey(r.ID))
	pipe.Publish(ctx, p.Channel(r.ID), event)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Warnw("redis publish failed", "room_id", r.ID, "error", err)
	}
}

// Summary reads back the stored lobby summary of a room.
func (p *RedisPublisher) Summary(ctx context.Context, roomID string) (room.Summary, bool, error) {
	var s room.Summary
	data, err := p.client.Get(ctx, p.SummaryKey(roomID)).Bytes()
	if err == redis.Nil {
		return s, false, nil
	}
	if err != nil {
		return s, false, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, false, err
	}
	return s, true, nil
}
