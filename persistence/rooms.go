package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wfunc/tysiac/models"
	"github.com/wfunc/tysiac/room"
)

// EncodeRoom turns a room into its storage record.
func EncodeRoom(r *room.Room) (models.RoomRecord, error) {
	snapshot, err := json.Marshal(r)
	if err != nil {
		return models.RoomRecord{}, fmt.Errorf("encode room %s: %w", r.ID, err)
	}
	return models.RoomRecord{
		RoomID:    r.ID,
		Code:      r.Code,
		Status:    string(r.Status),
		Phase:     string(r.Phase),
		Version:   r.Version,
		Snapshot:  snapshot,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

// DecodeRoom rebuilds a room from its record. The record's version wins
// over the one inside the snapshot.
func DecodeRoom(rec models.RoomRecord) (*room.Room, error) {
	var r room.Room
	if err := json.Unmarshal(rec.Snapshot, &r); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", rec.RoomID, err)
	}
	r.Version = rec.Version
	return &r, nil
}

// RoomCommitter stores every committed room version through a Store.
type RoomCommitter struct {
	store Store
}

func NewRoomCommitter(store Store) *RoomCommitter {
	return &RoomCommitter{store: store}
}

func (c *RoomCommitter) Commit(ctx context.Context, r *room.Room) error {
	rec, err := EncodeRoom(r)
	if err != nil {
		return err
	}
	return c.store.SaveRoom(ctx, rec)
}

func (c *RoomCommitter) Remove(ctx context.Context, roomID string) error {
	return c.store.DeleteRoom(ctx, roomID)
}

// LoadActiveRooms reads back rooms that were waiting or playing.
func LoadActiveRooms(ctx context.Context, store Store) ([]*room.Room, error) {
	records, err := store.ListActiveRooms(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make([]*room.Room, 0, len(records))
	for _, rec := range records {
		r, err := DecodeRoom(rec)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, nil
}

// FinishedGame builds the winner entry and game record for a finished room.
func FinishedGame(r *room.Room) (models.WinnerRecord, models.GameRecord, error) {
	if r.Winner == nil {
		return models.WinnerRecord{}, models.GameRecord{}, fmt.Errorf("room %s has no winner", r.ID)
	}
	w := r.Winner
	winner := models.WinnerRecord{
		RoomID: r.ID,
		Name:   w.Name,
		Team:   string(w.Team),
		Score:  w.Score,
		Rounds: w.Rounds,
		WonAt:  w.WonAt,
	}

	won := make(map[string]bool, len(w.PlayerIDs))
	for _, id := range w.PlayerIDs {
		won[id] = true
	}
	standings := r.Standings()
	game := models.GameRecord{
		RoomID:     r.ID,
		GameMode:   string(r.GameMode),
		Rounds:     w.Rounds,
		Winner:     w.Name,
		StartedAt:  r.StartedAt,
		FinishedAt: w.WonAt,
	}
	for _, p := range r.Players {
		outcome := "lose"
		if won[p.ID] {
			outcome = "win"
		}
		game.Players = append(game.Players, models.PlayerInfo{
			PlayerID: p.ID,
			Nickname: p.Nickname,
			Team:     string(p.Team),
			Outcome:  outcome,
			Points:   standings[p.ID],
		})
	}
	return winner, game, nil
}
