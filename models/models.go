// models/models.go
package models

import (
	"time"
)

// RoomRecord 房间快照。Snapshot 为整个房间的 JSON，Version 用于乐观锁。
type RoomRecord struct {
	RoomID    string    `json:"room_id"`
	Code      string    `json:"code"`
	Status    string    `json:"status"`
	Phase     string    `json:"phase"`
	Version   int64     `json:"version"`
	Snapshot  []byte    `json:"snapshot"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WinnerRecord 最近获胜者
type WinnerRecord struct {
	RoomID string    `json:"room_id"`
	Name   string    `json:"name"`
	Team   string    `json:"team,omitempty"`
	Score  int       `json:"score"`
	Rounds int       `json:"rounds"`
	WonAt  time.Time `json:"won_at"`
}

// GameRecord 游戏记录模型
type GameRecord struct {
	RoomID     string       `json:"room_id"`
	GameMode   string       `json:"game_mode"`
	Rounds     int          `json:"rounds"`
	Winner     string       `json:"winner"`
	Players    []PlayerInfo `json:"players"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// PlayerInfo 玩家信息（用于游戏记录）
type PlayerInfo struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
	Team     string `json:"team,omitempty"`
	Outcome  string `json:"outcome"` // win/lose
	Points   int    `json:"points"`
}
