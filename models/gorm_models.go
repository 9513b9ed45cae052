// models/gorm_models.go
package models

import (
	"time"
)

// GORM 模型与 persistence/migrations 中的表结构保持一致，两种存储实现可以共用同一个库。

// GormRoom 房间快照表
type GormRoom struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    string    `gorm:"uniqueIndex;not null"`
	Code      string    `gorm:"index;not null"`
	Status    string    `gorm:"index;not null"`
	Phase     string    `gorm:"not null"`
	Version   int64     `gorm:"not null"`
	Snapshot  []byte    `gorm:"type:jsonb;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (GormRoom) TableName() string { return "rooms" }

// GormWinner 获胜者历史
type GormWinner struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    string    `gorm:"not null"`
	Name      string    `gorm:"not null"`
	Team      string    `gorm:"not null;default:''"`
	Score     int64     `gorm:"not null"`
	Rounds    int64     `gorm:"not null"`
	WonAt     time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

func (GormWinner) TableName() string { return "winners" }

// GormGameRecord 游戏记录模型
type GormGameRecord struct {
	ID         uint      `gorm:"primaryKey"`
	RoomID     string    `gorm:"index;not null"`
	GameMode   string    `gorm:"not null"`
	Rounds     int64     `gorm:"not null"`
	Winner     string    `gorm:"not null"`
	Players    []byte    `gorm:"type:jsonb;not null"`
	StartedAt  time.Time `gorm:"not null"`
	FinishedAt time.Time `gorm:"index;not null"`
	CreatedAt  time.Time
}

func (GormGameRecord) TableName() string { return "game_records" }

func (r RoomRecord) ToGorm() GormRoom {
	return GormRoom{
		RoomID:    r.RoomID,
		Code:      r.Code,
		Status:    r.Status,
		Phase:     r.Phase,
		Version:   r.Version,
		Snapshot:  r.Snapshot,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (g GormRoom) Record() RoomRecord {
	return RoomRecord{
		RoomID:    g.RoomID,
		Code:      g.Code,
		Status:    g.Status,
		Phase:     g.Phase,
		Version:   g.Version,
		Snapshot:  g.Snapshot,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func (w WinnerRecord) ToGorm() GormWinner {
	return GormWinner{RoomID: w.RoomID, Name: w.Name, Team: w.Team, Score: int64(w.Score), Rounds: int64(w.Rounds), WonAt: w.WonAt}
}

func (g GormWinner) Record() WinnerRecord {
	return WinnerRecord{RoomID: g.RoomID, Name: g.Name, Team: g.Team, Score: int(g.Score), Rounds: int(g.Rounds), WonAt: g.WonAt}
}
