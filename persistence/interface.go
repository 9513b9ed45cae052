// persistence/interface.go
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/tysiac/models"
)

// Store 存储接口
type Store interface {
	// SaveRoom inserts version 1 or updates the row holding Version-1.
	// Any other stored version yields ErrVersionConflict.
	SaveRoom(ctx context.Context, rec models.RoomRecord) error
	LoadRoom(ctx context.Context, roomID string) (models.RoomRecord, error)
	DeleteRoom(ctx context.Context, roomID string) error
	// ListActiveRooms returns rooms that are waiting or playing.
	ListActiveRooms(ctx context.Context) ([]models.RoomRecord, error)
	// DeleteFinishedRooms drops finished rooms last updated before the
	// cutoff and reports how many went.
	DeleteFinishedRooms(ctx context.Context, before time.Time) (int64, error)
	SaveWinner(ctx context.Context, w models.WinnerRecord) error
	LatestWinner(ctx context.Context) (models.WinnerRecord, error)
	SaveGameRecord(ctx context.Context, rec models.GameRecord) error
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrVersionConflict = errors.New("room version conflict")
)

var activeStatuses = []string{"waiting", "playing"}

const finishedStatus = "finished"
