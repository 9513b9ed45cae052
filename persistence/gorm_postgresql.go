// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/tysiac/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	return OpenGormPostgreSQL(buildDSN(host, port, user, password, dbname))
}

// OpenGormPostgreSQL connects with a ready DSN or URL.
func OpenGormPostgreSQL(dsn string) (*GormPostgreSQL, error) {
	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormRoom{}, &models.GormWinner{}, &models.GormGameRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &GormPostgreSQL{db: db}, nil
}

// SaveRoom 保存房间快照（乐观锁）
func (p *GormPostgreSQL) SaveRoom(ctx context.Context, rec models.RoomRecord) error {
	if rec.Version == 1 {
		row := rec.ToGorm()
		err := p.db.WithContext(ctx).Create(&row).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrVersionConflict
		}
		return err
	}

	result := p.db.WithContext(ctx).Model(&models.GormRoom{}).
		Where("room_id = ? AND version = ?", rec.RoomID, rec.Version-1).
		Updates(map[string]interface{}{
			"code":       rec.Code,
			"status":     rec.Status,
			"phase":      rec.Phase,
			"version":    rec.Version,
			"snapshot":   rec.Snapshot,
			"updated_at": rec.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// LoadRoom 加载房间快照
func (p *GormPostgreSQL) LoadRoom(ctx context.Context, roomID string) (models.RoomRecord, error) {
	var row models.GormRoom
	if err := p.db.WithContext(ctx).Where("room_id = ?", roomID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RoomRecord{}, ErrRecordNotFound
		}
		return models.RoomRecord{}, err
	}
	return row.Record(), nil
}

func (p *GormPostgreSQL) DeleteRoom(ctx context.Context, roomID string) error {
	return p.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&models.GormRoom{}).Error
}

func (p *GormPostgreSQL) ListActiveRooms(ctx context.Context) ([]models.RoomRecord, error) {
	var rows []models.GormRoom
	err := p.db.WithContext(ctx).
		Where("status IN ?", activeStatuses).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.RoomRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Record())
	}
	return out, nil
}

func (p *GormPostgreSQL) DeleteFinishedRooms(ctx context.Context, before time.Time) (int64, error) {
	result := p.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", finishedStatus, before).
		Delete(&models.GormRoom{})
	return result.RowsAffected, result.Error
}

func (p *GormPostgreSQL) SaveWinner(ctx context.Context, w models.WinnerRecord) error {
	row := w.ToGorm()
	return p.db.WithContext(ctx).Create(&row).Error
}

func (p *GormPostgreSQL) LatestWinner(ctx context.Context) (models.WinnerRecord, error) {
	var row models.GormWinner
	err := p.db.WithContext(ctx).Order("won_at DESC").Order("id DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.WinnerRecord{}, ErrRecordNotFound
		}
		return models.WinnerRecord{}, err
	}
	return row.Record(), nil
}

// SaveGameRecord 保存游戏记录
func (p *GormPostgreSQL) SaveGameRecord(ctx context.Context, rec models.GameRecord) error {
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return err
	}
	row := models.GormGameRecord{
		RoomID:     rec.RoomID,
		GameMode:   rec.GameMode,
		Rounds:     int64(rec.Rounds),
		Winner:     rec.Winner,
		Players:    players,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
	}
	return p.db.WithContext(ctx).Create(&row).Error
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
