// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/tysiac/models"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const queryTimeout = 5 * time.Second

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

func buildDSN(host string, port int, user, password, dbname string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	return OpenPostgreSQL(buildDSN(host, port, user, password, dbname))
}

// OpenPostgreSQL connects with a ready DSN or URL and applies migrations.
func OpenPostgreSQL(dsn string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// Migrate 执行内嵌的 goose 迁移
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// SaveRoom 保存房间快照（乐观锁）
func (p *PostgreSQL) SaveRoom(ctx context.Context, rec models.RoomRecord) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		result sql.Result
		err    error
	)
	if rec.Version == 1 {
		result, err = p.db.ExecContext(ctx, `
        INSERT INTO rooms (room_id, code, status, phase, version, snapshot, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (room_id) DO NOTHING`,
			rec.RoomID, rec.Code, rec.Status, rec.Phase, rec.Version, rec.Snapshot, rec.CreatedAt, rec.UpdatedAt)
	} else {
		result, err = p.db.ExecContext(ctx, `
        UPDATE rooms
        SET code = $2, status = $3, phase = $4, version = $5, snapshot = $6, updated_at = $7
        WHERE room_id = $1 AND version = $8`,
			rec.RoomID, rec.Code, rec.Status, rec.Phase, rec.Version, rec.Snapshot, rec.UpdatedAt, rec.Version-1)
	}
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// LoadRoom 加载房间快照
func (p *PostgreSQL) LoadRoom(ctx context.Context, roomID string) (models.RoomRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rec models.RoomRecord
	err := p.db.QueryRowContext(ctx, `
        SELECT room_id, code, status, phase, version, snapshot, created_at, updated_at
        FROM rooms WHERE room_id = $1`, roomID).
		Scan(&rec.RoomID, &rec.Code, &rec.Status, &rec.Phase, &rec.Version, &rec.Snapshot, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RoomRecord{}, ErrRecordNotFound
		}
		return models.RoomRecord{}, err
	}
	return rec, nil
}

func (p *PostgreSQL) DeleteRoom(ctx context.Context, roomID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := p.db.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = $1`, roomID)
	return err
}

func (p *PostgreSQL) ListActiveRooms(ctx context.Context) ([]models.RoomRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
        SELECT room_id, code, status, phase, version, snapshot, created_at, updated_at
        FROM rooms WHERE status = $1 OR status = $2
        ORDER BY created_at DESC`, activeStatuses[0], activeStatuses[1])
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RoomRecord
	for rows.Next() {
		var rec models.RoomRecord
		if err := rows.Scan(&rec.RoomID, &rec.Code, &rec.Status, &rec.Phase, &rec.Version, &rec.Snapshot, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteFinishedRooms 清理过期的已结束房间
func (p *PostgreSQL) DeleteFinishedRooms(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	result, err := p.db.ExecContext(ctx, `DELETE FROM rooms WHERE status = $1 AND updated_at < $2`, finishedStatus, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (p *PostgreSQL) SaveWinner(ctx context.Context, w models.WinnerRecord) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO winners (room_id, name, team, score, rounds, won_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		w.RoomID, w.Name, w.Team, w.Score, w.Rounds, w.WonAt)
	return err
}

func (p *PostgreSQL) LatestWinner(ctx context.Context) (models.WinnerRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var w models.WinnerRecord
	err := p.db.QueryRowContext(ctx, `
        SELECT room_id, name, team, score, rounds, won_at
        FROM winners ORDER BY won_at DESC, id DESC LIMIT 1`).
		Scan(&w.RoomID, &w.Name, &w.Team, &w.Score, &w.Rounds, &w.WonAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.WinnerRecord{}, ErrRecordNotFound
		}
		return models.WinnerRecord{}, err
	}
	return w, nil
}

// SaveGameRecord 保存游戏记录
func (p *PostgreSQL) SaveGameRecord(ctx context.Context, rec models.GameRecord) error {
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err = p.db.ExecContext(ctx, `
        INSERT INTO game_records (room_id, game_mode, rounds, winner, players, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.RoomID, rec.GameMode, rec.Rounds, rec.Winner, players, rec.StartedAt, rec.FinishedAt)
	return err
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
