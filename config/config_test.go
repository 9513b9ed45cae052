package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddress)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 1000, cfg.Game.WinScore)
	assert.Equal(t, 360, cfg.Game.MaxBid)
	assert.Equal(t, time.Hour, cfg.Game.FinishedRoomTTL)
	assert.Equal(t, 15*time.Second, cfg.Monitor.SampleInterval)
	assert.Equal(t, 2*time.Minute, cfg.Session.IdleTimeout)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  http_address: ":9000"
  allowed_origins: ["http://localhost:5173"]
database:
  driver: postgres
  postgres:
    host: db
    port: 6543
game:
  win_score: 500
session:
  actions_per_second: 2.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("TYSIAC_REDIS_ENABLED", "true")
	t.Setenv("TYSIAC_GAME_BID_STEP", "5")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.HTTPAddress)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db", cfg.Database.Postgres.Host)
	assert.Equal(t, 6543, cfg.Database.Postgres.Port)
	assert.Equal(t, "tysiac", cfg.Database.Postgres.User)
	assert.Equal(t, 500, cfg.Game.WinScore)
	assert.Equal(t, 5, cfg.Game.BidStep)
	assert.Equal(t, 2.5, cfg.Session.ActionsPerSecond)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadConfig_BrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o644))
	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
