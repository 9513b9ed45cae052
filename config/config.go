package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Game     GameConfig     `mapstructure:"game"`
	Session  SessionConfig  `mapstructure:"session"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
}

type ServerConfig struct {
	HTTPAddress    string   `mapstructure:"http_address"`
	RPCAddress     string   `mapstructure:"rpc_address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	// Driver is memory, gorm or postgres.
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// GameConfig holds the rules given to new rooms.
type GameConfig struct {
	WinScore        int           `mapstructure:"win_score"`
	BidFloor        int           `mapstructure:"bid_floor"`
	BidStep         int           `mapstructure:"bid_step"`
	MaxBid          int           `mapstructure:"max_bid"`
	FinishedRoomTTL time.Duration `mapstructure:"finished_room_ttl"`
}

type SessionConfig struct {
	ActionsPerSecond float64       `mapstructure:"actions_per_second"`
	Burst            int           `mapstructure:"burst"`
	Heartbeat        time.Duration `mapstructure:"heartbeat"`
	// IdleTimeout closes sessions that sent nothing for this long; 0 disables.
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
}

type MonitorConfig struct {
	Namespace      string        `mapstructure:"namespace"`
	SampleInterval time.Duration `mapstructure:"sample_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "tysiac")
	v.SetDefault("database.postgres.password", "tysiac")
	v.SetDefault("database.postgres.dbname", "tysiac")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "tysiac")

	v.SetDefault("game.win_score", 1000)
	v.SetDefault("game.bid_floor", 100)
	v.SetDefault("game.bid_step", 10)
	v.SetDefault("game.max_bid", 360)
	v.SetDefault("game.finished_room_ttl", time.Hour)

	v.SetDefault("session.actions_per_second", 5.0)
	v.SetDefault("session.burst", 10)
	v.SetDefault("session.heartbeat", 30*time.Second)
	v.SetDefault("session.idle_timeout", 2*time.Minute)

	v.SetDefault("monitor.namespace", "tysiac")
	v.SetDefault("monitor.sample_interval", 15*time.Second)
}

// LoadConfig 读取 path 下的 config.yaml，文件不存在时只使用默认值和环境变量。
// 环境变量形如 TYSIAC_SERVER_HTTP_ADDRESS。
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("TYSIAC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
