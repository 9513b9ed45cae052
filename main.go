package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wfunc/tysiac/broadcast"
	"github.com/wfunc/tysiac/config"
	"github.com/wfunc/tysiac/logger"
	"github.com/wfunc/tysiac/monitor"
	"github.com/wfunc/tysiac/persistence"
	"github.com/wfunc/tysiac/room"
	"github.com/wfunc/tysiac/rpc"
	"github.com/wfunc/tysiac/server"
	"github.com/wfunc/tysiac/services"
	"github.com/wfunc/tysiac/session"
	"github.com/wfunc/tysiac/timer"
)

func openStore(cfg *config.Config) (persistence.Store, error) {
	pg := cfg.Database.Postgres
	switch cfg.Database.Driver {
	case "", "memory":
		return persistence.NewMemory(), nil
	case "gorm":
		return persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "postgres":
		return persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	store, err := openStore(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	logger.Log.Infof("Using %s store.", cfg.Database.Driver)

	ctx := context.Background()
	rooms := room.NewRoomManager(persistence.NewRoomCommitter(store))
	restored, err := persistence.LoadActiveRooms(ctx, store)
	if err != nil {
		logger.Log.Fatalf("Failed to restore rooms: %v", err)
	}
	rooms.Restore(restored)
	logger.Log.Infof("Restored %d active rooms.", len(restored))

	sessions := session.NewManager()
	notifiers := broadcast.Fanout{broadcast.NewHub(sessions)}
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()
		notifiers = append(notifiers, broadcast.NewRedisPublisher(client, cfg.Redis.Prefix))
		logger.Log.Infof("Publishing room events to redis at %s.", cfg.Redis.Addr)
	}

	mon := monitor.NewMonitor(cfg.Monitor.Namespace)
	service := services.NewGameService(rooms, store,
		services.WithNotifier(notifiers),
		services.WithRecorder(mon),
		services.WithRules(room.Rules{
			WinScore: cfg.Game.WinScore,
			BidFloor: cfg.Game.BidFloor,
			BidStep:  cfg.Game.BidStep,
			MaxBid:   cfg.Game.MaxBid,
		}),
	)

	// 定时任务：采样房间数量，清理已结束的房间
	timers := timer.NewTimerManager()
	defer timers.Stop()
	timers.AddTimer(0, cfg.Monitor.SampleInterval, func() {
		st := service.Stats()
		mon.SetRooms(st.Waiting, st.Playing, st.Finished)
	})
	if cfg.Game.FinishedRoomTTL > 0 {
		timers.AddTimer(cfg.Game.FinishedRoomTTL, cfg.Game.FinishedRoomTTL/4, func() {
			if n := service.ReapFinished(context.Background(), cfg.Game.FinishedRoomTTL); n > 0 {
				logger.Log.Infof("Removed %d finished rooms.", n)
			}
		})
	}

	if idle := cfg.Session.IdleTimeout; idle > 0 {
		timers.AddTimer(idle, idle/2, func() {
			if n := sessions.CloseIdle(idle); n > 0 {
				logger.Log.Infof("Closed %d idle sessions.", n)
			}
		})
	}

	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, service)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	go rpcServer.Start()
	defer rpcServer.Stop()

	// Initialize Game Server
	gameServer := server.NewGameServer(server.Options{
		HTTPAddress:      cfg.Server.HTTPAddress,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		ActionsPerSecond: cfg.Session.ActionsPerSecond,
		Burst:            cfg.Session.Burst,
		Heartbeat:        cfg.Session.Heartbeat,
	}, service, sessions, mon)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		logger.Log.Info("Shutting down.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := gameServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorf("Shutdown: %v", err)
		}
	}()

	// Start Server
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
