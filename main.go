package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/bingoserver/config"
	"github.com/wfunc/bingoserver/game"
	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/monitor"
	"github.com/wfunc/bingoserver/persistence"
	"github.com/wfunc/bingoserver/room"
	"github.com/wfunc/bingoserver/rpc"
	"github.com/wfunc/bingoserver/server"
	"github.com/wfunc/bingoserver/services"
	"github.com/wfunc/bingoserver/session"
	"github.com/wfunc/bingoserver/timer"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic(err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Game history is optional.
	var (
		records  *services.RecordService
		recorder game.Recorder
		stats    rpc.StatsSource
	)
	db, err := persistence.Open(cfg.Database)
	switch {
	case errors.Is(err, persistence.ErrNoDatabase):
		logger.Log.Info("Game history disabled.")
	case err != nil:
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	default:
		logger.Log.Infof("Database connection successful (%s).", cfg.Database.Driver)
		records = services.NewRecordService(db, 0)
		recorder, stats = records, records
	}

	mon := monitor.NewMonitor("bingo")
	metricsServer := mon.StartServer(cfg.Server.MetricsAddress)

	rooms := room.NewRoomManager(room.NewCodeGenerator(cfg.Game.RoomCodeLength))
	coordinator := game.NewCoordinator(rooms, session.NewManager(), game.Options{
		Room:     room.Options{LinesToWin: cfg.Game.LinesToWin},
		Metrics:  mon,
		Recorder: recorder,
	})

	timers := timer.NewTimerManager()
	timers.AddTimer(cfg.Game.ReapInterval, cfg.Game.ReapInterval, func() {
		coordinator.ReapIdleRooms(time.Now(), cfg.Game.IdleTimeout)
	})

	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to start RPC server: %v", err)
	}
	if err := rpcServer.Register(rpc.NewDiagnostics(coordinator, stats)); err != nil {
		logger.Log.Fatalf("Failed to register RPC service: %v", err)
	}
	go rpcServer.Start()

	health, err := rpc.NewHealthServer(cfg.Server.HealthAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to start health server: %v", err)
	}
	go health.Start()

	gameServer := server.NewGameServer(coordinator, mon, server.Options{
		Addr:         cfg.Server.HTTPAddress,
		PingInterval: cfg.Game.PingInterval,
		MessageRate:  cfg.Game.MessageRate,
		MessageBurst: cfg.Game.MessageBurst,
	})
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- gameServer.Start()
	}()
	health.SetServing(true)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Log.Infof("Received %s, shutting down.", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Log.Errorf("Game server stopped: %v", err)
		}
	}

	health.SetServing(false)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Game server shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Metrics server shutdown: %v", err)
	}
	rpcServer.Stop()
	health.Stop()
	timers.Stop()
	if records != nil {
		records.Close()
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Log.Errorf("Closing database: %v", err)
		}
	}
	logger.Log.Info("Server stopped.")
}
