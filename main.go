package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crewdeck/gameserver/broadcast"
	"github.com/crewdeck/gameserver/config"
	"github.com/crewdeck/gameserver/controllers"
	"github.com/crewdeck/gameserver/game"
	"github.com/crewdeck/gameserver/logger"
	"github.com/crewdeck/gameserver/logic"
	"github.com/crewdeck/gameserver/monitor"
	"github.com/crewdeck/gameserver/persistence"
	"github.com/crewdeck/gameserver/room"
	gameserver_rpc "github.com/crewdeck/gameserver/rpc"
	"github.com/crewdeck/gameserver/server"
	"github.com/crewdeck/gameserver/services"
	"github.com/crewdeck/gameserver/session"
	"github.com/crewdeck/gameserver/timer"
)

func main() {
	logger.Init()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Match history is optional; the server runs fine without a database.
	var records *services.RecordService
	if cfg.Database.Enabled {
		store, err := openStore(cfg)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		defer store.Close()
		records = services.NewRecordService(store)
		logger.Log.Info("Database connection successful.")
	}

	settings := room.Settings{
		MinPlayers:       cfg.Game.MinPlayers,
		MaxPlayers:       cfg.Game.MaxPlayers,
		ImpostorRatio:    cfg.Game.ImpostorRatio,
		KillRange:        cfg.Game.KillRange,
		TaskRange:        cfg.Game.TaskRange,
		TasksPerCrewmate: cfg.Game.TasksPerCrewmate,
		Bounds: logic.Bounds{
			Width:  cfg.Game.MapWidth,
			Height: cfg.Game.MapHeight,
			Margin: cfg.Game.MapMargin,
		},
	}

	directory := game.NewDirectory(settings, cfg.Game.RoomInactiveTTL)
	sessions := session.NewManager()
	caster := broadcast.NewRoomBroadcaster(directory, sessions)

	timers := timer.NewManager()
	defer timers.Stop()

	mon := monitor.NewMonitor("gameserver")
	mon.StartServer(cfg.Server.MetricsAddress)

	coordinator := controllers.NewCoordinator(directory, sessions, caster, timers, mon, records, controllers.Config{
		MeetingTimeout:    cfg.Game.MeetingTimeout,
		WinBroadcastDelay: time.Second,
		TasksPerCrewmate:  cfg.Game.TasksPerCrewmate,
	})

	// Abandoned rooms are swept on a fixed cadence; evicted occupants
	// just lose their room association.
	timers.AddTimer(cfg.Game.ReapInterval, cfg.Game.ReapInterval, func() {
		for _, reaped := range directory.ReapInactive(time.Now()) {
			logger.Log.Infof("Reaped inactive room %s with %d occupants", reaped.Code, len(reaped.Occupants))
			for _, id := range reaped.Occupants {
				if sess, ok := sessions.Get(id); ok {
					sess.SetRoomCode("")
				}
			}
		}
		mon.SetActiveRooms(directory.Stats().Rooms)
	})

	rpcServer, err := gameserver_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	if err := rpcServer.Register(gameserver_rpc.NewAdminService(directory, records)); err != nil {
		logger.Log.Fatalf("Failed to register RPC service: %v", err)
	}
	go rpcServer.Start()

	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, directory, sessions, coordinator, mon)

	errCh := make(chan error, 1)
	go func() {
		errCh <- gameServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Log.Fatalf("Server error: %v", err)
		}
	case sig := <-sigCh:
		logger.Log.Infof("Received signal %s, shutting down", sig)
	}

	rpcServer.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Shutdown error: %v", err)
	}
}

func openStore(cfg *config.Config) (persistence.Store, error) {
	pg := cfg.Database.Postgres
	switch cfg.Database.Driver {
	case "pq":
		return persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	default:
		return persistence.NewGormStore(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	}
}
