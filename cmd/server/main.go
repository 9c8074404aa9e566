package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cbodonnell/manhunt/pkg/api"
	"github.com/cbodonnell/manhunt/pkg/config"
	"github.com/cbodonnell/manhunt/pkg/game"
	"github.com/cbodonnell/manhunt/pkg/log"
	"github.com/cbodonnell/manhunt/pkg/network"
	"github.com/cbodonnell/manhunt/pkg/queue"
	"github.com/cbodonnell/manhunt/pkg/rooms"
	"github.com/cbodonnell/manhunt/pkg/version"
	"github.com/cbodonnell/manhunt/pkg/workers"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	port := flag.Int("port", cfg.Port, "Port to listen on")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level")
	logFormat := flag.String("log-format", cfg.LogFormat, "Log format (json or console)")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	var logger *log.Logger
	switch *logFormat {
	case "json":
		logger = log.New(os.Stdout, parsedLogLevel)
	case "console":
		logger = log.NewConsole(os.Stdout, parsedLogLevel)
	default:
		panic(fmt.Sprintf("Unknown log format %q", *logFormat))
	}
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting server version %s", version.Get())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clientManager := network.NewClientManager()
	messageQueue := queue.NewInMemoryQueue(queue.DefaultQueueBufferSize)

	// timer fires run on the game loop
	scheduler := game.NewTimerScheduler(func(fn func()) {
		if err := messageQueue.Enqueue(fn); err != nil {
			log.Error("Failed to post timer to game loop: %v", err)
		}
	})
	engine := game.NewEngine(game.NewEngineOptions{
		Rooms:           rooms.NewManager(rooms.NewManagerOptions{}),
		ClientManager:   clientManager,
		Scheduler:       scheduler,
		MaxLocationAge:  cfg.MaxLocationAge,
		DisconnectGrace: cfg.DisconnectGrace,
		RoomMaxIdle:     cfg.RoomMaxIdle,
	})

	gameLoop := workers.NewGameLoopWorker(workers.NewGameLoopWorkerOptions{
		Engine:           engine,
		Queue:            messageQueue,
		DispatchInterval: cfg.DispatchInterval,
		SweepInterval:    cfg.SweepInterval,
		CleanupInterval:  cfg.RoomCleanupInterval,
	})

	wsServer := network.NewWSServer(network.NewWSServerOptions{
		ClientManager: clientManager,
		MessageQueue:  messageQueue,
	})

	var tlsConfig *api.TLSConfig
	if cfg.TLSCertFile != "" {
		tlsConfig = &api.TLSConfig{CertFile: cfg.TLSCertFile, KeyFile: cfg.TLSKeyFile}
	}
	apiServer := api.NewAPIServer(api.NewAPIServerOptions{
		Port:      *port,
		TLS:       tlsConfig,
		Rooms:     gameLoop,
		WebSocket: wsServer,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gameLoop.Start(ctx)
	})
	g.Go(apiServer.Start)
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return apiServer.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped: %v", err)
		os.Exit(1)
	}
}
