package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"courier/internal/config"
	"courier/internal/daemon"
	"courier/internal/engine"
	"courier/internal/ipc"
	"courier/internal/logging"
	"courier/internal/notifications"
	"courier/internal/registry"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := registry.Open(cfg)
	if err != nil {
		logger.Error("open share registry", logging.Error(err))
		return
	}

	notifier := notifications.NewService(cfg)
	tr, source := buildTransport(cfg, logger)
	eng := engine.New(cfg, tr, buildGate(cfg, logger), store, notifier, logger)

	d, err := daemon.New(cfg, store, eng, source, notifier, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Warn("daemon start", logging.Error(err))
	}

	<-ctx.Done()
	logger.Info("courierd shutting down")
}
