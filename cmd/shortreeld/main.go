package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"shortreel/internal/config"
	"shortreel/internal/daemon"
	"shortreel/internal/logging"
	"shortreel/internal/queue"
	"shortreel/internal/workflow"
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

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	manager := workflow.NewManager(cfg, store, logger)
	manager.SetStages(buildStages(cfg, logger))

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("shortreeld shutting down")
}
