package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/drewmudry/scriptcast/internal/platform"
	"github.com/drewmudry/scriptcast/pipeline"
	"github.com/drewmudry/scriptcast/tasks"
	"github.com/drewmudry/scriptcast/worker"
)

func main() {
	cfg := platform.LoadConfig()
	logger := platform.NewLogger(cfg)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := platform.NewDBConnection(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	rdb := platform.NewRedisClient(cfg, logger)
	defer rdb.Close()

	pipe, err := pipeline.New(ctx, cfg, db, logger.Named("pipeline"))
	if err != nil {
		logger.Fatal("Failed to build pipeline", zap.Error(err))
	}

	proc := worker.NewProcessor(db, worker.NewRedisQueue(rdb), pipe, logger.Named("worker"))
	proc.RegisterPipeline()

	logger.Info("Worker started, waiting for queue tasks...")
	proc.Listen(ctx, tasks.All...)
}
