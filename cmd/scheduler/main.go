package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/drewmudry/scriptcast/internal/platform"
	"github.com/drewmudry/scriptcast/topics"
	"github.com/drewmudry/scriptcast/worker"
)

// feedTopicsPerRun caps how many feed items are considered on each tick.
const feedTopicsPerRun = 20

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

	store := topics.NewStore(db)
	feeds := topics.NewFeedSource(cfg.Topics.Feeds, logger.Named("feeds"))
	proc := worker.NewProcessor(db, worker.NewRedisQueue(rdb), nil, logger.Named("queue"))

	// Only run one scheduler instance; every tick queues a video.
	c := cron.New()
	_, err = c.AddFunc(cfg.Topics.Schedule, func() {
		tick(ctx, logger, feeds, store, proc)
	})
	if err != nil {
		logger.Fatal("Invalid schedule", zap.String("schedule", cfg.Topics.Schedule), zap.Error(err))
	}
	c.Start()

	logger.Info("Scheduler started", zap.String("schedule", cfg.Topics.Schedule), zap.Int("feeds", len(cfg.Topics.Feeds)))
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("Scheduler stopped")
}

func tick(ctx context.Context, logger *zap.Logger, feeds *topics.FeedSource, store *topics.Store, proc *worker.Processor) {
	if len(feeds.Feeds) > 0 {
		added, err := topics.Refresh(ctx, feeds, store, feedTopicsPerRun)
		if err != nil {
			logger.Error("Topic refresh failed", zap.Error(err))
		} else {
			logger.Info("Topics refreshed", zap.Int("added", added))
		}
	}

	video, err := proc.QueueNextTopic(ctx)
	if errors.Is(err, topics.ErrNoPendingTopics) {
		logger.Warn("No pending topics to queue")
		return
	}
	if err != nil {
		logger.Error("Error queuing video", zap.Error(err))
		return
	}
	logger.Info("Queued scheduled video", zap.Uint("video_id", video.ID), zap.String("topic", video.Topic.Text))
}
