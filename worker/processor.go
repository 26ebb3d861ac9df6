// Package worker runs the video pipeline one step per task, chaining steps
// through queues.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/scriptcast/models"
	"github.com/drewmudry/scriptcast/pipeline"
	"github.com/drewmudry/scriptcast/tasks"
	"github.com/drewmudry/scriptcast/topics"
)

// TaskHandler is a function that processes a task payload.
type TaskHandler func(ctx context.Context, payload string) error

// Processor holds dependencies and registered task handlers.
type Processor struct {
	DB       *gorm.DB
	Queue    Queue
	Pipeline *pipeline.Pipeline
	Topics   *topics.Store

	log         *zap.Logger
	handlers    map[string]TaskHandler
	PollTimeout time.Duration
}

// NewProcessor creates a new worker processor.
func NewProcessor(db *gorm.DB, q Queue, p *pipeline.Pipeline, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		DB:          db,
		Queue:       q,
		Pipeline:    p,
		Topics:      topics.NewStore(db),
		log:         log,
		handlers:    make(map[string]TaskHandler),
		PollTimeout: 5 * time.Second,
	}
}

// Register maps a queue name (task type) to a handler function.
func (p *Processor) Register(queueName string, handler TaskHandler) {
	p.handlers[queueName] = handler
	p.log.Info("Registered handler", zap.String("queue", queueName))
}

// RegisterPipeline registers the handler for every pipeline step.
func (p *Processor) RegisterPipeline() {
	p.Register(tasks.QueueVideoScript, p.HandleScriptGeneration)
	p.Register(tasks.QueueVideoRender, p.HandleRenderVideo)
	p.Register(tasks.QueueVideoMetadata, p.HandleMetadataGeneration)
	p.Register(tasks.QueueVideoUpload, p.HandleUploadVideo)
}

// Enqueue is a helper to add a new task to a queue.
func (p *Processor) Enqueue(ctx context.Context, queueName string, payload interface{}) error {
	payloadStr, err := tasks.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Queue.Push(ctx, queueName, payloadStr)
}

// Listen processes tasks from queueNames until ctx is cancelled.
func (p *Processor) Listen(ctx context.Context, queueNames ...string) {
	p.log.Info("Worker listening", zap.Strings("queues", queueNames))

	for ctx.Err() == nil {
		if _, err := p.ProcessNext(ctx, queueNames...); err != nil && !errors.Is(err, ErrQueueEmpty) {
			if ctx.Err() != nil {
				break
			}
			p.log.Error("Error processing task", zap.Error(err))
		}
	}
	p.log.Info("Worker stopped")
}

// ProcessNext pops one task and runs its handler. It returns the queue the
// task came from.
func (p *Processor) ProcessNext(ctx context.Context, queueNames ...string) (string, error) {
	queueName, payload, err := p.Queue.Pop(ctx, p.PollTimeout, queueNames...)
	if err != nil {
		return "", err
	}

	handler, ok := p.handlers[queueName]
	if !ok {
		return queueName, fmt.Errorf("no handler registered for queue %s", queueName)
	}

	p.log.Debug("Received task", zap.String("queue", queueName), zap.String("payload", payload))
	if err := handler(ctx, payload); err != nil {
		return queueName, fmt.Errorf("task from %s: %w", queueName, err)
	}
	return queueName, nil
}

// QueueTopic claims topic, creates its video row and queues the first step.
func (p *Processor) QueueTopic(ctx context.Context, topic *models.Topic) (*models.Video, error) {
	video := models.Video{TopicID: topic.ID, Status: models.VideoPending}
	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&video).Error; err != nil {
			return err
		}
		return topics.NewStore(tx).MarkUsed(ctx, topic.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create video for topic %d: %w", topic.ID, err)
	}

	if err := p.Enqueue(ctx, tasks.QueueVideoScript, tasks.ScriptTaskPayload{VideoID: video.ID}); err != nil {
		video.Fail(p.DB, models.VideoFailedScript, err)
		return nil, err
	}
	video.Topic = *topic
	p.log.Info("Queued video", zap.Uint("video_id", video.ID), zap.String("topic", topic.Text))
	return &video, nil
}

// QueueNextTopic queues a video for the oldest pending topic.
func (p *Processor) QueueNextTopic(ctx context.Context) (*models.Video, error) {
	topic, err := p.Topics.NextPending(ctx)
	if err != nil {
		return nil, err
	}
	return p.QueueTopic(ctx, topic)
}
