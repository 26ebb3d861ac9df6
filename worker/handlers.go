package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/drewmudry/scriptcast/metadata"
	"github.com/drewmudry/scriptcast/models"
	"github.com/drewmudry/scriptcast/pipeline"
	"github.com/drewmudry/scriptcast/resolver"
	"github.com/drewmudry/scriptcast/tasks"
	"github.com/drewmudry/scriptcast/topics"
)

func (p *Processor) loadVideo(ctx context.Context, payload string) (*models.Video, error) {
	task, err := tasks.Unmarshal(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid task payload: %w", err)
	}
	var video models.Video
	if err := p.DB.WithContext(ctx).Preload("Topic").First(&video, task.VideoID).Error; err != nil {
		return nil, fmt.Errorf("video %d: %w", task.VideoID, err)
	}
	return &video, nil
}

// advance saves updates together with the new status, then queues the next
// step. The next handler may start before this one returns.
func (p *Processor) advance(ctx context.Context, video *models.Video, updates map[string]interface{}, next, status, failStatus string) error {
	updates["status"] = status
	if err := p.DB.WithContext(ctx).Model(video).Updates(updates).Error; err != nil {
		return err
	}
	if next == "" {
		return nil
	}
	if err := p.Enqueue(ctx, next, tasks.VideoTaskPayload{VideoID: video.ID}); err != nil {
		video.Fail(p.DB, failStatus, err)
		return err
	}
	return nil
}

// HandleScriptGeneration processes tasks from QueueVideoScript. When the topic
// has no usable context the topic is marked failed and a video for the next
// pending topic is queued in its place.
func (p *Processor) HandleScriptGeneration(ctx context.Context, payload string) error {
	video, err := p.loadVideo(ctx, payload)
	if err != nil {
		return err
	}
	log := p.log.With(zap.Uint("video_id", video.ID), zap.String("topic", video.Topic.Text))
	log.Info("Processing script")

	p.DB.Model(video).Update("status", models.VideoProcessingScript)

	result, err := p.Pipeline.Script(ctx, video.Topic.Text)
	if errors.Is(err, pipeline.ErrNoContext) {
		return p.substituteTopic(ctx, video, log)
	}
	if err != nil {
		video.Fail(p.DB, models.VideoFailedScript, err)
		return err
	}

	updates := map[string]interface{}{
		"script":   result.Script,
		"grounded": result.Outcome == resolver.OutcomeGrounded,
	}
	if result.Source != nil {
		updates["source_url"] = result.Source.URL
	}
	if err := p.advance(ctx, video, updates, tasks.QueueVideoRender, models.VideoPendingRender, models.VideoFailedScript); err != nil {
		return err
	}
	log.Info("Queued video for rendering", zap.Stringer("outcome", result.Outcome))
	return nil
}

func (p *Processor) substituteTopic(ctx context.Context, video *models.Video, log *zap.Logger) error {
	video.Fail(p.DB, models.VideoNoContext, errors.New(resolver.FallbackMessage))
	if err := p.Topics.MarkFailed(ctx, video.TopicID); err != nil {
		return err
	}

	next, err := p.QueueNextTopic(ctx)
	if errors.Is(err, topics.ErrNoPendingTopics) {
		log.Warn("No usable context and no pending topics left")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("No usable context, moved on to next topic",
		zap.Uint("next_video_id", next.ID),
		zap.String("next_topic", next.Topic.Text),
	)
	return nil
}

// HandleRenderVideo processes tasks from QueueVideoRender. A video that
// already has a render job resumes waiting on it instead of submitting again.
func (p *Processor) HandleRenderVideo(ctx context.Context, payload string) error {
	video, err := p.loadVideo(ctx, payload)
	if err != nil {
		return err
	}
	log := p.log.With(zap.Uint("video_id", video.ID))

	if video.Script == "" {
		video.Fail(p.DB, models.VideoFailedRender, errors.New("video has no script"))
		return nil
	}
	p.DB.Model(video).Update("status", models.VideoRendering)

	jobID := video.AvatarJobID
	if jobID == "" {
		jobID, err = p.Pipeline.SubmitRender(ctx, video.Script)
		if err != nil {
			video.Fail(p.DB, models.VideoFailedRender, err)
			return err
		}
		p.DB.Model(video).Update("avatar_job_id", jobID)
		log.Info("Render submitted", zap.String("job_id", jobID))
	}

	path, err := p.Pipeline.AwaitRender(ctx, jobID)
	if err != nil {
		video.Fail(p.DB, models.VideoFailedRender, err)
		return err
	}

	if err := p.advance(ctx, video, map[string]interface{}{"file_path": path}, tasks.QueueVideoMetadata, models.VideoPendingMetadata, models.VideoFailedRender); err != nil {
		return err
	}
	log.Info("Video rendered", zap.String("path", path))
	return nil
}

// HandleMetadataGeneration processes tasks from QueueVideoMetadata.
func (p *Processor) HandleMetadataGeneration(ctx context.Context, payload string) error {
	video, err := p.loadVideo(ctx, payload)
	if err != nil {
		return err
	}
	p.DB.Model(video).Update("status", models.VideoProcessingMeta)

	md, err := p.Pipeline.Describe(ctx, video.Script)
	if err != nil {
		video.Fail(p.DB, models.VideoFailedMetadata, err)
		return err
	}

	video.SetTags(md.Tags)
	updates := map[string]interface{}{
		"title":       md.Title,
		"description": md.Description,
		"tags":        video.Tags,
	}
	if err := p.advance(ctx, video, updates, tasks.QueueVideoUpload, models.VideoPendingUpload, models.VideoFailedMetadata); err != nil {
		return err
	}
	p.log.Info("Generated metadata", zap.Uint("video_id", video.ID), zap.String("title", md.Title))
	return nil
}

// HandleUploadVideo processes tasks from QueueVideoUpload. This is the final
// step.
func (p *Processor) HandleUploadVideo(ctx context.Context, payload string) error {
	video, err := p.loadVideo(ctx, payload)
	if err != nil {
		return err
	}
	p.DB.Model(video).Update("status", models.VideoUploading)

	id, err := p.Pipeline.Upload(ctx, video.FilePath, metadata.Metadata{
		Title:       video.Title,
		Description: video.Description,
		Tags:        video.TagList(),
	})
	if err != nil {
		video.Fail(p.DB, models.VideoFailedUpload, err)
		return err
	}

	if err := p.advance(ctx, video, map[string]interface{}{"youtube_id": id}, "", models.VideoComplete, ""); err != nil {
		return err
	}
	p.log.Info("Completed video", zap.Uint("video_id", video.ID), zap.String("youtube_id", id))
	return nil
}
