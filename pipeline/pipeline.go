// Package pipeline turns a topic into a published video: script, avatar
// render, metadata, upload.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/drewmudry/scriptcast/avatar"
	"github.com/drewmudry/scriptcast/metadata"
	"github.com/drewmudry/scriptcast/models"
	"github.com/drewmudry/scriptcast/resolver"
	"github.com/drewmudry/scriptcast/topics"
	"github.com/drewmudry/scriptcast/youtube"
)

var (
	// ErrNoContext is returned when the topic needed grounding and none of
	// the search results could provide it.
	ErrNoContext = errors.New("pipeline: no usable context for topic")
	// ErrNoUploader means no YouTube channel is connected.
	ErrNoUploader = fmt.Errorf("pipeline: %w", youtube.ErrNoToken)
)

type ScriptResolver interface {
	Resolve(ctx context.Context, topic string) (resolver.Result, error)
}

type MetadataWriter interface {
	Generate(ctx context.Context, script string) (metadata.Metadata, error)
}

type Uploader interface {
	Upload(ctx context.Context, req youtube.UploadRequest) (string, error)
}

// TopicQueue is the backlog RunNext draws from. *topics.Store implements it.
type TopicQueue interface {
	NextPending(ctx context.Context) (*models.Topic, error)
	MarkUsed(ctx context.Context, id uint) error
	MarkFailed(ctx context.Context, id uint) error
}

// Pipeline holds one collaborator per step. Uploader and Topics may be nil
// for callers that never publish or never draw from the backlog.
type Pipeline struct {
	Resolver ScriptResolver
	Renderer avatar.Renderer
	Metadata MetadataWriter
	Uploader Uploader
	Topics   TopicQueue

	Render    RenderOptions
	Publish   PublishOptions
	OutputDir string

	Log *zap.Logger
}

// RenderOptions selects the avatar and how long to wait for it.
type RenderOptions struct {
	Request func(script string) avatar.RenderRequest
	Policy  avatar.Policy
}

// PublishOptions are applied to every upload.
type PublishOptions struct {
	CategoryID string
	Privacy    string
}

// RunResult collects what each step produced. Fields stay empty for steps
// that did not run.
type RunResult struct {
	Topic      string
	TopicID    uint
	Resolution resolver.Result
	VideoPath  string
	Metadata   metadata.Metadata
	YouTubeID  string
}

func (p *Pipeline) log() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

// Run takes topic through every step. A topic without usable context stops
// after the script step with ErrNoContext.
func (p *Pipeline) Run(ctx context.Context, topic string) (RunResult, error) {
	res := RunResult{Topic: topic}
	log := p.log().With(zap.String("topic", topic))

	resolution, err := p.Script(ctx, topic)
	res.Resolution = resolution
	if err != nil {
		return res, err
	}
	log.Info("script generated",
		zap.Stringer("outcome", resolution.Outcome),
		zap.Int("length", len(resolution.Script)),
	)

	path, err := p.RenderVideo(ctx, resolution.Script)
	if err != nil {
		return res, err
	}
	res.VideoPath = path
	log.Info("video rendered", zap.String("path", path))

	md, err := p.Describe(ctx, resolution.Script)
	if err != nil {
		return res, err
	}
	res.Metadata = md
	log.Info("metadata generated", zap.String("title", md.Title))

	id, err := p.Upload(ctx, path, md)
	if err != nil {
		return res, err
	}
	res.YouTubeID = id
	return res, nil
}

// RunNext runs the oldest pending topic. Topics without usable context are
// marked failed and the next one is tried. Any other error aborts and leaves
// the topic pending.
func (p *Pipeline) RunNext(ctx context.Context) (RunResult, error) {
	if p.Topics == nil {
		return RunResult{}, errors.New("pipeline: no topic store configured")
	}
	for {
		topic, err := p.Topics.NextPending(ctx)
		if err != nil {
			return RunResult{}, err
		}

		res, err := p.Run(ctx, topic.Text)
		res.TopicID = topic.ID
		if errors.Is(err, ErrNoContext) {
			p.log().Warn("no context for topic, moving on",
				zap.Uint("topic_id", topic.ID),
				zap.String("topic", topic.Text),
			)
			if err := p.Topics.MarkFailed(ctx, topic.ID); err != nil {
				return res, fmt.Errorf("failed to mark topic %d failed: %w", topic.ID, err)
			}
			continue
		}
		if err != nil {
			return res, err
		}

		if err := p.Topics.MarkUsed(ctx, topic.ID); err != nil {
			return res, fmt.Errorf("failed to mark topic %d used: %w", topic.ID, err)
		}
		return res, nil
	}
}

// Script resolves topic into a narration script.
func (p *Pipeline) Script(ctx context.Context, topic string) (resolver.Result, error) {
	result, err := p.Resolver.Resolve(ctx, topic)
	if err != nil {
		return result, fmt.Errorf("error generating script: %w", err)
	}
	if result.Outcome == resolver.OutcomeNoContext {
		return result, ErrNoContext
	}
	return result, nil
}

// SubmitRender starts an avatar render for script and returns the job ID.
func (p *Pipeline) SubmitRender(ctx context.Context, script string) (string, error) {
	req := avatar.RenderRequest{Script: script}
	if p.Render.Request != nil {
		req = p.Render.Request(script)
	}
	jobID, err := p.Renderer.Submit(ctx, req)
	if err != nil {
		return "", fmt.Errorf("error submitting render: %w", err)
	}
	return jobID, nil
}

// AwaitRender waits for jobID and downloads the result to a fresh file under
// OutputDir.
func (p *Pipeline) AwaitRender(ctx context.Context, jobID string) (string, error) {
	log := p.log().With(zap.String("job_id", jobID))
	status, err := avatar.Wait(ctx, p.Renderer, jobID, p.Render.Policy, func(s avatar.JobStatus) {
		log.Debug("render status", zap.String("state", string(s.State)))
	})
	if err != nil {
		return "", err
	}

	path := p.OutputPath()
	if err := p.Renderer.Download(ctx, status, path); err != nil {
		return "", fmt.Errorf("error downloading render: %w", err)
	}
	return path, nil
}

// RenderVideo submits, waits for and downloads a render of script.
func (p *Pipeline) RenderVideo(ctx context.Context, script string) (string, error) {
	jobID, err := p.SubmitRender(ctx, script)
	if err != nil {
		return "", err
	}
	p.log().Info("render submitted", zap.String("job_id", jobID))
	return p.AwaitRender(ctx, jobID)
}

// Describe writes the title, description and tags for script.
func (p *Pipeline) Describe(ctx context.Context, script string) (metadata.Metadata, error) {
	md, err := p.Metadata.Generate(ctx, script)
	if err != nil {
		return metadata.Metadata{}, fmt.Errorf("error generating metadata: %w", err)
	}
	return md, nil
}

// Upload publishes the file at path and returns the YouTube video ID.
func (p *Pipeline) Upload(ctx context.Context, path string, md metadata.Metadata) (string, error) {
	if p.Uploader == nil {
		return "", ErrNoUploader
	}
	id, err := p.Uploader.Upload(ctx, youtube.UploadRequest{
		Path:        path,
		Title:       md.Title,
		Description: md.Description,
		Tags:        md.Tags,
		CategoryID:  p.Publish.CategoryID,
		Privacy:     p.Publish.Privacy,
	})
	if err != nil {
		return "", fmt.Errorf("error uploading video: %w", err)
	}
	return id, nil
}

// OutputPath returns a new unique path for a rendered video.
func (p *Pipeline) OutputPath() string {
	dir := p.OutputDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, fmt.Sprintf("output_%s.mp4", uuid.NewString()))
}

var _ TopicQueue = (*topics.Store)(nil)
