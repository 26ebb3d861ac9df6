package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gorm.io/gorm"

	"github.com/drewmudry/scriptcast/avatar"
	"github.com/drewmudry/scriptcast/internal/dbtest"
	"github.com/drewmudry/scriptcast/metadata"
	"github.com/drewmudry/scriptcast/models"
	"github.com/drewmudry/scriptcast/pipeline"
	"github.com/drewmudry/scriptcast/resolver"
	"github.com/drewmudry/scriptcast/search"
	"github.com/drewmudry/scriptcast/tasks"
	"github.com/drewmudry/scriptcast/youtube"
)

type memQueue struct {
	mu    sync.Mutex
	lists map[string][]string

	// onPush runs after a payload is queued, standing in for another worker.
	onPush func(queue, payload string)
}

func newMemQueue() *memQueue { return &memQueue{lists: map[string][]string{}} }

func (q *memQueue) Push(ctx context.Context, queue, payload string) error {
	q.mu.Lock()
	q.lists[queue] = append(q.lists[queue], payload)
	hook := q.onPush
	q.mu.Unlock()
	if hook != nil {
		hook(queue, payload)
	}
	return nil
}

func (q *memQueue) Pop(ctx context.Context, timeout time.Duration, queues ...string) (string, string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, name := range queues {
		if l := q.lists[name]; len(l) > 0 {
			q.lists[name] = l[1:]
			return name, l[0], nil
		}
	}
	return "", "", ErrQueueEmpty
}

func (q *memQueue) len(queue string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lists[queue])
}

type stubResolver struct {
	noContext map[string]bool
}

func (s stubResolver) Resolve(ctx context.Context, topic string) (resolver.Result, error) {
	if s.noContext[topic] {
		return resolver.Result{Outcome: resolver.OutcomeNoContext}, nil
	}
	return resolver.Result{
		Outcome: resolver.OutcomeGrounded,
		Script:  "script: " + topic,
		Source:  &search.Candidate{Rank: 1, URL: "https://example.com/" + topic},
	}, nil
}

type stubRenderer struct{ submits int }

func (s *stubRenderer) Submit(ctx context.Context, req avatar.RenderRequest) (string, error) {
	s.submits++
	return "job-7", nil
}

func (s *stubRenderer) Status(ctx context.Context, jobID string) (avatar.JobStatus, error) {
	return avatar.JobStatus{JobID: jobID, State: avatar.StateCompleted, VideoURL: "mem://" + jobID}, nil
}

func (s *stubRenderer) Download(ctx context.Context, st avatar.JobStatus, path string) error {
	return os.WriteFile(path, []byte(st.JobID), 0o644)
}

type stubMetadata struct{ err error }

func (s stubMetadata) Generate(ctx context.Context, script string) (metadata.Metadata, error) {
	if s.err != nil {
		return metadata.Metadata{}, s.err
	}
	return metadata.Metadata{Title: "A title", Description: "A description", Tags: []string{"one", "two"}}, nil
}

type stubUploader struct{ last youtube.UploadRequest }

func (s *stubUploader) Upload(ctx context.Context, req youtube.UploadRequest) (string, error) {
	s.last = req
	return "yt-42", nil
}

type fixture struct {
	db       *gorm.DB
	queue    *memQueue
	proc     *Processor
	renderer *stubRenderer
	uploader *stubUploader
	resolver stubResolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:       dbtest.New(t),
		queue:    newMemQueue(),
		renderer: &stubRenderer{},
		uploader: &stubUploader{},
		resolver: stubResolver{noContext: map[string]bool{}},
	}
	pipe := &pipeline.Pipeline{
		Resolver:  f.resolver,
		Renderer:  f.renderer,
		Metadata:  stubMetadata{},
		Uploader:  f.uploader,
		Render:    pipeline.RenderOptions{Policy: avatar.Policy{Interval: time.Millisecond}},
		OutputDir: t.TempDir(),
	}
	f.proc = NewProcessor(f.db, f.queue, pipe, nil)
	f.proc.RegisterPipeline()
	return f
}

func (f *fixture) addTopics(t *testing.T, texts ...string) {
	t.Helper()
	_, err := f.proc.Topics.Add(context.Background(), texts, "test")
	require.NoError(t, err)
}

func (f *fixture) video(t *testing.T, id uint) models.Video {
	t.Helper()
	var v models.Video
	require.NoError(t, f.db.First(&v, id).Error)
	return v
}

func TestPipelineRunsThroughAllQueues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTopics(t, "solid-state batteries")

	video, err := f.proc.QueueNextTopic(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.queue.len(tasks.QueueVideoScript))

	want := []struct {
		queue  string
		status string
	}{
		{tasks.QueueVideoScript, models.VideoPendingRender},
		{tasks.QueueVideoRender, models.VideoPendingMetadata},
		{tasks.QueueVideoMetadata, models.VideoPendingUpload},
		{tasks.QueueVideoUpload, models.VideoComplete},
	}
	for _, step := range want {
		queue, err := f.proc.ProcessNext(ctx, tasks.All...)
		require.NoError(t, err)
		assert.Equal(t, step.queue, queue)
		assert.Equal(t, step.status, f.video(t, video.ID).Status, step.queue)
	}

	_, err = f.proc.ProcessNext(ctx, tasks.All...)
	assert.ErrorIs(t, err, ErrQueueEmpty)

	got := f.video(t, video.ID)
	assert.Equal(t, "script: solid-state batteries", got.Script)
	assert.True(t, got.Grounded)
	assert.Equal(t, "https://example.com/solid-state batteries", got.SourceURL)
	assert.Equal(t, "job-7", got.AvatarJobID)
	assert.FileExists(t, got.FilePath)
	assert.Equal(t, "A title", got.Title)
	assert.Equal(t, []string{"one", "two"}, got.TagList())
	assert.Equal(t, "yt-42", got.YouTubeID)
	assert.Equal(t, got.FilePath, f.uploader.last.Path)

	topic, err := f.proc.Topics.Get(ctx, got.TopicID)
	require.NoError(t, err)
	assert.Equal(t, models.TopicUsed, topic.Status)
}

func TestScriptHandler_NoContextMovesToNextTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTopics(t, "obscure", "octopus hearts")
	f.resolver.noContext["obscure"] = true

	first, err := f.proc.QueueNextTopic(ctx)
	require.NoError(t, err)

	_, err = f.proc.ProcessNext(ctx, tasks.QueueVideoScript)
	require.NoError(t, err)

	failed := f.video(t, first.ID)
	assert.Equal(t, models.VideoNoContext, failed.Status)
	assert.Equal(t, resolver.FallbackMessage, failed.Error)

	topic, err := f.proc.Topics.Get(ctx, first.TopicID)
	require.NoError(t, err)
	assert.Equal(t, models.TopicFailed, topic.Status)

	require.Equal(t, 1, f.queue.len(tasks.QueueVideoScript))
	var replacement models.Video
	require.NoError(t, f.db.Preload("Topic").Where("id <> ?", first.ID).First(&replacement).Error)
	assert.Equal(t, "octopus hearts", replacement.Topic.Text)
	assert.Equal(t, models.VideoPending, replacement.Status)
}

func TestScriptHandler_NoContextAndNoTopicsLeft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTopics(t, "obscure")
	f.resolver.noContext["obscure"] = true

	video, err := f.proc.QueueNextTopic(ctx)
	require.NoError(t, err)

	_, err = f.proc.ProcessNext(ctx, tasks.QueueVideoScript)
	require.NoError(t, err)
	assert.Equal(t, models.VideoNoContext, f.video(t, video.ID).Status)
	assert.Equal(t, 0, f.queue.len(tasks.QueueVideoScript))
}

func TestHandlersWriteStatusBeforeQueueingNextStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTopics(t, "topic")

	video, err := f.proc.QueueNextTopic(ctx)
	require.NoError(t, err)

	var seen string
	f.queue.onPush = func(queue, _ string) {
		if queue != tasks.QueueVideoRender {
			return
		}
		seen = f.video(t, video.ID).Status
		require.NoError(t, f.db.Model(&models.Video{}).Where("id = ?", video.ID).Update("status", models.VideoRendering).Error)
	}

	_, err = f.proc.ProcessNext(ctx, tasks.QueueVideoScript)
	require.NoError(t, err)
	assert.Equal(t, models.VideoPendingRender, seen)
	assert.Equal(t, models.VideoRendering, f.video(t, video.ID).Status)
}

func TestRenderHandler_ResumesExistingJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTopics(t, "topic")

	video, err := f.proc.QueueNextTopic(ctx)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(video).Updates(map[string]interface{}{"script": "s", "avatar_job_id": "job-old"}).Error)

	require.NoError(t, f.proc.HandleRenderVideo(ctx, payload(t, video.ID)))
	assert.Equal(t, 0, f.renderer.submits)
	assert.Equal(t, models.VideoPendingMetadata, f.video(t, video.ID).Status)
}

func TestMetadataHandler_FailureMarksVideo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.proc.Pipeline.Metadata = stubMetadata{err: errors.New("model down")}
	f.addTopics(t, "topic")

	video, err := f.proc.QueueNextTopic(ctx)
	require.NoError(t, err)

	err = f.proc.HandleMetadataGeneration(ctx, payload(t, video.ID))
	assert.ErrorContains(t, err, "model down")

	got := f.video(t, video.ID)
	assert.Equal(t, models.VideoFailedMetadata, got.Status)
	assert.Contains(t, got.Error, "model down")
	assert.Equal(t, 0, f.queue.len(tasks.QueueVideoUpload))
}

func TestProcessNext_UnknownQueue(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.queue.Push(context.Background(), "q_other", "{}"))

	_, err := f.proc.ProcessNext(context.Background(), "q_other")
	assert.ErrorContains(t, err, "no handler")
}

func TestListenStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.proc.Listen(ctx, tasks.All...)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func payload(t *testing.T, id uint) string {
	t.Helper()
	s, err := tasks.Marshal(tasks.VideoTaskPayload{VideoID: id})
	require.NoError(t, err)
	return s
}
