package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewmudry/scriptcast/avatar"
	"github.com/drewmudry/scriptcast/internal/dbtest"
	"github.com/drewmudry/scriptcast/metadata"
	"github.com/drewmudry/scriptcast/models"
	"github.com/drewmudry/scriptcast/resolver"
	"github.com/drewmudry/scriptcast/topics"
	"github.com/drewmudry/scriptcast/youtube"
)

type fakeResolver struct {
	noContext map[string]bool
	err       error
	calls     []string
}

func (f *fakeResolver) Resolve(ctx context.Context, topic string) (resolver.Result, error) {
	f.calls = append(f.calls, topic)
	if f.err != nil {
		return resolver.Result{}, f.err
	}
	if f.noContext[topic] {
		return resolver.Result{Outcome: resolver.OutcomeNoContext}, nil
	}
	return resolver.Result{Outcome: resolver.OutcomeDirect, Script: "script about " + topic}, nil
}

type fakeRenderer struct {
	submitted []avatar.RenderRequest
	polls     int
}

func (f *fakeRenderer) Submit(ctx context.Context, req avatar.RenderRequest) (string, error) {
	f.submitted = append(f.submitted, req)
	return "job-1", nil
}

func (f *fakeRenderer) Status(ctx context.Context, jobID string) (avatar.JobStatus, error) {
	f.polls++
	if f.polls < 2 {
		return avatar.JobStatus{JobID: jobID, State: avatar.StateProcessing}, nil
	}
	return avatar.JobStatus{JobID: jobID, State: avatar.StateCompleted, VideoURL: "mem://video"}, nil
}

func (f *fakeRenderer) Download(ctx context.Context, st avatar.JobStatus, path string) error {
	return os.WriteFile(path, []byte("video"), 0o644)
}

type fakeMetadata struct{}

func (fakeMetadata) Generate(ctx context.Context, script string) (metadata.Metadata, error) {
	return metadata.Metadata{Title: "Title: " + script, Description: "desc", Tags: []string{"t"}}, nil
}

type fakeUploader struct {
	reqs []youtube.UploadRequest
}

func (f *fakeUploader) Upload(ctx context.Context, req youtube.UploadRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	return "yt-1", nil
}

func newTestPipeline(t *testing.T) (*Pipeline, *fakeResolver, *fakeRenderer, *fakeUploader) {
	res := &fakeResolver{noContext: map[string]bool{}}
	ren := &fakeRenderer{}
	up := &fakeUploader{}
	p := &Pipeline{
		Resolver:  res,
		Renderer:  ren,
		Metadata:  fakeMetadata{},
		Uploader:  up,
		Render:    RenderOptions{Policy: avatar.Policy{Interval: 1}},
		Publish:   PublishOptions{Privacy: "private"},
		OutputDir: t.TempDir(),
	}
	return p, res, ren, up
}

func TestRun(t *testing.T) {
	p, _, ren, up := newTestPipeline(t)

	res, err := p.Run(context.Background(), "octopus hearts")
	require.NoError(t, err)

	assert.Equal(t, "yt-1", res.YouTubeID)
	assert.Equal(t, "script about octopus hearts", ren.submitted[0].Script)
	assert.FileExists(t, res.VideoPath)
	assert.True(t, strings.HasPrefix(filepath.Base(res.VideoPath), "output_"))
	assert.Equal(t, ".mp4", filepath.Ext(res.VideoPath))

	require.Len(t, up.reqs, 1)
	assert.Equal(t, res.VideoPath, up.reqs[0].Path)
	assert.Equal(t, "Title: script about octopus hearts", up.reqs[0].Title)
	assert.Equal(t, "private", up.reqs[0].Privacy)
}

func TestRun_NoContextStopsBeforeRender(t *testing.T) {
	p, res, ren, _ := newTestPipeline(t)
	res.noContext["obscure"] = true

	out, err := p.Run(context.Background(), "obscure")
	assert.ErrorIs(t, err, ErrNoContext)
	assert.Equal(t, resolver.OutcomeNoContext, out.Resolution.Outcome)
	assert.Empty(t, ren.submitted)
}

func TestRun_ResolverErrorIsFatal(t *testing.T) {
	p, res, _, _ := newTestPipeline(t)
	res.err = errors.New("model down")

	_, err := p.Run(context.Background(), "anything")
	assert.ErrorContains(t, err, "model down")
	assert.NotErrorIs(t, err, ErrNoContext)
}

func TestRun_NoUploader(t *testing.T) {
	p, _, _, _ := newTestPipeline(t)
	p.Uploader = nil

	res, err := p.Run(context.Background(), "topic")
	assert.ErrorIs(t, err, youtube.ErrNoToken)
	assert.FileExists(t, res.VideoPath)
}

func TestRunNext_SkipsTopicsWithoutContext(t *testing.T) {
	p, res, _, _ := newTestPipeline(t)
	store := topics.NewStore(dbtest.New(t))
	p.Topics = store
	ctx := context.Background()

	_, err := store.Add(ctx, []string{"obscure", "octopus hearts"}, "manual")
	require.NoError(t, err)
	res.noContext["obscure"] = true

	out, err := p.RunNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "octopus hearts", out.Topic)
	assert.Equal(t, []string{"obscure", "octopus hearts"}, res.calls)

	failed, err := store.List(ctx, models.TopicFailed, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "obscure", failed[0].Text)

	used, err := store.Get(ctx, out.TopicID)
	require.NoError(t, err)
	assert.Equal(t, models.TopicUsed, used.Status)

	_, err = p.RunNext(ctx)
	assert.ErrorIs(t, err, topics.ErrNoPendingTopics)
}

func TestRunNext_FatalErrorLeavesTopicPending(t *testing.T) {
	p, res, _, _ := newTestPipeline(t)
	store := topics.NewStore(dbtest.New(t))
	p.Topics = store
	ctx := context.Background()

	_, err := store.Add(ctx, []string{"topic"}, "manual")
	require.NoError(t, err)
	res.err = errors.New("quota")

	_, err = p.RunNext(ctx)
	assert.Error(t, err)

	next, err := store.NextPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, "topic", next.Text)
}

func TestOutputPathIsUnique(t *testing.T) {
	p := &Pipeline{OutputDir: "out"}
	a, b := p.OutputPath(), p.OutputPath()
	assert.NotEqual(t, a, b)
	assert.Equal(t, "out", filepath.Dir(a))
}

func TestLazyUploader_ConnectsOnceTokenExists(t *testing.T) {
	connected := false
	var dials int
	up := &fakeUploader{}
	l := &lazyUploader{connect: func(ctx context.Context) (Uploader, error) {
		dials++
		if !connected {
			return nil, youtube.ErrNoToken
		}
		return up, nil
	}}
	ctx := context.Background()

	_, err := l.Upload(ctx, youtube.UploadRequest{Path: "a.mp4"})
	assert.ErrorIs(t, err, ErrNoUploader)

	connected = true
	_, err = l.Upload(ctx, youtube.UploadRequest{Path: "a.mp4"})
	require.NoError(t, err)
	_, err = l.Upload(ctx, youtube.UploadRequest{Path: "b.mp4"})
	require.NoError(t, err)

	assert.Equal(t, 2, dials)
	require.Len(t, up.reqs, 2)
	assert.Equal(t, "b.mp4", up.reqs[1].Path)
}

func TestLazyUploader_ConnectError(t *testing.T) {
	l := &lazyUploader{connect: func(ctx context.Context) (Uploader, error) {
		return nil, errors.New("bad client secret")
	}}
	_, err := l.Upload(context.Background(), youtube.UploadRequest{})
	assert.ErrorContains(t, err, "bad client secret")
	assert.NotErrorIs(t, err, ErrNoUploader)
}
