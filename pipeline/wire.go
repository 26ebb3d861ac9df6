package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/scriptcast/avatar"
	"github.com/drewmudry/scriptcast/fetch"
	"github.com/drewmudry/scriptcast/internal/platform"
	"github.com/drewmudry/scriptcast/llm"
	"github.com/drewmudry/scriptcast/metadata"
	"github.com/drewmudry/scriptcast/resolver"
	"github.com/drewmudry/scriptcast/search"
	"github.com/drewmudry/scriptcast/topics"
	"github.com/drewmudry/scriptcast/youtube"
)

// NewResolver builds the script resolver from configuration.
func NewResolver(cfg *platform.Config, gen llm.Generator, log *zap.Logger) (*resolver.Resolver, error) {
	searcher, err := search.New(cfg.Search)
	if err != nil {
		return nil, err
	}
	return resolver.New(gen, searcher, fetch.NewHTTPFetcher(),
		resolver.WithMaxResults(cfg.Search.MaxResults),
		resolver.WithLogger(log.Named("resolver")),
	), nil
}

// NewUploader connects to YouTube with the stored OAuth token.
func NewUploader(ctx context.Context, cfg platform.YouTubeConfig, log *zap.Logger) (*youtube.Uploader, error) {
	auth, err := youtube.NewAuthenticator(cfg)
	if err != nil {
		return nil, err
	}
	client, err := auth.Client(ctx)
	if err != nil {
		return nil, err
	}
	return youtube.NewUploader(ctx, client, log.Named("youtube"))
}

// New wires every step from configuration. db may be nil, in which case
// RunNext is unavailable. Uploads fail with ErrNoUploader until a channel is
// connected.
func New(ctx context.Context, cfg *platform.Config, db *gorm.DB, log *zap.Logger) (*Pipeline, error) {
	gen, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	res, err := NewResolver(cfg, gen, log)
	if err != nil {
		return nil, err
	}
	renderer, err := avatar.New(cfg.Avatar)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		Resolver: res,
		Renderer: renderer,
		Metadata: metadata.NewWriter(gen, log.Named("metadata")),
		Render: RenderOptions{
			Request: func(script string) avatar.RenderRequest {
				return avatar.DefaultRequest(cfg.Avatar, script)
			},
			Policy: avatar.Policy{Interval: cfg.Avatar.PollInterval, Timeout: cfg.Avatar.Timeout},
		},
		Publish: PublishOptions{
			CategoryID: cfg.YouTube.CategoryID,
			Privacy:    cfg.YouTube.Privacy,
		},
		OutputDir: cfg.App.OutputDir,
		Log:       log,
	}
	if db != nil {
		p.Topics = topics.NewStore(db)
	}

	uploader := &lazyUploader{connect: func(ctx context.Context) (Uploader, error) {
		u, err := NewUploader(context.WithoutCancel(ctx), cfg.YouTube, log)
		if err != nil {
			return nil, err
		}
		return u, nil
	}}
	switch _, err := uploader.get(ctx); {
	case errors.Is(err, ErrNoUploader):
		log.Warn("YouTube channel not connected yet, uploads wait for /auth/youtube")
	case err != nil:
		log.Warn("YouTube client unavailable, retrying on upload", zap.Error(err))
	}
	p.Uploader = uploader
	return p, nil
}

// lazyUploader connects on first successful use, so a channel connected
// after startup is picked up without a restart.
type lazyUploader struct {
	connect func(ctx context.Context) (Uploader, error)

	mu sync.Mutex
	up Uploader
}

func (l *lazyUploader) Upload(ctx context.Context, req youtube.UploadRequest) (string, error) {
	up, err := l.get(ctx)
	if err != nil {
		return "", err
	}
	return up.Upload(ctx, req)
}

func (l *lazyUploader) get(ctx context.Context) (Uploader, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.up != nil {
		return l.up, nil
	}
	up, err := l.connect(ctx)
	if errors.Is(err, youtube.ErrNoToken) {
		return nil, ErrNoUploader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect YouTube: %w", err)
	}
	l.up = up
	return up, nil
}
