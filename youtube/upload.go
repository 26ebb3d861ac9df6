package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

const (
	// DefaultCategoryID is "People & Blogs".
	DefaultCategoryID = "22"
	DefaultPrivacy    = "unlisted"

	defaultChunkSize = 8 * 1024 * 1024
)

var ErrMissingFile = errors.New("youtube: video file path is required")

// UploadRequest describes one video to publish.
type UploadRequest struct {
	Path        string
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     string
}

// Uploader publishes local video files with videos.insert.
type Uploader struct {
	svc       *yt.Service
	log       *zap.Logger
	ChunkSize int
}

// NewUploader builds the YouTube service on top of an authorized client,
// usually the one returned by Authenticator.Client.
func NewUploader(ctx context.Context, client *http.Client, log *zap.Logger, opts ...option.ClientOption) (*Uploader, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating YouTube client: %w", err)
	}
	return &Uploader{svc: svc, log: log, ChunkSize: defaultChunkSize}, nil
}

// Upload sends the file and returns the new video ID.
func (u *Uploader) Upload(ctx context.Context, req UploadRequest) (string, error) {
	if req.Path == "" {
		return "", ErrMissingFile
	}
	f, err := os.Open(req.Path)
	if err != nil {
		return "", fmt.Errorf("error opening %s: %w", req.Path, err)
	}
	defer f.Close()

	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
			CategoryId:  orDefault(req.CategoryID, DefaultCategoryID),
		},
		Status: &yt.VideoStatus{
			PrivacyStatus: orDefault(req.Privacy, DefaultPrivacy),
		},
	}

	log := u.log.With(zap.String("file", req.Path))
	resp, err := u.svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f, googleapi.ChunkSize(u.ChunkSize)).
		ProgressUpdater(func(current, total int64) {
			log.Debug("upload progress", zap.Int64("sent", current), zap.Int64("total", total))
		}).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("error uploading video: %w", err)
	}

	log.Info("video uploaded", zap.String("video_id", resp.Id))
	return resp.Id, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
