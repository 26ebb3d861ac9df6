// Package avatar drives talking-avatar video rendering services.
package avatar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/drewmudry/scriptcast/internal/platform"
)

var (
	ErrRenderFailed  = errors.New("avatar: video generation failed")
	ErrNoVideoURL    = errors.New("avatar: video URL not found in the response")
	ErrRenderTimeout = errors.New("avatar: timed out waiting for video")
)

// State is the coarse status of a render job.
type State string

const (
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// JobStatus is one observation of a render job.
type JobStatus struct {
	JobID    string
	State    State
	VideoURL string
	Error    string
}

// RenderRequest describes the video to render.
type RenderRequest struct {
	Script   string
	AvatarID string
	VoiceID  string
	Gender   string
	Width    int
	Height   int
}

// Renderer submits render jobs and reports their status. Status is a single
// non-blocking observation; use Wait for a polling loop.
type Renderer interface {
	Submit(ctx context.Context, req RenderRequest) (string, error)
	Status(ctx context.Context, jobID string) (JobStatus, error)
	Download(ctx context.Context, status JobStatus, path string) error
}

// APIError is a non-success answer from a render service.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("avatar: %s: status %d: %s", e.Op, e.Status, e.Message)
}

// Policy controls how Wait polls.
type Policy struct {
	Interval time.Duration
	Timeout  time.Duration // zero means wait until ctx is done
}

// Wait polls Status every p.Interval until the job completes, fails, or the
// timeout passes.
func Wait(ctx context.Context, r Renderer, jobID string, p Policy, onPoll func(JobStatus)) (JobStatus, error) {
	if p.Interval <= 0 {
		p.Interval = 5 * time.Second
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		status, err := r.Status(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return JobStatus{}, fmt.Errorf("%w: %s", ErrRenderTimeout, jobID)
			}
			return JobStatus{}, err
		}
		if onPoll != nil {
			onPoll(status)
		}

		switch status.State {
		case StateCompleted:
			if status.VideoURL == "" {
				return status, ErrNoVideoURL
			}
			return status, nil
		case StateFailed:
			return status, fmt.Errorf("%w: %s", ErrRenderFailed, status.Error)
		}

		select {
		case <-ctx.Done():
			return status, fmt.Errorf("%w: %s", ErrRenderTimeout, jobID)
		case <-ticker.C:
		}
	}
}

// New returns the renderer selected by cfg.Provider.
func New(cfg platform.AvatarConfig) (Renderer, error) {
	switch cfg.Provider {
	case "heygen", "":
		return NewHeyGen(cfg.HeyGenAPIKey)
	case "musetalk":
		return NewMuseTalk(cfg.MuseTalkURL), nil
	default:
		return nil, fmt.Errorf("unknown avatar provider %q", cfg.Provider)
	}
}

// DefaultRequest fills the avatar, voice and size selectors from cfg.
func DefaultRequest(cfg platform.AvatarConfig, script string) RenderRequest {
	return RenderRequest{
		Script:   script,
		AvatarID: cfg.HeyGenAvatarID,
		VoiceID:  cfg.HeyGenVoiceID,
		Gender:   cfg.MuseTalkGender,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}
}

// downloadFile streams the response body of req to path, creating parent
// directories.
func downloadFile(ctx context.Context, client *http.Client, req *http.Request, path string) error {
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error downloading video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Op: "download", Status: resp.StatusCode, Message: resp.Status}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("error writing video: %w", err)
	}
	return f.Close()
}
