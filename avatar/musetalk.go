package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MuseTalk talks to a self-hosted MuseTalk lip-sync server.
type MuseTalk struct {
	BaseURL string
	Client  *http.Client
	// SourceVideo is the reference clip the server animates.
	SourceVideo string
}

func NewMuseTalk(baseURL string) *MuseTalk {
	return &MuseTalk{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Client:      &http.Client{Timeout: 60 * time.Second},
		SourceVideo: "f1bbee75-460c-45e5-b42d-f1394da66fb9.mp4",
	}
}

// ListSpeakers returns the raw speaker entries the server advertises.
func (m *MuseTalk) ListSpeakers(ctx context.Context) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.BaseURL+"/speakers", nil)
	if err != nil {
		return nil, err
	}
	var out []json.RawMessage
	if err := m.do(req, "list speakers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MuseTalk) Submit(ctx context.Context, r RenderRequest) (string, error) {
	gender := r.Gender
	if gender == "" {
		gender = "Male"
	}
	payload, err := json.Marshal(map[string]string{
		"text":       r.Script,
		"gender":     strings.ToUpper(gender[:1]) + strings.ToLower(gender[1:]),
		"video_path": m.SourceVideo,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/generate_video", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		JobID string `json:"job_id"`
	}
	if err := m.do(req, "generate video", &out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", &APIError{Op: "generate video", Status: http.StatusOK, Message: "failed to retrieve job_id from the response"}
	}
	return out.JobID, nil
}

func (m *MuseTalk) Status(ctx context.Context, jobID string) (JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.BaseURL+"/job-status/"+jobID, nil)
	if err != nil {
		return JobStatus{}, err
	}

	var out struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := m.do(req, "job status", &out); err != nil {
		return JobStatus{}, err
	}

	status := JobStatus{JobID: jobID}
	switch out.Status {
	case "success":
		status.State = StateCompleted
		status.VideoURL = m.BaseURL + "/download/" + jobID
	case "failed":
		status.State = StateFailed
		status.Error = out.Error
		if status.Error == "" {
			status.Error = "Video creation failed."
		}
	default:
		status.State = StateProcessing
	}
	return status, nil
}

func (m *MuseTalk) Download(ctx context.Context, status JobStatus, path string) error {
	u := status.VideoURL
	if u == "" {
		u = m.BaseURL + "/download/" + status.JobID
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return downloadFile(ctx, m.Client, req, path)
}

func (m *MuseTalk) do(req *http.Request, op string, out interface{}) error {
	resp, err := m.Client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed (%s): %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return &APIError{Op: op, Status: resp.StatusCode, Message: strings.TrimSpace(string(b))}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
