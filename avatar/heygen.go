package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	heyGenBaseURL    = "https://api.heygen.com"
	heyGenSuccess    = 100
	defaultBGColor   = "#000000"
	defaultAvatarID  = "Daisy-inskirt-20220818"
	defaultVoiceID   = "2d5b0e6cf36f460aa7fc47e3eee4ba54"
	defaultWidth     = 720
	defaultHeight    = 1280
	maxErrorBodySize = 4096
)

// HeyGen renders videos with the HeyGen v2 API.
type HeyGen struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func NewHeyGen(apiKey string) (*HeyGen, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("HEY_GEN_KEY environment variable not set")
	}
	return &HeyGen{
		APIKey:  apiKey,
		BaseURL: heyGenBaseURL,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type heyGenVideoInput struct {
	Character struct {
		Type        string `json:"type"`
		AvatarID    string `json:"avatar_id"`
		AvatarStyle string `json:"avatar_style"`
	} `json:"character"`
	Voice struct {
		Type      string `json:"type"`
		InputText string `json:"input_text"`
		VoiceID   string `json:"voice_id"`
	} `json:"voice"`
	Background struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"background"`
}

type heyGenGenerateRequest struct {
	VideoInputs []heyGenVideoInput `json:"video_inputs"`
	Dimension   struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"dimension"`
}

type heyGenGenerateResponse struct {
	Error json.RawMessage `json:"error"`
	Data  struct {
		VideoID string `json:"video_id"`
	} `json:"data"`
}

type heyGenStatusResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status   string          `json:"status"`
		VideoURL string          `json:"video_url"`
		Error    json.RawMessage `json:"error"`
	} `json:"data"`
}

func (h *HeyGen) Submit(ctx context.Context, req RenderRequest) (string, error) {
	var input heyGenVideoInput
	input.Character.Type = "avatar"
	input.Character.AvatarID = orDefault(req.AvatarID, defaultAvatarID)
	input.Character.AvatarStyle = "normal"
	input.Voice.Type = "text"
	input.Voice.InputText = req.Script
	input.Voice.VoiceID = orDefault(req.VoiceID, defaultVoiceID)
	input.Background.Type = "color"
	input.Background.Value = defaultBGColor

	payload := heyGenGenerateRequest{VideoInputs: []heyGenVideoInput{input}}
	payload.Dimension.Width = orDefaultInt(req.Width, defaultWidth)
	payload.Dimension.Height = orDefaultInt(req.Height, defaultHeight)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/v2/video/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("X-Api-Key", h.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	var out heyGenGenerateResponse
	if err := h.do(httpReq, "generate video", &out); err != nil {
		return "", err
	}
	if msg := rawError(out.Error); msg != "" {
		return "", &APIError{Op: "generate video", Status: http.StatusOK, Message: msg}
	}
	if out.Data.VideoID == "" {
		return "", &APIError{Op: "generate video", Status: http.StatusOK, Message: "missing video_id"}
	}
	return out.Data.VideoID, nil
}

func (h *HeyGen) Status(ctx context.Context, jobID string) (JobStatus, error) {
	u := h.BaseURL + "/v1/video_status.get?video_id=" + url.QueryEscape(jobID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return JobStatus{}, err
	}
	httpReq.Header.Set("X-Api-Key", h.APIKey)

	var out heyGenStatusResponse
	if err := h.do(httpReq, "check video status", &out); err != nil {
		return JobStatus{}, err
	}
	if out.Code != heyGenSuccess {
		msg := out.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return JobStatus{}, &APIError{Op: "check video status", Status: out.Code, Message: msg}
	}

	status := JobStatus{JobID: jobID, VideoURL: out.Data.VideoURL}
	errMsg := rawError(out.Data.Error)
	switch {
	case out.Data.Status == "completed":
		status.State = StateCompleted
	case out.Data.Status == "failed" || errMsg != "":
		status.State = StateFailed
		status.Error = errMsg
		if status.Error == "" {
			status.Error = "Unknown error"
		}
	default:
		// pending, waiting, processing
		status.State = StateProcessing
	}
	return status, nil
}

func (h *HeyGen) Download(ctx context.Context, status JobStatus, path string) error {
	if status.VideoURL == "" {
		return ErrNoVideoURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, status.VideoURL, nil)
	if err != nil {
		return err
	}
	return downloadFile(ctx, h.Client, req, path)
}

func (h *HeyGen) do(req *http.Request, op string, out interface{}) error {
	resp, err := h.Client.Do(req)
	if err != nil {
		return fmt.Errorf("error calling HeyGen (%s): %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return &APIError{Op: op, Status: resp.StatusCode, Message: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode HeyGen response (%s): %w", op, err)
	}
	return nil
}

// rawError renders an error field that may be null, a string or an object.
func rawError(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	var obj struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Detail != "" {
			return obj.Detail
		}
	}
	return s
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
