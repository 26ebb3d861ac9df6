package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const linkupBaseURL = "https://api.linkup.so/v1"

// Linkup queries the Linkup search API with outputType=searchResults.
type Linkup struct {
	apiKey     string
	baseURL    string
	http       *http.Client
	maxRetries int
	minBackoff time.Duration
	maxBackoff time.Duration
}

// LinkupOption configures a Linkup client.
type LinkupOption func(*Linkup)

// WithLinkupBaseURL overrides the API base URL.
func WithLinkupBaseURL(u string) LinkupOption {
	return func(l *Linkup) { l.baseURL = strings.TrimRight(u, "/") }
}

// WithLinkupRetry configures the retry policy for 429 and 5xx answers.
func WithLinkupRetry(maxRetries int, minBackoff, maxBackoff time.Duration) LinkupOption {
	return func(l *Linkup) {
		l.maxRetries = maxRetries
		l.minBackoff = minBackoff
		l.maxBackoff = maxBackoff
	}
}

func NewLinkup(apiKey string, opts ...LinkupOption) *Linkup {
	l := &Linkup{
		apiKey:     apiKey,
		baseURL:    linkupBaseURL,
		http:       &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		minBackoff: 250 * time.Millisecond,
		maxBackoff: 4 * time.Second,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

type linkupRequest struct {
	Q          string `json:"q"`
	Depth      string `json:"depth"`
	OutputType string `json:"outputType"`
}

type linkupResponse struct {
	Results []struct {
		Type    string `json:"type"`
		Name    string `json:"name"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (l *Linkup) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if l.apiKey == "" {
		return nil, errors.New("search: linkup API key is empty")
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	body, err := json.Marshal(linkupRequest{Q: query, Depth: "standard", OutputType: "searchResults"})
	if err != nil {
		return nil, err
	}

	raw, err := l.post(ctx, "/search", body)
	if err != nil {
		return nil, err
	}

	var out linkupResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode linkup response: %w", err)
	}

	limit = clampLimit(limit)
	var results []Candidate
	for i, r := range out.Results {
		if i >= limit {
			break
		}
		if r.URL == "" {
			continue
		}
		snippet := truncate(strings.TrimSpace(r.Content), 300)
		if snippet == "" {
			snippet = noDescription
		}
		results = append(results, Candidate{Rank: i + 1, URL: r.URL, Title: r.Name, Snippet: snippet})
	}
	return results, nil
}

func (l *Linkup) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
		req.Header.Set("Content-Type", "application/json")

		res, err := l.http.Do(req)
		if err != nil {
			if attempt < l.maxRetries {
				if err := sleepCtx(ctx, backoff(attempt, l.minBackoff, l.maxBackoff)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}

		b, readErr := io.ReadAll(io.LimitReader(res.Body, 4<<20))
		res.Body.Close()

		if res.StatusCode >= 200 && res.StatusCode < 300 {
			return b, readErr
		}

		retryable := res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500
		if retryable && attempt < l.maxRetries {
			wait := backoff(attempt, l.minBackoff, l.maxBackoff)
			if secs, err := strconv.Atoi(res.Header.Get("Retry-After")); err == nil && secs >= 0 {
				wait = time.Duration(secs) * time.Second
			}
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
			return nil, ErrUnauthorized
		}
		apiErr := &APIError{Status: res.StatusCode}
		_ = json.Unmarshal(b, apiErr)
		return nil, apiErr
	}
}

// backoff doubles from min up to max.
func backoff(attempt int, min, max time.Duration) time.Duration {
	d := min << attempt
	if d > max || d <= 0 {
		d = max
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
