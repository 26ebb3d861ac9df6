// Package fetch downloads a web page and extracts its main readable text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrEmptyContent is returned when a page yields no usable text.
var ErrEmptyContent = errors.New("fetch: no extractable content")

const (
	defaultMaxLength = 50000
	userAgent        = "Mozilla/5.0 (compatible; scriptcast/1.0)"
)

// Fetcher returns the main text of the page at url.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches pages over plain HTTP.
type HTTPFetcher struct {
	Client       *http.Client
	MaxLength    int
	IncludeLinks bool
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:       &http.Client{Timeout: 60 * time.Second},
		MaxLength:    defaultMaxLength,
		IncludeLinks: true,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("url is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var text string
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "text/plain") || strings.Contains(ct, "text/markdown") {
		text = strings.TrimSpace(string(body))
	} else {
		text, err = ExtractText(string(body), f.IncludeLinks)
		if err != nil {
			return "", fmt.Errorf("failed to extract text: %w", err)
		}
	}

	if text == "" {
		return "", ErrEmptyContent
	}

	max := f.MaxLength
	if max <= 0 {
		max = defaultMaxLength
	}
	return truncate(text, max), nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

