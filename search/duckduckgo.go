package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	duckDuckGoURL = "https://html.duckduckgo.com/html/"
	browserUA     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	noDescription = "No description available"
)

// DuckDuckGo scrapes the DuckDuckGo HTML endpoint. It needs no API key.
type DuckDuckGo struct {
	Client  *http.Client
	BaseURL string
}

func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{
		Client:  &http.Client{Timeout: 30 * time.Second},
		BaseURL: duckDuckGoURL,
	}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	u := d.BaseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: resp.Status}
	}

	return parseDuckDuckGo(io.LimitReader(resp.Body, 1<<20), clampLimit(limit))
}

// parseDuckDuckGo reads result blocks in page order. A block without a title
// link still uses up its rank, so ranks can have gaps.
func parseDuckDuckGo(r io.Reader, limit int) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var results []Candidate
	doc.Find("div.result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		rank := i + 1
		if rank > limit {
			return false
		}

		title := s.Find("a.result__a").First()
		href, ok := title.Attr("href")
		if !ok || href == "" {
			return true
		}

		snippet := strings.TrimSpace(s.Find(".result__snippet").First().Text())
		if snippet == "" {
			snippet = noDescription
		}

		results = append(results, Candidate{
			Rank:    rank,
			URL:     resolveRedirect(href),
			Title:   strings.TrimSpace(title.Text()),
			Snippet: snippet,
		})
		return true
	})

	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's //duckduckgo.com/l/?uddg=... links.
func resolveRedirect(href string) string {
	if !strings.Contains(href, "duckduckgo.com/l/") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
