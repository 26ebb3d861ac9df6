// Package search finds candidate web pages for a query.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/drewmudry/scriptcast/internal/platform"
)

// DefaultLimit caps how many results a search returns.
const DefaultLimit = 5

var (
	ErrUnauthorized = errors.New("search: unauthorized (check API key)")
	ErrEmptyQuery   = errors.New("search: query is empty")
)

// Candidate is one search result. Rank is 1-based and reflects the
// provider's ordering.
type Candidate struct {
	Rank    int    `json:"id"`
	URL     string `json:"link"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"search_description"`
}

// Searcher runs a web search and returns at most limit candidates in
// provider order.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// APIError is a non-2xx answer from a search API.
type APIError struct {
	Status  int    `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("search api error: %s (status=%d)", e.Message, e.Status)
	}
	return fmt.Sprintf("search api error (status=%d)", e.Status)
}

// FormatCandidates renders the list for the selection prompt. Indexes are
// zero-based positions in cands, which is what the model must answer with.
func FormatCandidates(cands []Candidate) string {
	var sb strings.Builder
	for i, c := range cands {
		entry, _ := json.Marshal(c)
		fmt.Fprintf(&sb, "[%d] %s\n", i, entry)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > DefaultLimit {
		return DefaultLimit
	}
	return limit
}

// New returns the provider selected by cfg.Provider.
func New(cfg platform.SearchConfig) (Searcher, error) {
	switch cfg.Provider {
	case "duckduckgo", "":
		return NewDuckDuckGo(), nil
	case "linkup":
		return NewLinkup(cfg.LinkupAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Provider)
	}
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
