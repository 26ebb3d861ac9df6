// Package topics discovers video topics and keeps the backlog of topics
// waiting to be turned into videos.
package topics

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentFeeds = 4

// FeedSource pulls topic candidates from RSS and Atom feeds. Each item title
// becomes one topic.
type FeedSource struct {
	Client *http.Client
	Feeds  []string
	log    *zap.Logger
}

func NewFeedSource(feeds []string, log *zap.Logger) *FeedSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &FeedSource{
		Client: &http.Client{Timeout: 15 * time.Second},
		Feeds:  feeds,
		log:    log,
	}
}

// Topics returns up to limit distinct item titles across all feeds, in feed
// order. Feeds are fetched concurrently. A broken feed is skipped; the call
// fails only when every feed does.
func (f *FeedSource) Topics(ctx context.Context, limit int) ([]string, error) {
	feeds := make([]*gofeed.Feed, len(f.Feeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFeeds)
	for i, feedURL := range f.Feeds {
		g.Go(func() error {
			feed, err := f.fetch(gctx, gofeed.NewParser(), feedURL)
			if err != nil {
				f.log.Warn("skipping feed", zap.String("feed", feedURL), zap.Error(err))
				return nil
			}
			feeds[i] = feed
			return nil
		})
	}
	g.Wait()

	seen := make(map[string]bool)
	var out []string
	failed := 0
	for _, feed := range feeds {
		if feed == nil {
			failed++
			continue
		}
		for _, it := range feed.Items {
			if limit > 0 && len(out) >= limit {
				break
			}
			title := strings.Join(strings.Fields(it.Title), " ")
			if title == "" || seen[strings.ToLower(title)] {
				continue
			}
			seen[strings.ToLower(title)] = true
			out = append(out, title)
		}
	}

	if len(f.Feeds) > 0 && failed == len(f.Feeds) {
		return nil, fmt.Errorf("all %d topic feeds failed", failed)
	}
	return out, nil
}

func (f *FeedSource) fetch(ctx context.Context, parser *gofeed.Parser, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}
	return parser.Parse(resp.Body)
}

// Refresh pulls topics from src and stores the new ones.
func Refresh(ctx context.Context, src *FeedSource, store *Store, limit int) (int, error) {
	texts, err := src.Topics(ctx, limit)
	if err != nil {
		return 0, err
	}
	return store.Add(ctx, texts, "feed")
}
