package letterboxd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"homefeed/cache"
	"homefeed/upstream"

	"github.com/mmcdole/gofeed"
	log "github.com/sirupsen/logrus"
)

// DefaultTTL is how long a merged feed stays cached.
const DefaultTTL = time.Hour

// Fetcher fetches and merges a Letterboxd RSS feed, caching the merged
// result per feed URL.
type Fetcher struct {
	client *http.Client
	cache  *cache.Cache[string, []Movie]
	limit  int
}

// NewFetcher creates a Fetcher backed by feedCache. limit caps the number of
// movies per merged feed; non-positive means DefaultDisplayCount.
func NewFetcher(feedCache *cache.Cache[string, []Movie], limit int) *Fetcher {
	return &Fetcher{
		client: upstream.NewClient(),
		cache:  feedCache,
		limit:  limit,
	}
}

// Fetch returns the merged movie list for feedURL, consulting the cache
// first. noCache removes any cached entry so a fresh upstream call is made.
// Callers get their own copy of the list, so mutating it cannot corrupt the
// cached entry.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string, noCache bool) ([]Movie, error) {
	if noCache {
		log.WithFields(log.Fields{"feed": feedURL}).Info("Bypassing feed cache")
		f.cache.Remove(feedURL)
	}

	movies, err := cache.Fetch(f.cache, feedURL, func() ([]Movie, error) {
		return f.fetchFeed(ctx, feedURL)
	})
	if err != nil {
		return nil, err
	}

	return append([]Movie(nil), movies...), nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, feedURL string) ([]Movie, error) {
	start := time.Now()

	body, err := upstream.Get(ctx, f.client, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", feedURL, err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, &upstream.ParseError{Source: feedURL, Err: err}
	}

	movies := Merge(feed.Items, f.limit)

	log.WithFields(log.Fields{
		"feed":    feedURL,
		"items":   len(feed.Items),
		"movies":  len(movies),
		"elapsed": time.Since(start),
	}).Info("Fetched Letterboxd feed")

	return movies, nil
}
