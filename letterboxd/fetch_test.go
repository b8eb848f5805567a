package letterboxd_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"homefeed/cache"
	"homefeed/letterboxd"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedDocument = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:letterboxd="https://letterboxd.com">
<channel>
<title>Letterboxd diary</title>
<link>https://letterboxd.com/someone/</link>
<description>Films</description>
<item>
  <title>Heat, 1995 - ★★★★</title>
  <link>https://letterboxd.com/someone/film/heat/</link>
  <description>Still the best diner scene.</description>
  <pubDate>Mon, 06 Jan 2025 10:00:00 +0000</pubDate>
  <letterboxd:filmTitle>Heat</letterboxd:filmTitle>
  <letterboxd:memberRating>4.0</letterboxd:memberRating>
  <letterboxd:rewatch>Yes</letterboxd:rewatch>
</item>
<item>
  <title>Alien, 1979</title>
  <link>https://letterboxd.com/someone/film/alien/</link>
  <description>First watch.</description>
  <pubDate>Sun, 05 Jan 2025 10:00:00 +0000</pubDate>
  <letterboxd:filmTitle>Alien</letterboxd:filmTitle>
</item>
</channel>
</rss>`

func TestFetchParsesAndMergesFeed(t *testing.T) {
	var hits atomic.Int64
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, feedDocument)
	})
	mux.HandleFunc("/old-rss", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+"/rss", http.StatusMovedPermanently)
	})

	fetcher := letterboxd.NewFetcher(cache.New[string, []letterboxd.Movie](time.Minute), 5)

	// Redirected URL still lands on the feed
	movies, err := fetcher.Fetch(context.Background(), server.URL+"/old-rss", false)
	require.NoError(t, err)

	require.Len(t, movies, 2)
	assert.Equal(t, "Heat", movies[0].FilmTitle)
	assert.Equal(t, "4.0", movies[0].Rating)
	assert.Equal(t, "Yes", movies[0].Rewatch)
	assert.Equal(t, "Alien", movies[1].FilmTitle)
	assert.Equal(t, int64(1), hits.Load())
}

func TestFetchUsesCacheUntilBypassed(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, feedDocument)
	}))
	defer server.Close()

	fetcher := letterboxd.NewFetcher(cache.New[string, []letterboxd.Movie](time.Minute), 5)

	_, err := fetcher.Fetch(context.Background(), server.URL, false)
	require.NoError(t, err)
	_, err = fetcher.Fetch(context.Background(), server.URL, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load())

	_, err = fetcher.Fetch(context.Background(), server.URL, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestFetchReturnsCopyOfCachedMovies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedDocument)
	}))
	defer server.Close()

	fetcher := letterboxd.NewFetcher(cache.New[string, []letterboxd.Movie](time.Minute), 5)

	movies, err := fetcher.Fetch(context.Background(), server.URL, false)
	require.NoError(t, err)
	require.NotEmpty(t, movies)

	movies[0].FilmTitle = "mutated"

	again, err := fetcher.Fetch(context.Background(), server.URL, false)
	require.NoError(t, err)
	assert.Equal(t, "Heat", again[0].FilmTitle)
}

func TestFetchFailureIsNotCached(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := letterboxd.NewFetcher(cache.New[string, []letterboxd.Movie](time.Minute), 5)

	_, err := fetcher.Fetch(context.Background(), server.URL, false)
	require.Error(t, err)
	_, err = fetcher.Fetch(context.Background(), server.URL, false)
	require.Error(t, err)

	assert.Equal(t, int64(2), hits.Load())
}

func TestFetchRejectsMalformedFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not xml")
	}))
	defer server.Close()

	fetcher := letterboxd.NewFetcher(cache.New[string, []letterboxd.Movie](time.Minute), 5)

	_, err := fetcher.Fetch(context.Background(), server.URL, false)
	require.Error(t, err)
}
