package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"homefeed/cache"
	"homefeed/upstream"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultTTL covers both the access token and the track cache.
	DefaultTTL = 15 * time.Minute

	// DefaultTrackCount is how many tracks are returned when no limit is given.
	DefaultTrackCount = 5

	// The artists endpoint accepts at most 50 ids per request
	maxArtistsPerLookup = 50

	defaultAccountsURL = "https://accounts.spotify.com"
	defaultAPIURL      = "https://api.spotify.com"

	tokenCacheKey = "access_token"
)

// Track is one recently played track in the shape the API serves.
type Track struct {
	TrackName     string   `json:"track_name"`
	Artist        string   `json:"artist"`
	AlbumName     string   `json:"album_name"`
	PlayedAt      string   `json:"played_at"`
	SpotifyURL    string   `json:"spotify_url"`
	AlbumImageURL string   `json:"album_image_url,omitempty"`
	Genres        []string `json:"genres"`
}

// Client talks to the Spotify Web API using a long-lived refresh token. The
// short-lived access token lives in its own cache so concurrent track
// fetches share one token refresh per TTL window.
type Client struct {
	httpClient  *http.Client
	accountsURL string
	apiURL      string

	clientID     string
	clientSecret string
	refreshToken string

	tokenCache *cache.Cache[string, string]
	trackCache *cache.Cache[string, []Track]

	excludedGenres []string
}

// NewClient creates a Client. excludedGenres is matched against track genres
// by ExcludeGenres; an empty list excludes nothing.
func NewClient(clientID, clientSecret, refreshToken string, tokenCache *cache.Cache[string, string], trackCache *cache.Cache[string, []Track], excludedGenres []string) *Client {
	return &Client{
		httpClient:     &http.Client{},
		accountsURL:    defaultAccountsURL,
		apiURL:         defaultAPIURL,
		clientID:       clientID,
		clientSecret:   clientSecret,
		refreshToken:   refreshToken,
		tokenCache:     tokenCache,
		trackCache:     trackCache,
		excludedGenres: excludedGenres,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

type recentlyPlayedResponse struct {
	Items []playHistoryObject `json:"items"`
}

type playHistoryObject struct {
	Track    trackObject `json:"track"`
	PlayedAt string      `json:"played_at"`
}

type trackObject struct {
	Name         string         `json:"name"`
	Album        albumObject    `json:"album"`
	Artists      []artistObject `json:"artists"`
	ExternalURLs externalURLs   `json:"external_urls"`
}

type albumObject struct {
	Name   string        `json:"name"`
	Images []imageObject `json:"images"`
}

type artistObject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type imageObject struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

type artistsResponse struct {
	Artists []artistDetails `json:"artists"`
}

type artistDetails struct {
	ID     string   `json:"id"`
	Genres []string `json:"genres"`
}

// RecentlyPlayed returns up to limit recently played tracks, genre-filtered
// and cached. noCache clears both the track and the token cache first so the
// next token exchange happens against the live endpoint too. Callers get
// their own copy of the list, so mutating it cannot corrupt the cached entry.
func (c *Client) RecentlyPlayed(ctx context.Context, limit int, noCache bool) ([]Track, error) {
	if limit <= 0 {
		limit = DefaultTrackCount
	}

	if noCache {
		log.Info("Bypassing track and token caches")
		c.trackCache.Clear()
		c.tokenCache.Clear()
	}

	key := fmt.Sprintf("recently-played:%d", limit)
	tracks, err := cache.Fetch(c.trackCache, key, func() ([]Track, error) {
		return c.fetchRecentlyPlayed(ctx, limit)
	})
	if err != nil {
		return nil, err
	}

	return append([]Track(nil), tracks...), nil
}

func (c *Client) fetchRecentlyPlayed(ctx context.Context, limit int) ([]Track, error) {
	start := time.Now()

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting access token: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/me/player/recently-played?limit=%d", c.apiURL, limit)
	body, err := c.get(ctx, endpoint, token)
	if err != nil {
		return nil, err
	}

	var recentlyPlayed recentlyPlayedResponse
	if err := json.Unmarshal(body, &recentlyPlayed); err != nil {
		return nil, &upstream.ParseError{Source: endpoint, Err: err}
	}

	tracks := make([]Track, 0, len(recentlyPlayed.Items))
	artistIDs := make([]string, 0, len(recentlyPlayed.Items))
	for _, item := range recentlyPlayed.Items {
		track := Track{
			TrackName:  item.Track.Name,
			AlbumName:  item.Track.Album.Name,
			PlayedAt:   item.PlayedAt,
			SpotifyURL: item.Track.ExternalURLs.Spotify,
			Genres:     []string{},
		}
		if len(item.Track.Artists) > 0 {
			track.Artist = item.Track.Artists[0].Name
			artistIDs = append(artistIDs, item.Track.Artists[0].ID)
		}
		if len(item.Track.Album.Images) > 0 {
			track.AlbumImageURL = item.Track.Album.Images[0].URL
		}
		tracks = append(tracks, track)
	}

	genres, err := c.artistGenres(ctx, token, lo.Uniq(artistIDs))
	if err != nil {
		return nil, fmt.Errorf("looking up artist genres: %w", err)
	}

	for i, item := range recentlyPlayed.Items {
		if len(item.Track.Artists) > 0 {
			if g, ok := genres[item.Track.Artists[0].ID]; ok && len(g) > 0 {
				tracks[i].Genres = g
			}
		}
	}

	tracks = ExcludeGenres(tracks, c.excludedGenres)
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}

	log.WithFields(log.Fields{
		"tracks":  len(tracks),
		"elapsed": time.Since(start),
	}).Info("Fetched recently played tracks")

	return tracks, nil
}

// artistGenres looks up genres for the given artist ids, batched to respect
// the endpoint's 50-id cap.
func (c *Client) artistGenres(ctx context.Context, token string, ids []string) (map[string][]string, error) {
	genres := make(map[string][]string, len(ids))

	for _, chunk := range lo.Chunk(ids, maxArtistsPerLookup) {
		endpoint := fmt.Sprintf("%s/v1/artists?ids=%s", c.apiURL, strings.Join(chunk, ","))
		body, err := c.get(ctx, endpoint, token)
		if err != nil {
			return nil, err
		}

		var artists artistsResponse
		if err := json.Unmarshal(body, &artists); err != nil {
			return nil, &upstream.ParseError{Source: endpoint, Err: err}
		}

		for _, artist := range artists.Artists {
			genres[artist.ID] = artist.Genres
		}
	}

	return genres, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	return cache.Fetch(c.tokenCache, tokenCacheKey, func() (string, error) {
		return c.refreshAccessToken(ctx)
	})
}

// refreshAccessToken exchanges the refresh token for a short-lived access
// token. A failed exchange caches nothing.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	endpoint := c.accountsURL + "/api/token"

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.refreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}

	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", &upstream.ParseError{Source: endpoint, Err: err}
	}

	log.Info("Refreshed Spotify access token")
	return token.AccessToken, nil
}

func (c *Client) get(ctx context.Context, endpoint, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &upstream.TransportError{URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &upstream.TransportError{URL: req.URL.String(), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &upstream.StatusError{Status: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
