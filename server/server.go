package server

import (
	"context"
	"strings"
	"time"

	"homefeed/config"
	"homefeed/letterboxd"
	"homefeed/queue"
	"homefeed/spotify"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// The aggregated endpoint historically asks Spotify for one extra track
const aggregatedTrackCount = 6

// MovieFetcher is the Letterboxd side of the aggregation.
type MovieFetcher interface {
	Fetch(ctx context.Context, feedURL string, noCache bool) ([]letterboxd.Movie, error)
}

// TrackFetcher is the Spotify side of the aggregation.
type TrackFetcher interface {
	RecentlyPlayed(ctx context.Context, limit int, noCache bool) ([]spotify.Track, error)
}

// ServerConfig wires the shared state into the HTTP handlers. Caches and the
// queue are constructed once at startup and passed in here rather than living
// as package globals.
type ServerConfig struct {
	// Credentials supplies the API key for the bearer auth check
	Credentials config.Credentials

	// URLs is the webhook-fed recent-URL queue
	URLs *queue.RecentURLs

	// Movies fetches the merged Letterboxd feed
	Movies MovieFetcher

	// Tracks fetches recently played Spotify tracks
	Tracks TrackFetcher

	// FeedURL is the default Letterboxd feed when the query omits one
	FeedURL string

	// TrackCount is the default Spotify limit on /spotify
	TrackCount int
}

// AggregatedData is the response payload of the aggregation endpoint.
type AggregatedData struct {
	URLs   []string           `json:"urls"`
	Movies []letterboxd.Movie `json:"movies"`
	Tracks []spotify.Track    `json:"tracks"`
}

// Server returns a fiber.App serving the aggregation API.
func Server(config *ServerConfig) *fiber.App {
	app := fiber.New()

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	authed := requireAPIKey(config.Credentials.APIKey)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("API Endpoint Aggregator")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post("/url-webhook", authed, handleURLWebhook(config))
	app.Get("/urls", authed, handleGetURLs(config))
	app.Get("/letterboxd", authed, handleLetterboxd(config))
	app.Get("/spotify", authed, handleSpotify(config))

	// Aggregation is the public surface, no auth by design
	app.Get("/aggregated", handleAggregated(config))

	return app
}

// requireAPIKey rejects requests lacking the expected bearer token.
func requireAPIKey(apiKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) != "Bearer "+apiKey {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.Next()
	}
}

func handleURLWebhook(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var url string

		if strings.Contains(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
			var body struct {
				URL string `json:"url"`
			}
			if err := c.BodyParser(&body); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid URL format in JSON",
				})
			}
			if body.URL == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Missing 'url' field in JSON",
				})
			}
			url = body.URL
		} else {
			url = string(c.Body())
		}

		log.WithFields(log.Fields{"url": url}).Info("Received webhook")
		config.URLs.Push(url)

		return c.SendStatus(fiber.StatusOK)
	}
}

func handleGetURLs(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"urls": config.URLs.Snapshot()})
	}
}

func handleLetterboxd(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		feedURL := c.Query("feed_url", config.FeedURL)
		noCache := c.Query("no_cache") == "true"

		movies, err := config.Movies.Fetch(c.Context(), feedURL, noCache)
		if err != nil {
			log.WithFields(log.Fields{
				"feed":  feedURL,
				"error": err,
			}).Error("Error fetching Letterboxd feed")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not load watched movies.",
			})
		}

		return c.JSON(fiber.Map{"movies": movies})
	}
}

func handleSpotify(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", config.TrackCount)
		noCache := c.Query("no_cache") == "true"

		tracks, err := config.Tracks.RecentlyPlayed(c.Context(), limit, noCache)
		if err != nil {
			log.WithFields(log.Fields{"error": err}).Error("Error fetching Spotify tracks")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not load recently played tracks.",
			})
		}

		return c.JSON(fiber.Map{"tracks": tracks})
	}
}

// handleAggregated combines the URL queue with both upstream feeds. Each
// section degrades to an empty list on failure so one broken upstream never
// takes down the whole response.
func handleAggregated(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		feedURL := c.Query("feed_url", config.FeedURL)
		limit := c.QueryInt("limit", aggregatedTrackCount)
		noCache := c.Query("no_cache") == "true"

		urls := config.URLs.Snapshot()

		movies := []letterboxd.Movie{}
		tracks := []spotify.Track{}

		g, ctx := errgroup.WithContext(c.Context())

		g.Go(func() error {
			result, err := config.Movies.Fetch(ctx, feedURL, noCache)
			if err != nil {
				log.WithFields(log.Fields{"error": err}).Error("Error fetching Letterboxd data")
				return nil
			}
			movies = result
			return nil
		})

		g.Go(func() error {
			result, err := config.Tracks.RecentlyPlayed(ctx, limit, noCache)
			if err != nil {
				log.WithFields(log.Fields{"error": err}).Error("Error fetching Spotify data")
				return nil
			}
			tracks = result
			return nil
		})

		// Goroutines above swallow their errors, Wait is for synchronization
		_ = g.Wait()

		if movies == nil {
			movies = []letterboxd.Movie{}
		}
		if tracks == nil {
			tracks = []spotify.Track{}
		}

		log.WithFields(log.Fields{
			"urls":   len(urls),
			"movies": len(movies),
			"tracks": len(tracks),
		}).Info("Aggregated data request processed")

		return c.JSON(AggregatedData{
			URLs:   urls,
			Movies: movies,
			Tracks: tracks,
		})
	}
}
