package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"homefeed/cache"
	"homefeed/config"
	"homefeed/letterboxd"
	"homefeed/queue"
	"homefeed/server"
	"homefeed/spotify"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	flags := []cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Bearer token required on authenticated endpoints",
			EnvVars: []string{"API_KEY"},
		},
	}
	flags = append(flags, spotifyFlags()...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the aggregation API",
		Description: `Starts the HTTP server exposing the URL webhook, the
Letterboxd feed, the Spotify recently-played endpoint and the public
aggregation endpoint.

Each upstream source sits behind its own in-memory TTL cache, so repeated
requests within the cache window never hit Letterboxd or Spotify.`,
		Flags: flags,
		Action: func(ctx *cli.Context) error {
			cfg, err := config.Load(ctx.String("config"))
			if err != nil {
				return err
			}

			creds := credentialsFromCtx(ctx)
			if err := creds.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			urls := queue.New(cfg.Queue.Capacity, cfg.Queue.SnapshotPath)

			app := server.Server(&server.ServerConfig{
				Credentials: creds,
				URLs:        urls,
				Movies:      buildMovieFetcher(cfg),
				Tracks:      buildSpotifyClient(cfg, creds),
				FeedURL:     cfg.Letterboxd.FeedURL,
				TrackCount:  cfg.Spotify.TrackCount,
			})

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt)
			go func() {
				<-c
				log.Info("Gracefully shutting down...")
				if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
					log.WithFields(log.Fields{"error": err}).Error("Error during shutdown")
				}
			}()

			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			log.WithFields(log.Fields{"address": addr}).Info("Starting server")

			return app.Listen(addr)
		},
	}
}

func credentialsFromCtx(ctx *cli.Context) config.Credentials {
	return config.Credentials{
		APIKey:              ctx.String("api-key"),
		SpotifyClientID:     ctx.String("spotify-client-id"),
		SpotifyClientSecret: ctx.String("spotify-client-secret"),
		SpotifyRefreshToken: ctx.String("spotify-refresh-token"),
	}
}

func buildMovieFetcher(cfg *config.Config) *letterboxd.Fetcher {
	feedCache := cache.New[string, []letterboxd.Movie](cfg.Letterboxd.CacheTTL())
	return letterboxd.NewFetcher(feedCache, cfg.Letterboxd.DisplayCount)
}

func buildSpotifyClient(cfg *config.Config, creds config.Credentials) *spotify.Client {
	tokenCache := cache.New[string, string](cfg.Spotify.CacheTTL())
	trackCache := cache.New[string, []spotify.Track](cfg.Spotify.CacheTTL())

	return spotify.NewClient(
		creds.SpotifyClientID,
		creds.SpotifyClientSecret,
		creds.SpotifyRefreshToken,
		tokenCache,
		trackCache,
		cfg.Spotify.ExcludedGenres,
	)
}
