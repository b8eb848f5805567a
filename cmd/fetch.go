package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"homefeed/config"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func fetchCmd() *cli.Command {
	flags := []cli.Flag{
		configFlag(),
		&cli.BoolFlag{
			Name:  "movies",
			Usage: "Fetch the merged Letterboxd feed",
		},
		&cli.BoolFlag{
			Name:  "tracks",
			Usage: "Fetch recently played Spotify tracks",
		},
	}
	flags = append(flags, spotifyFlags()...)

	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch upstream data once and print it as JSON",
		Description: `Performs a one-shot fetch of the merged Letterboxd feed
and/or the recently played Spotify tracks and prints the result as a JSON
object on stdout.

Useful for checking credentials and feed contents without running the
server. Prints all log messages to stderr so the output can be piped to
a tool like jq.`,
		Flags: flags,
		Action: func(ctx *cli.Context) error {
			// Keep stdout clean for the JSON payload
			log.SetOutput(os.Stderr)

			cfg, err := config.Load(ctx.String("config"))
			if err != nil {
				return err
			}

			wantMovies := ctx.Bool("movies")
			wantTracks := ctx.Bool("tracks")
			if !wantMovies && !wantTracks {
				wantMovies = true
				wantTracks = true
			}

			result := map[string]any{}

			if wantMovies {
				movies, err := buildMovieFetcher(cfg).Fetch(ctx.Context, cfg.Letterboxd.FeedURL, true)
				if err != nil {
					return fmt.Errorf("fetching movies: %w", err)
				}
				result["movies"] = movies
			}

			if wantTracks {
				creds := credentialsFromCtx(ctx)
				if err := creds.ValidateSpotify(); err != nil {
					return fmt.Errorf("invalid configuration: %w", err)
				}

				tracks, err := buildSpotifyClient(cfg, creds).RecentlyPlayed(ctx.Context, cfg.Spotify.TrackCount, true)
				if err != nil {
					return fmt.Errorf("fetching tracks: %w", err)
				}
				result["tracks"] = tracks
			}

			encoded, err := json.Marshal(result)
			if err != nil {
				return err
			}
			fmt.Println(string(encoded))

			return nil
		},
	}
}
