package cmd

import (
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "homefeed",
		Usage: "A personal API aggregation service",
		Description: `Aggregates a webhook-fed reading list, a Letterboxd RSS
		feed and the Spotify recently-played API behind one small HTTP API,
		with short-lived caching in front of every upstream call.

		Flags can generally be set via environment variables, e.g.:

		--config => HOMEFEED_CONFIG=config.toml
		--api-key => API_KEY=...
		`,
		Commands: []*cli.Command{
			serveCmd(),
			fetchCmd(),
			keygenCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "config.toml",
		Usage:   "Path to the configuration file",
		EnvVars: []string{"HOMEFEED_CONFIG"},
	}
}

func spotifyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "spotify-client-id",
			Usage:   "Spotify application client id",
			EnvVars: []string{"SPOTIFY_CLIENT_ID"},
		},
		&cli.StringFlag{
			Name:    "spotify-client-secret",
			Usage:   "Spotify application client secret",
			EnvVars: []string{"SPOTIFY_CLIENT_SECRET"},
		},
		&cli.StringFlag{
			Name:    "spotify-refresh-token",
			Usage:   "Long-lived Spotify refresh token",
			EnvVars: []string{"SPOTIFY_REFRESH_TOKEN"},
		},
	}
}
