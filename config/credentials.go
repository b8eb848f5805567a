package config

import "fmt"

// Credentials holds the secrets the service needs. They come from flags or
// environment variables, never from the config file.
type Credentials struct {
	APIKey              string
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRefreshToken string
}

// Validate checks that every credential is set. It runs at startup so a
// missing secret fails the process before it serves traffic, not on first
// use.
func (c Credentials) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY must be set")
	}
	return c.ValidateSpotify()
}

// ValidateSpotify checks only the Spotify credentials, for commands that
// never serve authenticated endpoints.
func (c Credentials) ValidateSpotify() error {
	switch {
	case c.SpotifyClientID == "":
		return fmt.Errorf("SPOTIFY_CLIENT_ID must be set")
	case c.SpotifyClientSecret == "":
		return fmt.Errorf("SPOTIFY_CLIENT_SECRET must be set")
	case c.SpotifyRefreshToken == "":
		return fmt.Errorf("SPOTIFY_REFRESH_TOKEN must be set")
	}
	return nil
}
