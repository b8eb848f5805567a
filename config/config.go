package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LetterboxdConfig configures the RSS feed fetcher.
type LetterboxdConfig struct {
	FeedURL      string `toml:"feed_url"`
	DisplayCount int    `toml:"display_count"`
	CacheTTLSecs int    `toml:"cache_ttl_secs"`
}

// SpotifyConfig configures the recently-played fetcher.
type SpotifyConfig struct {
	TrackCount     int      `toml:"track_count"`
	CacheTTLSecs   int      `toml:"cache_ttl_secs"`
	ExcludedGenres []string `toml:"excluded_genres"`
}

// QueueConfig configures the recent-URL queue. An empty snapshot path
// disables persistence.
type QueueConfig struct {
	Capacity     int    `toml:"capacity"`
	SnapshotPath string `toml:"snapshot_path"`
}

// Config is the top-level TOML configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Letterboxd LetterboxdConfig `toml:"letterboxd"`
	Spotify    SpotifyConfig    `toml:"spotify"`
	Queue      QueueConfig      `toml:"queue"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 4653,
		},
		Letterboxd: LetterboxdConfig{
			FeedURL:      "https://letterboxd.com/atropos_Dad/rss",
			DisplayCount: 5,
			CacheTTLSecs: 3600,
		},
		Spotify: SpotifyConfig{
			TrackCount:   5,
			CacheTTLSecs: 900,
		},
		Queue: QueueConfig{
			Capacity:     5,
			SnapshotPath: "",
		},
	}
}

// Load reads the TOML config at path on top of the defaults. A missing file
// is fine and yields the defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.WithFields(log.Fields{"path": path}).Info("No config file, using defaults")
			return config, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}

func (c LetterboxdConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

func (c SpotifyConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}
