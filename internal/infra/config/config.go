// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Message codes accepted by GetMessage.
const (
	MsgPlaylistsFailed      = "playlists_failed"
	MsgTracksFailed         = "tracks_failed"
	MsgChallengeTrackFailed = "challenge_track_failed"
	MsgExhausted            = "exhausted"
	MsgChallengeComplete    = "challenge_complete"
	MsgPlaybackFailed       = "playback_failed"
)

// Config represents the application configuration.
type Config struct {
	Spotify  SpotifyConfig  `yaml:"spotify"`
	Game     GameConfig     `yaml:"game"`
	History  HistoryConfig  `yaml:"history"`
	Messages MessagesConfig `yaml:"messages"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	RefreshToken string `yaml:"refresh_token" validate:"required"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
	DeviceID     string `yaml:"device_id"`
}

// GameConfig represents round timing configuration.
type GameConfig struct {
	TickIntervalMs    int `yaml:"tick_interval_ms" default:"100" validate:"gte=10,lte=1000"`
	StartTimeoutMs    int `yaml:"start_timeout_ms" default:"10000" validate:"gte=1000,lte=60000"`
	ConfirmIntervalMs int `yaml:"confirm_interval_ms" default:"250" validate:"gte=50,lte=5000"`
}

// HistoryConfig represents history persistence configuration.
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled" default:"true"`
	Path    string `yaml:"path"` // Empty means the XDG data directory
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	DefaultError         string `yaml:"default_error" default:"Something went wrong."`
	PlaylistsFailed      string `yaml:"playlists_failed" default:"Could not load your playlists."`
	TracksFailed         string `yaml:"tracks_failed" default:"Could not load the playlist tracks."`
	ChallengeTrackFailed string `yaml:"challenge_track_failed" default:"Could not load the next challenge track."`
	Exhausted            string `yaml:"exhausted" default:"You have played every track in this playlist."`
	ChallengeComplete    string `yaml:"challenge_complete" default:"Challenge complete!"`
	PlaybackFailed       string `yaml:"playback_failed" default:"Playback failed. Is a Spotify device active?"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "guessbox", "config.yaml")
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses YAML configuration. Empty data yields a configuration built
// from defaults and environment variables only.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("SPOTIFY_DEVICE_ID"); v != "" {
		c.Spotify.DeviceID = v
	}
	if v := os.Getenv("GUESSBOX_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case MsgPlaylistsFailed:
		return c.Messages.PlaylistsFailed
	case MsgTracksFailed:
		return c.Messages.TracksFailed
	case MsgChallengeTrackFailed:
		return c.Messages.ChallengeTrackFailed
	case MsgExhausted:
		return c.Messages.Exhausted
	case MsgChallengeComplete:
		return c.Messages.ChallengeComplete
	case MsgPlaybackFailed:
		return c.Messages.PlaybackFailed
	default:
		return c.Messages.DefaultError
	}
}

// TickInterval returns the round timer granularity.
func (g GameConfig) TickInterval() time.Duration {
	return time.Duration(g.TickIntervalMs) * time.Millisecond
}

// StartTimeout returns the maximum wait for audible playback.
func (g GameConfig) StartTimeout() time.Duration {
	return time.Duration(g.StartTimeoutMs) * time.Millisecond
}

// ConfirmInterval returns the player state poll interval.
func (g GameConfig) ConfirmInterval() time.Duration {
	return time.Duration(g.ConfirmIntervalMs) * time.Millisecond
}

// IsEnabled reports whether history persistence is enabled.
func (h HistoryConfig) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}
