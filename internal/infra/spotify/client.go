// Package spotify provides a client for the Spotify API.
package spotify

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/guessbox/internal/domain/playlist"
	"github.com/osa030/guessbox/internal/domain/track"
)

const pageLimit = 50

// Scopes are the OAuth scopes the client needs.
var Scopes = []string{
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
}

// api is the subset of *spotify.Client used here.
type api interface {
	CurrentUsersPlaylists(ctx context.Context, opts ...spotify.RequestOption) (*spotify.SimplePlaylistPage, error)
	GetPlaylistItems(ctx context.Context, playlistID spotify.ID, opts ...spotify.RequestOption) (*spotify.PlaylistItemPage, error)
	GetTrack(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.FullTrack, error)
	PlayOpt(ctx context.Context, opt *spotify.PlayOptions) error
	PauseOpt(ctx context.Context, opt *spotify.PlayOptions) error
	PlayerState(ctx context.Context, opts ...spotify.RequestOption) (*spotify.PlayerState, error)
}

// Client is a Spotify catalog and playback client.
type Client struct {
	client          api
	market          string
	deviceID        string
	startTimeout    time.Duration
	confirmInterval time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID        string
	ClientSecret    string
	RefreshToken    string
	Market          string
	DeviceID        string        // Optional, the active device when empty
	StartTimeout    time.Duration // Max wait for audible playback (default 10s)
	ConfirmInterval time.Duration // Player state poll interval (default 250ms)
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(Scopes...),
	)

	// Get HTTP client with auto-refresh capability
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	httpClient := auth.Client(ctx, token)

	return newClient(spotify.New(httpClient), cfg), nil
}

func newClient(c api, cfg Config) *Client {
	market := cfg.Market
	if market == "" {
		market = "JP"
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = 10 * time.Second
	}
	if cfg.ConfirmInterval <= 0 {
		cfg.ConfirmInterval = 250 * time.Millisecond
	}

	return &Client{
		client:          c,
		market:          market,
		deviceID:        cfg.DeviceID,
		startTimeout:    cfg.StartTimeout,
		confirmInterval: cfg.ConfirmInterval,
	}
}

// ListPlaylists retrieves the current user's playlists.
func (c *Client) ListPlaylists(ctx context.Context) ([]playlist.Playlist, error) {
	var playlists []playlist.Playlist
	offset := 0

	for {
		page, err := c.client.CurrentUsersPlaylists(ctx,
			spotify.Limit(pageLimit),
			spotify.Offset(offset),
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get playlists")
		}

		for _, p := range page.Playlists {
			playlists = append(playlists, convertPlaylist(p))
		}

		if len(page.Playlists) < pageLimit {
			break
		}
		offset += pageLimit
	}

	return playlists, nil
}

// ListTracks retrieves all tracks of a playlist given by ID, URL, or URI.
// Episodes and local files are skipped.
func (c *Client) ListTracks(ctx context.Context, playlistID string) ([]track.Track, error) {
	id := playlist.ExtractID(playlistID)
	if id == "" {
		return nil, errors.New("invalid playlist ID")
	}

	var tracks []track.Track
	offset := 0
	limit := 100

	for {
		page, err := c.client.GetPlaylistItems(ctx, spotify.ID(id),
			spotify.Limit(limit),
			spotify.Offset(offset),
			spotify.Market(c.market),
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get playlist items")
		}

		for _, item := range page.Items {
			if item.Track.Track != nil && item.Track.Track.ID != "" {
				tracks = append(tracks, convertTrack(item.Track.Track))
			}
		}

		if len(page.Items) < limit {
			break
		}
		offset += limit
	}

	return tracks, nil
}

// GetTrack retrieves track information by ID, URL, or URI.
func (c *Client) GetTrack(ctx context.Context, trackID string) (*track.Track, error) {
	id := track.ExtractID(trackID)
	if id == "" {
		return nil, errors.New("invalid track ID")
	}

	t, err := c.client.GetTrack(ctx, spotify.ID(id), spotify.Market(c.market))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get track %s", id)
	}

	result := convertTrack(t)
	return &result, nil
}

// convertTrack converts a Spotify FullTrack to domain Track.
func convertTrack(t *spotify.FullTrack) track.Track {
	artists := make([]track.Artist, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = track.Artist{ID: string(a.ID), Name: a.Name}
	}

	var cover string
	if len(t.Album.Images) > 0 {
		cover = t.Album.Images[0].URL
	}

	return track.Track{
		ID:      string(t.ID),
		Name:    t.Name,
		Artists: artists,
		Album: track.Album{
			ID:       string(t.Album.ID),
			Name:     t.Album.Name,
			ImageURL: cover,
		},
		Duration: time.Duration(t.Duration) * time.Millisecond,
		URI:      string(t.URI),
	}
}

// convertPlaylist converts a Spotify SimplePlaylist to domain Playlist.
func convertPlaylist(p spotify.SimplePlaylist) playlist.Playlist {
	var image string
	if len(p.Images) > 0 {
		image = p.Images[0].URL
	}

	return playlist.Playlist{
		ID:          string(p.ID),
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    image,
		TrackCount:  int(p.Tracks.Total),
	}
}
