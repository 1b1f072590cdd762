// Package track provides the Track domain entity.
package track

import (
	"fmt"
	"strings"
	"time"
)

// Artist represents a credited artist of a track.
type Artist struct {
	ID   string // Spotify Artist ID
	Name string // Artist name
}

// Album represents the album a track belongs to.
type Album struct {
	ID       string // Spotify Album ID
	Name     string // Album name
	ImageURL string // Cover image URL (largest available)
}

// Track represents a Spotify track entity.
// Contains only information retrieved from Spotify API and is read-only
// for the lifetime of a round.
type Track struct {
	ID       string        // Spotify Track ID
	Name     string        // Track name
	Artists  []Artist      // Credited artists, primary first
	Album    Album         // Album info
	Duration time.Duration // Track duration
	URI      string        // Spotify URI (spotify:track:ID)
}

// PrimaryArtist returns the name of the first credited artist.
// Returns an empty string when the track has no artists.
func (t *Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

// CoverURL returns the album cover image URL.
func (t *Track) CoverURL() string {
	return t.Album.ImageURL
}

// PlaybackURI returns the Spotify URI used to start playback.
func (t *Track) PlaybackURI() string {
	if t.URI != "" {
		return t.URI
	}
	return "spotify:track:" + t.ID
}

// URL returns the Spotify URL for the track.
func (t *Track) URL() string {
	return fmt.Sprintf("https://open.spotify.com/track/%s", t.ID)
}

// AlbumURL returns the Spotify URL for the track's album.
// Returns an empty string when the album ID is unknown.
func (t *Track) AlbumURL() string {
	if t.Album.ID == "" {
		return ""
	}
	return fmt.Sprintf("https://open.spotify.com/album/%s", t.Album.ID)
}

// ArtistURL returns the Spotify URL for the primary artist.
// Returns an empty string when the artist ID is unknown.
func (t *Track) ArtistURL() string {
	if len(t.Artists) == 0 || t.Artists[0].ID == "" {
		return ""
	}
	return fmt.Sprintf("https://open.spotify.com/artist/%s", t.Artists[0].ID)
}

// ExtractID extracts the track ID from a Spotify track URL or URI.
func ExtractID(input string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:track:TRACK_ID
	if strings.HasPrefix(input, "spotify:track:") {
		return strings.TrimPrefix(input, "spotify:track:")
	}

	// Handle URL format: https://open.spotify.com/track/TRACK_ID or https://open.spotify.com/intl-XX/track/TRACK_ID
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		parts := strings.Split(input, "/track/")
		if len(parts) >= 2 {
			// Remove query parameters and trailing slashes
			id := strings.Split(parts[len(parts)-1], "?")[0]
			id = strings.TrimRight(id, "/")
			return id
		}
	}

	// Assume it's already a track ID
	return input
}
