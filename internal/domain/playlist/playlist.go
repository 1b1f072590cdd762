// Package playlist provides the Playlist domain entity.
package playlist

import (
	"fmt"
	"strings"

	"github.com/osa030/guessbox/internal/domain/track"
)

// Playlist represents a Spotify playlist.
// Tracks is only populated when the playlist was fetched with its items.
type Playlist struct {
	ID          string        // Spotify Playlist ID
	Name        string        // Playlist name
	Description string        // Playlist description
	ImageURL    string        // Cover image URL
	TrackCount  int           // Number of items reported by Spotify
	Tracks      []track.Track // Tracks in the playlist
}

// URL returns the Spotify URL for the playlist.
func (p *Playlist) URL() string {
	return fmt.Sprintf("https://open.spotify.com/playlist/%s", p.ID)
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// ExtractID extracts the playlist ID from a Spotify playlist URL or URI.
func ExtractID(input string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:playlist:PLAYLIST_ID
	if strings.HasPrefix(input, "spotify:playlist:") {
		return strings.TrimPrefix(input, "spotify:playlist:")
	}

	// Handle URL format: https://open.spotify.com/playlist/PLAYLIST_ID or https://open.spotify.com/intl-XX/playlist/PLAYLIST_ID
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/playlist/") {
		parts := strings.Split(input, "/playlist/")
		if len(parts) >= 2 {
			id := strings.Split(parts[len(parts)-1], "?")[0]
			return strings.TrimRight(id, "/")
		}
	}

	// Assume it's already a playlist ID
	return input
}
