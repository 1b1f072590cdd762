// Package history provides the HistoryEntry domain entity.
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/osa030/guessbox/internal/domain/track"
)

// Entry represents the outcome of one completed round.
type Entry struct {
	ID          string        // UUID
	TrackID     string        // Spotify Track ID
	TrackName   string        // Track name
	ArtistName  string        // Primary artist name
	CoverURL    string        // Album cover image URL
	Score       int           // Points on the 0-10000 scale
	IsCorrect   bool          // Both title and artist were recognized
	Elapsed     time.Duration // Elapsed playback time when the guess was scored
	CompletedAt time.Time     // Completion time
}

// NewEntry creates a history entry for a scored round of the given track.
func NewEntry(t track.Track, score int, isCorrect bool, elapsed time.Duration, completedAt time.Time) Entry {
	return Entry{
		ID:          uuid.New().String(),
		TrackID:     t.ID,
		TrackName:   t.Name,
		ArtistName:  t.PrimaryArtist(),
		CoverURL:    t.CoverURL(),
		Score:       score,
		IsCorrect:   isCorrect,
		Elapsed:     elapsed,
		CompletedAt: completedAt,
	}
}
