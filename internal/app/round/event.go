package round

import (
	"github.com/osa030/guessbox/internal/app/scoring"
	"github.com/osa030/guessbox/internal/domain/track"
)

// EventType represents a round event type.
type EventType int

const (
	EventRoundStarted    EventType = iota // Start requested for a track
	EventPlaybackStarted                  // Player acknowledged audible start
	EventPlaybackFailed                   // Player start or toggle failed
	EventGuessing                         // Round paused for guessing
	EventScored                           // Guess scored
	EventReset                            // Round torn down
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventRoundStarted:
		return "round_started"
	case EventPlaybackStarted:
		return "playback_started"
	case EventPlaybackFailed:
		return "playback_failed"
	case EventGuessing:
		return "guessing"
	case EventScored:
		return "scored"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event represents a round event.
type Event struct {
	Type   EventType
	State  State           // State after the event
	Track  *track.Track    // Current track (nil after reset)
	Result *scoring.Result // Set for EventScored
	Err    error           // Set for EventPlaybackFailed
}
