// Package round provides the lifecycle of a single guessing round.
package round

// State represents the round lifecycle state.
type State int

const (
	StateIdle     State = iota // No track started, or the round was reset
	StatePlaying               // Track requested or audible, timer armed
	StateGuessing              // Paused, timer frozen, guesses editable
	StateScored                // Guess scored, result available
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateGuessing:
		return "guessing"
	case StateScored:
		return "scored"
	default:
		return "unknown"
	}
}
