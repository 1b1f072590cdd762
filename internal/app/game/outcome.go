package game

// Outcome is the result of selecting the next track.
// Exhaustion and challenge completion are normal outcomes, not errors.
type Outcome int

const (
	OutcomeStarted           Outcome = iota // A round was started
	OutcomeExhausted                        // Free mode: every track played
	OutcomeChallengeComplete                // Challenge mode: no entries left
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeChallengeComplete:
		return "challenge_complete"
	default:
		return "unknown"
	}
}

// Mode is the track selection mode.
type Mode int

const (
	ModeNone      Mode = iota // No mode selected
	ModeFree                  // Random unplayed tracks from a playlist
	ModeChallenge             // Fixed challenge order
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeFree:
		return "free"
	case ModeChallenge:
		return "challenge"
	default:
		return "none"
	}
}
