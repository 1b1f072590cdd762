package round

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrInvalidTransition = errors.New("invalid round transition")
	ErrPlaybackPending   = errors.New("playback has not started yet")
	ErrNotGuessing       = errors.New("round is not accepting guesses")
	ErrAlreadyScored     = errors.New("round is already scored")
	ErrInvalidTrack      = errors.New("track has no id")
	ErrClosed            = errors.New("round is closed")
)

// Playback operations reported in PlaybackError.
const (
	OpStart  = "start"
	OpToggle = "toggle"
)

// PlaybackError reports a failed player request.
// The round is left in the state it had before the request.
type PlaybackError struct {
	Op  string
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback %s failed: %v", e.Op, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}
