package game

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/osa030/guessbox/internal/app/round"
)

// Errors
var (
	ErrNoRound = errors.New("no round in progress")
	ErrNoMode  = errors.New("no game mode selected")

	ErrNothingToRetry = errors.New("no failed playback start to retry")
)

// Catalog operations reported in CatalogError.
const (
	OpListPlaylists = "list_playlists"
	OpListTracks    = "list_tracks"
	OpGetTrack      = "get_track"
)

// CatalogError reports a failed catalog request. Message is safe to show
// to the player; no session state was changed.
type CatalogError struct {
	Op      string
	Message string
	Err     error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog %s failed: %v", e.Op, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// UserMessage returns the player-facing text for err.
func UserMessage(err error, fallback string) string {
	var cerr *CatalogError
	if errors.As(err, &cerr) && cerr.Message != "" {
		return cerr.Message
	}
	var perr *round.PlaybackError
	if errors.As(err, &perr) {
		return perr.Error()
	}
	return fallback
}
