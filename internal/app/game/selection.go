package game

import (
	"math/rand"

	"github.com/osa030/guessbox/internal/app/ledger"
	"github.com/osa030/guessbox/internal/domain/challenge"
	"github.com/osa030/guessbox/internal/domain/track"
)

// SelectFree picks a random unplayed track. It returns false when every
// candidate has already been played.
func SelectFree(l *ledger.Ledger, candidates []track.Track, rng *rand.Rand) (track.Track, bool) {
	unplayed := l.UnplayedOf(candidates)
	if len(unplayed) == 0 {
		return track.Track{}, false
	}
	return unplayed[rng.Intn(len(unplayed))], true
}

// NextChallenge returns the entry to play after playedCount completed
// rounds. It returns false once the challenge is complete. Order is fixed
// by the challenge; repeated track IDs are played again.
func NextChallenge(entries []challenge.Entry, playedCount int) (challenge.Entry, bool) {
	if playedCount < 0 || playedCount >= len(entries) {
		return challenge.Entry{}, false
	}
	return entries[playedCount], true
}
