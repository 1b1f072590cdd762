// Package scoring turns a title/artist guess into points.
package scoring

import (
	"math"
	"time"

	"github.com/osa030/guessbox/internal/app/similarity"
	"github.com/osa030/guessbox/internal/domain/track"
)

const (
	// BonusWindow is the elapsed time after which the time bonus reaches zero.
	BonusWindow = 30 * time.Second

	// CorrectThreshold is the similarity both title and artist must exceed.
	CorrectThreshold = 0.8

	// MaxScore is the highest score a round can produce.
	MaxScore = 10000

	similarityWeight = 80
	timeWeight       = 20
	displayScale     = 100
)

// Result is the outcome of scoring one guess.
type Result struct {
	Score            int     // round(raw) * 100, in [0, 10000]
	IsCorrect        bool    // both similarities above CorrectThreshold
	TitleSimilarity  float64 // [0, 1]
	ArtistSimilarity float64 // [0, 1]
	TimeBonus        float64 // [0, 1]
}

// Calculate scores a guess against the track.
//
// The raw score is avgSimilarity*80 + timeBonus*20 on a 0-100 scale. It is
// rounded to an integer and multiplied by 100, so Score is always a multiple
// of 100 in [0, 10000]. Score bands and stored history rely on that range.
func Calculate(titleGuess, artistGuess string, t track.Track, elapsed time.Duration) Result {
	titleSim := similarity.Similarity(titleGuess, t.Name)
	artistSim := similarity.Similarity(artistGuess, t.PrimaryArtist())

	avg := (titleSim + artistSim) / 2
	bonus := TimeBonus(elapsed)
	raw := avg*similarityWeight + bonus*timeWeight

	return Result{
		Score:            int(math.Round(raw)) * displayScale,
		IsCorrect:        titleSim > CorrectThreshold && artistSim > CorrectThreshold,
		TitleSimilarity:  titleSim,
		ArtistSimilarity: artistSim,
		TimeBonus:        bonus,
	}
}

// TimeBonus returns 1 at zero elapsed time, decaying linearly to 0 at
// BonusWindow and staying there.
func TimeBonus(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 1
	}
	return math.Max(0, 1-elapsed.Seconds()/BonusWindow.Seconds())
}
