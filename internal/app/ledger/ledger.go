// Package ledger tracks which tracks a session has played and the results
// of its completed rounds.
package ledger

import (
	"sync"

	"github.com/osa030/guessbox/internal/domain/history"
	"github.com/osa030/guessbox/internal/domain/track"
)

// Ledger holds the played-track set and the round history of a session.
// Writes are atomic with respect to reads.
type Ledger struct {
	mu sync.RWMutex

	played  map[string]struct{}
	history []history.Entry
}

// Stats summarizes the history of a session.
type Stats struct {
	Rounds     int
	Correct    int
	TotalScore int
	BestScore  int
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		played:  make(map[string]struct{}),
		history: make([]history.Entry, 0),
	}
}

// MarkPlayed adds the track ID to the played set. Idempotent.
func (l *Ledger) MarkPlayed(trackID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.played[trackID] = struct{}{}
}

// Record appends a completed round to the history and marks its track played.
func (l *Ledger) Record(entry history.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = append(l.history, entry)
	l.played[entry.TrackID] = struct{}{}
}

// Restore seeds the ledger with previously persisted entries.
func (l *Ledger) Restore(entries []history.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range entries {
		l.history = append(l.history, e)
		l.played[e.TrackID] = struct{}{}
	}
}

// Clear empties the played set and the history.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.played = make(map[string]struct{})
	l.history = make([]history.Entry, 0)
}

// HasPlayed returns true if the track ID is in the played set.
func (l *Ledger) HasPlayed(trackID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.played[trackID]
	return ok
}

// UnplayedOf returns the candidates that have not been played, in input order.
func (l *Ledger) UnplayedOf(candidates []track.Track) []track.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]track.Track, 0, len(candidates))
	for _, t := range candidates {
		if _, ok := l.played[t.ID]; !ok {
			result = append(result, t)
		}
	}
	return result
}

// IsExhausted returns true if every candidate has been played.
func (l *Ledger) IsExhausted(candidates []track.Track) bool {
	return len(l.UnplayedOf(candidates)) == 0
}

// PlayedCount returns the size of the played set.
func (l *Ledger) PlayedCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.played)
}

// HistoryLen returns the number of completed rounds.
func (l *Ledger) HistoryLen() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.history)
}

// History returns a copy of the history in completion order.
func (l *Ledger) History() []history.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]history.Entry, len(l.history))
	copy(result, l.history)
	return result
}

// Stats returns a summary of the history.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var s Stats
	for _, e := range l.history {
		s.Rounds++
		s.TotalScore += e.Score
		if e.IsCorrect {
			s.Correct++
		}
		if e.Score > s.BestScore {
			s.BestScore = e.Score
		}
	}
	return s
}
