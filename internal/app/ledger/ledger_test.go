package ledger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/guessbox/internal/domain/history"
	"github.com/osa030/guessbox/internal/domain/track"
)

func tracks(ids ...string) []track.Track {
	result := make([]track.Track, len(ids))
	for i, id := range ids {
		result[i] = track.Track{ID: id, Name: "Track " + id}
	}
	return result
}

func ids(ts []track.Track) []string {
	result := make([]string, len(ts))
	for i, t := range ts {
		result[i] = t.ID
	}
	return result
}

func TestLedger_UnplayedOfPreservesOrder(t *testing.T) {
	l := New()
	l.MarkPlayed("B")

	assert.Equal(t, []string{"A", "C"}, ids(l.UnplayedOf(tracks("A", "B", "C"))))
}

func TestLedger_MarkPlayedIsIdempotent(t *testing.T) {
	l := New()
	l.MarkPlayed("A")
	l.MarkPlayed("A")

	assert.Equal(t, 1, l.PlayedCount())
	assert.True(t, l.HasPlayed("A"))
	assert.False(t, l.HasPlayed("B"))
	assert.Zero(t, l.HistoryLen())
}

func TestLedger_RecordMarksPlayed(t *testing.T) {
	l := New()
	l.Record(history.Entry{TrackID: "A", Score: 9700, IsCorrect: true})
	l.Record(history.Entry{TrackID: "B", Score: 1200})

	assert.True(t, l.HasPlayed("A"))
	assert.True(t, l.HasPlayed("B"))
	assert.Equal(t, 2, l.HistoryLen())

	h := l.History()
	require.Len(t, h, 2)
	assert.Equal(t, "A", h[0].TrackID)
	assert.Equal(t, "B", h[1].TrackID)
}

func TestLedger_HistoryIsACopy(t *testing.T) {
	l := New()
	l.Record(history.Entry{TrackID: "A"})

	h := l.History()
	h[0].TrackID = "mutated"

	assert.Equal(t, "A", l.History()[0].TrackID)
}

func TestLedger_IsExhausted(t *testing.T) {
	tests := []struct {
		name       string
		played     []string
		candidates []track.Track
		expected   bool
	}{
		{name: "nothing played", played: nil, candidates: tracks("A", "B"), expected: false},
		{name: "partially played", played: []string{"A"}, candidates: tracks("A", "B"), expected: false},
		{name: "all played", played: []string{"A", "B"}, candidates: tracks("A", "B"), expected: true},
		{name: "no candidates", played: nil, candidates: nil, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			for _, id := range tt.played {
				l.MarkPlayed(id)
			}
			assert.Equal(t, tt.expected, l.IsExhausted(tt.candidates))
		})
	}
}

func TestLedger_RestoreAndClear(t *testing.T) {
	l := New()
	l.Restore([]history.Entry{
		{TrackID: "A", Score: 5000, CompletedAt: time.Now()},
		{TrackID: "B", Score: 8000, IsCorrect: true, CompletedAt: time.Now()},
	})

	assert.Equal(t, 2, l.HistoryLen())
	assert.True(t, l.IsExhausted(tracks("A", "B")))

	l.Clear()
	assert.Zero(t, l.HistoryLen())
	assert.Zero(t, l.PlayedCount())
	assert.False(t, l.IsExhausted(tracks("A")))
}

func TestLedger_Stats(t *testing.T) {
	l := New()
	assert.Equal(t, Stats{}, l.Stats())

	l.Record(history.Entry{TrackID: "A", Score: 9700, IsCorrect: true})
	l.Record(history.Entry{TrackID: "B", Score: 2000})
	l.Record(history.Entry{TrackID: "C", Score: 8800, IsCorrect: true})

	assert.Equal(t, Stats{Rounds: 3, Correct: 2, TotalScore: 20500, BestScore: 9700}, l.Stats())
}

func TestLedger_ConcurrentAccess(t *testing.T) {
	l := New()
	candidates := tracks("A", "B", "C", "D")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			l.Record(history.Entry{TrackID: candidates[i%len(candidates)].ID})
		}(i)
		go func() {
			defer wg.Done()
			_ = l.UnplayedOf(candidates)
			_ = l.IsExhausted(candidates)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, l.HistoryLen())
	assert.True(t, l.IsExhausted(candidates))
}
