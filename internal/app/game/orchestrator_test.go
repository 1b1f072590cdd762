package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/guessbox/internal/app/ledger"
	"github.com/osa030/guessbox/internal/app/round"
	"github.com/osa030/guessbox/internal/app/scoring"
	"github.com/osa030/guessbox/internal/domain/challenge"
	"github.com/osa030/guessbox/internal/domain/history"
	"github.com/osa030/guessbox/internal/domain/playlist"
	"github.com/osa030/guessbox/internal/domain/track"
)

// tickScheduler fires ticks on demand.
type tickScheduler struct {
	mu  sync.Mutex
	fns map[int]func()
	seq int
}

func (s *tickScheduler) Every(_ time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func())
	}
	s.seq++
	id := s.seq
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

func (s *tickScheduler) Tick(n int) {
	for i := 0; i < n; i++ {
		s.mu.Lock()
		fns := make([]func(), 0, len(s.fns))
		for _, fn := range s.fns {
			fns = append(fns, fn)
		}
		s.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	}
}

type fakeCatalog struct {
	mu        sync.Mutex
	playlists []playlist.Playlist
	tracks    map[string][]track.Track
	err       error
	listCalls int
}

func (c *fakeCatalog) ListPlaylists(ctx context.Context) ([]playlist.Playlist, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.playlists, nil
}

func (c *fakeCatalog) ListTracks(ctx context.Context, playlistID string) ([]track.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listCalls++
	if c.err != nil {
		return nil, c.err
	}
	return c.tracks[playlistID], nil
}

func (c *fakeCatalog) GetTrack(ctx context.Context, trackID string) (*track.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	for _, ts := range c.tracks {
		for _, t := range ts {
			if t.ID == trackID {
				found := t
				return &found, nil
			}
		}
	}
	return nil, errors.Newf("track not found: %s", trackID)
}

type fakePlayer struct {
	mu        sync.Mutex
	starts    []string
	err       error
	toggleErr error
}

func (p *fakePlayer) Start(ctx context.Context, t track.Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starts = append(p.starts, t.ID)
	return p.err
}

func (p *fakePlayer) Toggle(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.toggleErr
}

func (p *fakePlayer) Starts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.starts...)
}

type fakeStore struct {
	mu      sync.Mutex
	entries []history.Entry
	err     error
}

func (s *fakeStore) Append(ctx context.Context, entry history.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func testTracks() []track.Track {
	return []track.Track{
		{ID: "t1", Name: "Yesterday", Artists: []track.Artist{{ID: "a1", Name: "The Beatles"}}},
		{ID: "t2", Name: "Bohemian Rhapsody", Artists: []track.Artist{{ID: "a2", Name: "Queen"}}},
		{ID: "t3", Name: "Halo", Artists: []track.Artist{{ID: "a3", Name: "Beyoncé"}}},
	}
}

var testMessages = Messages{
	PlaylistsFailed:      "Failed to load playlists",
	TracksFailed:         "Failed to load tracks",
	ChallengeTrackFailed: "Failed to load challenge track",
}

type harness struct {
	orch    *Orchestrator
	catalog *fakeCatalog
	player  *fakePlayer
	store   *fakeStore
	ledger  *ledger.Ledger
	sched   *tickScheduler

	mu          sync.Mutex
	scored      []scoring.Result
	exhausted   int
	completed   int
	playbackErr []error
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		catalog: &fakeCatalog{tracks: map[string][]track.Track{"pl1": testTracks()}},
		player:  &fakePlayer{},
		store:   &fakeStore{},
		ledger:  ledger.New(),
		sched:   &tickScheduler{},
	}
	h.orch = New(h.catalog, h.player, h.ledger, Config{
		Round:    round.Config{Scheduler: h.sched},
		Messages: testMessages,
		Store:    h.store,
		Rand:     rand.New(rand.NewSource(1)),
		Now:      func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
		Hooks: Hooks{
			OnRoundScored: func(_ history.Entry, r scoring.Result) {
				h.mu.Lock()
				defer h.mu.Unlock()
				h.scored = append(h.scored, r)
			},
			OnExhausted: func() {
				h.mu.Lock()
				defer h.mu.Unlock()
				h.exhausted++
			},
			OnChallengeComplete: func() {
				h.mu.Lock()
				defer h.mu.Unlock()
				h.completed++
			},
			OnPlaybackError: func(err error) {
				h.mu.Lock()
				defer h.mu.Unlock()
				h.playbackErr = append(h.playbackErr, err)
			},
		},
	})
	t.Cleanup(h.orch.Close)
	return h
}

func (h *harness) waitPlaying(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.orch.Snapshot().HasStartedPlaying
	}, 2*time.Second, 5*time.Millisecond)
}

// playRound guesses the current track correctly after ticks.
func (h *harness) playRound(t *testing.T, ticks int) scoring.Result {
	t.Helper()
	h.waitPlaying(t)
	h.sched.Tick(ticks)
	require.NoError(t, h.orch.PauseAndGuess())

	current := h.orch.Snapshot().Track
	require.NotNil(t, current)
	result, err := h.orch.SubmitGuess(context.Background(), current.Name, current.PrimaryArtist())
	require.NoError(t, err)
	return result
}

func TestOrchestrator_FreeModeEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	outcome, err := h.orch.StartFree(ctx, "pl1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeStarted, outcome)
	assert.Equal(t, ModeFree, h.orch.Mode())

	result := h.playRound(t, 50)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 9700, result.Score)

	require.Equal(t, 1, h.ledger.HistoryLen())
	entry := h.ledger.History()[0]
	assert.Equal(t, 9700, entry.Score)
	assert.Equal(t, 5*time.Second, entry.Elapsed)
	assert.True(t, h.ledger.HasPlayed(entry.TrackID))

	h.store.mu.Lock()
	assert.Len(t, h.store.entries, 1)
	h.store.mu.Unlock()

	h.mu.Lock()
	assert.Len(t, h.scored, 1)
	h.mu.Unlock()
}

func TestOrchestrator_FreeModeExhaustion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orch.StartFree(ctx, "pl1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		h.playRound(t, 1)
		outcome, err := h.orch.Next(ctx)
		require.NoError(t, err)
		if i < 2 {
			assert.Equal(t, OutcomeStarted, outcome)
		} else {
			assert.Equal(t, OutcomeExhausted, outcome)
		}
	}

	assert.Equal(t, 3, h.ledger.PlayedCount())
	assert.ElementsMatch(t, []string{"t1", "t2", "t3"}, h.player.Starts())
	assert.Equal(t, 1, h.catalog.listCalls)

	h.mu.Lock()
	assert.Equal(t, 1, h.exhausted)
	h.mu.Unlock()

	_, err = h.orch.SubmitGuess(ctx, "x", "y")
	assert.ErrorIs(t, err, ErrNoRound)
}

func TestOrchestrator_PlayAgainMarksAbandonedTrack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orch.StartFree(ctx, "pl1")
	require.NoError(t, err)
	h.waitPlaying(t)
	first := h.orch.Snapshot().Track
	require.NotNil(t, first)

	outcome, err := h.orch.PlayAgain(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStarted, outcome)

	assert.True(t, h.ledger.HasPlayed(first.ID))
	assert.Zero(t, h.ledger.HistoryLen())
	assert.NotEqual(t, first.ID, h.orch.Snapshot().Track.ID)
}

func TestOrchestrator_ChallengeCompletesAfterAllEntries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Restored history does not count toward the challenge.
	h.ledger.Restore([]history.Entry{{ID: "old", TrackID: "t9", Score: 100}})

	def := &challenge.Definition{
		Name:   "weekly",
		Tracks: []challenge.Entry{{TrackID: "t3"}, {TrackID: "t1"}, {TrackID: "t3"}},
	}
	outcome, err := h.orch.StartChallenge(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStarted, outcome)
	assert.Equal(t, ModeChallenge, h.orch.Mode())

	for i := 0; i < 3; i++ {
		done, total := h.orch.ChallengeProgress()
		assert.Equal(t, i, done)
		assert.Equal(t, 3, total)

		h.playRound(t, 1)
		outcome, err = h.orch.Next(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, OutcomeChallengeComplete, outcome)
	assert.Equal(t, []string{"t3", "t1", "t3"}, h.player.Starts())

	done, total := h.orch.ChallengeProgress()
	assert.Equal(t, 3, done)
	assert.Equal(t, 3, total)

	h.mu.Lock()
	assert.Equal(t, 1, h.completed)
	h.mu.Unlock()
}

func TestOrchestrator_StartChallengeRejectsEmpty(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.StartChallenge(context.Background(), &challenge.Definition{})
	assert.ErrorIs(t, err, challenge.ErrEmptyPayload)
	assert.Equal(t, ModeNone, h.orch.Mode())
}

func TestOrchestrator_CatalogFailureLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.catalog.err = errors.New("503 service unavailable")

	_, err := h.orch.ListPlaylists(ctx)
	require.Error(t, err)
	assert.Equal(t, testMessages.PlaylistsFailed, UserMessage(err, "fallback"))

	_, err = h.orch.StartFree(ctx, "pl1")
	var cerr *CatalogError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, OpListTracks, cerr.Op)
	assert.Equal(t, testMessages.TracksFailed, UserMessage(err, "fallback"))
	assert.Equal(t, ModeNone, h.orch.Mode())
	assert.Zero(t, h.ledger.PlayedCount())
	assert.Zero(t, h.ledger.HistoryLen())
	assert.Empty(t, h.player.Starts())

	_, err = h.orch.StartChallenge(ctx, &challenge.Definition{Tracks: []challenge.Entry{{TrackID: "t1"}}})
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, OpGetTrack, cerr.Op)
	assert.Zero(t, h.ledger.HistoryLen())
}

func TestOrchestrator_HistoryStoreFailureIsBestEffort(t *testing.T) {
	h := newHarness(t)
	h.store.err = errors.New("disk full")

	_, err := h.orch.StartFree(context.Background(), "pl1")
	require.NoError(t, err)
	h.playRound(t, 1)

	assert.Equal(t, 1, h.ledger.HistoryLen())
}

func TestOrchestrator_PlaybackFailureAndRetry(t *testing.T) {
	h := newHarness(t)
	h.player.mu.Lock()
	h.player.err = errors.New("no active device")
	h.player.mu.Unlock()

	_, err := h.orch.StartFree(context.Background(), "pl1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.playbackErr) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, round.StateIdle, h.orch.Snapshot().State)

	var perr *round.PlaybackError
	require.True(t, errors.As(h.orch.Snapshot().Err, &perr))

	h.player.mu.Lock()
	h.player.err = nil
	h.player.mu.Unlock()

	require.NoError(t, h.orch.Retry())
	h.waitPlaying(t)
	assert.Len(t, h.player.Starts(), 2)
}

func TestOrchestrator_RetryRequiresFailedStart(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.StartFree(context.Background(), "pl1")
	require.NoError(t, err)
	h.waitPlaying(t)

	assert.ErrorIs(t, h.orch.Retry(), ErrNothingToRetry)
	assert.Len(t, h.player.Starts(), 1)

	// A failed pause leaves the track playing; there is nothing to restart.
	h.player.mu.Lock()
	h.player.toggleErr = errors.New("device went away")
	h.player.mu.Unlock()

	require.NoError(t, h.orch.PauseAndGuess())
	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.playbackErr) == 1
	}, 2*time.Second, 5*time.Millisecond)

	snap := h.orch.Snapshot()
	assert.Equal(t, round.StatePlaying, snap.State)
	var perr *round.PlaybackError
	require.True(t, errors.As(snap.Err, &perr))
	assert.Equal(t, round.OpToggle, perr.Op)

	assert.ErrorIs(t, h.orch.Retry(), ErrNothingToRetry)
	assert.Equal(t, round.StatePlaying, h.orch.Snapshot().State)
	assert.Len(t, h.player.Starts(), 1)
}

func TestOrchestrator_DropsEventsOfFinishedRound(t *testing.T) {
	catalog := &fakeCatalog{tracks: map[string][]track.Track{"pl1": testTracks()}}
	player := &fakePlayer{toggleErr: errors.New("device went away")}
	gate := make(chan struct{})

	var (
		mu      sync.Mutex
		started int
		failed  []error
	)
	orch := New(catalog, player, ledger.New(), Config{
		Round:    round.Config{Scheduler: &tickScheduler{}},
		Messages: testMessages,
		Rand:     rand.New(rand.NewSource(1)),
		Hooks: Hooks{
			OnPlaybackStarted: func(track.Track) {
				mu.Lock()
				started++
				first := started == 1
				mu.Unlock()
				if first {
					<-gate
				}
			},
			OnPlaybackError: func(err error) {
				mu.Lock()
				defer mu.Unlock()
				failed = append(failed, err)
			},
		},
	})
	t.Cleanup(orch.Close)
	ctx := context.Background()

	_, err := orch.StartFree(ctx, "pl1")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return started == 1
	}, 2*time.Second, 5*time.Millisecond)

	// The failure is queued behind the blocked started hook.
	require.NoError(t, orch.PauseAndGuess())
	require.Eventually(t, func() bool {
		return orch.Snapshot().State == round.StatePlaying
	}, 2*time.Second, 5*time.Millisecond)

	_, err = orch.Next(ctx)
	require.NoError(t, err)
	close(gate)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return started == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(failed) > 0
	}, 100*time.Millisecond, 5*time.Millisecond)
}

func TestOrchestrator_NoModeOrRound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orch.Next(ctx)
	assert.ErrorIs(t, err, ErrNoMode)
	assert.ErrorIs(t, h.orch.PauseAndGuess(), ErrNoRound)
	assert.ErrorIs(t, h.orch.Retry(), ErrNoRound)
	assert.Equal(t, round.StateIdle, h.orch.Snapshot().State)

	done, total := h.orch.ChallengeProgress()
	assert.Zero(t, done)
	assert.Zero(t, total)
}
