// Package game wires the catalog and player to rounds and the session ledger.
package game

import (
	"context"
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guessbox/internal/app/ledger"
	"github.com/osa030/guessbox/internal/app/round"
	"github.com/osa030/guessbox/internal/app/scoring"
	"github.com/osa030/guessbox/internal/domain/challenge"
	"github.com/osa030/guessbox/internal/domain/history"
	"github.com/osa030/guessbox/internal/domain/playlist"
	"github.com/osa030/guessbox/internal/domain/track"
)

// Catalog is the track catalog collaborator.
type Catalog interface {
	ListPlaylists(ctx context.Context) ([]playlist.Playlist, error)
	ListTracks(ctx context.Context, playlistID string) ([]track.Track, error)
	GetTrack(ctx context.Context, trackID string) (*track.Track, error)
}

// HistoryStore persists completed rounds.
type HistoryStore interface {
	Append(ctx context.Context, entry history.Entry) error
}

// Hooks are called after the corresponding event. Any hook may be nil.
// Hooks run without the orchestrator lock held; playback hooks run on a
// separate goroutine.
type Hooks struct {
	OnRoundScored       func(entry history.Entry, result scoring.Result)
	OnExhausted         func()
	OnChallengeComplete func()
	OnPlaybackStarted   func(t track.Track)
	OnPlaybackError     func(err error)
}

// Messages holds the player-facing failure and outcome texts.
type Messages struct {
	PlaylistsFailed      string
	TracksFailed         string
	ChallengeTrackFailed string
}

// Config holds orchestrator configuration.
type Config struct {
	Round    round.Config
	Messages Messages
	Hooks    Hooks
	Store    HistoryStore     // Optional
	Rand     *rand.Rand       // Optional, seeded from crypto/rand by default
	Now      func() time.Time // Optional, time.Now by default
}

// Orchestrator runs a game session: it selects tracks, drives one round at
// a time and records finished rounds in the ledger.
type Orchestrator struct {
	mu sync.Mutex

	catalog Catalog
	player  round.Player
	ledger  *ledger.Ledger
	config  Config
	rng     *rand.Rand

	// Selection state
	mode          Mode
	playlistID    string
	tracks        []track.Track
	challenge     *challenge.Definition
	challengeBase int // History length when the challenge started

	// Current round
	machine *round.Machine
	current *track.Track
}

// New creates a new orchestrator.
func New(catalog Catalog, player round.Player, l *ledger.Ledger, cfg Config) *Orchestrator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	rng := cfg.Rand
	if rng == nil {
		rng = newRand()
	}

	return &Orchestrator{
		catalog: catalog,
		player:  player,
		ledger:  l,
		config:  cfg,
		rng:     rng,
	}
}

// ListPlaylists returns the playlists the player can choose from.
func (o *Orchestrator) ListPlaylists(ctx context.Context) ([]playlist.Playlist, error) {
	playlists, err := o.catalog.ListPlaylists(ctx)
	if err != nil {
		zlog.Error().Msgf("game: failed to list playlists: %v", err)
		return nil, &CatalogError{Op: OpListPlaylists, Message: o.config.Messages.PlaylistsFailed, Err: err}
	}
	return playlists, nil
}

// StartFree switches to free mode on the playlist and starts a round with
// a random unplayed track.
func (o *Orchestrator) StartFree(ctx context.Context, playlistID string) (Outcome, error) {
	tracks, err := o.catalog.ListTracks(ctx, playlistID)
	if err != nil {
		zlog.Error().Msgf("game: failed to list tracks: playlist=%s: %v", playlistID, err)
		return 0, &CatalogError{Op: OpListTracks, Message: o.config.Messages.TracksFailed, Err: err}
	}

	o.mu.Lock()
	o.teardownLocked(false)
	o.mode = ModeFree
	o.playlistID = playlistID
	o.tracks = tracks
	o.challenge = nil
	zlog.Info().Msgf("game: free mode: playlist=%s tracks=%d unplayed=%d",
		playlistID, len(tracks), len(o.ledger.UnplayedOf(tracks)))
	outcome, err := o.nextLocked(ctx)
	o.mu.Unlock()

	o.notify(outcome, err)
	return outcome, err
}

// StartChallenge switches to challenge mode and starts its first round.
// Progress counts rounds completed since this call.
func (o *Orchestrator) StartChallenge(ctx context.Context, def *challenge.Definition) (Outcome, error) {
	if def == nil || def.Len() == 0 {
		return 0, challenge.ErrEmptyPayload
	}

	o.mu.Lock()
	o.teardownLocked(false)
	o.mode = ModeChallenge
	o.challenge = def
	o.challengeBase = o.ledger.HistoryLen()
	o.playlistID = ""
	o.tracks = nil
	zlog.Info().Msgf("game: challenge mode: name=%q tracks=%d", def.Name, def.Len())
	outcome, err := o.nextLocked(ctx)
	o.mu.Unlock()

	o.notify(outcome, err)
	return outcome, err
}

// PlayAgain tears the current round down and starts the next one.
// A round abandoned before scoring still marks its track as played.
func (o *Orchestrator) PlayAgain(ctx context.Context) (Outcome, error) {
	return o.Next(ctx)
}

// Next starts a round with the next track of the current mode, closing the
// current round first.
func (o *Orchestrator) Next(ctx context.Context) (Outcome, error) {
	o.mu.Lock()
	o.teardownLocked(true)
	outcome, err := o.nextLocked(ctx)
	o.mu.Unlock()

	o.notify(outcome, err)
	return outcome, err
}

// Retry re-sends the start request for the current track after a failed
// start. It returns ErrNothingToRetry unless the round is idle with a start
// failure.
func (o *Orchestrator) Retry() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.machine == nil || o.current == nil {
		return ErrNoRound
	}

	snap := o.machine.Snapshot()
	var perr *round.PlaybackError
	if snap.State != round.StateIdle || !errors.As(snap.Err, &perr) || perr.Op != round.OpStart {
		return errors.Wrapf(ErrNothingToRetry, "round is %s", snap.State)
	}
	return o.machine.Start(*o.current)
}

// PauseAndGuess pauses the current round for guessing.
func (o *Orchestrator) PauseAndGuess() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.machine == nil {
		return ErrNoRound
	}
	return o.machine.PauseAndGuess()
}

// SubmitGuess scores the current round, records it in the ledger and the
// history store, and calls OnRoundScored.
func (o *Orchestrator) SubmitGuess(ctx context.Context, title, artist string) (scoring.Result, error) {
	o.mu.Lock()

	if o.machine == nil || o.current == nil {
		o.mu.Unlock()
		return scoring.Result{}, ErrNoRound
	}

	result, err := o.machine.SubmitGuess(title, artist)
	if err != nil {
		o.mu.Unlock()
		return scoring.Result{}, err
	}

	snap := o.machine.Snapshot()
	entry := history.NewEntry(*o.current, result.Score, result.IsCorrect, snap.Elapsed, o.config.Now())
	o.ledger.Record(entry)
	o.mu.Unlock()

	if o.config.Store != nil {
		if err := o.config.Store.Append(ctx, entry); err != nil {
			zlog.Warn().Msgf("game: failed to persist history entry: track=%s: %v", entry.TrackID, err)
		}
	}

	zlog.Info().Msgf("game: round scored: track=%s score=%d correct=%t elapsed=%s",
		entry.TrackID, result.Score, result.IsCorrect, round.FormatElapsed(entry.Elapsed))

	if h := o.config.Hooks.OnRoundScored; h != nil {
		h(entry, result)
	}
	return result, nil
}

// Snapshot returns the state of the current round.
func (o *Orchestrator) Snapshot() round.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.machine == nil {
		return round.Snapshot{State: round.StateIdle}
	}
	return o.machine.Snapshot()
}

// Mode returns the current selection mode.
func (o *Orchestrator) Mode() Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// ChallengeProgress returns the completed and total rounds of the current
// challenge. Both are zero outside of challenge mode.
func (o *Orchestrator) ChallengeProgress() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.mode != ModeChallenge || o.challenge == nil {
		return 0, 0
	}
	return min(o.ledger.HistoryLen()-o.challengeBase, o.challenge.Len()), o.challenge.Len()
}

// Close tears down the current round.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.teardownLocked(false)
}

// nextLocked selects the next track for the current mode and starts it.
// Must be called with lock held.
func (o *Orchestrator) nextLocked(ctx context.Context) (Outcome, error) {
	var next track.Track

	switch o.mode {
	case ModeFree:
		t, ok := SelectFree(o.ledger, o.tracks, o.rng)
		if !ok {
			zlog.Info().Msgf("game: playlist exhausted: playlist=%s", o.playlistID)
			return OutcomeExhausted, nil
		}
		next = t

	case ModeChallenge:
		entry, ok := NextChallenge(o.challenge.Tracks, o.ledger.HistoryLen()-o.challengeBase)
		if !ok {
			zlog.Info().Msgf("game: challenge complete: name=%q", o.challenge.Name)
			return OutcomeChallengeComplete, nil
		}
		t, err := o.catalog.GetTrack(ctx, entry.TrackID)
		if err != nil {
			zlog.Error().Msgf("game: failed to get challenge track: track=%s: %v", entry.TrackID, err)
			return 0, &CatalogError{Op: OpGetTrack, Message: o.config.Messages.ChallengeTrackFailed, Err: err}
		}
		next = *t

	default:
		return 0, ErrNoMode
	}

	return o.startRoundLocked(next)
}

// startRoundLocked starts a fresh round for t.
// Must be called with lock held.
func (o *Orchestrator) startRoundLocked(t track.Track) (Outcome, error) {
	m := round.NewMachine(o.player, o.config.Round)
	if err := m.Start(t); err != nil {
		m.Close()
		return 0, errors.Wrap(err, "failed to start round")
	}

	o.machine = m
	o.current = &t
	go o.forward(m)

	return OutcomeStarted, nil
}

// teardownLocked closes the current round. With abandon set, a track that
// was not scored is still marked as played.
// Must be called with lock held.
func (o *Orchestrator) teardownLocked(abandon bool) {
	if o.machine == nil {
		return
	}

	if abandon && o.current != nil && o.machine.State() != round.StateScored {
		zlog.Debug().Msgf("game: abandoning round: track=%s", o.current.ID)
		o.ledger.MarkPlayed(o.current.ID)
	}

	o.machine.Close()
	o.machine = nil
	o.current = nil
}

// forward relays playback events of a round to the hooks until the round
// is closed. Events of a round that is no longer current are dropped.
func (o *Orchestrator) forward(m *round.Machine) {
	for e := range m.Events() {
		if e.Type != round.EventPlaybackStarted && e.Type != round.EventPlaybackFailed {
			continue
		}
		if !o.isCurrent(m) {
			zlog.Debug().Msgf("game: dropping %s of a finished round", e.Type)
			continue
		}

		switch e.Type {
		case round.EventPlaybackStarted:
			if h := o.config.Hooks.OnPlaybackStarted; h != nil && e.Track != nil {
				h(*e.Track)
			}
		case round.EventPlaybackFailed:
			if h := o.config.Hooks.OnPlaybackError; h != nil {
				h(e.Err)
			}
		}
	}
}

func (o *Orchestrator) isCurrent(m *round.Machine) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.machine == m
}

// notify calls the outcome hooks.
func (o *Orchestrator) notify(outcome Outcome, err error) {
	if err != nil {
		return
	}
	switch outcome {
	case OutcomeExhausted:
		if h := o.config.Hooks.OnExhausted; h != nil {
			h()
		}
	case OutcomeChallengeComplete:
		if h := o.config.Hooks.OnChallengeComplete; h != nil {
			h()
		}
	}
}

// newRand returns a random generator seeded from crypto/rand, falling back
// to the current time.
func newRand() *rand.Rand {
	var seed int64
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(buf[:]))
	} else {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
