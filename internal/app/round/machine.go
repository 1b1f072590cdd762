package round

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guessbox/internal/app/scoring"
	"github.com/osa030/guessbox/internal/domain/track"
)

// DefaultTickInterval is the timer granularity.
const DefaultTickInterval = 100 * time.Millisecond

const defaultEventBuffer = 16

// Player is the playback collaborator.
// Both calls may block until the device acknowledges the request; the
// machine never waits for them while holding its state.
type Player interface {
	// Start plays the track and returns once playback is audible.
	Start(ctx context.Context, t track.Track) error
	// Toggle pauses playback when playing and resumes it otherwise.
	Toggle(ctx context.Context) error
}

// Config holds machine configuration.
type Config struct {
	TickInterval time.Duration // Timer granularity (default 100ms)
	Scheduler    Scheduler     // Ticker source (default WallClock)
	EventBuffer  int           // Event channel capacity (default 16)
}

// Snapshot is a copy of the readable round state.
type Snapshot struct {
	State             State
	Track             *track.Track
	Elapsed           time.Duration
	HasStartedPlaying bool
	TitleGuess        string
	ArtistGuess       string
	Result            *scoring.Result // Non-nil iff State is StateScored
	Err               error           // Last playback error of this round
}

// Machine governs one round: Idle -> Playing -> Guessing -> Scored.
type Machine struct {
	mu sync.Mutex

	player       Player
	scheduler    Scheduler
	tickInterval time.Duration

	// Round state
	state             State
	track             *track.Track
	elapsed           time.Duration
	hasStartedPlaying bool
	titleGuess        string
	artistGuess       string
	result            *scoring.Result
	lastErr           error

	// epoch changes on every Start and Reset; late player callbacks carry
	// the epoch they were issued in and are dropped when it has moved on.
	epoch      uint64
	reqCtx     context.Context
	reqCancel  context.CancelFunc
	tickerGen  uint64
	stopTicker func()

	// Events
	eventCh chan Event
	closed  bool

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewMachine creates an idle round machine driving the given player.
func NewMachine(player Player, cfg Config) *Machine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = WallClock{}
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Machine{
		player:       player,
		scheduler:    cfg.Scheduler,
		tickInterval: cfg.TickInterval,
		state:        StateIdle,
		eventCh:      make(chan Event, cfg.EventBuffer),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Events returns the event channel. It is closed by Close.
func (m *Machine) Events() <-chan Event {
	return m.eventCh
}

// Start requests playback of t and moves the round from Idle to Playing.
// The timer is armed immediately but only advances once the player has
// acknowledged audible playback. A failed start request moves the round
// back to Idle and is reported through EventPlaybackFailed and Snapshot().Err.
func (m *Machine) Start(t track.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.state != StateIdle {
		return errors.Wrapf(ErrInvalidTransition, "cannot start while %s", m.state)
	}
	if t.ID == "" {
		return ErrInvalidTrack
	}

	m.epoch++
	epoch := m.epoch

	m.track = &t
	m.elapsed = 0
	m.hasStartedPlaying = false
	m.titleGuess = ""
	m.artistGuess = ""
	m.result = nil
	m.lastErr = nil
	m.state = StatePlaying

	reqCtx, cancel := context.WithCancel(m.ctx)
	m.reqCtx = reqCtx
	m.reqCancel = cancel

	m.startTickerLocked()

	zlog.Debug().Msgf("round: starting track=%s epoch=%d", t.ID, epoch)
	m.sendEventLocked(Event{Type: EventRoundStarted})

	go func() {
		err := m.player.Start(reqCtx, t)
		m.onStartAck(epoch, err)
	}()

	return nil
}

// PauseAndGuess freezes the timer and moves the round from Playing to
// Guessing. The timer is stopped before this returns; the player's toggle
// request is sent asynchronously. If that request fails while the round is
// still Guessing, the round returns to Playing and the timer resumes.
func (m *Machine) PauseAndGuess() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.state != StatePlaying {
		return errors.Wrapf(ErrInvalidTransition, "cannot pause while %s", m.state)
	}
	if !m.hasStartedPlaying {
		return ErrPlaybackPending
	}

	m.stopTickerLocked()
	m.titleGuess = ""
	m.artistGuess = ""
	m.state = StateGuessing

	epoch := m.epoch
	reqCtx := m.reqCtx
	zlog.Debug().Msgf("round: paused for guessing track=%s elapsed=%v", m.track.ID, m.elapsed)
	m.sendEventLocked(Event{Type: EventGuessing})

	go func() {
		err := m.player.Toggle(reqCtx)
		m.onToggleAck(epoch, err)
	}()

	return nil
}

// SetGuess updates the guess buffers. Only allowed while Guessing.
func (m *Machine) SetGuess(title, artist string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateGuessing {
		return ErrNotGuessing
	}
	m.titleGuess = title
	m.artistGuess = artist
	return nil
}

// SubmitGuess scores the guess against the frozen elapsed time and moves
// the round from Guessing to Scored. It succeeds at most once per round.
func (m *Machine) SubmitGuess(title, artist string) (scoring.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateScored:
		return scoring.Result{}, ErrAlreadyScored
	case StateGuessing:
	default:
		return scoring.Result{}, ErrNotGuessing
	}

	m.titleGuess = title
	m.artistGuess = artist

	result := scoring.Calculate(title, artist, *m.track, m.elapsed)
	m.result = &result
	m.state = StateScored

	zlog.Debug().Msgf("round: scored track=%s score=%d correct=%t elapsed=%v",
		m.track.ID, result.Score, result.IsCorrect, m.elapsed)
	m.sendEventLocked(Event{Type: EventScored})

	return result, nil
}

// Reset tears the round down and returns it to Idle from any state.
// The timer is stopped synchronously and any in-flight player request is
// cancelled; its late acknowledgment is ignored.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetLocked()
}

// Close resets the machine and closes the event channel.
// Calling Close more than once is a no-op.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.resetLocked()
	m.closed = true
	m.cancel()
	close(m.eventCh)
}

// Snapshot returns a copy of the current round state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshotLocked()
}

// State returns the current round state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) snapshotLocked() Snapshot {
	s := Snapshot{
		State:             m.state,
		Elapsed:           m.elapsed,
		HasStartedPlaying: m.hasStartedPlaying,
		TitleGuess:        m.titleGuess,
		ArtistGuess:       m.artistGuess,
		Err:               m.lastErr,
	}
	if m.track != nil {
		t := *m.track
		s.Track = &t
	}
	if m.result != nil {
		r := *m.result
		s.Result = &r
	}
	return s
}

func (m *Machine) resetLocked() {
	m.stopTickerLocked()
	if m.reqCancel != nil {
		m.reqCancel()
		m.reqCancel = nil
		m.reqCtx = nil
	}

	m.epoch++
	m.state = StateIdle
	m.track = nil
	m.elapsed = 0
	m.hasStartedPlaying = false
	m.titleGuess = ""
	m.artistGuess = ""
	m.result = nil
	m.lastErr = nil

	m.sendEventLocked(Event{Type: EventReset})
}

// onStartAck applies the player's start acknowledgment.
func (m *Machine) onStartAck(epoch uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if epoch != m.epoch || m.state != StatePlaying {
		zlog.Debug().Msgf("round: dropping stale start acknowledgment epoch=%d current=%d", epoch, m.epoch)
		return
	}

	if err != nil {
		m.stopTickerLocked()
		m.state = StateIdle
		m.lastErr = &PlaybackError{Op: OpStart, Err: err}
		zlog.Warn().Msgf("round: playback start failed track=%s: %v", m.track.ID, err)
		m.sendEventLocked(Event{Type: EventPlaybackFailed, Err: m.lastErr})
		return
	}

	m.hasStartedPlaying = true
	m.sendEventLocked(Event{Type: EventPlaybackStarted})
}

// onToggleAck applies the player's pause acknowledgment.
func (m *Machine) onToggleAck(epoch uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if epoch != m.epoch {
		return
	}
	if err == nil {
		return
	}

	m.lastErr = &PlaybackError{Op: OpToggle, Err: err}
	if m.state != StateGuessing {
		// Already scored; the result stands.
		zlog.Warn().Msgf("round: pause failed after %s: %v", m.state, err)
		m.sendEventLocked(Event{Type: EventPlaybackFailed, Err: m.lastErr})
		return
	}

	zlog.Warn().Msgf("round: pause failed, resuming track=%s: %v", m.track.ID, err)
	m.titleGuess = ""
	m.artistGuess = ""
	m.state = StatePlaying
	m.startTickerLocked()
	m.sendEventLocked(Event{Type: EventPlaybackFailed, Err: m.lastErr})
}

// startTickerLocked arms the round timer.
// Must be called with lock held.
func (m *Machine) startTickerLocked() {
	m.stopTickerLocked()

	gen := m.tickerGen
	m.stopTicker = m.scheduler.Every(m.tickInterval, func() {
		m.tick(gen)
	})
}

// stopTickerLocked cancels the round timer. Ticks already queued by the
// scheduler see a newer generation and are discarded.
// Must be called with lock held.
func (m *Machine) stopTickerLocked() {
	m.tickerGen++
	if m.stopTicker != nil {
		m.stopTicker()
		m.stopTicker = nil
	}
}

func (m *Machine) tick(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.tickerGen || m.state != StatePlaying || !m.hasStartedPlaying {
		return
	}
	m.elapsed += m.tickInterval
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (m *Machine) sendEventLocked(e Event) {
	if m.closed {
		return
	}

	snap := m.snapshotLocked()
	e.State = snap.State
	e.Track = snap.Track
	if e.Type == EventScored {
		e.Result = snap.Result
	}

	select {
	case m.eventCh <- e:
	default:
		zlog.Warn().Msgf("round: event channel full, dropping %s", e.Type)
	}
}
