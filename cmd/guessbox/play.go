package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guessbox/internal/app/game"
	"github.com/osa030/guessbox/internal/app/round"
	"github.com/osa030/guessbox/internal/domain/track"
	"github.com/osa030/guessbox/internal/infra/config"
)

type action int

const (
	actionNext action = iota
	actionQuit
)

// console runs the interactive game loop on a line-based terminal.
type console struct {
	orch     *game.Orchestrator
	cfg      *config.Config
	in       *bufio.Scanner
	out      io.Writer
	playback chan error // nil when playback started
}

func newConsole(cfg *config.Config, in io.Reader, out io.Writer) *console {
	return &console{
		cfg:      cfg,
		in:       bufio.NewScanner(in),
		out:      out,
		playback: make(chan error, 4),
	}
}

// hooks returns the orchestrator hooks feeding the console.
func (c *console) hooks() game.Hooks {
	return game.Hooks{
		OnPlaybackStarted: func(track.Track) { c.notifyPlayback(nil) },
		OnPlaybackError:   func(err error) { c.notifyPlayback(err) },
	}
}

func (c *console) notifyPlayback(err error) {
	select {
	case c.playback <- err:
	default:
		zlog.Warn().Msg("guessbox: playback notification dropped")
	}
}

func (c *console) drainPlayback() {
	for {
		select {
		case <-c.playback:
		default:
			return
		}
	}
}

// run plays rounds until the selection is used up or the player quits.
// start begins the first round.
func (c *console) run(ctx context.Context, start func(context.Context) (game.Outcome, error)) error {
	c.drainPlayback()
	outcome, err := start(ctx)

	for {
		if err != nil {
			fmt.Fprintln(c.out, renderError(game.UserMessage(err, c.cfg.GetMessage(""))))
			return err
		}

		switch outcome {
		case game.OutcomeExhausted:
			fmt.Fprintln(c.out, c.cfg.GetMessage(config.MsgExhausted))
			return nil
		case game.OutcomeChallengeComplete:
			fmt.Fprintln(c.out, c.cfg.GetMessage(config.MsgChallengeComplete))
			return nil
		}

		next, err := c.playRound(ctx)
		if err != nil {
			return err
		}
		if next == actionQuit {
			return nil
		}

		c.drainPlayback()
		outcome, err = c.orch.Next(ctx)
	}
}

// playRound drives one round from waiting for playback to the result.
func (c *console) playRound(ctx context.Context) (action, error) {
	if done, total := c.orch.ChallengeProgress(); total > 0 {
		fmt.Fprintln(c.out, dimStyle.Render(fmt.Sprintf("Round %d of %d", done+1, total)))
	}

	next, ready, err := c.waitPlayback(ctx)
	if err != nil || !ready {
		return next, err
	}

	for {
		fmt.Fprintln(c.out, "Now playing. Press Enter to pause and guess.")
		if _, ok := c.readLine(); !ok {
			return actionQuit, nil
		}

		if err := c.orch.PauseAndGuess(); err != nil {
			fmt.Fprintln(c.out, renderError(err.Error()))
			continue
		}
		fmt.Fprintf(c.out, "Paused at %ss.\n", round.FormatElapsed(c.orch.Snapshot().Elapsed))

		title, ok := c.prompt("Title: ")
		if !ok {
			return actionQuit, nil
		}
		artist, ok := c.prompt("Artist: ")
		if !ok {
			return actionQuit, nil
		}

		result, err := c.orch.SubmitGuess(ctx, title, artist)
		if errors.Is(err, round.ErrNotGuessing) {
			// The pause request failed and playback resumed.
			fmt.Fprintln(c.out, renderError(c.cfg.GetMessage(config.MsgPlaybackFailed)))
			c.drainPlayback()
			continue
		}
		if err != nil {
			return actionQuit, err
		}

		snap := c.orch.Snapshot()
		if snap.Track != nil {
			fmt.Fprint(c.out, renderResult(*snap.Track, result, snap.Elapsed))
		}

		answer, ok := c.prompt("[Enter] next  [q] quit: ")
		if !ok || strings.EqualFold(answer, "q") {
			return actionQuit, nil
		}
		return actionNext, nil
	}
}

// waitPlayback blocks until the round is audible. On a playback failure
// the player chooses to retry, skip or quit.
func (c *console) waitPlayback(ctx context.Context) (action, bool, error) {
	fmt.Fprintln(c.out, dimStyle.Render("Starting playback..."))

	for {
		select {
		case <-ctx.Done():
			return actionQuit, false, ctx.Err()
		case err := <-c.playback:
			if err == nil {
				return actionNext, true, nil
			}
			if !startFailed(err) {
				zlog.Debug().Msgf("guessbox: ignoring playback error: %v", err)
				continue
			}

			fmt.Fprintln(c.out, renderError(c.cfg.GetMessage(config.MsgPlaybackFailed)))
			zlog.Debug().Msgf("guessbox: playback failed: %v", err)

			answer, ok := c.prompt("[r] retry  [s] skip  [q] quit: ")
			switch {
			case !ok, strings.EqualFold(answer, "q"):
				return actionQuit, false, nil
			case strings.EqualFold(answer, "s"):
				return actionNext, false, nil
			}
			if err := c.orch.Retry(); err != nil {
				return actionQuit, false, err
			}
		}
	}
}

// startFailed reports whether err is a failure to start the track, as
// opposed to a failed pause that left it playing.
func startFailed(err error) bool {
	var perr *round.PlaybackError
	return errors.As(err, &perr) && perr.Op == round.OpStart
}

func (c *console) prompt(label string) (string, bool) {
	fmt.Fprint(c.out, label)
	return c.readLine()
}

func (c *console) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}
