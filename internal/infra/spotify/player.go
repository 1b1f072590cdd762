package spotify

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"

	"github.com/osa030/guessbox/internal/domain/track"
)

// ErrStartTimeout is returned when playback was requested but the device
// never reported the track as playing.
var ErrStartTimeout = errors.New("playback did not start in time")

// Start plays the track on the configured device and waits until the
// device reports it as playing.
func (c *Client) Start(ctx context.Context, t track.Track) error {
	opts := c.playOptions()
	opts.URIs = []spotify.URI{spotify.URI(t.PlaybackURI())}

	if err := c.client.PlayOpt(ctx, opts); err != nil {
		return errors.Wrap(err, "failed to start playback")
	}

	return c.waitPlaying(ctx, t.ID)
}

// Toggle pauses playback when the device is playing and resumes it
// otherwise.
func (c *Client) Toggle(ctx context.Context) error {
	state, err := c.client.PlayerState(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get player state")
	}

	if state.Playing {
		if err := c.client.PauseOpt(ctx, c.playOptions()); err != nil {
			return errors.Wrap(err, "failed to pause playback")
		}
		return nil
	}

	if err := c.client.PlayOpt(ctx, c.playOptions()); err != nil {
		return errors.Wrap(err, "failed to resume playback")
	}
	return nil
}

// waitPlaying polls the player state until trackID is playing.
func (c *Client) waitPlaying(ctx context.Context, trackID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.startTimeout)
	defer cancel()

	ticker := time.NewTicker(c.confirmInterval)
	defer ticker.Stop()

	for {
		state, err := c.client.PlayerState(ctx)
		if err == nil && isPlaying(state, trackID) {
			return nil
		}
		if err != nil {
			zlog.Debug().Msgf("spotify: player state poll failed: %v", err)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return errors.Wrapf(ErrStartTimeout, "track %s", trackID)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) playOptions() *spotify.PlayOptions {
	opts := &spotify.PlayOptions{}
	if c.deviceID != "" {
		id := spotify.ID(c.deviceID)
		opts.DeviceID = &id
	}
	return opts
}

func isPlaying(state *spotify.PlayerState, trackID string) bool {
	return state != nil && state.Playing && state.Item != nil && string(state.Item.ID) == trackID
}
