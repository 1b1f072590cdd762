package round

import (
	"context"
	"time"
)

// Scheduler runs a callback repeatedly until stopped.
type Scheduler interface {
	// Every calls fn every interval until the returned stop function is
	// called. Stop may be called any number of times.
	Every(interval time.Duration, fn func()) (stop func())
}

// WallClock is a Scheduler backed by time.Ticker.
type WallClock struct{}

// Every implements Scheduler.
func (WallClock) Every(interval time.Duration, fn func()) func() {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Both channels may be ready; cancellation wins.
				if ctx.Err() != nil {
					return
				}
				fn()
			}
		}
	}()

	return cancel
}
