package goal

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Monitor drives a goal's non-real-time status publication at a fixed period
// until the goal finishes or ctx is cancelled. It runs one publication step
// immediately so an accepted goal's first feedback is not delayed by a full
// period.
func Monitor(ctx context.Context, clk clock.Clock, period time.Duration, h *RTHandle) {
	ticker := clk.Ticker(period)
	defer ticker.Stop()
	for {
		if h.RunNonRealtime() {
			return
		}
		select {
		case <-ctx.Done():
			// Shutdown preempts the goal before cancelling this context; a
			// final step publishes that terminal result instead of dropping
			// it.
			h.RunNonRealtime()
			return
		case <-ticker.C:
		}
	}
}
