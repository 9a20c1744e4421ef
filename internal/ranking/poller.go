package ranking

import (
	"context"
	"time"

	"seo-opportunity/internal/clock"
)

// Poller paces the settle delay and retry interval of the SERP job loop.
type Poller struct {
	Clock    clock.Clock
	Settle   time.Duration
	Interval time.Duration
	MaxPolls int
}

// Wait blocks for d or until ctx is done.
func (p Poller) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.Clock.After(d):
		return nil
	}
}
