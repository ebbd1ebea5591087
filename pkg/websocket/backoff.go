package websocket

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	fallbackBackoffMin    = 100 * time.Millisecond
	fallbackBackoffMax    = 5 * time.Second
	fallbackBackoffFactor = 2.0
)

// DefaultBackoff provides conservative reconnect defaults.
func DefaultBackoff() Backoff {
	return Backoff{
		Min:    250 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2.0,
		Jitter: 0.2,
	}
}

// Next returns the wait before the given reconnect attempt (1-based).
// The delay grows geometrically from Min, is capped at Max, then jittered.
func (b Backoff) Next(attempt int) time.Duration {
	attempt = max(attempt, 1)
	lo := b.Min
	if lo <= 0 {
		lo = fallbackBackoffMin
	}
	hi := b.Max
	if hi <= 0 {
		hi = fallbackBackoffMax
	}
	hi = max(hi, lo)
	factor := b.Factor
	if factor <= 1 {
		factor = fallbackBackoffFactor
	}

	wait := float64(lo)
	for i := 1; i < attempt && wait < float64(hi); i++ {
		wait *= factor
	}
	wait = min(wait, float64(hi))

	jitter := min(b.Jitter, 1)
	if jitter <= 0 {
		return time.Duration(wait)
	}
	delta := wait * jitter
	return time.Duration(wait - delta + rand.Float64()*2*delta)
}

// Wait sleeps for Next(attempt). It returns false when ctx ends first.
func (b Backoff) Wait(ctx context.Context, attempt int) bool {
	timer := time.NewTimer(b.Next(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
