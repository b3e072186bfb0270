package txn

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff implements the decorrelated-jitter retry delay: for attempt
// k>=1, capped = min(base * 2^(k-1), max), then sleep capped/2 +
// U[0, capped/2].
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the sleep duration for attempt k (k>=1).
func (b Backoff) Delay(k int) time.Duration {
	if k < 1 {
		k = 1
	}
	capped := b.Base << uint(k-1)
	if capped <= 0 || capped > b.Max {
		capped = b.Max
	}
	half := capped / 2
	return half + time.Duration(rand.Int64N(int64(half)+1))
}

// Sleep waits out the attempt-k delay, returning early if ctx is cancelled —
// retry loops must observe cancellation between attempts.
func (b Backoff) Sleep(ctx context.Context, k int) {
	t := time.NewTimer(b.Delay(k))
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
