package relay

import (
	"context"
	"math/rand/v2"
	"time"
)

const jitter = 250 * time.Millisecond

// backoff doubles the wait after each failed pass, up to max.
type backoff struct {
	base, max time.Duration
	current   time.Duration
}

func (b *backoff) fail() {
	if b.current < b.base {
		b.current = b.base
	}
	b.current = min(b.current*2, b.max)
}

func (b *backoff) reset() {
	b.current = 0
}

// next is the wait before the following pass, jittered so parallel relays
// spread out.
func (b *backoff) next() time.Duration {
	d := max(b.current, b.base)
	return d + rand.N(jitter)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
