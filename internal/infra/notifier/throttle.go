package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultMinInterval is the minimum gap between two messages to one recipient.
	DefaultMinInterval = 30 * time.Second
	// DefaultMaxBackoff caps the pause after repeated rate limit answers.
	DefaultMaxBackoff = 10 * time.Minute
)

// Throttle paces deliveries per recipient. Each recipient gets a token
// bucket of one message per interval. A rate limit answer blocks the
// recipient for max(retryAfter, twice the previous pause), starting at
// interval and capped at maxBackoff. A successful send resets the pause.
type Throttle struct {
	interval   time.Duration
	maxBackoff time.Duration

	mu         sync.Mutex
	recipients map[int64]*recipient
}

type recipient struct {
	limiter      *rate.Limiter
	backoff      time.Duration
	blockedUntil time.Time
}

func NewThrottle(interval, maxBackoff time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultMinInterval
	}
	if maxBackoff < interval {
		maxBackoff = max(DefaultMaxBackoff, interval)
	}
	return &Throttle{
		interval:   interval,
		maxBackoff: maxBackoff,
		recipients: make(map[int64]*recipient),
	}
}

func (t *Throttle) get(id int64) *recipient {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.recipients[id]
	if !ok {
		r = &recipient{limiter: rate.NewLimiter(rate.Every(t.interval), 1)}
		t.recipients[id] = r
	}
	return r
}

// Wait blocks until a message may be sent to id. It fails fast with
// ErrRateLimited when the context deadline ends before the recipient
// becomes available.
func (t *Throttle) Wait(ctx context.Context, id int64) error {
	r := t.get(id)

	t.mu.Lock()
	until := r.blockedUntil
	t.mu.Unlock()

	if wait := time.Until(until); wait > 0 {
		if deadline, ok := ctx.Deadline(); ok && deadline.Before(until) {
			return fmt.Errorf("%w: recipient %d blocked for %v", ErrRateLimited, id, wait.Round(time.Second))
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// the limiter refuses waits that would overrun the deadline
		return fmt.Errorf("%w: recipient %d: %v", ErrRateLimited, id, err)
	}
	return nil
}

// Backoff records a rate limit answer for id and returns the pause applied.
func (t *Throttle) Backoff(id int64, retryAfter time.Duration) time.Duration {
	r := t.get(id)

	t.mu.Lock()
	defer t.mu.Unlock()

	next := r.backoff * 2
	if next == 0 {
		next = t.interval
	}
	next = max(next, retryAfter)
	next = min(next, t.maxBackoff)

	r.backoff = next
	r.blockedUntil = time.Now().Add(next)
	return next
}

// Reset clears the escalation for id after a successful send.
func (t *Throttle) Reset(id int64) {
	r := t.get(id)
	t.mu.Lock()
	r.backoff = 0
	t.mu.Unlock()
}

// BlockedUntil reports when id leaves its current backoff window.
func (t *Throttle) BlockedUntil(id int64) time.Time {
	r := t.get(id)
	t.mu.Lock()
	defer t.mu.Unlock()
	return r.blockedUntil
}
