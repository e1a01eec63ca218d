package auth

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// minSweep is the map size below which full buckets are left alone.
const minSweep = 1024

// Attempts throttles failed sign-ins per email with a token bucket: each
// failure spends a token, tokens refill at the configured rate, and an
// email with an empty bucket is refused until one comes back. A success
// clears the email's bucket.
//
// A bucket that has refilled completely carries no state, so Fail drops
// those once the map passes its sweep mark.
type Attempts struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	sweepAt  int
	now      func() time.Time
}

// NewAttempts allows burst failures, refilled at perSecond.
func NewAttempts(perSecond float64, burst int) *Attempts {
	return &Attempts{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		sweepAt:  minSweep,
		now:      time.Now,
	}
}

// Allowed reports whether email may try again now. It spends nothing.
func (a *Attempts) Allowed(email string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.limiters[key(email)]
	if !ok {
		return true
	}
	return l.TokensAt(a.now()) >= 1
}

// Fail records a failed attempt.
func (a *Attempts) Fail(email string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	if len(a.limiters) >= a.sweepAt {
		a.sweep(now)
	}
	k := key(email)
	l, ok := a.limiters[k]
	if !ok {
		l = rate.NewLimiter(a.limit, a.burst)
		a.limiters[k] = l
	}
	l.AllowN(now, 1)
}

// Reset forgets email's failures.
func (a *Attempts) Reset(email string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.limiters, key(email))
}

// Len is the number of emails currently tracked.
func (a *Attempts) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.limiters)
}

// sweep drops full buckets and moves the mark to twice what is left, so
// a map of live buckets is not rescanned on every failure.
func (a *Attempts) sweep(now time.Time) {
	full := float64(a.burst)
	for k, l := range a.limiters {
		if l.TokensAt(now) >= full {
			delete(a.limiters, k)
		}
	}
	a.sweepAt = max(minSweep, 2*len(a.limiters))
}

func key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
