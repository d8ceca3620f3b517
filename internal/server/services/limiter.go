package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// keyedLimiter throttles sign-in attempts per client key (usually the remote
// IP). Idle keys are forgotten after idleTTL.
type keyedLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	limiters map[string]*limiterEntry
	now      func() time.Time
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func newKeyedLimiter(limit rate.Limit, burst int) *keyedLimiter {
	return &keyedLimiter{
		limit:    limit,
		burst:    burst,
		idleTTL:  10 * time.Minute,
		limiters: make(map[string]*limiterEntry),
		now:      time.Now,
	}
}

func (k *keyedLimiter) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	for kk, e := range k.limiters {
		if now.Sub(e.seen) > k.idleTTL {
			delete(k.limiters, kk)
		}
	}

	e, ok := k.limiters[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(k.limit, k.burst)}
		k.limiters[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}
