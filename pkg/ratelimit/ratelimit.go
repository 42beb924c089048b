package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter wraps golang.org/x/time/rate.Limiter for API rate limiting
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter with the specified requests per
// second. A burst below one defaults to requestsPerSecond.
func NewRateLimiter(requestsPerSecond, burst int) *RateLimiter {
	if burst < 1 {
		burst = requestsPerSecond
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Allow checks if a request can proceed without blocking
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

type entry struct {
	limiter  *RateLimiter
	lastSeen time.Time
}

// KeyedRateLimiter keeps one limiter per client key. Keys idle for longer
// than idleTTL are dropped by Cleanup.
type KeyedRateLimiter struct {
	requestsPerSecond int
	burst             int
	idleTTL           time.Duration
	limiters          map[string]*entry
	mu                sync.Mutex
	now               func() time.Time
}

// NewKeyedRateLimiter creates a new keyed rate limiter
func NewKeyedRateLimiter(requestsPerSecond, burst int, idleTTL time.Duration) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		requestsPerSecond: requestsPerSecond,
		burst:             burst,
		idleTTL:           idleTTL,
		limiters:          make(map[string]*entry),
		now:               time.Now,
	}
}

// Allow checks if a request for key can proceed
func (k *KeyedRateLimiter) Allow(key string) bool {
	return k.get(key).Allow()
}

func (k *KeyedRateLimiter) get(key string) *RateLimiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.limiters[key]
	if !ok {
		e = &entry{limiter: NewRateLimiter(k.requestsPerSecond, k.burst)}
		k.limiters[key] = e
	}
	e.lastSeen = k.now()
	return e.limiter
}

// Cleanup drops limiters idle for longer than idleTTL and returns how many
// were removed
func (k *KeyedRateLimiter) Cleanup() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	cutoff := k.now().Add(-k.idleTTL)
	removed := 0
	for key, e := range k.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(k.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}

// RunCleanup calls Cleanup every interval until ctx is done
func (k *KeyedRateLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Cleanup()
		}
	}
}
