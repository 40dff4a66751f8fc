package memory

import (
	"context"
	"sync"
	"time"
)

type rateWindow struct {
	windowStart time.Time
	count       int
}

// RateLimiter is an in-memory fixed-window membership.RateLimiter.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]rateWindow
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]rateWindow),
		now:     time.Now,
	}
}

func (r *RateLimiter) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *RateLimiter) Allow(_ context.Context, bucket string, limit int, windowSeconds int) (bool, error) {
	if limit <= 0 || windowSeconds <= 0 {
		return true, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	window := time.Duration(windowSeconds) * time.Second

	current, ok := r.buckets[bucket]
	if !ok || now.Sub(current.windowStart) >= window {
		r.buckets[bucket] = rateWindow{windowStart: now, count: 1}
		return true, nil
	}
	if current.count >= limit {
		return false, nil
	}
	current.count++
	r.buckets[bucket] = current
	return true, nil
}
