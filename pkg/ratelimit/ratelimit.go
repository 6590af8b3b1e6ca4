// Package ratelimit spaces out outbound requests per platform so no two calls
// to the same host happen closer together than the configured interval.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter blocks until the platform's minimum interval has elapsed since its previous call.
type Limiter interface {
	Acquire(ctx context.Context, platform string) error
}

// PlatformLimiter is the in-process Limiter. Each platform key gets its own
// single-token bucket refilled once per interval.
type PlatformLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	interval time.Duration
}

// New creates a limiter allowing rps calls per second per platform.
// rps <= 0 disables limiting.
func New(rps float64) *PlatformLimiter {
	var interval time.Duration
	if rps > 0 {
		interval = time.Duration(float64(time.Second) / rps)
	}
	return NewWithInterval(interval)
}

func NewWithInterval(interval time.Duration) *PlatformLimiter {
	return &PlatformLimiter{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

func (l *PlatformLimiter) Interval() time.Duration {
	return l.interval
}

func (l *PlatformLimiter) Acquire(ctx context.Context, platform string) error {
	return l.getLimiter(platform).Wait(ctx)
}

func (l *PlatformLimiter) getLimiter(platform string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[platform]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists = l.limiters[platform]; exists {
		return limiter
	}

	limit := rate.Inf
	if l.interval > 0 {
		limit = rate.Every(l.interval)
	}
	limiter = rate.NewLimiter(limit, 1)
	l.limiters[platform] = limiter
	return limiter
}
