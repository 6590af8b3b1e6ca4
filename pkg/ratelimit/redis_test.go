package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// setupRedisLimiter starts an in-memory redis whose clock follows wall time,
// so key TTLs expire while Acquire waits.
func setupRedisLimiter(t *testing.T, interval time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	const tick = 5 * time.Millisecond
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				mr.FastForward(tick)
			}
		}
	}()
	t.Cleanup(func() {
		close(stop)
		<-done
	})

	l, err := NewRedisLimiter(RedisConfig{Addr: mr.Addr(), Prefix: "test:", Interval: interval})
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, mr
}

func TestRedisLimiter(t *testing.T) {
	const interval = 100 * time.Millisecond

	t.Run("same platform waits one interval", func(t *testing.T) {
		l, mr := setupRedisLimiter(t, interval)
		ctx := context.Background()

		if err := l.Acquire(ctx, "eventim"); err != nil {
			t.Fatalf("first acquire failed: %v", err)
		}
		if !mr.Exists("test:eventim") {
			t.Fatal("expected the platform key to be held")
		}

		start := time.Now()
		if err := l.Acquire(ctx, "eventim"); err != nil {
			t.Fatalf("second acquire failed: %v", err)
		}
		if elapsed := time.Since(start); elapsed < interval-10*time.Millisecond {
			t.Errorf("expected second call to wait about %v, waited %v", interval, elapsed)
		}
	})

	t.Run("platforms are independent", func(t *testing.T) {
		l, _ := setupRedisLimiter(t, interval)
		ctx := context.Background()

		if err := l.Acquire(ctx, "eventim"); err != nil {
			t.Fatalf("acquire failed: %v", err)
		}
		start := time.Now()
		if err := l.Acquire(ctx, "sympla"); err != nil {
			t.Fatalf("acquire failed: %v", err)
		}
		if elapsed := time.Since(start); elapsed > interval/2 {
			t.Errorf("expected no wait across platforms, waited %v", elapsed)
		}
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		l, _ := setupRedisLimiter(t, time.Hour)

		if err := l.Acquire(context.Background(), "shopee"); err != nil {
			t.Fatalf("acquire failed: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := l.Acquire(ctx, "shopee"); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		if _, err := NewRedisLimiter(RedisConfig{Addr: addr, Interval: interval}); err == nil {
			t.Error("expected connection error")
		}
	})
}
