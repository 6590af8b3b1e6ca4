package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	Interval time.Duration
}

// RedisLimiter shares the per-platform interval across processes. A call holds
// the platform key for one interval; the next caller waits for it to expire.
type RedisLimiter struct {
	client   *redis.Client
	prefix   string
	interval time.Duration
}

func NewRedisLimiter(cfg RedisConfig) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "merchpulse:ratelimit:"
	}

	return &RedisLimiter{
		client:   client,
		prefix:   prefix,
		interval: cfg.Interval,
	}, nil
}

func (l *RedisLimiter) Acquire(ctx context.Context, platform string) error {
	if l.interval <= 0 {
		return nil
	}

	key := l.prefix + platform
	for {
		ok, err := l.client.SetNX(ctx, key, time.Now().UnixMilli(), l.interval).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire rate limit slot for %s: %w", platform, err)
		}
		if ok {
			return nil
		}

		wait, err := l.client.PTTL(ctx, key).Result()
		if err != nil || wait <= 0 {
			wait = 10 * time.Millisecond
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
