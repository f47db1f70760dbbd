package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Throttle allows one action per key per window
type Throttle interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

// RedisThrottle implements Throttle with SETNX + TTL so every API instance shares the window
type RedisThrottle struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisThrottle connects to redisURL and verifies the connection
func NewRedisThrottle(ctx context.Context, redisURL string) (*RedisThrottle, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisThrottle{rdb: rdb, prefix: "throttle:"}, nil
}

// Allow claims key for window; false means the key is still held
func (t *RedisThrottle) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := t.rdb.SetNX(ctx, t.prefix+key, time.Now().Unix(), window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim throttle key: %w", err)
	}
	return ok, nil
}

// Close releases the Redis connection pool
func (t *RedisThrottle) Close() error {
	return t.rdb.Close()
}

// MemoryThrottle is a single-process Throttle
type MemoryThrottle struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

// NewMemoryThrottle creates an empty in-memory throttle
func NewMemoryThrottle() *MemoryThrottle {
	return &MemoryThrottle{until: make(map[string]time.Time), now: time.Now}
}

// Allow claims key for window
func (t *MemoryThrottle) Allow(_ context.Context, key string, window time.Duration) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if until, held := t.until[key]; held && now.Before(until) {
		return false, nil
	}
	t.until[key] = now.Add(window)
	return true, nil
}
