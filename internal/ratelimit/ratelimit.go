// Package ratelimit provides fixed-window request limiting, in process or
// shared through Redis.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

var ErrCapacityExceeded = errors.New("rate limiter capacity exceeded")

type memoryBucket struct {
	count     int
	windowEnd time.Time
}

// Memory keeps one counter per key for the current window.
type Memory struct {
	mu      sync.Mutex
	now     func() time.Time
	data    map[string]*memoryBucket
	maxKeys int
}

func NewMemory(now func() time.Time, maxKeys int) *Memory {
	if now == nil {
		now = time.Now
	}
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	return &Memory{now: now, data: make(map[string]*memoryBucket), maxKeys: maxKeys}
}

func (m *Memory) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.data[key]
	if !ok || now.After(bucket.windowEnd) {
		delete(m.data, key)
		if len(m.data) >= m.maxKeys {
			m.gc(now)
		}
		if len(m.data) >= m.maxKeys {
			return Decision{}, ErrCapacityExceeded
		}
		bucket = &memoryBucket{windowEnd: now.Add(window)}
		m.data[key] = bucket
	}

	if bucket.count < limit {
		bucket.count++
		return Decision{Allowed: true, Limit: limit, Remaining: limit - bucket.count, ResetAt: bucket.windowEnd}, nil
	}
	return Decision{Allowed: false, Limit: limit, ResetAt: bucket.windowEnd}, nil
}

func (m *Memory) gc(now time.Time) {
	for key, bucket := range m.data {
		if now.After(bucket.windowEnd) {
			delete(m.data, key)
		}
	}
}

var redisAllowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// Redis shares counters between every instance using the same server.
type Redis struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedis(client redis.UniversalClient, prefix string, now func() time.Time) *Redis {
	if now == nil {
		now = time.Now
	}
	return &Redis{client: client, prefix: prefix, now: now}
}

func (r *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	windowMillis := window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = 1000
	}
	result, err := redisAllowScript.Run(ctx, r.client, []string{r.prefix + key}, windowMillis).Result()
	if err != nil {
		return Decision{}, err
	}
	values, ok := result.([]any)
	if !ok || len(values) < 2 {
		return Decision{}, errors.New("unexpected redis rate limit response")
	}
	current, ok := values[0].(int64)
	if !ok {
		return Decision{}, errors.New("invalid redis counter response")
	}
	ttlMillis, _ := values[1].(int64)
	resetAt := r.now()
	if ttlMillis > 0 {
		resetAt = resetAt.Add(time.Duration(ttlMillis) * time.Millisecond)
	}
	remaining := limit - int(current)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   current <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
