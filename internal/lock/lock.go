// Package lock serializes work that must not run concurrently for the same
// key, inside one process or across processes sharing a Redis.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker acquires an exclusive lock on key. The returned function releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Local is an in-process Locker. Waiting honours context cancellation.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for lock %s: %w", key, ctx.Err())
	}
	var once sync.Once
	return func() { once.Do(func() { <-ch }) }, nil
}

// Redis takes the in-process lock first and then a redsync mutex, so one
// instance never queues more than one waiter on Redis per key.
type Redis struct {
	local      *Local
	rs         *redsync.Redsync
	prefix     string
	expiry     time.Duration
	retryDelay time.Duration
	tries      int
}

const defaultRetryDelay = 250 * time.Millisecond

// NewRedis builds a distributed Locker. ttl bounds how long a crashed holder
// can block others; it also bounds how long Lock waits.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	tries := int(ttl / defaultRetryDelay)
	if tries < 1 {
		tries = 1
	}
	return &Redis{
		local:      NewLocal(),
		rs:         redsync.New(goredis.NewPool(client)),
		prefix:     prefix,
		expiry:     ttl,
		retryDelay: defaultRetryDelay,
		tries:      tries,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	releaseLocal, err := r.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}

	mutex := r.rs.NewMutex(r.prefix+key,
		redsync.WithExpiry(r.expiry),
		redsync.WithTries(r.tries),
		redsync.WithRetryDelay(r.retryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		releaseLocal()
		return nil, fmt.Errorf("unable to acquire distributed lock %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// a fresh context: the caller's may already be cancelled
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if ok, err := mutex.UnlockContext(unlockCtx); !ok || err != nil {
				zap.L().Warn("Failed to release distributed lock",
					zap.String("key", key),
					zap.Bool("released", ok),
					zap.Error(err))
			}
			releaseLocal()
		})
	}, nil
}
