package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertExclusive(t *testing.T, lockers []Locker) {
	t.Helper()
	var active, maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(l Locker) {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "rIssuer")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			unlock()
		}(lockers[i%len(lockers)])
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxActive)
}

func TestLocal_Exclusive(t *testing.T) {
	assertExclusive(t, []Locker{NewLocal()})
}

func TestLocal_ContextCancelled(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocal_IndependentKeys(t *testing.T) {
	l := NewLocal()
	unlockA, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestLocal_UnlockIsIdempotent(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
	unlock()

	unlock, err = l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
}

func TestRedis_ExclusiveAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	newClient := func() redis.UniversalClient {
		c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = c.Close() })
		return c
	}

	a := NewRedis(newClient(), "issuer:lock:", 5*time.Second)
	b := NewRedis(newClient(), "issuer:lock:", 5*time.Second)
	assertExclusive(t, []Locker{a, b})
}

func TestRedis_ReleasesKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedis(client, "issuer:lock:", 5*time.Second)
	unlock, err := l.Lock(context.Background(), "rIssuer")
	require.NoError(t, err)
	assert.True(t, mr.Exists("issuer:lock:rIssuer"))

	unlock()
	assert.False(t, mr.Exists("issuer:lock:rIssuer"))
}
