package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/khc-home/storefront/internal/lock"
)

func newLocker(t *testing.T) *lock.Locker {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &lock.Locker{Client: client, Retry: 5 * time.Millisecond}
}

func TestWithLockSerialisesSameOrder(t *testing.T) {
	locker := newLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var order []string
	var mu sync.Mutex
	firstHolding := make(chan struct{})
	releaseFirst := make(chan struct{})

	go func() {
		err := locker.WithLock(ctx, "commit:order-1", 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			close(firstHolding)
			<-releaseFirst
			return nil
		})
		require.NoError(t, err)
	}()

	<-firstHolding

	go func() {
		err := locker.WithLock(ctx, "commit:order-1", 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
	}()

	close(releaseFirst)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestWithLockReleasesAfterError(t *testing.T) {
	locker := newLocker(t)
	ctx := context.Background()

	boom := context.DeadlineExceeded
	err := locker.WithLock(ctx, "commit:order-2", time.Second, func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	// the failed holder released its lock, so the retry acquires immediately
	quick, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	ran := false
	require.NoError(t, locker.WithLock(quick, "commit:order-2", time.Second, func(context.Context) error {
		ran = true
		return nil
	}))
	require.True(t, ran)
}
