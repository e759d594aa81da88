package genpool_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uryu/genpool"
)

func TestPool_End_Graceful(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("destroys idle resources immediately", func(t *testing.T) {
		t.Parallel()
		pool, _, disposed := newCountingPool(t, genpool.Config[int]{Max: 2})
		a, err := pool.Acquire(ctx)
		require.NoError(t, err)
		b, err := pool.Acquire(ctx)
		require.NoError(t, err)
		require.NoError(t, pool.Release(ctx, a))
		require.NoError(t, pool.Release(ctx, b))

		// When
		require.NoError(t, pool.End(ctx, false))

		// Then
		assert.Equal(t, int64(2), disposed.Load())
		assert.Equal(t, 0, pool.Size())
	})

	t.Run("waits for borrowed resources and destroys them on release", func(t *testing.T) {
		t.Parallel()
		pool, _, disposed := newCountingPool(t, genpool.Config[int]{Max: 2})
		res, err := pool.Acquire(ctx)
		require.NoError(t, err)

		endErr := make(chan error, 1)
		go func() {
			endErr <- pool.End(ctx, false)
		}()

		// Then: shutdown does not complete while the resource is out.
		select {
		case <-endErr:
			t.Fatal("graceful End should wait for the borrowed resource")
		case <-time.After(50 * time.Millisecond):
		}
		assert.Equal(t, int64(0), disposed.Load())

		// When: the holder releases; the release routes to destroy.
		require.NoError(t, pool.Release(ctx, res))

		select {
		case err := <-endErr:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("End should complete after the last release")
		}
		assert.Equal(t, int64(1), disposed.Load())
		assert.Equal(t, 0, pool.Size())
	})

	t.Run("still serves queued acquires while draining", func(t *testing.T) {
		t.Parallel()
		pool, created, disposed := newCountingPool(t, genpool.Config[int]{Max: 1})
		res, err := pool.Acquire(ctx)
		require.NoError(t, err)

		// Given: a waiter queued behind the only resource.
		got := make(chan *genpool.Resource[int], 1)
		go func() {
			r, err := pool.Acquire(ctx)
			if err == nil {
				got <- r
			}
		}()
		require.Eventually(t, func() bool {
			return pool.Waiting() == 1
		}, time.Second, time.Millisecond)

		endErr := make(chan error, 1)
		go func() {
			endErr <- pool.End(ctx, false)
		}()
		time.Sleep(20 * time.Millisecond)

		// When: the holder releases during the drain. The resource is
		// destroyed, freeing a slot, and the waiter gets a fresh one.
		require.NoError(t, pool.Release(ctx, res))

		var served *genpool.Resource[int]
		select {
		case served = <-got:
		case <-time.After(time.Second):
			t.Fatal("queued acquire should still be served during a graceful drain")
		}
		require.NoError(t, pool.Release(ctx, served))

		select {
		case err := <-endErr:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("End should complete once the queue unwinds")
		}
		assert.Equal(t, int64(2), created.Load())
		assert.Equal(t, int64(2), disposed.Load())
	})

	t.Run("rejects acquires while ending and after ended", func(t *testing.T) {
		t.Parallel()
		pool, _, _ := newCountingPool(t, genpool.Config[int]{Max: 2})
		res, err := pool.Acquire(ctx)
		require.NoError(t, err)
		idle, err := pool.Acquire(ctx)
		require.NoError(t, err)
		require.NoError(t, pool.Release(ctx, idle))

		endErr := make(chan error, 1)
		go func() {
			endErr <- pool.End(ctx, false)
		}()

		// The idle resource disappearing means shutdown has begun.
		require.Eventually(t, func() bool {
			return pool.Size() == 1
		}, time.Second, time.Millisecond)

		// While ending.
		_, err = pool.Acquire(ctx)
		require.ErrorIs(t, err, genpool.ErrPoolEnding)

		require.NoError(t, pool.Release(ctx, res))
		require.NoError(t, <-endErr)

		// After ended.
		_, err = pool.Acquire(ctx)
		require.ErrorIs(t, err, genpool.ErrPoolEnded)
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()
		pool, _, _ := newCountingPool(t, genpool.Config[int]{})
		require.NoError(t, pool.End(ctx, false))
		require.NoError(t, pool.End(ctx, false), "ending an ended pool should succeed")
		require.NoError(t, pool.Close())
	})
}

func TestPool_End_Force(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("destroys borrowed and idle resources without waiting", func(t *testing.T) {
		t.Parallel()
		pool, _, disposed := newCountingPool(t, genpool.Config[int]{Max: 2})
		a, err := pool.Acquire(ctx)
		require.NoError(t, err)
		b, err := pool.Acquire(ctx)
		require.NoError(t, err)
		require.NoError(t, pool.Release(ctx, b)) // one borrowed, one idle

		// When
		require.NoError(t, pool.End(ctx, true))

		// Then: everything is gone, release never happened for a.
		assert.Equal(t, int64(2), disposed.Load())
		assert.Equal(t, 0, pool.Size())

		err = pool.Release(ctx, a)
		require.ErrorIs(t, err, genpool.ErrNotAcquired, "a force-destroyed resource is no longer borrowed")
	})

	t.Run("fails queued acquires", func(t *testing.T) {
		t.Parallel()
		pool, _, _ := newCountingPool(t, genpool.Config[int]{Max: 1})
		res, err := pool.Acquire(ctx)
		require.NoError(t, err)
		_ = res

		acquireErr := make(chan error, 1)
		go func() {
			_, err := pool.Acquire(ctx)
			acquireErr <- err
		}()
		require.Eventually(t, func() bool {
			return pool.Waiting() == 1
		}, time.Second, time.Millisecond)

		// When
		require.NoError(t, pool.End(ctx, true))

		// Then
		select {
		case err := <-acquireErr:
			require.ErrorIs(t, err, genpool.ErrPoolEnding)
		case <-time.After(time.Second):
			t.Fatal("queued acquire should fail when the pool is force-ended")
		}
	})

	t.Run("reports the first disposal failure while completing shutdown", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("close failed")
		pool, err := genpool.New(genpool.Config[int]{
			Create:  func(ctx context.Context) (int, error) { return 1, nil },
			Dispose: func(ctx context.Context, value int) error { return boom },
			Max:     2,
		})
		require.NoError(t, err)

		a, err := pool.Acquire(ctx)
		require.NoError(t, err)
		require.NoError(t, pool.Release(ctx, a))

		// When
		err = pool.End(ctx, true)

		// Then
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 0, pool.Size(), "shutdown should complete despite disposal failures")

		_, err = pool.Acquire(ctx)
		require.ErrorIs(t, err, genpool.ErrPoolEnded)
	})

	t.Run("escalates a graceful shutdown in progress", func(t *testing.T) {
		t.Parallel()
		pool, _, disposed := newCountingPool(t, genpool.Config[int]{Max: 2})
		res, err := pool.Acquire(ctx)
		require.NoError(t, err)

		gracefulErr := make(chan error, 1)
		go func() {
			gracefulErr <- pool.End(ctx, false)
		}()

		// The graceful End is stuck on the borrowed resource.
		select {
		case <-gracefulErr:
			t.Fatal("graceful End should be waiting")
		case <-time.After(50 * time.Millisecond):
		}

		// When: a forced End takes over.
		require.NoError(t, pool.End(ctx, true))

		// Then: both calls complete and the resource is gone.
		select {
		case err := <-gracefulErr:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("the waiting graceful End should complete too")
		}
		assert.Equal(t, int64(1), disposed.Load())
		assert.Equal(t, 0, pool.Size())
		_ = res
	})

	t.Run("disposes a resource that finishes creating after the shutdown", func(t *testing.T) {
		t.Parallel()
		gate := make(chan struct{})
		disposed := make(chan struct{}, 1)
		pool, err := genpool.New(genpool.Config[int]{
			Create: func(ctx context.Context) (int, error) {
				<-gate
				return 7, nil
			},
			Dispose: func(ctx context.Context, value int) error {
				disposed <- struct{}{}
				return nil
			},
		})
		require.NoError(t, err)

		// Given: an acquire whose creation is in flight.
		acquireErr := make(chan error, 1)
		go func() {
			_, err := pool.Acquire(ctx)
			acquireErr <- err
		}()
		time.Sleep(20 * time.Millisecond)

		// When: force shutdown starts, then the creation completes.
		endErr := make(chan error, 1)
		go func() {
			endErr <- pool.End(ctx, true)
		}()
		time.Sleep(20 * time.Millisecond)
		close(gate)

		// Then: the late resource is disposed, never handed out, and End
		// waits for the whole unwind.
		select {
		case <-disposed:
		case <-time.After(time.Second):
			t.Fatal("the late resource should be disposed during shutdown")
		}
		require.ErrorIs(t, <-acquireErr, genpool.ErrPoolEnding)
		require.NoError(t, <-endErr)
		assert.Equal(t, 0, pool.Size())
	})

	t.Run("returns the context error but finishes in the background", func(t *testing.T) {
		t.Parallel()
		pool, _, _ := newCountingPool(t, genpool.Config[int]{})
		res, err := pool.Acquire(ctx)
		require.NoError(t, err)

		// When: End is called with an already-canceled context while a
		// resource is still borrowed.
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err = pool.End(cctx, false)
		require.ErrorIs(t, err, context.Canceled)

		// Then: shutdown is underway and completes once the holder lets go.
		require.NoError(t, pool.Release(ctx, res))
		require.NoError(t, pool.End(ctx, false))
		assert.Equal(t, 0, pool.Size())
	})
}
