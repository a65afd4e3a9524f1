package tenancy_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neomorfeo/serviq/internal/domain"
	"github.com/neomorfeo/serviq/internal/tenancy"
)

func TestPool_ConcurrentAcquireOpensOnce(t *testing.T) {
	opener := &countingOpener{delay: 20 * time.Millisecond}
	pool := tenancy.NewPool(opener.open)
	t.Cleanup(func() { pool.Close() })

	ref := t.TempDir() + "/t-1.db"
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, release, err := pool.Acquire(context.Background(), "t-1", ref)
			if assert.NoError(t, err) {
				release()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), opener.calls.Load())
	assert.Equal(t, 0, pool.Leases("t-1"))
}

func TestPool_CancelledCallerDoesNotFailSharedOpen(t *testing.T) {
	opener := &countingOpener{gate: make(chan struct{})}
	pool := tenancy.NewPool(opener.open)
	t.Cleanup(func() { pool.Close() })
	ref := t.TempDir() + "/t-1.db"

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, release, err := pool.Acquire(firstCtx, "t-1", ref)
		if err == nil {
			release()
		}
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return opener.calls.Load() == 1 }, time.Second, time.Millisecond)

	secondErr := make(chan error, 1)
	go func() {
		_, release, err := pool.Acquire(context.Background(), "t-1", ref)
		if err == nil {
			release()
		}
		secondErr <- err
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(opener.gate)
	require.NoError(t, <-secondErr)
	assert.Equal(t, int32(1), opener.calls.Load())
	assert.Equal(t, 0, pool.Leases("t-1"))

	_, release, err := pool.Acquire(context.Background(), "t-1", ref)
	require.NoError(t, err)
	release()
	assert.Equal(t, int32(1), opener.calls.Load())
}

func TestPool_ReleaseIsIdempotent(t *testing.T) {
	opener := &countingOpener{}
	pool := tenancy.NewPool(opener.open)
	t.Cleanup(func() { pool.Close() })

	ref := t.TempDir() + "/t-1.db"
	_, r1, err := pool.Acquire(context.Background(), "t-1", ref)
	require.NoError(t, err)
	_, r2, err := pool.Acquire(context.Background(), "t-1", ref)
	require.NoError(t, err)
	require.Equal(t, 2, pool.Leases("t-1"))

	r1()
	r1()
	assert.Equal(t, 1, pool.Leases("t-1"))
	r2()
	assert.Equal(t, 0, pool.Leases("t-1"))
}

func TestPool_RejectsRepointedStorage(t *testing.T) {
	opener := &countingOpener{}
	pool := tenancy.NewPool(opener.open)
	t.Cleanup(func() { pool.Close() })

	dir := t.TempDir()
	require.NoError(t, pool.Warm(context.Background(), "t-1", dir+"/a.db"))

	_, _, err := pool.Acquire(context.Background(), "t-1", dir+"/b.db")
	assert.ErrorIs(t, err, domain.ErrStorageRepointed)
}

func TestPool_OpenError(t *testing.T) {
	boom := errors.New("disk full")
	pool := tenancy.NewPool(func(context.Context, string) (*sql.DB, error) { return nil, boom })

	_, _, err := pool.Acquire(context.Background(), "t-1", "ref")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, pool.Leases("t-1"))
}

func TestPool_EvictWaitsForLeases(t *testing.T) {
	opener := &countingOpener{}
	pool := tenancy.NewPool(opener.open)
	t.Cleanup(func() { pool.Close() })

	ref := t.TempDir() + "/t-1.db"
	db, release, err := pool.Acquire(context.Background(), "t-1", ref)
	require.NoError(t, err)

	require.NoError(t, pool.Evict("t-1"))
	require.NoError(t, db.PingContext(context.Background()), "store must stay open while leased")

	_, _, err = pool.Acquire(context.Background(), "t-1", ref)
	assert.Error(t, err, "evicted tenant must not hand out new leases")

	release()
	assert.Error(t, db.PingContext(context.Background()), "store must close after the last lease")
}

func TestPool_ObserverCountsLeases(t *testing.T) {
	obs := &leaseCounter{}
	pool := tenancy.NewPool((&countingOpener{}).open, tenancy.WithPoolObserver(obs))
	t.Cleanup(func() { pool.Close() })

	_, release, err := pool.Acquire(context.Background(), "t-1", t.TempDir()+"/t-1.db")
	require.NoError(t, err)
	release()

	assert.Equal(t, 1, obs.acquired)
	assert.Equal(t, 1, obs.released)
}

type leaseCounter struct {
	mu                 sync.Mutex
	acquired, released int
}

func (c *leaseCounter) LeaseAcquired(string) { c.mu.Lock(); c.acquired++; c.mu.Unlock() }
func (c *leaseCounter) LeaseReleased(string) { c.mu.Lock(); c.released++; c.mu.Unlock() }
