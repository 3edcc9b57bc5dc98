package locking_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/infrastructure/locking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_TimeoutIsConcurrencyConflict(t *testing.T) {
	l := locking.NewLocal(50 * time.Millisecond)
	release, err := l.Acquire(context.Background(), []string{"r1@hub"})
	require.NoError(t, err)
	defer release()

	start := time.Now()
	_, err = l.Acquire(context.Background(), []string{"r1@hub"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConcurrencyConflict))
	assert.True(t, domain.IsRetryable(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLocal_ReleaseAllowsNextHolder(t *testing.T) {
	l := locking.NewLocal(time.Second)
	release, err := l.Acquire(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	release()
	release() // idempotente

	again, err := l.Acquire(context.Background(), []string{"b", "a", "a"})
	require.NoError(t, err)
	again()
}

func TestLocal_FailedAcquireReleasesPartialKeys(t *testing.T) {
	l := locking.NewLocal(30 * time.Millisecond)
	holdB, err := l.Acquire(context.Background(), []string{"b"})
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	holdB()

	// "a" no debe haber quedado tomada
	relA, err := l.Acquire(context.Background(), []string{"a"})
	require.NoError(t, err)
	relA()
}

func TestLocal_DisjointKeysRunInParallel(t *testing.T) {
	l := locking.NewLocal(time.Second)
	relA, err := l.Acquire(context.Background(), []string{"r1@project:a"})
	require.NoError(t, err)
	defer relA()

	relB, err := l.Acquire(context.Background(), []string{"r1@project:b"})
	require.NoError(t, err)
	relB()
}

func TestLocal_MutualExclusion(t *testing.T) {
	l := locking.NewLocal(5 * time.Second)
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rel, err := l.Acquire(context.Background(), []string{"x@hub", "y@hub"})
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			rel()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}
