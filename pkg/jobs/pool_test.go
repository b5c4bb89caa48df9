package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsEveryIndexWithinBound(t *testing.T) {
	pool := NewPool("test", PoolConfig{Workers: 3})

	results := make([]int, 20)
	var active, peak int32
	err := pool.Run(context.Background(), len(results), func(ctx context.Context, i int) error {
		n := atomic.AddInt32(&active, 1)
		for {
			cur := atomic.LoadInt32(&peak)
			if n <= cur || atomic.CompareAndSwapInt32(&peak, cur, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		results[i] = i * i
		atomic.AddInt32(&active, -1)
		return nil
	})
	require.NoError(t, err)

	for i, v := range results {
		assert.Equal(t, i*i, v)
	}
	assert.LessOrEqual(t, peak, int32(3))
	assert.Equal(t, 3, pool.Workers())
	assert.Equal(t, 1, NewPool("default", PoolConfig{}).Workers())
}

func TestPoolReturnsFirstError(t *testing.T) {
	pool := NewPool("test", PoolConfig{Workers: 2})
	boom := errors.New("boom")

	var ran int32
	err := pool.Run(context.Background(), 100, func(ctx context.Context, i int) error {
		atomic.AddInt32(&ran, 1)
		if i == 1 {
			return boom
		}
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Millisecond):
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Less(t, atomic.LoadInt32(&ran), int32(100))
}

func TestPoolHonoursParentCancellation(t *testing.T) {
	pool := NewPool("test", PoolConfig{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pool.Run(ctx, 5, func(ctx context.Context, i int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoolEmptyBatch(t *testing.T) {
	assert.NoError(t, NewPool("test", PoolConfig{}).Run(context.Background(), 0, nil))
}
