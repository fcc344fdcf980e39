package netbox

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"inventory-sync/core/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCache(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	cache := newLookupCache(time.Minute, clk)

	var loads atomic.Int32
	load := func(context.Context) (int, error) {
		loads.Add(1)
		return 7, nil
	}

	id, err := cache.GetOrLoad(context.Background(), "k", load)
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	_, _ = cache.GetOrLoad(context.Background(), "k", load)
	assert.EqualValues(t, 1, loads.Load())

	clk.Advance(2 * time.Minute)
	_, _ = cache.GetOrLoad(context.Background(), "k", load)
	assert.EqualValues(t, 2, loads.Load())

	cache.Invalidate()
	_, _ = cache.GetOrLoad(context.Background(), "k", load)
	assert.EqualValues(t, 3, loads.Load())
}

func TestLookupCacheErrorsAreNotCached(t *testing.T) {
	cache := newLookupCache(time.Minute, nil)
	boom := errors.New("boom")

	_, err := cache.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	id, err := cache.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, id)
}

func TestLookupCacheConcurrentMisses(t *testing.T) {
	cache := newLookupCache(time.Minute, nil)
	release := make(chan struct{})

	var loads atomic.Int32
	load := func(context.Context) (int, error) {
		loads.Add(1)
		<-release
		return 1, nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := cache.GetOrLoad(context.Background(), "k", load)
			assert.NoError(t, err)
			assert.Equal(t, 1, id)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.EqualValues(t, 1, loads.Load())
}
