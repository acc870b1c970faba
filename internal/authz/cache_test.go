package authz

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

func TestGetOrFillCollapsesConcurrentMisses(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	var fills atomic.Int32
	var startedOnce sync.Once
	started := make(chan struct{})
	release := make(chan struct{})
	fill := func() ([]string, error) {
		fills.Add(1)
		startedOnce.Do(func() { close(started) })
		<-release
		return []string{"users:me"}, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = cache.GetOrFill(ctx, "k", fill)
	}()
	<-started

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := cache.GetOrFill(ctx, "k", fill)
			assert.NoError(t, err)
			assert.Equal(t, []string{"users:me"}, out)
		}()
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), fills.Load(), "concurrent misses must share one fill")
}

func TestGetOrFillServesCachedEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	var fills int
	fill := func() ([]string, error) {
		fills++
		return []string{"reports:read"}, nil
	}

	first, err := cache.GetOrFill(ctx, "entry", fill)
	require.NoError(t, err)
	second, err := cache.GetOrFill(ctx, "entry", fill)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fills, "second call must be served from redis")
}
