package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gutenberg-analysis-api/internal/application/analysis"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestHealthCheck(t *testing.T) {
	c, mr := newTestClient(t)
	require.NoError(t, c.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, c.HealthCheck(context.Background()))
}

func TestCacheLoadSave(t *testing.T) {
	c, mr := newTestClient(t)
	cache := NewCache(c)
	ctx := context.Background()

	var got analysis.Result
	found, err := cache.Load(ctx, "analysis:summary:84", &got)
	require.NoError(t, err)
	assert.False(t, found)

	want := analysis.Result{BookID: "84", Task: analysis.TaskSummary, Analysis: "a monster", WordCount: 2}
	require.NoError(t, cache.Save(ctx, "analysis:summary:84", &want, time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("analysis:summary:84"))

	found, err = cache.Load(ctx, "analysis:summary:84", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	require.NoError(t, cache.Delete(ctx, "analysis:summary:84"))
	_, err = cache.Get(ctx, "analysis:summary:84")
	assert.True(t, IsNil(err))
}

func TestCacheLoadCorruptValue(t *testing.T) {
	c, mr := newTestClient(t)
	require.NoError(t, mr.Set("k", "{not json"))

	var v map[string]any
	_, err := NewCache(c).Load(context.Background(), "k", &v)
	assert.Error(t, err)
}

func TestCacheGetOrLoadSafeCoalescesLoads(t *testing.T) {
	c, _ := newTestClient(t)
	cache := NewCache(c)
	ctx := context.Background()

	var loads atomic.Int32
	release := make(chan struct{})
	loader := func() (any, error) {
		loads.Add(1)
		<-release
		return "body", nil
	}

	var wg sync.WaitGroup
	results := make([][]byte, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := cache.GetOrLoadSafe(ctx, "book:1", time.Minute, loader)
			assert.NoError(t, err)
			results[i] = b
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, b := range results {
		assert.Equal(t, `"body"`, string(b))
	}

	// 命中缓存不再加载
	b, err := cache.GetOrLoadSafe(ctx, "book:1", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, `"body"`, string(b))
	assert.Equal(t, int32(1), loads.Load())
}

func TestCacheGetOrLoadSafeDoesNotCacheErrors(t *testing.T) {
	c, mr := newTestClient(t)
	cache := NewCache(c)

	_, err := cache.GetOrLoadSafe(context.Background(), "book:2", time.Minute, func() (any, error) {
		return nil, analysis.ErrBookNotFound
	})
	assert.ErrorIs(t, err, analysis.ErrBookNotFound)
	assert.False(t, mr.Exists("book:2"))
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	c, _ := newTestClient(t)
	l := NewRateLimiter(c)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()
	key := BuildRateLimitKey("10.0.0.1", "/api/v1/analysis")

	for i := 0; i < 3; i++ {
		ok, remaining, err := l.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
		assert.Equal(t, 2-i, remaining)
	}

	ok, remaining, err := l.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, remaining)

	now = now.Add(61 * time.Second)
	ok, remaining, err = l.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, remaining)
}

func TestRateLimiterConcurrentBurst(t *testing.T) {
	c, mr := newTestClient(t)
	l := NewRateLimiter(c)
	ctx := context.Background()
	key := BuildRateLimitKey("10.0.0.2", "/api/v1/analysis/:task")

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, err := l.Allow(ctx, key, 15, time.Minute)
			assert.NoError(t, err)
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(15), allowed.Load())
	members, err := mr.ZMembers(key)
	require.NoError(t, err)
	assert.Len(t, members, 15)
}

func TestRateLimiterRedisDown(t *testing.T) {
	c, mr := newTestClient(t)
	l := NewRateLimiter(c)
	mr.Close()

	ok, _, err := l.Allow(context.Background(), "ratelimit:k", 1, time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestJobStore(t *testing.T) {
	c, mr := newTestClient(t)
	store := NewJobStore(c, 24*time.Hour)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, analysis.ErrJobNotFound))

	job := &analysis.Job{
		ID:        "j1",
		BookID:    "1342",
		Task:      analysis.TaskSentiment,
		Status:    analysis.JobQueued,
		CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, job))
	assert.Equal(t, 24*time.Hour, mr.TTL(JobKey("j1")))

	got, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, job, got)
}
