package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igosint/pkg/config"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTokenBucket(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	tb := NewTokenBucket(5, 60)
	tb.now = clock.now
	tb.lastRefill = clock.now()

	for i := 0; i < 5; i++ {
		assert.True(t, tb.Allow(), "token %d", i+1)
	}
	assert.False(t, tb.Allow())

	// 60 per minute refills one token per second
	clock.advance(500 * time.Millisecond)
	assert.False(t, tb.Allow())
	clock.advance(600 * time.Millisecond)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	clock.advance(time.Hour)
	for i := 0; i < 5; i++ {
		assert.True(t, tb.Allow())
	}
	assert.False(t, tb.Allow(), "refill is capped at capacity")

	tb.Reset()
	assert.True(t, tb.Allow())
}

func TestTokenBucketWaitHonorsContext(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tb.Wait(ctx), context.DeadlineExceeded)
}

func TestTokenBucketWait(t *testing.T) {
	tb := NewTokenBucket(1, 6000) // one token every 10ms
	require.True(t, tb.Allow())

	start := time.Now()
	require.NoError(t, tb.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSlidingWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	sw := NewSlidingWindow(3, time.Second)
	sw.now = clock.now

	for i := 0; i < 3; i++ {
		assert.True(t, sw.Allow())
	}
	assert.False(t, sw.Allow())

	clock.advance(time.Second)
	assert.True(t, sw.Allow())

	sw.Reset()
	for i := 0; i < 3; i++ {
		assert.True(t, sw.Allow())
	}
}

func TestSlidingWindowWait(t *testing.T) {
	sw := NewSlidingWindow(1, 20*time.Millisecond)
	require.True(t, sw.Allow())

	require.NoError(t, sw.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sw.Wait(ctx), context.Canceled)
}

func TestRegistry(t *testing.T) {
	cfg := config.RateLimitConfig{
		RequestsPerMinute: 600,
		BurstSize:         10,
		Endpoints:         map[string]int{"media_likers": 2},
	}
	r := NewRegistry(cfg)

	assert.Same(t, r.For("user_info"), r.For("user_feed"))
	likers := r.For("media_likers")
	assert.NotSame(t, r.For("user_info"), likers)
	assert.Same(t, likers, r.For("media_likers"))

	assert.True(t, likers.Allow())
	assert.True(t, likers.Allow())
	assert.False(t, likers.Allow(), "override burst is capped at its rpm")

	r.Reset()
	assert.True(t, likers.Allow())
	require.NoError(t, r.Wait(context.Background(), "user_info"))
}
