package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"swapstats/internal/stores/redis"
	"swapstats/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestPlane(t *testing.T, testingMode bool) (*Plane, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	mem := NewMemory(0).WithClock(clock.Now)
	t.Cleanup(func() { _ = mem.Close() })

	p, err := New(testutil.Logger(), mem, Options{Testing: testingMode})
	require.NoError(t, err)
	return p, clock
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := &redis.Client{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

// ========== Memory backend ==========

func TestMemory_GetSetExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(0, 0)}
	m := NewMemory(0).WithClock(clock.Now)
	defer m.Close()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))

	b, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), b)

	clock.Advance(time.Minute)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_NoTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(0, 0)}
	m := NewMemory(0).WithClock(clock.Now)
	defer m.Close()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	clock.Advance(24 * 365 * time.Hour)

	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)
}

func TestMemory_SetNX(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(0, 0)}
	m := NewMemory(0).WithClock(clock.Now)
	defer m.Close()

	ok, err := m.SetNX(ctx, "lock", []byte("1"), time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = m.SetNX(ctx, "lock", []byte("1"), time.Second)
	assert.False(t, ok)

	clock.Advance(time.Second)
	ok, _ = m.SetNX(ctx, "lock", []byte("1"), time.Second)
	assert.True(t, ok)
}

func TestMemory_StoredValueIsCopied(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	defer m.Close()

	val := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", val, 0))
	val[0] = 'x'

	b, _, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), b)
}

func TestMemory_JanitorEvicts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10 * time.Millisecond)
	defer m.Close()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 5*time.Millisecond))

	assert.Eventually(t, func() bool {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return len(m.items) == 0
	}, time.Second, 10*time.Millisecond)
}

// ========== Plane ==========

func TestPlane_TestingSuffix(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPlane(t, true)

	assert.Equal(t, "tickers-testing", p.Key(KeyTickers))
	require.NoError(t, p.Set(ctx, KeyTickers, []byte("[]"), 0))

	_, ok, _ := p.backend.Get(ctx, "tickers")
	assert.False(t, ok)
	_, ok, _ = p.backend.Get(ctx, "tickers-testing")
	assert.True(t, ok)

	b, ok := p.Get(ctx, KeyTickers)
	assert.True(t, ok)
	assert.Equal(t, []byte("[]"), b)
}

func TestPlane_Locks(t *testing.T) {
	ctx := context.Background()
	p, clock := newTestPlane(t, false)

	t.Run("exclusive_until_release", func(t *testing.T) {
		token, ok := p.AcquireLock(ctx, "a", time.Minute)
		require.True(t, ok)
		assert.NotEmpty(t, token)
		_, ok = p.AcquireLock(ctx, "a", time.Minute)
		assert.False(t, ok)

		p.ReleaseLock("a", token)
		token, ok = p.AcquireLock(ctx, "a", time.Minute)
		assert.True(t, ok)
		p.ReleaseLock("a", token)
	})

	t.Run("lock_self_releases_after_ttl", func(t *testing.T) {
		_, ok := p.AcquireLock(ctx, "b", time.Minute)
		require.True(t, ok)
		clock.Advance(time.Minute)
		_, ok = p.AcquireLock(ctx, "b", time.Minute)
		assert.True(t, ok)
	})

	t.Run("stale_holder_keeps_new_lock", func(t *testing.T) {
		first, ok := p.AcquireLock(ctx, "d", time.Minute)
		require.True(t, ok)
		clock.Advance(time.Minute)

		second, ok := p.AcquireLock(ctx, "d", time.Minute)
		require.True(t, ok)
		assert.NotEqual(t, first, second)

		// the first holder outlived its ttl; its release must not free the second
		p.ReleaseLock("d", first)
		_, ok = p.AcquireLock(ctx, "d", time.Minute)
		assert.False(t, ok)

		p.ReleaseLock("d", second)
		_, ok = p.AcquireLock(ctx, "d", time.Minute)
		assert.True(t, ok)
	})

	t.Run("lock_does_not_shadow_value", func(t *testing.T) {
		_, ok := p.AcquireLock(ctx, "c", time.Minute)
		require.True(t, ok)
		_, ok = p.Get(ctx, "c")
		assert.False(t, ok)
	})
}

func TestPlane_WaitForValue(t *testing.T) {
	ctx := context.Background()
	p, err := New(testutil.Logger(), NewMemory(0), Options{})
	require.NoError(t, err)

	t.Run("writer_publishes", func(t *testing.T) {
		go func() {
			time.Sleep(20 * time.Millisecond)
			_ = p.Set(ctx, "w", []byte("done"), 0)
		}()

		b, ok := p.WaitForValue(ctx, "w", 50, 5*time.Millisecond)
		assert.True(t, ok)
		assert.Equal(t, []byte("done"), b)
	})

	t.Run("gives_up", func(t *testing.T) {
		_, ok := p.WaitForValue(ctx, "never", 3, time.Millisecond)
		assert.False(t, ok)
	})

	t.Run("context_cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, ok := p.WaitForValue(cctx, "never", 100, time.Second)
		assert.False(t, ok)
	})
}

func TestPlane_JSON(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPlane(t, false)

	type artifact struct {
		Swaps int    `json:"swaps"`
		Pair  string `json:"pair"`
	}

	require.NoError(t, SetJSON(ctx, p, "a", artifact{Swaps: 3, Pair: "KMD_LTC"}, 0))

	got, ok := GetJSON[artifact](ctx, p, "a")
	require.True(t, ok)
	assert.Equal(t, artifact{Swaps: 3, Pair: "KMD_LTC"}, got)

	require.NoError(t, p.Set(ctx, "broken", []byte("{"), 0))
	_, ok = GetJSON[artifact](ctx, p, "broken")
	assert.False(t, ok)

	_, ok = GetJSON[artifact](ctx, p, "missing")
	assert.False(t, ok)
}

func TestNew_NilBackend(t *testing.T) {
	p, err := New(testutil.Logger(), nil, Options{})
	assert.Nil(t, p)
	assert.EqualError(t, err, "cache backend is required")
}

// ========== Redis backend ==========

func TestRedis_Backend(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)

	p, err := New(testutil.Logger(), NewRedis(client), Options{Testing: true})
	require.NoError(t, err)

	require.NoError(t, p.Set(ctx, KeyPrices, []byte(`{"KMD":{}}`), time.Minute))
	assert.True(t, mr.Exists("prices-testing"))

	b, ok := p.Get(ctx, KeyPrices)
	assert.True(t, ok)
	assert.Equal(t, `{"KMD":{}}`, string(b))

	mr.FastForward(time.Minute)
	_, ok = p.Get(ctx, KeyPrices)
	assert.False(t, ok)

	token, ok := p.AcquireLock(ctx, "orderbook_KMD_LTC", time.Second)
	require.True(t, ok)
	_, ok = p.AcquireLock(ctx, "orderbook_KMD_LTC", time.Second)
	assert.False(t, ok)
	p.ReleaseLock("orderbook_KMD_LTC", token)
	stale, ok := p.AcquireLock(ctx, "orderbook_KMD_LTC", time.Second)
	require.True(t, ok)

	t.Run("release_compares_token", func(t *testing.T) {
		mr.FastForward(2 * time.Second)
		fresh, ok := p.AcquireLock(ctx, "orderbook_KMD_LTC", 10*time.Second)
		require.True(t, ok)

		p.ReleaseLock("orderbook_KMD_LTC", stale)
		_, ok = p.AcquireLock(ctx, "orderbook_KMD_LTC", time.Second)
		assert.False(t, ok)

		p.ReleaseLock("orderbook_KMD_LTC", fresh)
		_, ok = p.AcquireLock(ctx, "orderbook_KMD_LTC", time.Second)
		assert.True(t, ok)
	})

	assert.NoError(t, p.Ping(ctx))
}

func TestRedis_ErrorsReadAsMiss(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)

	p, err := New(testutil.Logger(), NewRedis(client), Options{})
	require.NoError(t, err)

	mr.Close()
	_, ok := p.Get(ctx, "k")
	assert.False(t, ok)
	_, ok = p.AcquireLock(ctx, "k", time.Second)
	assert.False(t, ok)
}

// ========== Concurrency ==========

func TestPlane_AcquireLock_SingleWinner(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPlane(t, false)

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := p.AcquireLock(ctx, "race", time.Minute); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners)
}
