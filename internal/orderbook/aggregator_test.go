package orderbook

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"swapstats/internal/cache"
	"swapstats/internal/domain"
	"swapstats/internal/rpc"
	"swapstats/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeRPC struct {
	calls atomic.Int32
	gate  chan struct{} // when set, every call waits for it
	fail  bool
}

func (f *fakeRPC) Orderbook(ctx context.Context, base, rel string) (*rpc.Orderbook, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail {
		return nil, &rpc.Fault{Method: "orderbook", Type: "NoSuchCoin"}
	}

	ob := &rpc.Orderbook{Base: base, Rel: rel}
	switch rel {
	case "LTC":
		ob.Bids = []rpc.Entry{{Price: dec("0.009"), Volume: dec("100")}}
		ob.Asks = []rpc.Entry{{Price: dec("0.011"), Volume: dec("50")}}
	case "LTC-segwit":
		ob.Bids = []rpc.Entry{{Price: dec("0.0095"), Volume: dec("10")}}
		ob.Asks = []rpc.Entry{{Price: dec("0.012"), Volume: dec("5")}, {Price: dec("0.0105"), Volume: dec("20")}}
	}
	return ob, nil
}

type fakeRef struct{}

func (fakeRef) CoinConfigs(context.Context) domain.CoinConfigs {
	return domain.CoinConfigs{
		"KMD":        {Coin: "KMD"},
		"LTC":        {Coin: "LTC"},
		"LTC-segwit": {Coin: "LTC-segwit"},
		"DOGE":       {Coin: "DOGE", WalletOnly: true},
	}
}

func (fakeRef) Prices(context.Context) domain.PriceTable {
	return domain.PriceTable{
		"KMD": {USD: dec("1"), MarketCap: dec("10000000")},
		"LTC": {USD: dec("100"), MarketCap: dec("500000000")},
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setupAggregator(t *testing.T, r *fakeRPC) (*Aggregator, *clock) {
	t.Helper()

	clk := &clock{now: time.Unix(1700000000, 0)}
	mem := cache.NewMemory(0).WithClock(clk.Now)
	t.Cleanup(func() { _ = mem.Close() })

	plane, err := cache.New(testutil.Logger(), mem, cache.Options{})
	require.NoError(t, err)

	a, err := New(testutil.Logger(), plane, r, fakeRef{}, Options{
		TTL:          30 * time.Minute,
		WaitAttempts: 3,
		WaitInterval: time.Millisecond,
	})
	require.NoError(t, err)
	a.now = clk.Now

	return a, clk
}

// ========== Templates ==========

func TestGetOrderbook_Templates(t *testing.T) {
	ctx := context.Background()
	r := &fakeRPC{}
	a, _ := setupAggregator(t, r)

	for _, pair := range []string{"KMD_BTC-BEP20", "DOGE-BEP20_KMD-BEP20", "LTC-segwit_LTC-segwit"} {
		t.Run(pair, func(t *testing.T) {
			b, err := a.GetOrderbook(ctx, pair, 0)
			require.NoError(t, err)
			assert.Equal(t, pair, b.Pair)
			assert.Empty(t, b.Bids)
			assert.NotNil(t, b.Bids)
			assert.True(t, b.LiquidityInUSD.IsZero())
		})
	}
	assert.Zero(t, r.calls.Load())

	_, err := a.GetOrderbook(ctx, "KMD", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidPair)
}

func TestGetOrderbook_RPCFailureIsTemplate(t *testing.T) {
	a, _ := setupAggregator(t, &fakeRPC{fail: true})

	b, err := a.GetOrderbook(context.Background(), "KMD_LTC-segwit", 0)
	require.NoError(t, err)
	assert.Empty(t, b.Asks)
	assert.Equal(t, "KMD_LTC-segwit", b.Pair)
}

// ========== Single variant ==========

func TestGetOrderbook_Variant(t *testing.T) {
	a, _ := setupAggregator(t, &fakeRPC{})

	b, err := a.GetOrderbook(context.Background(), "KMD_LTC-segwit", 0)
	require.NoError(t, err)

	require.Len(t, b.Asks, 2)
	assert.True(t, b.Asks[0].Price.Equal(dec("0.0105")))
	assert.True(t, b.Asks[0].QuoteVolume.Equal(dec("0.21")))
	assert.True(t, b.TotalAsksBaseVol.Equal(dec("25")))
	assert.True(t, b.TotalBidsQuoteVol.Equal(dec("0.095")))
	assert.True(t, b.BaseLiquidityUSD.Equal(dec("25")))
	assert.True(t, b.QuoteLiquidityUSD.Equal(dec("9.5")))
	assert.True(t, b.LiquidityInUSD.Equal(dec("34.5")))
	assert.Equal(t, []string{"KMD_LTC-segwit"}, b.Variants)
}

func TestGetOrderbook_Reversal(t *testing.T) {
	ctx := context.Background()
	a, _ := setupAggregator(t, &fakeRPC{})

	fwd, err := a.GetOrderbook(ctx, "KMD_LTC-segwit", 0)
	require.NoError(t, err)
	rev, err := a.GetOrderbook(ctx, "LTC-segwit_KMD", 0)
	require.NoError(t, err)

	assert.Equal(t, "LTC-segwit_KMD", rev.Pair)
	assert.Equal(t, "LTC-segwit", rev.Base)
	require.Len(t, rev.Bids, len(fwd.Asks))
	require.Len(t, rev.Asks, len(fwd.Bids))
	assert.True(t, fwd.LiquidityInUSD.Equal(rev.LiquidityInUSD))

	eps := dec("0.0000000001")
	for i, ask := range fwd.Asks {
		assert.True(t, rev.Bids[i].Price.Mul(ask.Price).Sub(decimal.NewFromInt(1)).Abs().LessThan(eps))
		assert.True(t, rev.Bids[i].Volume.Equal(ask.QuoteVolume))
	}

	back := Reverse(rev)
	assert.Equal(t, fwd.Pair, back.Pair)
	assert.True(t, back.TotalAsksBaseVol.Equal(fwd.TotalAsksBaseVol))
}

// ========== Merged ==========

func TestGetOrderbook_MergedIsSumOfVariants(t *testing.T) {
	a, _ := setupAggregator(t, &fakeRPC{})

	b, err := a.GetOrderbook(context.Background(), "KMD_LTC", 0)
	require.NoError(t, err)

	// KMD_LTC: 50 + 90, KMD_LTC-segwit: 25 + 9.5
	assert.True(t, b.LiquidityInUSD.Equal(dec("174.5")), b.LiquidityInUSD.String())
	assert.Equal(t, []string{"KMD_LTC", "KMD_LTC-segwit"}, b.Variants)
	assert.Len(t, b.Bids, 2)
	assert.Len(t, b.Asks, 3)

	for i := 1; i < len(b.Bids); i++ {
		assert.True(t, b.Bids[i-1].Price.GreaterThanOrEqual(b.Bids[i].Price))
	}
	for i := 1; i < len(b.Asks); i++ {
		assert.True(t, b.Asks[i-1].Price.LessThanOrEqual(b.Asks[i].Price))
	}

	t.Run("depth", func(t *testing.T) {
		d, err := a.GetOrderbook(context.Background(), "KMD_LTC", 1)
		require.NoError(t, err)
		assert.Len(t, d.Asks, 1)
		assert.True(t, d.Asks[0].Price.Equal(dec("0.0105")))
		assert.True(t, d.LiquidityInUSD.Equal(dec("174.5")))
	})

	t.Run("reversed_std", func(t *testing.T) {
		r, err := a.GetOrderbook(context.Background(), "LTC_KMD", 0)
		require.NoError(t, err)
		assert.Equal(t, "LTC_KMD", r.Pair)
		assert.Len(t, r.Bids, 3)
		assert.True(t, r.LiquidityInUSD.Equal(dec("174.5")))
	})
}

// ========== Single flight and expiry ==========

func TestGetOrderbook_SingleFlightAndExpiry(t *testing.T) {
	ctx := context.Background()
	r := &fakeRPC{gate: make(chan struct{})}
	a, clk := setupAggregator(t, r)

	var wg sync.WaitGroup
	results := make([]domain.Book, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = a.GetOrderbook(ctx, "KMD_LTC-segwit", 0)
		}()
	}

	assert.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(r.gate)
	wg.Wait()

	assert.Equal(t, int32(1), r.calls.Load())
	for _, b := range results {
		assert.True(t, b.LiquidityInUSD.Equal(dec("34.5")))
	}

	// served from cache
	_, _ = a.GetOrderbook(ctx, "KMD_LTC-segwit", 0)
	assert.Equal(t, int32(1), r.calls.Load())

	clk.Advance(30 * time.Minute)
	_, _ = a.GetOrderbook(ctx, "KMD_LTC-segwit", 0)
	assert.Equal(t, int32(2), r.calls.Load())
}

func TestGetOrderbook_CancelledLeaderDoesNotFailFollowers(t *testing.T) {
	r := &fakeRPC{gate: make(chan struct{})}
	a, _ := setupAggregator(t, r)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var leader, follower domain.Book

	wg.Add(1)
	go func() {
		defer wg.Done()
		leader, _ = a.GetOrderbook(leaderCtx, "KMD_LTC-segwit", 0)
	}()
	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		follower, _ = a.GetOrderbook(context.Background(), "KMD_LTC-segwit", 0)
	}()
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	time.Sleep(20 * time.Millisecond)
	close(r.gate)
	wg.Wait()

	assert.Equal(t, int32(1), r.calls.Load())
	assert.True(t, follower.LiquidityInUSD.Equal(dec("34.5")))
	assert.True(t, leader.LiquidityInUSD.Equal(dec("34.5")))
}

func TestRefresh_BypassesCache(t *testing.T) {
	ctx := context.Background()
	r := &fakeRPC{}
	a, _ := setupAggregator(t, r)

	_, _ = a.GetOrderbook(ctx, "KMD_LTC-segwit", 0)
	_, err := a.Refresh(ctx, "KMD_LTC-segwit")
	require.NoError(t, err)
	assert.Equal(t, int32(2), r.calls.Load())

	require.NoError(t, a.RefreshMerged(ctx, "KMD_LTC"))
	assert.Equal(t, int32(4), r.calls.Load())
}

func TestNew_Requires(t *testing.T) {
	_, err := New(testutil.Logger(), nil, &fakeRPC{}, fakeRef{}, Options{})
	assert.EqualError(t, err, "cache plane, rpc client and refdata are required")
}
