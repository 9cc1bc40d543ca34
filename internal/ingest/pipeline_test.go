package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"swapstats/internal/domain"
	"swapstats/internal/sources"
	"swapstats/internal/stores/ledger"
	"swapstats/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name string
	kind sources.Kind
	rows []domain.RawSwap
	err  error
}

func (f *fakeSource) Name() string       { return f.name }
func (f *fakeSource) Kind() sources.Kind { return f.kind }
func (f *fakeSource) Close() error       { return nil }

func (f *fakeSource) FetchSwaps(_ context.Context, r sources.Range, _ sources.Filter) ([]domain.RawSwap, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.RawSwap, 0, len(f.rows))
	for _, row := range f.rows {
		ts := row.FinishedAt
		if ts == 0 {
			ts = row.StartedAt
		}
		if ts >= r.From && ts <= r.To {
			out = append(out, row)
		}
	}
	return out, nil
}

type staticPrices domain.PriceTable

func (s staticPrices) Prices(context.Context) domain.PriceTable { return domain.PriceTable(s) }

type recorder struct {
	mu       sync.Mutex
	archived []domain.Swap
	events   []any
}

func (r *recorder) Archive(_ context.Context, rows []domain.Swap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archived = append(r.archived, rows...)
	return nil
}

func (r *recorder) Publish(_ context.Context, _ string, data interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
	return nil
}

func (r *recorder) Health(context.Context) error { return nil }

func testPrices() staticPrices {
	return staticPrices{
		"KMD": {USD: decimal.NewFromInt(1), MarketCap: decimal.NewFromInt(10_000_000)},
		"LTC": {USD: decimal.NewFromInt(100), MarketCap: decimal.NewFromInt(500_000_000)},
	}
}

func scenarioRaw() domain.RawSwap {
	return domain.RawSwap{
		UUID:        "U1",
		StartedAt:   1700000000,
		FinishedAt:  1700000200,
		MakerCoin:   "KMD",
		TakerCoin:   "LTC-segwit",
		MakerAmount: decimal.NewFromInt(100),
		TakerAmount: decimal.NewFromInt(1),
		MakerGUI:    domain.Unknown,
		TakerGUI:    domain.Unknown,
		IsSuccess:   domain.SwapSucceeded,
	}
}

func setupPipeline(t *testing.T, srcs ...sources.Source) (*Pipeline, *ledger.Store, *recorder) {
	t.Helper()

	ctx := context.Background()
	store, err := ledger.Open(ctx, testutil.Logger(), ledger.Config{
		Driver: ledger.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close() })

	rec := &recorder{}
	p, err := New(testutil.Logger(), Deps{
		Store:    store,
		Sources:  srcs,
		Prices:   testPrices(),
		Archiver: rec,
		Notifier: rec,
	})
	require.NoError(t, err)
	p.now = func() time.Time { return time.Unix(1700001000, 0) }

	return p, store, rec
}

var window = sources.Range{From: 1699900000, To: 1700100000}

// ========== Normalise ==========

func TestNormalise_SingleSuccessfulSwap(t *testing.T) {
	s, ok := Normalise(scenarioRaw(), sources.KindNode, domain.PriceTable(testPrices()))
	require.True(t, ok)

	assert.Equal(t, "KMD_LTC-segwit", s.Pair)
	assert.Equal(t, "LTC-segwit_KMD", s.PairReverse)
	assert.Equal(t, "KMD_LTC", s.PairStd)
	assert.Equal(t, "LTC_KMD", s.PairStdReverse)
	assert.Equal(t, int64(200), s.Duration)
	assert.Equal(t, "KMD", s.MakerCoinTicker)
	assert.Equal(t, "LTC", s.TakerCoinTicker)
	assert.Equal(t, "segwit", s.TakerCoinPlatform)

	// the taker paid the quote coin: a buy of KMD priced in LTC.
	// The published worked example for this swap lists sell at 100; that
	// contradicts the derivation rule (taker sent quote => buy, price =
	// quote/base), and the rule wins here.
	assert.Equal(t, domain.TradeBuy, s.TradeType)
	assert.True(t, s.Price.Equal(decimal.RequireFromString("0.01")))
	assert.True(t, s.ReversePrice.Equal(decimal.NewFromInt(100)))

	base, quote := s.BaseQuoteVolumes()
	assert.True(t, s.Price.Mul(base).Equal(quote))
}

func TestNormalise_SuccessDefaults(t *testing.T) {
	prices := domain.PriceTable(testPrices())
	raw := scenarioRaw()
	raw.IsSuccess = domain.SwapUnknown

	tests := []struct {
		kind sources.Kind
		want domain.SuccessState
	}{
		{sources.KindSuccess, domain.SwapSucceeded},
		{sources.KindFailed, domain.SwapFailed},
		{sources.KindNode, domain.SwapUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			s, ok := Normalise(raw, tt.kind, prices)
			require.True(t, ok)
			assert.Equal(t, tt.want, s.IsSuccess)
		})
	}

	t.Run("explicit_value_kept", func(t *testing.T) {
		r := scenarioRaw()
		r.IsSuccess = domain.SwapFailed
		s, _ := Normalise(r, sources.KindSuccess, prices)
		assert.Equal(t, domain.SwapFailed, s.IsSuccess)
	})
}

func TestNormalise_UpstreamFinishedAt(t *testing.T) {
	raw := scenarioRaw()
	raw.FinishedAt = 0

	s, _ := Normalise(raw, sources.KindSuccess, domain.PriceTable(testPrices()))
	assert.Equal(t, raw.StartedAt, s.FinishedAt)
	assert.Zero(t, s.Duration)

	s, _ = Normalise(raw, sources.KindNode, domain.PriceTable(testPrices()))
	assert.Zero(t, s.FinishedAt)
}

func TestNormalise_Rejects(t *testing.T) {
	prices := domain.PriceTable(testPrices())

	r := scenarioRaw()
	r.TakerAmount = decimal.Zero
	_, ok := Normalise(r, sources.KindNode, prices)
	assert.False(t, ok)

	r = scenarioRaw()
	r.UUID = ""
	_, ok = Normalise(r, sources.KindNode, prices)
	assert.False(t, ok)
}

// ========== Pipeline ==========

func TestIngest_InsertsAndNotifies(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{name: "node:a", kind: sources.KindNode, rows: []domain.RawSwap{scenarioRaw()}}
	p, store, rec := setupPipeline(t, src)

	res, err := p.Ingest(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	got, err := store.GetByUUID(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "KMD_LTC", got.PairStd)
	assert.Equal(t, int64(1700001000), got.LastUpdated)

	require.Len(t, rec.archived, 1)
	require.Len(t, rec.events, 1)
	assert.Equal(t, 1, rec.events[0].(Result).Inserted)
}

func TestIngest_Idempotent(t *testing.T) {
	ctx := context.Background()

	upstream := scenarioRaw()
	upstream.FinishedAt = 0
	upstream.IsSuccess = domain.SwapUnknown
	upstream.MakerGUI = "atomicDEX 0.5"

	p, store, rec := setupPipeline(t,
		&fakeSource{name: "node:a", kind: sources.KindNode, rows: []domain.RawSwap{scenarioRaw()}},
		&fakeSource{name: "upstream:swaps", kind: sources.KindSuccess, rows: []domain.RawSwap{upstream}},
	)

	_, err := p.Ingest(ctx, window)
	require.NoError(t, err)
	first, err := store.Query(ctx, ledger.Filter{Status: ledger.StatusAll})
	require.NoError(t, err)

	p.now = func() time.Time { return time.Unix(1700009999, 0) }
	res, err := p.Ingest(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 1, res.Unchanged)

	second, err := store.Query(ctx, ledger.Filter{Status: ledger.StatusAll})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.True(t, ledger.Same(first[0], second[0]))
	assert.Equal(t, "atomicDEX 0.5", second[0].MakerGUI)
	assert.Equal(t, int64(1700000200), second[0].FinishedAt)

	assert.Len(t, rec.archived, 1)
}

func TestIngest_MonotonicSuccess(t *testing.T) {
	ctx := context.Background()

	failed := scenarioRaw()
	failed.IsSuccess = domain.SwapUnknown
	src := &fakeSource{name: "upstream:swaps_failed", kind: sources.KindFailed, rows: []domain.RawSwap{failed}}
	p, store, _ := setupPipeline(t, src)

	_, err := p.Ingest(ctx, window)
	require.NoError(t, err)
	got, _ := store.GetByUUID(ctx, "U1")
	assert.Equal(t, domain.SwapFailed, got.IsSuccess)

	// a successful source upgrades the row
	p.deps.Sources = append(p.deps.Sources, &fakeSource{name: "upstream:swaps", kind: sources.KindSuccess, rows: []domain.RawSwap{failed}})
	_, err = p.Ingest(ctx, window)
	require.NoError(t, err)
	got, _ = store.GetByUUID(ctx, "U1")
	assert.Equal(t, domain.SwapSucceeded, got.IsSuccess)

	// and the failed source alone never downgrades it
	p.deps.Sources = p.deps.Sources[:1]
	_, err = p.Ingest(ctx, window)
	require.NoError(t, err)
	got, _ = store.GetByUUID(ctx, "U1")
	assert.Equal(t, domain.SwapSucceeded, got.IsSuccess)
}

func TestIngest_MergeAcrossSources(t *testing.T) {
	ctx := context.Background()

	a := scenarioRaw()
	a.UUID, a.StartedAt, a.FinishedAt, a.IsSuccess = "U2", 1000, 1100, domain.SwapFailed
	b := scenarioRaw()
	b.UUID, b.StartedAt, b.FinishedAt, b.IsSuccess = "U2", 999, 1101, domain.SwapSucceeded

	p, store, _ := setupPipeline(t,
		&fakeSource{name: "node:a", kind: sources.KindNode, rows: []domain.RawSwap{a}},
		&fakeSource{name: "node:b", kind: sources.KindNode, rows: []domain.RawSwap{b}},
	)

	_, err := p.Ingest(ctx, sources.Range{From: 0, To: 2000})
	require.NoError(t, err)

	got, err := store.GetByUUID(ctx, "U2")
	require.NoError(t, err)
	assert.Equal(t, domain.SwapSucceeded, got.IsSuccess)
	assert.Equal(t, int64(1000), got.StartedAt)
	assert.Equal(t, int64(1101), got.FinishedAt)
}

func TestIngest_FailingSourceSkipped(t *testing.T) {
	ctx := context.Background()
	p, store, _ := setupPipeline(t,
		&fakeSource{name: "upstream:swaps", kind: sources.KindSuccess, err: errors.New("connection refused")},
		&fakeSource{name: "node:a", kind: sources.KindNode, rows: []domain.RawSwap{scenarioRaw()}},
	)

	res, err := p.Ingest(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, []string{"upstream:swaps"}, res.FailedSources)

	n, err := store.Count(ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestIngest_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("all_sources_failed", func(t *testing.T) {
		p, _, _ := setupPipeline(t, &fakeSource{name: "x", err: errors.New("down")})
		_, err := p.Ingest(ctx, window)
		assert.ErrorIs(t, err, ErrSourcesFailed)
	})

	t.Run("no_prices", func(t *testing.T) {
		p, _, _ := setupPipeline(t)
		p.deps.Prices = staticPrices{}
		_, err := p.Ingest(ctx, window)
		assert.ErrorIs(t, err, ErrNoPrices)
	})

	t.Run("store_required", func(t *testing.T) {
		_, err := New(testutil.Logger(), Deps{Prices: testPrices()})
		assert.Error(t, err)
	})
}

func TestIngest_Recent(t *testing.T) {
	old := scenarioRaw()
	old.UUID, old.StartedAt, old.FinishedAt = "old", 1600000000, 1600000100

	p, store, _ := setupPipeline(t, &fakeSource{name: "node:a", rows: []domain.RawSwap{scenarioRaw(), old}})

	_, err := p.Recent(context.Background(), 24*time.Hour)
	require.NoError(t, err)

	ids, err := store.UUIDs(context.Background(), ledger.Filter{Status: ledger.StatusAll})
	require.NoError(t, err)
	assert.Equal(t, []string{"U1"}, ids)
}
