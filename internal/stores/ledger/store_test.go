package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"swapstats/internal/domain"
	"swapstats/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	s, err := Open(ctx, testutil.Logger(), Config{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(ctx))
	return s
}

func testSwap(uuid string, finished int64) domain.Swap {
	return domain.Swap{
		UUID:              uuid,
		StartedAt:         finished - 100,
		FinishedAt:        finished,
		Duration:          100,
		MakerCoin:         "KMD",
		TakerCoin:         "LTC-segwit",
		MakerCoinTicker:   "KMD",
		TakerCoinTicker:   "LTC",
		TakerCoinPlatform: "segwit",
		MakerAmount:       decimal.NewFromInt(100),
		TakerAmount:       decimal.NewFromInt(1),
		MakerCoinUSDPrice: decimal.NewFromInt(1),
		TakerCoinUSDPrice: decimal.NewFromInt(100),
		MakerPubkey:       "mpk",
		TakerPubkey:       "tpk",
		MakerGUI:          "gui-a",
		TakerGUI:          domain.Unknown,
		MakerVersion:      "2.0",
		TakerVersion:      "2.1",
		IsSuccess:         domain.SwapSucceeded,
		Pair:              "KMD_LTC-segwit",
		PairReverse:       "LTC-segwit_KMD",
		PairStd:           "KMD_LTC",
		PairStdReverse:    "LTC_KMD",
		TradeType:         domain.TradeBuy,
		Price:             decimal.RequireFromString("0.01"),
		ReversePrice:      decimal.NewFromInt(100),
		LastUpdated:       1,
	}
}

func insert(t *testing.T, s *Store, rows ...domain.Swap) {
	t.Helper()
	for _, r := range rows {
		_, err := s.UpsertByUUID(context.Background(), r)
		require.NoError(t, err)
	}
}

// ========== Open ==========

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, testutil.Logger(), Config{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)

	_, err = Open(ctx, testutil.Logger(), Config{Driver: DriverSQLite})
	assert.EqualError(t, err, "ledger dsn is required")
}

func TestSchema_DecimalType(t *testing.T) {
	assert.Contains(t, schema(DriverSQLite), "maker_amount TEXT")
	assert.Contains(t, schema(DriverPostgres), "maker_amount NUMERIC")
}

// ========== Upsert ==========

func TestUpsert_InsertAndRead(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	row := testSwap("u1", 1700000200)
	row.MakerAmount = decimal.RequireFromString("100.000000000000000000000001")
	insert(t, s, row)

	got, err := s.GetByUUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "100.000000000000000000000001", got.MakerAmount.String())
	assert.Equal(t, domain.SwapSucceeded, got.IsSuccess)
	assert.Equal(t, domain.TradeBuy, got.TradeType)
	assert.Equal(t, "KMD_LTC", got.PairStd)

	_, err = s.GetByUUID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUUIDNotFound)
}

func TestUpsert_MergeConflictResolution(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	a := testSwap("u2", 1100)
	a.StartedAt, a.FinishedAt = 1000, 1100
	a.IsSuccess = domain.SwapFailed
	insert(t, s, a)

	b := testSwap("u2", 1101)
	b.StartedAt, b.FinishedAt = 999, 1101
	b.IsSuccess = domain.SwapSucceeded
	insert(t, s, b)

	got, err := s.GetByUUID(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, domain.SwapSucceeded, got.IsSuccess)
	assert.Equal(t, int64(1000), got.StartedAt)
	assert.Equal(t, int64(1101), got.FinishedAt)
	assert.Equal(t, int64(101), got.Duration)
}

func TestUpsert_SuccessNeverDecreases(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	insert(t, s, testSwap("u3", 1700000000))

	for _, st := range []domain.SuccessState{domain.SwapFailed, domain.SwapUnknown} {
		r := testSwap("u3", 1700000000)
		r.IsSuccess = st
		insert(t, s, r)
	}

	got, err := s.GetByUUID(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, domain.SwapSucceeded, got.IsSuccess)
}

func TestUpsert_NoChangeKeepsRow(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	row := testSwap("u4", 1700000000)
	insert(t, s, row)
	before, err := s.GetByUUID(ctx, "u4")
	require.NoError(t, err)

	row.LastUpdated = 999999999999
	insert(t, s, row)
	after, err := s.GetByUUID(ctx, "u4")
	require.NoError(t, err)

	assert.True(t, Same(before, after))
	assert.Equal(t, before.LastUpdated, after.LastUpdated)
}

func TestUpsert_ConflictsReported(t *testing.T) {
	s := setupTestStore(t)
	insert(t, s, testSwap("u5", 1700000000))

	r := testSwap("u5", 1700000000)
	r.MakerGUI = "gui-z"
	r.TakerGUI = "gui-t"

	conflicts, err := s.UpsertByUUID(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, Conflict{UUID: "u5", Field: "maker_gui", Existing: "gui-a", Incoming: "gui-z"}, conflicts[0])

	got, _ := s.GetByUUID(context.Background(), "u5")
	assert.Equal(t, "gui-a", got.MakerGUI)
	assert.Equal(t, "gui-t", got.TakerGUI)
}

func TestWithTx_RollbackHidesRows(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	err := s.WithTx(ctx, func(tx *Tx) error {
		require.NoError(t, tx.Insert(ctx, testSwap("u6", 1700000000)))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	n, err := s.Count(ctx, Filter{Status: StatusAll})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTx_GetByUUIDs(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	insert(t, s, testSwap("a", 1), testSwap("b", 2))

	err := s.WithTx(ctx, func(tx *Tx) error {
		got, err := tx.GetByUUIDs(ctx, []string{"a", "b", "c"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Contains(t, got, "b")
		return nil
	})
	require.NoError(t, err)
}

// ========== Queries ==========

func seedQueries(t *testing.T, s *Store) {
	t.Helper()

	ok1 := testSwap("q1", 1000)
	ok2 := testSwap("q2", 2000)
	ok2.MakerCoin, ok2.MakerCoinTicker, ok2.MakerCoinPlatform = "KMD-BEP20", "KMD", "BEP20"
	ok2.Pair, ok2.PairReverse = "KMD-BEP20_LTC-segwit", "LTC-segwit_KMD-BEP20"
	ok2.MakerGUI = "gui-b"
	failed := testSwap("q3", 3000)
	failed.IsSuccess = domain.SwapFailed
	failed.MakerPubkey = "other"
	other := testSwap("q4", 4000)
	other.MakerCoin, other.MakerCoinTicker = "DOGE", "DOGE"
	other.Pair, other.PairReverse, other.PairStd, other.PairStdReverse = "DOGE_LTC-segwit", "LTC-segwit_DOGE", "DOGE_LTC", "LTC_DOGE"

	insert(t, s, ok1, ok2, failed, other)
}

func TestQuery_Filters(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	seedQueries(t, s)

	uuids := func(f Filter) []string {
		rows, err := s.Query(ctx, f)
		require.NoError(t, err)
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.UUID)
		}
		return out
	}

	t.Run("default_success_only", func(t *testing.T) {
		assert.Equal(t, []string{"q1", "q2", "q4"}, uuids(Filter{}))
	})
	t.Run("failed_only", func(t *testing.T) {
		assert.Equal(t, []string{"q3"}, uuids(Filter{Status: StatusFailed}))
	})
	t.Run("time_range", func(t *testing.T) {
		assert.Equal(t, []string{"q2", "q3"}, uuids(Filter{From: 1500, To: 3000, Status: StatusAll}))
	})
	t.Run("pair_any_column", func(t *testing.T) {
		assert.Equal(t, []string{"q1", "q2"}, uuids(Filter{Pair: "LTC_KMD"}))
		assert.Equal(t, []string{"q2"}, uuids(Filter{Pair: "LTC-segwit_KMD-BEP20"}))
	})
	t.Run("coin_variant_or_ticker", func(t *testing.T) {
		assert.Equal(t, []string{"q2"}, uuids(Filter{Coin: "KMD-BEP20"}))
		assert.Equal(t, []string{"q1", "q2"}, uuids(Filter{Coin: "KMD"}))
	})
	t.Run("pubkey_and_gui", func(t *testing.T) {
		assert.Equal(t, []string{"q3"}, uuids(Filter{Pubkey: "other", Status: StatusAll}))
		assert.Equal(t, []string{"q2"}, uuids(Filter{GUI: "gui-b"}))
	})
	t.Run("desc_limit", func(t *testing.T) {
		assert.Equal(t, []string{"q4", "q2"}, uuids(Filter{Desc: true, Limit: 2}))
	})
}

func TestQuery_TradeTypeBeforeLimit(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	buy := testSwap("buy-old", 1000)
	sell := testSwap("sell-new", 2000)
	sell.TradeType = domain.TradeSell
	insert(t, s, buy, sell)

	first := func(f Filter) []string {
		f.Desc, f.Limit = true, 1
		rows, err := s.Query(ctx, f)
		require.NoError(t, err)
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.UUID)
		}
		return out
	}

	t.Run("stored_orientation", func(t *testing.T) {
		assert.Equal(t, []string{"buy-old"}, first(Filter{Pair: "KMD_LTC", TradeType: "buy"}))
		assert.Equal(t, []string{"sell-new"}, first(Filter{Pair: "KMD_LTC-segwit", TradeType: "sell"}))
	})
	t.Run("reverse_orientation_flips_side", func(t *testing.T) {
		assert.Equal(t, []string{"sell-new"}, first(Filter{Pair: "LTC_KMD", TradeType: "buy"}))
		assert.Equal(t, []string{"buy-old"}, first(Filter{Pair: "LTC-segwit_KMD", TradeType: "sell"}))
	})
	t.Run("ignored_without_pair", func(t *testing.T) {
		assert.Equal(t, []string{"sell-new"}, first(Filter{TradeType: "buy"}))
	})
}

func TestCountFirstLast(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	seedQueries(t, s)

	n, err := s.Count(ctx, Filter{Pair: "KMD_LTC", Status: StatusAll})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	first, ok, err := s.First(ctx, Filter{Pair: "KMD_LTC"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "q1", first.UUID)

	last, ok, err := s.Last(ctx, Filter{Pair: "KMD_LTC"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "q2", last.UUID)

	_, ok, err = s.Last(ctx, Filter{Pair: "BTC_KMD"})
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := s.UUIDs(ctx, Filter{Coin: "DOGE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"q4"}, ids)
}

func TestDistinct(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	seedQueries(t, s)

	guis, err := s.Distinct(ctx, "gui", Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"gui-a", "gui-b", domain.Unknown}, guis)

	pairs, err := s.Distinct(ctx, "pair_std", Filter{Status: StatusAll})
	require.NoError(t, err)
	assert.Equal(t, []string{"DOGE_LTC", "KMD_LTC"}, pairs)

	_, err = s.Distinct(ctx, "uuid; DROP TABLE swaps", Filter{})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

// ========== Merge ==========

func TestMerge_StringSpecificity(t *testing.T) {
	cur := testSwap("m", 10)
	cur.TakerGUI = domain.Unknown
	cur.MakerVersion = ""

	in := testSwap("m", 10)
	in.TakerGUI = "gui-x"
	in.MakerVersion = domain.Unknown
	in.MakerPubkey = ""

	out, conflicts := Merge(cur, in)
	assert.Empty(t, conflicts)
	assert.Equal(t, "gui-x", out.TakerGUI)
	assert.Equal(t, "", out.MakerVersion)
	assert.Equal(t, "mpk", out.MakerPubkey)
}

func TestMerge_PairIsFirstWriterWins(t *testing.T) {
	cur := testSwap("m", 10)
	in := testSwap("m", 10)
	in.Pair, in.TradeType = "LTC-segwit_KMD", domain.TradeSell

	out, _ := Merge(cur, in)
	assert.Equal(t, "KMD_LTC-segwit", out.Pair)
	assert.Equal(t, domain.TradeBuy, out.TradeType)
}

func TestMerge_PriceFollowsAmounts(t *testing.T) {
	cur := testSwap("m", 10)
	in := testSwap("m", 10)
	in.MakerAmount = decimal.NewFromInt(200)
	in.TakerAmount = decimal.NewFromInt(4)

	out, _ := Merge(cur, in)
	assert.True(t, out.MakerAmount.Equal(decimal.NewFromInt(200)))
	assert.True(t, out.TakerAmount.Equal(decimal.NewFromInt(4)))

	// buy: price is taker per maker
	assert.True(t, out.Price.Equal(decimal.RequireFromString("0.02")))
	assert.True(t, out.ReversePrice.Equal(decimal.NewFromInt(50)))
}

func TestMerge_CoinMismatchIsConflict(t *testing.T) {
	cur := testSwap("m", 10)
	in := testSwap("m", 10)
	in.MakerCoin = "KMD-BEP20"

	out, conflicts := Merge(cur, in)
	assert.Equal(t, "KMD", out.MakerCoin)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "maker_coin", conflicts[0].Field)
}
