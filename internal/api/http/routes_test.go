package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"swapstats/internal/api/http/handlers"
	"swapstats/internal/api/http/mw"
	"swapstats/internal/cache"
	"swapstats/internal/config"
	"swapstats/internal/domain"
	"swapstats/internal/ingest"
	"swapstats/internal/service"
	"swapstats/internal/sources"
	"swapstats/internal/stats"
	"swapstats/internal/stores/ledger"
	"swapstats/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const swapID = "0b2c8f3e-7d1a-4c55-9a39-1f2e3d4c5b6a"

var prices = domain.PriceTable{
	"KMD": {USD: decimal.NewFromInt(1), MarketCap: decimal.NewFromInt(10_000_000)},
	"LTC": {USD: decimal.NewFromInt(100), MarketCap: decimal.NewFromInt(500_000_000)},
}

type ref struct{}

func (ref) CoinConfigs(context.Context) domain.CoinConfigs {
	return domain.CoinConfigs{"KMD": {Coin: "KMD"}, "LTC": {Coin: "LTC"}}
}
func (ref) Prices(context.Context) domain.PriceTable { return prices }
func (ref) FiatRates(context.Context) map[string]decimal.Decimal {
	return map[string]decimal.Decimal{"EUR": decimal.RequireFromString("0.9")}
}

type books struct{}

func (books) GetOrderbook(_ context.Context, pair string, _ int) (domain.Book, error) {
	base, quote, err := domain.BaseQuote(pair)
	if err != nil {
		return domain.Book{}, err
	}
	return domain.Book{Pair: pair, Base: base, Quote: quote}, nil
}

type engine struct{}

func (engine) TickerInfo(_ context.Context, pair string, _ stats.Window) (stats.Ticker, error) {
	return stats.Ticker{TickerID: pair, Pair: pair}, nil
}

func setupRouter(t *testing.T, auth *mw.BasicAuthMiddleware) http.Handler {
	t.Helper()
	ctx := context.Background()

	store, err := ledger.Open(ctx, testutil.Logger(), ledger.Config{
		Driver: ledger.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	finished := time.Now().Add(-time.Hour).Unix()
	row, ok := ingest.Normalise(domain.RawSwap{
		UUID:        swapID,
		StartedAt:   finished - 60,
		FinishedAt:  finished,
		MakerCoin:   "KMD",
		TakerCoin:   "LTC",
		MakerAmount: decimal.NewFromInt(100),
		TakerAmount: decimal.NewFromInt(1),
		IsSuccess:   domain.SwapSucceeded,
	}, sources.KindNode, prices)
	require.True(t, ok)
	_, err = store.UpsertByUUID(ctx, row)
	require.NoError(t, err)

	mem := cache.NewMemory(0)
	t.Cleanup(func() { _ = mem.Close() })
	plane, err := cache.New(testutil.Logger(), mem, cache.Options{})
	require.NoError(t, err)

	svc := service.NewMarketService(testutil.Logger(), plane, store, books{}, ref{}, engine{}, nil, service.Options{})

	return BuildRouter(handlers.NewHandler(testutil.Logger(), svc), Middlewares{
		Logging:   mw.NewLogging(testutil.Logger()),
		BasicAuth: auth,
	}, "")
}

func get(t *testing.T, h http.Handler, target string, setup ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, f := range setup {
		f(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ========== Tech endpoints ==========

func TestRouter_Tech(t *testing.T) {
	h := setupRouter(t, nil)

	t.Run("healthz", func(t *testing.T) {
		rec := get(t, h, "/healthz")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("readiness", func(t *testing.T) {
		rec := get(t, h, "/readiness")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := get(t, h, "/metrics")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "swapstats_http_requests_total")
	})
}

// ========== Market endpoints ==========

func TestRouter_CacheMissTemplates(t *testing.T) {
	h := setupRouter(t, nil)

	for _, path := range []string{
		"/api/v3/gecko/pairs",
		"/api/v3/gecko/tickers",
		"/api/v3/cmc/summary",
		"/api/v3/markets/tickers",
		"/api/v3/stats-api/summary",
	} {
		t.Run(path, func(t *testing.T) {
			rec := get(t, h, path)
			require.Equal(t, http.StatusOK, rec.Code)

			var out []any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			assert.Empty(t, out)
		})
	}
}

func TestRouter_Orderbook(t *testing.T) {
	h := setupRouter(t, nil)

	t.Run("ok", func(t *testing.T) {
		rec := get(t, h, "/api/v3/gecko/orderbook/KMD_LTC?depth=10")
		require.Equal(t, http.StatusOK, rec.Code)

		var out map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, "KMD_LTC", out["ticker_id"])
	})

	t.Run("bad_depth", func(t *testing.T) {
		rec := get(t, h, "/api/v3/cmc/orderbook/KMD_LTC?depth=zero")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"error":"bad_request"`)
	})

	t.Run("bad_pair", func(t *testing.T) {
		rec := get(t, h, "/api/v3/generic/orderbook/KMD")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRouter_Trades(t *testing.T) {
	h := setupRouter(t, nil)

	rec := get(t, h, "/api/v3/gecko/historical_trades/KMD_LTC")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Buy  []map[string]any `json:"buy"`
		Sell []map[string]any `json:"sell"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, append(out.Buy, out.Sell...), 1)

	rec = get(t, h, "/api/v3/cmc/trades/KMD_LTC?type=hold")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Windows(t *testing.T) {
	h := setupRouter(t, nil)

	assert.Equal(t, http.StatusOK, get(t, h, "/api/v3/generic/pair_volumes/24h").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/api/v3/generic/coin_volumes/alltime").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v3/generic/coin_volumes/1y").Code)
}

func TestRouter_Legacy(t *testing.T) {
	h := setupRouter(t, nil)

	rec := get(t, h, "/api/v3/markets/swaps24/KMD")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ticker":"KMD","swaps_amount_24h":1}`, rec.Body.String())

	rec = get(t, h, "/api/v3/markets/fiat_rates")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "EUR")

	rec = get(t, h, "/api/v3/stats-api/atomicdexio")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"swaps_24h":1`)
}

// ========== Swaps ==========

func TestRouter_Swaps(t *testing.T) {
	auth := mw.NewBasicAuth(&config.BasicAuthConfig{User: "admin", Pass: "secret"})
	h := setupRouter(t, auth)

	t.Run("swap_found", func(t *testing.T) {
		rec := get(t, h, "/api/v3/swaps/swap/"+swapID)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), swapID)
	})

	t.Run("swap_not_found", func(t *testing.T) {
		rec := get(t, h, "/api/v3/swaps/swap/1c3d9a4f-8e2b-4d66-8b40-2a3f4e5d6c7b")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), `"error":"not_found"`)
	})

	t.Run("swap_malformed_uuid", func(t *testing.T) {
		rec := get(t, h, "/api/v3/swaps/swap/not-a-uuid")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("swap_uuids", func(t *testing.T) {
		rec := get(t, h, "/api/v3/swaps/swap_uuids?coin=KMD")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"swaps_count":1,"swap_uuids":["`+swapID+`"]}`, rec.Body.String())
	})

	t.Run("swap_uuids_bad_time", func(t *testing.T) {
		rec := get(t, h, "/api/v3/swaps/swap_uuids?start_time=yesterday")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("failed_requires_auth", func(t *testing.T) {
		rec := get(t, h, "/api/v3/swaps/failed")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = get(t, h, "/api/v3/swaps/failed", func(r *http.Request) { r.SetBasicAuth("admin", "secret") })
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("distinct", func(t *testing.T) {
		auth := func(r *http.Request) { r.SetBasicAuth("admin", "secret") }

		rec := get(t, h, "/api/v3/swaps/distinct/coin", auth)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `["KMD","LTC"]`, rec.Body.String())

		rec = get(t, h, "/api/v3/swaps/distinct/maker_amount", auth)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRouter_PrivilegedDisabledWithoutCredentials(t *testing.T) {
	h := setupRouter(t, nil)

	rec := get(t, h, "/api/v3/swaps/failed")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
