package handlers

import (
	"net/http"

	"swapstats/internal/present"

	"github.com/go-chi/chi/v5"
)

// ========== markets ==========

func (a *Handler) MarketsTickers(w http.ResponseWriter, r *http.Request) {
	a.ok(w, "MarketsTickers", present.TickersToMarkets(a.Market.Tickers(r.Context()).Data))
}

func (a *Handler) MarketsFiatRates(w http.ResponseWriter, r *http.Request) {
	a.ok(w, "MarketsFiatRates", present.FiatRates(a.Market.FiatRates(r.Context())))
}

func (a *Handler) MarketsUSDVolume24h(w http.ResponseWriter, r *http.Request) {
	a.ok(w, "MarketsUSDVolume24h", map[string]string{
		"usd_volume_24h": present.Dec(a.Market.USDVolume24h(r.Context())),
	})
}

func (a *Handler) MarketsOrderbook(w http.ResponseWriter, r *http.Request) {
	depth, err := a.Market.ParseDepth(r.URL.Query().Get("depth"))
	if err != nil {
		a.fail(w, r, "MarketsOrderbook", err)
		return
	}

	book, err := a.Market.Orderbook(r.Context(), chi.URLParam(r, "pair"), depth)
	if err != nil {
		a.fail(w, r, "MarketsOrderbook", err)
		return
	}
	a.ok(w, "MarketsOrderbook", present.OrderbookToGeneric(book))
}

func (a *Handler) MarketsLastTrade(w http.ResponseWriter, r *http.Request) {
	pair := chi.URLParam(r, "pair")
	lt, err := a.Market.LastTrade(r.Context(), pair)
	if err != nil {
		a.fail(w, r, "MarketsLastTrade", err)
		return
	}
	a.ok(w, "MarketsLastTrade", present.LastTradeToLegacy(pair, lt))
}

func (a *Handler) MarketsSwaps24(w http.ResponseWriter, r *http.Request) {
	coin := chi.URLParam(r, "coin")
	n, err := a.Market.Swaps24hForCoin(r.Context(), coin)
	if err != nil {
		a.fail(w, r, "MarketsSwaps24", err)
		return
	}
	a.ok(w, "MarketsSwaps24", map[string]any{"ticker": coin, "swaps_amount_24h": n})
}

// ========== stats-api ==========

func (a *Handler) StatsSummary(w http.ResponseWriter, r *http.Request) {
	a.ok(w, "StatsSummary", present.TickersToStatsSummary(a.Market.Tickers(r.Context()).Data))
}

func (a *Handler) StatsTicker(w http.ResponseWriter, r *http.Request) {
	a.ok(w, "StatsTicker", present.TickersToMarkets(a.Market.Tickers(r.Context()).Data))
}

func (a *Handler) StatsAtomicdexInfo(w http.ResponseWriter, r *http.Request) {
	in, err := a.Market.Info(r.Context())
	if err != nil {
		a.fail(w, r, "StatsAtomicdexInfo", err)
		return
	}
	a.ok(w, "StatsAtomicdexInfo", present.AtomicdexInfo(in))
}
