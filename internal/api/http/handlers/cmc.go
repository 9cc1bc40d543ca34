package handlers

import (
	"net/http"

	"swapstats/internal/present"

	"github.com/go-chi/chi/v5"
)

func (a *Handler) CMCAssets(w http.ResponseWriter, r *http.Request) {
	a.ok(w, "CMCAssets", present.AssetsToCMC(a.Market.CoinConfigs(r.Context())))
}

func (a *Handler) CMCSummary(w http.ResponseWriter, r *http.Request) {
	a.ok(w, "CMCSummary", present.TickersToSummary(a.Market.Tickers(r.Context()).Data))
}

func (a *Handler) CMCTicker(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a.ok(w, "CMCTicker", present.TickersToCMCTicker(a.Market.Tickers(ctx).Data, a.Market.CoinConfigs(ctx)))
}

func (a *Handler) CMCOrderbook(w http.ResponseWriter, r *http.Request) {
	depth, err := a.Market.ParseDepth(r.URL.Query().Get("depth"))
	if err != nil {
		a.fail(w, r, "CMCOrderbook", err)
		return
	}

	book, err := a.Market.Orderbook(r.Context(), chi.URLParam(r, "pair_str"), depth)
	if err != nil {
		a.fail(w, r, "CMCOrderbook", err)
		return
	}
	a.ok(w, "CMCOrderbook", present.OrderbookToCMC(book))
}

func (a *Handler) CMCTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tq, err := a.Market.ParseTradesQuery(chi.URLParam(r, "pair_str"), q.Get("start_time"), q.Get("end_time"), q.Get("limit"), q.Get("type"))
	if err != nil {
		a.fail(w, r, "CMCTrades", err)
		return
	}

	trades, err := a.Market.Trades(r.Context(), tq)
	if err != nil {
		a.fail(w, r, "CMCTrades", err)
		return
	}
	a.ok(w, "CMCTrades", present.HistoricalTradesToCMC(trades))
}
