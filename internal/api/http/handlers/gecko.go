package handlers

import (
	"net/http"

	"swapstats/internal/present"

	"github.com/go-chi/chi/v5"
)

func (a *Handler) GeckoPairs(w http.ResponseWriter, r *http.Request) {
	a.ok(w, "GeckoPairs", present.PairsToGecko(a.Market.Tickers(r.Context()).Data))
}

func (a *Handler) GeckoTickers(w http.ResponseWriter, r *http.Request) {
	a.ok(w, "GeckoTickers", present.TickersToGecko(a.Market.Tickers(r.Context()).Data))
}

func (a *Handler) GeckoOrderbook(w http.ResponseWriter, r *http.Request) {
	depth, err := a.Market.ParseDepth(r.URL.Query().Get("depth"))
	if err != nil {
		a.fail(w, r, "GeckoOrderbook", err)
		return
	}

	book, err := a.Market.Orderbook(r.Context(), chi.URLParam(r, "ticker_id"), depth)
	if err != nil {
		a.fail(w, r, "GeckoOrderbook", err)
		return
	}
	a.ok(w, "GeckoOrderbook", present.OrderbookToGecko(book))
}

func (a *Handler) GeckoHistoricalTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tq, err := a.Market.ParseTradesQuery(chi.URLParam(r, "ticker_id"), q.Get("start_time"), q.Get("end_time"), q.Get("limit"), q.Get("type"))
	if err != nil {
		a.fail(w, r, "GeckoHistoricalTrades", err)
		return
	}

	trades, err := a.Market.Trades(r.Context(), tq)
	if err != nil {
		a.fail(w, r, "GeckoHistoricalTrades", err)
		return
	}
	a.ok(w, "GeckoHistoricalTrades", present.HistoricalTradesToGecko(trades))
}
