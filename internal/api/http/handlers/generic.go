package handlers

import (
	"net/http"

	"swapstats/internal/present"

	"github.com/go-chi/chi/v5"
)

func (a *Handler) GenericTickers(w http.ResponseWriter, r *http.Request) {
	a.ok(w, "GenericTickers", present.TickersToGeneric(a.Market.Tickers(r.Context())))
}

// GenericTicker: one pair, std or variant, in the requested orientation
func (a *Handler) GenericTicker(w http.ResponseWriter, r *http.Request) {
	t, err := a.Market.Ticker(r.Context(), chi.URLParam(r, "pair"))
	if err != nil {
		a.fail(w, r, "GenericTicker", err)
		return
	}
	a.ok(w, "GenericTicker", present.TickerToGeneric(t))
}

func (a *Handler) GenericLastTraded(w http.ResponseWriter, r *http.Request) {
	a.ok(w, "GenericLastTraded", present.LastTradedToGeneric(a.Market.PairsLastTraded(r.Context())))
}

func (a *Handler) GenericOrderbook(w http.ResponseWriter, r *http.Request) {
	depth, err := a.Market.ParseDepth(r.URL.Query().Get("depth"))
	if err != nil {
		a.fail(w, r, "GenericOrderbook", err)
		return
	}

	book, err := a.Market.Orderbook(r.Context(), chi.URLParam(r, "pair"), depth)
	if err != nil {
		a.fail(w, r, "GenericOrderbook", err)
		return
	}
	a.ok(w, "GenericOrderbook", present.OrderbookToGeneric(book))
}

func (a *Handler) GenericHistoricalTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tq, err := a.Market.ParseTradesQuery(chi.URLParam(r, "pair"), q.Get("start_time"), q.Get("end_time"), q.Get("limit"), q.Get("type"))
	if err != nil {
		a.fail(w, r, "GenericHistoricalTrades", err)
		return
	}

	trades, err := a.Market.Trades(r.Context(), tq)
	if err != nil {
		a.fail(w, r, "GenericHistoricalTrades", err)
		return
	}
	a.ok(w, "GenericHistoricalTrades", present.HistoricalTradesToGecko(trades))
}

func (a *Handler) GenericLast24hSwaps(w http.ResponseWriter, r *http.Request) {
	rows, err := a.Market.Last24hSwaps(r.Context())
	if err != nil {
		a.fail(w, r, "GenericLast24hSwaps", err)
		return
	}
	a.ok(w, "GenericLast24hSwaps", present.SwapsToGeneric(rows))
}

func (a *Handler) GenericPairVolumes(w http.ResponseWriter, r *http.Request) {
	v, err := a.Market.PairVolumes(r.Context(), chi.URLParam(r, "window"))
	if err != nil {
		a.fail(w, r, "GenericPairVolumes", err)
		return
	}
	a.ok(w, "GenericPairVolumes", present.PairVolumesToGeneric(v))
}

func (a *Handler) GenericCoinVolumes(w http.ResponseWriter, r *http.Request) {
	v, err := a.Market.CoinVolumes(r.Context(), chi.URLParam(r, "window"))
	if err != nil {
		a.fail(w, r, "GenericCoinVolumes", err)
		return
	}
	a.ok(w, "GenericCoinVolumes", present.CoinVolumesToGeneric(v))
}

func (a *Handler) GenericOrderbookExtended(w http.ResponseWriter, r *http.Request) {
	a.ok(w, "GenericOrderbookExtended", a.Market.OrderbookExtended(r.Context()))
}
