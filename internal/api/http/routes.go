package http

import (
	"swapstats/internal/api/http/handlers"
	"swapstats/internal/api/http/mw"
	"swapstats/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Middlewares, any of them may be nil
type Middlewares struct {
	Logging   *mw.LoggingMiddleware
	Gzip      *mw.GzipMiddleware
	CORS      *mw.CORSMiddleware
	GeoBlock  *mw.GeoBlockMiddleware
	RateLimit *mw.RateLimitMiddleware
	BasicAuth *mw.BasicAuthMiddleware
}

func BuildRouter(api *handlers.Handler, m Middlewares, metricsPath string) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	if m.Logging != nil {
		r.Use(m.Logging.Handler)
	}
	if m.Gzip != nil {
		r.Use(m.Gzip.Handler)
	}
	if m.CORS != nil {
		r.Use(m.CORS.Handler())
	}

	// tech endpoint not limited
	r.Get("/healthz", api.Healthz)
	r.Get("/readiness", api.Readiness)
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	r.Mount(metricsPath, metrics.Handler())

	r.Route("/api/v3", func(v3 chi.Router) {
		if m.GeoBlock != nil {
			v3.Use(m.GeoBlock.Handler)
		}
		if m.RateLimit != nil {
			v3.Use(m.RateLimit.Handler)
		}

		v3.Route("/gecko", func(g chi.Router) {
			g.Get("/pairs", api.GeckoPairs)
			g.Get("/tickers", api.GeckoTickers)
			g.Get("/orderbook/{ticker_id}", api.GeckoOrderbook)
			g.Get("/historical_trades/{ticker_id}", api.GeckoHistoricalTrades)
		})

		v3.Route("/cmc", func(c chi.Router) {
			c.Get("/assets", api.CMCAssets)
			c.Get("/summary", api.CMCSummary)
			c.Get("/ticker", api.CMCTicker)
			c.Get("/orderbook/{pair_str}", api.CMCOrderbook)
			c.Get("/trades/{pair_str}", api.CMCTrades)
		})

		v3.Route("/markets", func(mk chi.Router) {
			mk.Get("/tickers", api.MarketsTickers)
			mk.Get("/fiat_rates", api.MarketsFiatRates)
			mk.Get("/usd_volume_24h", api.MarketsUSDVolume24h)
			mk.Get("/orderbook/{pair}", api.MarketsOrderbook)
			mk.Get("/last_trade/{pair}", api.MarketsLastTrade)
			mk.Get("/swaps24/{coin}", api.MarketsSwaps24)
		})

		v3.Route("/stats-api", func(s chi.Router) {
			s.Get("/summary", api.StatsSummary)
			s.Get("/ticker", api.StatsTicker)
			s.Get("/atomicdexio", api.StatsAtomicdexInfo)
		})

		v3.Route("/generic", func(g chi.Router) {
			g.Get("/tickers", api.GenericTickers)
			g.Get("/ticker/{pair}", api.GenericTicker)
			g.Get("/last_traded", api.GenericLastTraded)
			g.Get("/orderbook/{pair}", api.GenericOrderbook)
			g.Get("/historical_trades/{pair}", api.GenericHistoricalTrades)
			g.Get("/last_24h_swaps", api.GenericLast24hSwaps)
			g.Get("/pair_volumes/{window}", api.GenericPairVolumes)
			g.Get("/coin_volumes/{window}", api.GenericCoinVolumes)
			g.Get("/orderbook_extended", api.GenericOrderbookExtended)
		})

		v3.Route("/swaps", func(s chi.Router) {
			s.Get("/swap/{uuid}", api.Swap)
			s.Get("/swap_uuids", api.SwapUUIDs)

			// privileged
			s.Group(func(p chi.Router) {
				if m.BasicAuth == nil {
					p.Get("/failed", mw.Deny)
					p.Get("/distinct/{column}", mw.Deny)
					return
				}
				p.Use(m.BasicAuth.Handler)
				p.Get("/failed", api.FailedSwaps)
				p.Get("/distinct/{column}", api.Distinct)
			})
		})
	})

	return r
}
