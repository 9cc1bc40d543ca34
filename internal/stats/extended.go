package stats

import (
	"context"
	"sort"
	"sync"

	"swapstats/internal/domain"

	"golang.org/x/sync/errgroup"
)

// OrderbookExtended lists, for every std pair traded within w, each tradable variant's
// book summary next to its trade stats
func (e *Engine) OrderbookExtended(ctx context.Context, w Window) (OrderbookExtended, error) {
	rows, _, to, err := e.successful(ctx, w)
	if err != nil {
		return OrderbookExtended{}, err
	}
	prices, configs := e.ref.Prices(ctx), e.ref.CoinConfigs(ctx)

	traded := make(map[string]map[string][]oriented, 64)
	for i := range rows {
		o := orient(&rows[i], prices)
		if traded[o.std] == nil {
			traded[o.std] = make(map[string][]oriented, 2)
		}
		traded[o.std][o.variant] = append(traded[o.std][o.variant], o)
	}

	out := OrderbookExtended{
		LastUpdate: to,
		Range:      w.Name,
		Pairs:      make(map[string]ExtendedPair, len(traded)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.BookWorkers)
	for std, byVariant := range traded {
		g.Go(func() error {
			p := e.extendedPair(gctx, std, byVariant, configs, prices)
			mu.Lock()
			out.Pairs[std] = p
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, p := range out.Pairs {
		out.CombinedLiquidityUSD = out.CombinedLiquidityUSD.Add(p.CombinedLiquidityUSD)
	}
	return out, nil
}

func (e *Engine) extendedPair(ctx context.Context, std string, byVariant map[string][]oriented, configs domain.CoinConfigs, prices domain.PriceTable) ExtendedPair {
	names := make(map[string]struct{}, len(byVariant))
	for v := range byVariant {
		names[v] = struct{}{}
	}
	for _, v := range domain.PairVariants(std, configs, prices) {
		names[v] = struct{}{}
	}
	variants := make([]string, 0, len(names))
	for v := range names {
		variants = append(variants, v)
	}
	sort.Strings(variants)

	p := ExtendedPair{Variants: make(map[string]VariantBook, len(variants))}
	for _, variant := range variants {
		vb := VariantBook{Pair: variant}
		for _, o := range byVariant[variant] {
			vb.Trades++
			vb.BaseVolume = vb.BaseVolume.Add(o.base)
			vb.QuoteVolume = vb.QuoteVolume.Add(o.quote)
			vb.LastPrice = o.price
		}

		book, err := e.books.GetVariant(ctx, variant, 0)
		if err != nil {
			e.log.Warnf("Failed get orderbook %s, error=%v", variant, err)
		} else {
			vb.HighestBid, vb.LowestAsk = book.BestBidAsk()
			vb.BidsCount = len(book.Bids)
			vb.AsksCount = len(book.Asks)
			vb.TotalAsksBaseVol = book.TotalAsksBaseVol
			vb.TotalBidsQuoteVol = book.TotalBidsQuoteVol
			vb.LiquidityInUSD = book.LiquidityInUSD
		}

		p.Variants[variant] = vb
		p.CombinedLiquidityUSD = p.CombinedLiquidityUSD.Add(vb.LiquidityInUSD)
	}
	return p
}
