package stats

import (
	"context"
	"fmt"
	"sort"

	"swapstats/internal/domain"
	"swapstats/internal/stores/ledger"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Tickers builds one row per std pair traded within the last days
func (e *Engine) Tickers(ctx context.Context, days int) (Tickers, error) {
	w := Days(days)
	rows, _, to, err := e.successful(ctx, w)
	if err != nil {
		return Tickers{}, err
	}
	prices := e.ref.Prices(ctx)

	groups := make(map[string][]oriented, 64)
	for i := range rows {
		o := orient(&rows[i], prices)
		groups[o.std] = append(groups[o.std], o)
	}

	pairs := make([]string, 0, len(groups))
	for std := range groups {
		pairs = append(pairs, std)
	}
	sort.Strings(pairs)

	data := make([]Ticker, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.BookWorkers)
	for i, std := range pairs {
		g.Go(func() error {
			data[i] = e.tickerRow(gctx, std, false, groups[std], prices)
			return nil
		})
	}
	_ = g.Wait()

	out := Tickers{LastUpdate: to, Range: w.Name, PairsCount: len(data), Data: data}
	for _, t := range data {
		out.SwapsCount += t.Trades
		out.CombinedVolumeUSD = out.CombinedVolumeUSD.Add(t.CombinedVolumeUSD)
		out.CombinedLiquidityUSD = out.CombinedLiquidityUSD.Add(t.LiquidityInUSD)
	}
	return out, nil
}

// TickerInfo returns the ticker row of pair (std or variant) quoted in the requested orientation
func (e *Engine) TickerInfo(ctx context.Context, pair string, w Window) (Ticker, error) {
	if _, _, err := domain.BaseQuote(pair); err != nil {
		return Ticker{}, err
	}
	prices := e.ref.Prices(ctx)

	isVariant := domain.HasPlatform(pair)
	std := domain.DeplatformPair(pair)
	canonStd := domain.OrderByMarketCap(std, prices)

	canon := canonStd
	if isVariant {
		canon = pair
		if canonStd != std {
			canon = domain.Invert(pair)
		}
		if domain.IsBridgeSwapDuplicate(canon, prices) {
			canon = domain.Invert(canon)
		}
	}

	from, to := w.Bounds(e.now())
	rows, err := e.swaps.Query(ctx, ledger.Filter{From: from, To: to, Pair: std})
	if err != nil {
		return Ticker{}, fmt.Errorf("failed query swaps for %s, error=%w", pair, err)
	}

	group := make([]oriented, 0, len(rows))
	for i := range rows {
		o := orient(&rows[i], prices)
		if o.std != canonStd || (isVariant && o.variant != canon) {
			continue
		}
		group = append(group, o)
	}

	t := e.tickerRow(ctx, canon, isVariant, group, prices)
	if canon != pair {
		return InvertTicker(t), nil
	}
	return t, nil
}

// tickerRow expects group ordered by finished_at ascending
func (e *Engine) tickerRow(ctx context.Context, pair string, isVariant bool, group []oriented, prices domain.PriceTable) Ticker {
	base, quote, _ := domain.BaseQuote(pair)
	t := Ticker{
		TickerID:      pair,
		Pair:          pair,
		Base:          base,
		Quote:         quote,
		BasePriceUSD:  prices.USD(base),
		QuotePriceUSD: prices.USD(quote),
		Priced:        prices.PairPriced(pair),
	}

	variants := make(map[string]struct{}, 2)
	for _, o := range group {
		variants[o.variant] = struct{}{}
		t.Trades++
		t.BaseVolume = t.BaseVolume.Add(o.base)
		t.QuoteVolume = t.QuoteVolume.Add(o.quote)
		if t.High.IsZero() || o.price.GreaterThan(t.High) {
			t.High = o.price
		}
		if t.Low.IsZero() || o.price.LessThan(t.Low) {
			t.Low = o.price
		}
	}
	t.Variants = make([]string, 0, len(variants))
	for v := range variants {
		t.Variants = append(t.Variants, v)
	}
	sort.Strings(t.Variants)

	if n := len(group); n > 0 {
		oldest, newest := group[0], group[n-1]
		t.OldestPrice = oldest.price
		t.NewestPrice = newest.price
		t.LastPrice = newest.price
		t.LastTrade = newest.swap.FinishedAt
		t.LastSwapUUID = newest.swap.UUID
	}
	t.PriceChange, t.PriceChangePct = priceChange(t.OldestPrice, t.NewestPrice)

	t.BaseVolumeUSD = t.BaseVolume.Mul(t.BasePriceUSD)
	t.QuoteVolumeUSD = t.QuoteVolume.Mul(t.QuotePriceUSD)
	t.CombinedVolumeUSD = t.BaseVolumeUSD.Add(t.QuoteVolumeUSD)

	var (
		book domain.Book
		err  error
	)
	if isVariant {
		book, err = e.books.GetVariant(ctx, pair, 0)
	} else {
		book, err = e.books.GetOrderbook(ctx, pair, 0)
	}
	if err != nil {
		e.log.Warnf("Failed get orderbook for ticker %s, error=%v", pair, err)
		return t
	}
	t.HighestBid, t.LowestAsk = book.BestBidAsk()
	t.LiquidityInUSD = book.LiquidityInUSD

	return t
}

func priceChange(oldest, newest decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if !oldest.IsPositive() {
		return decimal.Zero, decimal.Zero
	}
	return newest.Sub(oldest), domain.Div(newest, oldest).Sub(decimal.NewFromInt(1))
}

func inverse(d decimal.Decimal) decimal.Decimal {
	return domain.Div(decimal.NewFromInt(1), d)
}

// InvertTicker quotes t from the other side of the pair
func InvertTicker(t Ticker) Ticker {
	r := t
	r.TickerID = domain.Invert(t.TickerID)
	r.Pair = domain.Invert(t.Pair)
	r.Base, r.Quote = t.Quote, t.Base

	r.Variants = make([]string, 0, len(t.Variants))
	for _, v := range t.Variants {
		r.Variants = append(r.Variants, domain.Invert(v))
	}
	sort.Strings(r.Variants)

	r.BaseVolume, r.QuoteVolume = t.QuoteVolume, t.BaseVolume
	r.BaseVolumeUSD, r.QuoteVolumeUSD = t.QuoteVolumeUSD, t.BaseVolumeUSD
	r.BasePriceUSD, r.QuotePriceUSD = t.QuotePriceUSD, t.BasePriceUSD

	r.LastPrice = inverse(t.LastPrice)
	r.High, r.Low = inverse(t.Low), inverse(t.High)
	r.OldestPrice, r.NewestPrice = inverse(t.OldestPrice), inverse(t.NewestPrice)
	r.PriceChange, r.PriceChangePct = priceChange(r.OldestPrice, r.NewestPrice)

	r.HighestBid, r.LowestAsk = inverse(t.LowestAsk), inverse(t.HighestBid)
	return r
}

// TopPairs are the n most liquid std pairs, ties by ticker id
func TopPairs(ts Tickers, n int) []string {
	rows := append([]Ticker(nil), ts.Data...)
	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].LiquidityInUSD.Cmp(rows[j].LiquidityInUSD); c != 0 {
			return c > 0
		}
		return rows[i].TickerID < rows[j].TickerID
	})

	n = max(0, min(n, len(rows)))
	out := make([]string, 0, n)
	for _, t := range rows[:n] {
		out = append(out, t.TickerID)
	}
	return out
}
