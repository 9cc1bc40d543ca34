package orderbook

import (
	"sort"

	"swapstats/internal/domain"
	"swapstats/internal/rpc"

	"github.com/shopspring/decimal"
)

// Template is the zero-filled book returned whenever no real snapshot is available
func Template(base, quote string, ts int64) domain.Book {
	return domain.Book{
		Pair:      domain.MakePair(base, quote),
		Base:      base,
		Quote:     quote,
		Variants:  []string{},
		Bids:      []domain.Order{},
		Asks:      []domain.Order{},
		Timestamp: ts,
	}
}

func toOrders(in []rpc.Entry) []domain.Order {
	out := make([]domain.Order, 0, len(in))
	for _, e := range in {
		if !e.Price.IsPositive() || !e.Volume.IsPositive() {
			continue
		}
		out = append(out, domain.Order{Price: e.Price, Volume: e.Volume, QuoteVolume: e.Price.Mul(e.Volume)})
	}
	return out
}

// build labels a raw snapshot and fills totals and usd aggregates
func build(ob *rpc.Orderbook, prices domain.PriceTable, ts int64) domain.Book {
	b := Template(ob.Base, ob.Rel, ts)
	b.Variants = []string{b.Pair}
	b.Bids = toOrders(ob.Bids)
	b.Asks = toOrders(ob.Asks)

	for _, o := range b.Asks {
		b.TotalAsksBaseVol = b.TotalAsksBaseVol.Add(o.Volume)
		b.TotalAsksQuoteVol = b.TotalAsksQuoteVol.Add(o.QuoteVolume)
	}
	for _, o := range b.Bids {
		b.TotalBidsBaseVol = b.TotalBidsBaseVol.Add(o.Volume)
		b.TotalBidsQuoteVol = b.TotalBidsQuoteVol.Add(o.QuoteVolume)
	}

	baseUSD, quoteUSD := prices.USD(b.Base), prices.USD(b.Quote)
	b.TotalAsksBaseUSD = b.TotalAsksBaseVol.Mul(baseUSD)
	b.TotalAsksQuoteUSD = b.TotalAsksQuoteVol.Mul(quoteUSD)
	b.TotalBidsBaseUSD = b.TotalBidsBaseVol.Mul(baseUSD)
	b.TotalBidsQuoteUSD = b.TotalBidsQuoteVol.Mul(quoteUSD)

	// asks offer base, bids offer quote
	b.BaseLiquidityCoins = b.TotalAsksBaseVol
	b.BaseLiquidityUSD = b.TotalAsksBaseUSD
	b.QuoteLiquidityCoins = b.TotalBidsQuoteVol
	b.QuoteLiquidityUSD = b.TotalBidsQuoteUSD
	b.LiquidityInUSD = b.BaseLiquidityUSD.Add(b.QuoteLiquidityUSD)

	sortSides(&b)
	return b
}

func invertOrders(in []domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(in))
	for _, o := range in {
		out = append(out, domain.Order{
			Price:       domain.Div(decimal.NewFromInt(1), o.Price),
			Volume:      o.QuoteVolume,
			QuoteVolume: o.Volume,
		})
	}
	return out
}

// Reverse quotes b from the other side: bids and asks swap, prices invert
func Reverse(b domain.Book) domain.Book {
	r := b
	r.Pair = domain.Invert(b.Pair)
	r.Base, r.Quote = b.Quote, b.Base

	r.Variants = make([]string, 0, len(b.Variants))
	for _, v := range b.Variants {
		r.Variants = append(r.Variants, domain.Invert(v))
	}

	r.Bids = invertOrders(b.Asks)
	r.Asks = invertOrders(b.Bids)

	r.TotalAsksBaseVol, r.TotalAsksQuoteVol = b.TotalBidsQuoteVol, b.TotalBidsBaseVol
	r.TotalBidsBaseVol, r.TotalBidsQuoteVol = b.TotalAsksQuoteVol, b.TotalAsksBaseVol
	r.TotalAsksBaseUSD, r.TotalAsksQuoteUSD = b.TotalBidsQuoteUSD, b.TotalBidsBaseUSD
	r.TotalBidsBaseUSD, r.TotalBidsQuoteUSD = b.TotalAsksQuoteUSD, b.TotalAsksBaseUSD

	r.BaseLiquidityCoins, r.QuoteLiquidityCoins = b.QuoteLiquidityCoins, b.BaseLiquidityCoins
	r.BaseLiquidityUSD, r.QuoteLiquidityUSD = b.QuoteLiquidityUSD, b.BaseLiquidityUSD

	sortSides(&r)
	return r
}

// Merge sums variant books into one book for pair (base_quote)
func Merge(base, quote string, books []domain.Book, ts int64) domain.Book {
	m := Template(base, quote, ts)

	for _, b := range books {
		m.Variants = append(m.Variants, b.Variants...)
		m.Bids = append(m.Bids, b.Bids...)
		m.Asks = append(m.Asks, b.Asks...)

		m.TotalAsksBaseVol = m.TotalAsksBaseVol.Add(b.TotalAsksBaseVol)
		m.TotalAsksQuoteVol = m.TotalAsksQuoteVol.Add(b.TotalAsksQuoteVol)
		m.TotalBidsBaseVol = m.TotalBidsBaseVol.Add(b.TotalBidsBaseVol)
		m.TotalBidsQuoteVol = m.TotalBidsQuoteVol.Add(b.TotalBidsQuoteVol)
		m.TotalAsksBaseUSD = m.TotalAsksBaseUSD.Add(b.TotalAsksBaseUSD)
		m.TotalAsksQuoteUSD = m.TotalAsksQuoteUSD.Add(b.TotalAsksQuoteUSD)
		m.TotalBidsBaseUSD = m.TotalBidsBaseUSD.Add(b.TotalBidsBaseUSD)
		m.TotalBidsQuoteUSD = m.TotalBidsQuoteUSD.Add(b.TotalBidsQuoteUSD)

		m.BaseLiquidityCoins = m.BaseLiquidityCoins.Add(b.BaseLiquidityCoins)
		m.BaseLiquidityUSD = m.BaseLiquidityUSD.Add(b.BaseLiquidityUSD)
		m.QuoteLiquidityCoins = m.QuoteLiquidityCoins.Add(b.QuoteLiquidityCoins)
		m.QuoteLiquidityUSD = m.QuoteLiquidityUSD.Add(b.QuoteLiquidityUSD)
		m.LiquidityInUSD = m.LiquidityInUSD.Add(b.LiquidityInUSD)

		if b.Timestamp > 0 && (m.Timestamp == 0 || b.Timestamp < m.Timestamp) {
			m.Timestamp = b.Timestamp
		}
	}

	sort.Strings(m.Variants)
	sortSides(&m)
	return m
}

// bids descending, asks ascending
func sortSides(b *domain.Book) {
	sort.SliceStable(b.Bids, func(i, j int) bool { return b.Bids[i].Price.GreaterThan(b.Bids[j].Price) })
	sort.SliceStable(b.Asks, func(i, j int) bool { return b.Asks[i].Price.LessThan(b.Asks[j].Price) })
}

// Truncate limits both sides to depth levels; totals keep describing the full book
func Truncate(b domain.Book, depth int) domain.Book {
	if depth <= 0 {
		return b
	}
	if len(b.Bids) > depth {
		b.Bids = b.Bids[:depth]
	}
	if len(b.Asks) > depth {
		b.Asks = b.Asks[:depth]
	}
	return b
}
