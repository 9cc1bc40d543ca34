package present

import (
	"swapstats/internal/domain"
	"swapstats/internal/stats"
)

type GeckoPair struct {
	TickerID string `json:"ticker_id"`
	PoolID   string `json:"pool_id"`
	Base     string `json:"base"`
	Target   string `json:"target"`
}

type GeckoTicker struct {
	TickerID       string `json:"ticker_id"`
	PoolID         string `json:"pool_id"`
	BaseCurrency   string `json:"base_currency"`
	TargetCurrency string `json:"target_currency"`
	LastPrice      string `json:"last_price"`
	LastTrade      int64  `json:"last_trade"`
	TradesCount    int64  `json:"trades_24hr"`
	BaseVolume     string `json:"base_volume"`
	TargetVolume   string `json:"target_volume"`
	BaseUSDPrice   string `json:"base_usd_price"`
	TargetUSDPrice string `json:"target_usd_price"`
	Bid            string `json:"bid"`
	Ask            string `json:"ask"`
	High           string `json:"high"`
	Low            string `json:"low"`
	VolumeUSD      string `json:"volume_usd_24hr"`
	LiquidityInUSD string `json:"liquidity_in_usd"`
}

type GeckoOrderbook struct {
	TickerID  string  `json:"ticker_id"`
	PoolID    string  `json:"pool_id"`
	Timestamp string  `json:"timestamp"`
	Bids      []Level `json:"bids"`
	Asks      []Level `json:"asks"`
}

type GeckoTrade struct {
	TradeID        string `json:"trade_id"`
	Price          string `json:"price"`
	BaseVolume     string `json:"base_volume"`
	TargetVolume   string `json:"target_volume"`
	TradeTimestamp int64  `json:"trade_timestamp"`
	Type           string `json:"type"`
}

type GeckoTrades struct {
	Buy  []GeckoTrade `json:"buy"`
	Sell []GeckoTrade `json:"sell"`
}

// TickerToGecko deplatforms the pair; gecko tickers are always std pairs
func TickerToGecko(t stats.Ticker) GeckoTicker {
	id := domain.DeplatformPair(t.TickerID)
	return GeckoTicker{
		TickerID:       id,
		PoolID:         id,
		BaseCurrency:   domain.StripPlatform(t.Base),
		TargetCurrency: domain.StripPlatform(t.Quote),
		LastPrice:      Dec(t.LastPrice),
		LastTrade:      t.LastTrade,
		TradesCount:    t.Trades,
		BaseVolume:     Dec(t.BaseVolume),
		TargetVolume:   Dec(t.QuoteVolume),
		BaseUSDPrice:   Dec(t.BasePriceUSD),
		TargetUSDPrice: Dec(t.QuotePriceUSD),
		Bid:            Dec(t.HighestBid),
		Ask:            Dec(t.LowestAsk),
		High:           Dec(t.High),
		Low:            Dec(t.Low),
		VolumeUSD:      Dec(t.CombinedVolumeUSD),
		LiquidityInUSD: Dec(t.LiquidityInUSD),
	}
}

func TickersToGecko(ts []stats.Ticker) []GeckoTicker {
	out := make([]GeckoTicker, 0, len(ts))
	for _, t := range ts {
		out = append(out, TickerToGecko(t))
	}
	return out
}

func PairsToGecko(ts []stats.Ticker) []GeckoPair {
	out := make([]GeckoPair, 0, len(ts))
	for _, t := range ts {
		id := domain.DeplatformPair(t.TickerID)
		out = append(out, GeckoPair{
			TickerID: id,
			PoolID:   id,
			Base:     domain.StripPlatform(t.Base),
			Target:   domain.StripPlatform(t.Quote),
		})
	}
	return out
}

func OrderbookToGecko(b domain.Book) GeckoOrderbook {
	id := domain.DeplatformPair(b.Pair)
	return GeckoOrderbook{
		TickerID:  id,
		PoolID:    id,
		Timestamp: itoa(millis(b.Timestamp)),
		Bids:      levels(b.Bids),
		Asks:      levels(b.Asks),
	}
}

// HistoricalTradesToGecko splits trades by side; timestamps in seconds
func HistoricalTradesToGecko(trades []Trade) GeckoTrades {
	out := GeckoTrades{Buy: []GeckoTrade{}, Sell: []GeckoTrade{}}
	for _, t := range trades {
		gt := GeckoTrade{
			TradeID:        t.UUID,
			Price:          Dec(t.Price),
			BaseVolume:     Dec(t.BaseVolume),
			TargetVolume:   Dec(t.QuoteVolume),
			TradeTimestamp: t.FinishedAt,
			Type:           string(t.Type),
		}
		if t.Type == domain.TradeBuy {
			out.Buy = append(out.Buy, gt)
		} else {
			out.Sell = append(out.Sell, gt)
		}
	}
	return out
}
