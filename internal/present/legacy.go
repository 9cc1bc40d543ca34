package present

import (
	"sort"

	"swapstats/internal/domain"
	"swapstats/internal/stats"

	"github.com/shopspring/decimal"
)

type MarketTicker struct {
	LastPrice   string `json:"last_price"`
	QuoteVolume string `json:"quote_volume"`
	BaseVolume  string `json:"base_volume"`
	IsFrozen    string `json:"isFrozen"`
}

type StatsSummary struct {
	TradingPair           string `json:"trading_pair"`
	BaseCurrency          string `json:"base_currency"`
	QuoteCurrency         string `json:"quote_currency"`
	LastPrice             string `json:"last_price"`
	LastTrade             int64  `json:"last_trade"`
	Trades24h             int64  `json:"trades_24h"`
	BaseVolume24h         string `json:"base_volume_24h"`
	QuoteVolume24h        string `json:"quote_volume_24h"`
	VolumeUSD24h          string `json:"volume_usd_24h"`
	LowestAsk             string `json:"lowest_ask"`
	HighestBid            string `json:"highest_bid"`
	PriceChangePercent24h string `json:"price_change_percent_24h"`
	HighestPrice24h       string `json:"highest_price_24h"`
	LowestPrice24h        string `json:"lowest_price_24h"`
	LiquidityUSD          string `json:"liquidity_usd"`
}

// InfoInput are the ledger counters behind the landing page figures
type InfoInput struct {
	SwapsAllTime int64
	Swaps30d     int64
	Swaps24h     int64
	Volume24hUSD decimal.Decimal
	LiquidityUSD decimal.Decimal
}

type Info struct {
	SwapsAllTime     int64  `json:"swaps_all_time"`
	Swaps30d         int64  `json:"swaps_30d"`
	Swaps24h         int64  `json:"swaps_24h"`
	SwapsValue24h    string `json:"swaps_value_24h"`
	CurrentLiquidity string `json:"current_liquidity"`
}

type LegacyLastTrade struct {
	Pair          string `json:"pair"`
	SwapUUID      string `json:"swap_uuid"`
	LastSwapTime  int64  `json:"last_swap"`
	LastSwapPrice string `json:"last_price"`
}

// TickersToMarkets is the legacy one-key-per-object list
func TickersToMarkets(ts []stats.Ticker) []map[string]MarketTicker {
	out := make([]map[string]MarketTicker, 0, len(ts))
	for _, t := range ts {
		out = append(out, map[string]MarketTicker{
			domain.DeplatformPair(t.TickerID): {
				LastPrice:   Dec(t.LastPrice),
				QuoteVolume: Dec(t.QuoteVolume),
				BaseVolume:  Dec(t.BaseVolume),
				IsFrozen:    "0",
			},
		})
	}
	return out
}

func TickersToStatsSummary(ts []stats.Ticker) []StatsSummary {
	out := make([]StatsSummary, 0, len(ts))
	for _, t := range ts {
		out = append(out, StatsSummary{
			TradingPair:           domain.DeplatformPair(t.TickerID),
			BaseCurrency:          domain.StripPlatform(t.Base),
			QuoteCurrency:         domain.StripPlatform(t.Quote),
			LastPrice:             Dec(t.LastPrice),
			LastTrade:             t.LastTrade,
			Trades24h:             t.Trades,
			BaseVolume24h:         Dec(t.BaseVolume),
			QuoteVolume24h:        Dec(t.QuoteVolume),
			VolumeUSD24h:          Dec(t.CombinedVolumeUSD),
			LowestAsk:             Dec(t.LowestAsk),
			HighestBid:            Dec(t.HighestBid),
			PriceChangePercent24h: Dec(t.PriceChangePct.Mul(hundred)),
			HighestPrice24h:       Dec(t.High),
			LowestPrice24h:        Dec(t.Low),
			LiquidityUSD:          Dec(t.LiquidityInUSD),
		})
	}
	return out
}

func AtomicdexInfo(in InfoInput) Info {
	return Info{
		SwapsAllTime:     in.SwapsAllTime,
		Swaps30d:         in.Swaps30d,
		Swaps24h:         in.Swaps24h,
		SwapsValue24h:    Dec(in.Volume24hUSD),
		CurrentLiquidity: Dec(in.LiquidityUSD),
	}
}

func LastTradeToLegacy(pair string, lt stats.LastTraded) LegacyLastTrade {
	return LegacyLastTrade{
		Pair:          pair,
		SwapUUID:      lt.LastSwapUUID,
		LastSwapTime:  lt.LastSwapTime,
		LastSwapPrice: Dec(lt.LastSwapPrice),
	}
}

// FiatRates formats a USD based rate table
func FiatRates(rates map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(rates))
	for cur, r := range rates {
		out[cur] = Dec(r)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
