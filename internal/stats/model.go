package stats

import (
	"fmt"
	"time"

	"swapstats/internal/cache"

	"github.com/shopspring/decimal"
)

// Window is a trailing period over finished_at; Span 0 covers the whole ledger
type Window struct {
	Name string
	Span time.Duration
}

var (
	Last24h = Window{Name: cache.Window24h, Span: 24 * time.Hour}
	Last14d = Window{Name: cache.Window14d, Span: 14 * 24 * time.Hour}
	AllTime = Window{Name: cache.WindowAllTime}
)

// Days is a window of n trailing days
func Days(n int) Window {
	if n <= 0 {
		n = 1
	}
	if n == 1 {
		return Last24h
	}
	return Window{Name: fmt.Sprintf("%dd", n), Span: time.Duration(n) * 24 * time.Hour}
}

func (w Window) Bounds(now time.Time) (from, to int64) {
	to = now.Unix()
	if w.Span > 0 {
		from = now.Add(-w.Span).Unix()
	}
	return from, to
}

// ========== Last traded ==========

type LastTraded struct {
	LastSwapTime   int64           `json:"last_swap_time"`
	LastSwapPrice  decimal.Decimal `json:"last_swap_price"`
	LastSwapUUID   string          `json:"last_swap_uuid"`
	FirstSwapTime  int64           `json:"first_swap_time"`
	FirstSwapPrice decimal.Decimal `json:"first_swap_price"`
	FirstSwapUUID  string          `json:"first_swap_uuid"`
	Priced         bool            `json:"priced"`

	// per variant, only set on pair_std entries
	Variants map[string]LastTraded `json:"variants,omitempty"`
}

// ========== Volumes ==========

type CoinVolume struct {
	Swaps          int64           `json:"swaps"`
	MakerVolume    decimal.Decimal `json:"maker_volume"`
	TakerVolume    decimal.Decimal `json:"taker_volume"`
	TradeVolume    decimal.Decimal `json:"trade_volume"`
	MakerVolumeUSD decimal.Decimal `json:"maker_volume_usd"`
	TakerVolumeUSD decimal.Decimal `json:"taker_volume_usd"`
	TradeVolumeUSD decimal.Decimal `json:"trade_volume_usd"`
}

func (v CoinVolume) add(o CoinVolume) CoinVolume {
	return CoinVolume{
		Swaps:          v.Swaps + o.Swaps,
		MakerVolume:    v.MakerVolume.Add(o.MakerVolume),
		TakerVolume:    v.TakerVolume.Add(o.TakerVolume),
		TradeVolume:    v.TradeVolume.Add(o.TradeVolume),
		MakerVolumeUSD: v.MakerVolumeUSD.Add(o.MakerVolumeUSD),
		TakerVolumeUSD: v.TakerVolumeUSD.Add(o.TakerVolumeUSD),
		TradeVolumeUSD: v.TradeVolumeUSD.Add(o.TradeVolumeUSD),
	}
}

type CoinVolumes struct {
	Range          string                           `json:"range"`
	Start          int64                            `json:"start_time"`
	End            int64                            `json:"end_time"`
	TotalSwaps     int64                            `json:"total_swaps"`
	TradeVolumeUSD decimal.Decimal                  `json:"trade_volume_usd"`
	Volumes        map[string]map[string]CoinVolume `json:"volumes"`
}

type PairVolume struct {
	Swaps          int64            `json:"swaps"`
	BaseVolume     decimal.Decimal  `json:"base_volume"`
	QuoteVolume    decimal.Decimal  `json:"quote_volume"`
	BaseVolumeUSD  decimal.Decimal  `json:"base_volume_usd"`
	QuoteVolumeUSD decimal.Decimal  `json:"quote_volume_usd"`
	TradeVolumeUSD decimal.Decimal  `json:"trade_volume_usd"`
	DexPrice       *decimal.Decimal `json:"dex_price,omitempty"`
}

type PairVolumes struct {
	Range          string                           `json:"range"`
	Start          int64                            `json:"start_time"`
	End            int64                            `json:"end_time"`
	TotalSwaps     int64                            `json:"total_swaps"`
	TradeVolumeUSD decimal.Decimal                  `json:"trade_volume_usd"`
	Volumes        map[string]map[string]PairVolume `json:"volumes"`
}

// ========== Tickers ==========

type Ticker struct {
	TickerID string   `json:"ticker_id"`
	Pair     string   `json:"pair"`
	Base     string   `json:"base"`
	Quote    string   `json:"quote"`
	Variants []string `json:"variants"`

	Trades            int64           `json:"trades"`
	BaseVolume        decimal.Decimal `json:"base_volume"`
	QuoteVolume       decimal.Decimal `json:"quote_volume"`
	BaseVolumeUSD     decimal.Decimal `json:"base_volume_usd"`
	QuoteVolumeUSD    decimal.Decimal `json:"quote_volume_usd"`
	CombinedVolumeUSD decimal.Decimal `json:"combined_volume_usd"`

	LastPrice    decimal.Decimal `json:"last_price"`
	LastTrade    int64           `json:"last_trade"`
	LastSwapUUID string          `json:"last_swap_uuid"`

	High           decimal.Decimal `json:"high"`
	Low            decimal.Decimal `json:"low"`
	OldestPrice    decimal.Decimal `json:"oldest_price"`
	NewestPrice    decimal.Decimal `json:"newest_price"`
	PriceChange    decimal.Decimal `json:"price_change_24h"`
	PriceChangePct decimal.Decimal `json:"price_change_pct_24h"`

	HighestBid     decimal.Decimal `json:"highest_bid"`
	LowestAsk      decimal.Decimal `json:"lowest_ask"`
	LiquidityInUSD decimal.Decimal `json:"liquidity_in_usd"`

	BasePriceUSD  decimal.Decimal `json:"base_price_usd"`
	QuotePriceUSD decimal.Decimal `json:"quote_price_usd"`
	Priced        bool            `json:"priced"`
}

type Tickers struct {
	LastUpdate           int64           `json:"last_update"`
	Range                string          `json:"range"`
	PairsCount           int             `json:"pairs_count"`
	SwapsCount           int64           `json:"swaps_count"`
	CombinedVolumeUSD    decimal.Decimal `json:"combined_volume_usd"`
	CombinedLiquidityUSD decimal.Decimal `json:"combined_liquidity_usd"`
	Data                 []Ticker        `json:"data"`
}

// ========== Orderbook extended ==========

type VariantBook struct {
	Pair              string          `json:"pair"`
	Trades            int64           `json:"trades"`
	BaseVolume        decimal.Decimal `json:"base_volume"`
	QuoteVolume       decimal.Decimal `json:"quote_volume"`
	LastPrice         decimal.Decimal `json:"last_price"`
	HighestBid        decimal.Decimal `json:"highest_bid"`
	LowestAsk         decimal.Decimal `json:"lowest_ask"`
	BidsCount         int             `json:"bids_count"`
	AsksCount         int             `json:"asks_count"`
	TotalAsksBaseVol  decimal.Decimal `json:"total_asks_base_vol"`
	TotalBidsQuoteVol decimal.Decimal `json:"total_bids_quote_vol"`
	LiquidityInUSD    decimal.Decimal `json:"liquidity_in_usd"`
}

type ExtendedPair struct {
	Variants             map[string]VariantBook `json:"variants"`
	CombinedLiquidityUSD decimal.Decimal        `json:"combined_liquidity_usd"`
}

type OrderbookExtended struct {
	LastUpdate           int64                   `json:"last_update"`
	Range                string                  `json:"range"`
	CombinedLiquidityUSD decimal.Decimal         `json:"combined_liquidity_usd"`
	Pairs                map[string]ExtendedPair `json:"pairs"`
}
