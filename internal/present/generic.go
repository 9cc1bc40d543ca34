package present

import (
	"swapstats/internal/domain"
	"swapstats/internal/stats"
)

type GenericTicker struct {
	TickerID          string   `json:"ticker_id"`
	Base              string   `json:"base"`
	Quote             string   `json:"quote"`
	Variants          []string `json:"variants"`
	Trades            int64    `json:"trades"`
	BaseVolume        string   `json:"base_volume"`
	QuoteVolume       string   `json:"quote_volume"`
	BaseVolumeUSD     string   `json:"base_volume_usd"`
	QuoteVolumeUSD    string   `json:"quote_volume_usd"`
	CombinedVolumeUSD string   `json:"combined_volume_usd"`
	LastPrice         string   `json:"last_price"`
	LastTrade         int64    `json:"last_trade"`
	LastSwapUUID      string   `json:"last_swap_uuid"`
	High              string   `json:"high"`
	Low               string   `json:"low"`
	OldestPrice       string   `json:"oldest_price"`
	NewestPrice       string   `json:"newest_price"`
	PriceChange       string   `json:"price_change_24h"`
	PriceChangePct    string   `json:"price_change_pct_24h"`
	HighestBid        string   `json:"highest_bid"`
	LowestAsk         string   `json:"lowest_ask"`
	LiquidityInUSD    string   `json:"liquidity_in_usd"`
	BasePriceUSD      string   `json:"base_price_usd"`
	QuotePriceUSD     string   `json:"quote_price_usd"`
	Priced            bool     `json:"priced"`
}

type GenericTickers struct {
	LastUpdate           int64           `json:"last_update"`
	PairsCount           int             `json:"pairs_count"`
	SwapsCount           int64           `json:"swaps_count"`
	CombinedVolumeUSD    string          `json:"combined_volume_usd"`
	CombinedLiquidityUSD string          `json:"combined_liquidity_usd"`
	Data                 []GenericTicker `json:"data"`
}

type GenericOrder struct {
	Price       string `json:"price"`
	Volume      string `json:"volume"`
	QuoteVolume string `json:"quote_volume"`
}

type GenericOrderbook struct {
	Pair                string         `json:"pair"`
	Base                string         `json:"base"`
	Quote               string         `json:"quote"`
	Variants            []string       `json:"variants"`
	Timestamp           int64          `json:"timestamp"`
	Bids                []GenericOrder `json:"bids"`
	Asks                []GenericOrder `json:"asks"`
	TotalAsksBaseVol    string         `json:"total_asks_base_vol"`
	TotalAsksQuoteVol   string         `json:"total_asks_quote_vol"`
	TotalBidsBaseVol    string         `json:"total_bids_base_vol"`
	TotalBidsQuoteVol   string         `json:"total_bids_quote_vol"`
	TotalAsksBaseUSD    string         `json:"total_asks_base_usd"`
	TotalAsksQuoteUSD   string         `json:"total_asks_quote_usd"`
	TotalBidsBaseUSD    string         `json:"total_bids_base_usd"`
	TotalBidsQuoteUSD   string         `json:"total_bids_quote_usd"`
	BaseLiquidityCoins  string         `json:"base_liquidity_coins"`
	BaseLiquidityUSD    string         `json:"base_liquidity_usd"`
	QuoteLiquidityCoins string         `json:"quote_liquidity_coins"`
	QuoteLiquidityUSD   string         `json:"quote_liquidity_usd"`
	LiquidityInUSD      string         `json:"liquidity_in_usd"`
}

type GenericSwap struct {
	UUID              string `json:"uuid"`
	StartedAt         int64  `json:"started_at"`
	FinishedAt        int64  `json:"finished_at"`
	Duration          int64  `json:"duration"`
	MakerCoin         string `json:"maker_coin"`
	TakerCoin         string `json:"taker_coin"`
	MakerCoinTicker   string `json:"maker_coin_ticker"`
	MakerCoinPlatform string `json:"maker_coin_platform"`
	TakerCoinTicker   string `json:"taker_coin_ticker"`
	TakerCoinPlatform string `json:"taker_coin_platform"`
	MakerAmount       string `json:"maker_amount"`
	TakerAmount       string `json:"taker_amount"`
	MakerCoinUSDPrice string `json:"maker_coin_usd_price"`
	TakerCoinUSDPrice string `json:"taker_coin_usd_price"`
	MakerPubkey       string `json:"maker_pubkey"`
	TakerPubkey       string `json:"taker_pubkey"`
	MakerGUI          string `json:"maker_gui"`
	TakerGUI          string `json:"taker_gui"`
	MakerVersion      string `json:"maker_version"`
	TakerVersion      string `json:"taker_version"`
	IsSuccess         int8   `json:"is_success"`
	Pair              string `json:"pair"`
	PairReverse       string `json:"pair_reverse"`
	PairStd           string `json:"pair_std"`
	PairStdReverse    string `json:"pair_std_reverse"`
	TradeType         string `json:"trade_type"`
	Price             string `json:"price"`
	ReversePrice      string `json:"reverse_price"`
	LastUpdated       int64  `json:"last_updated"`
}

type GenericPairVolume struct {
	Swaps          int64  `json:"swaps"`
	BaseVolume     string `json:"base_volume"`
	QuoteVolume    string `json:"quote_volume"`
	BaseVolumeUSD  string `json:"base_volume_usd"`
	QuoteVolumeUSD string `json:"quote_volume_usd"`
	TradeVolumeUSD string `json:"trade_volume_usd"`
	DexPrice       string `json:"dex_price,omitempty"`
}

type GenericPairVolumes struct {
	Range          string                                  `json:"range"`
	Start          int64                                   `json:"start_time"`
	End            int64                                   `json:"end_time"`
	TotalSwaps     int64                                   `json:"total_swaps"`
	TradeVolumeUSD string                                  `json:"trade_volume_usd"`
	Volumes        map[string]map[string]GenericPairVolume `json:"volumes"`
}

type GenericCoinVolume struct {
	Swaps          int64  `json:"swaps"`
	MakerVolume    string `json:"maker_volume"`
	TakerVolume    string `json:"taker_volume"`
	TradeVolume    string `json:"trade_volume"`
	MakerVolumeUSD string `json:"maker_volume_usd"`
	TakerVolumeUSD string `json:"taker_volume_usd"`
	TradeVolumeUSD string `json:"trade_volume_usd"`
}

type GenericCoinVolumes struct {
	Range          string                                  `json:"range"`
	Start          int64                                   `json:"start_time"`
	End            int64                                   `json:"end_time"`
	TotalSwaps     int64                                   `json:"total_swaps"`
	TradeVolumeUSD string                                  `json:"trade_volume_usd"`
	Volumes        map[string]map[string]GenericCoinVolume `json:"volumes"`
}

type GenericLastTraded struct {
	Pair           string `json:"pair"`
	LastSwapTime   int64  `json:"last_swap_time"`
	LastSwapPrice  string `json:"last_swap_price"`
	LastSwapUUID   string `json:"last_swap_uuid"`
	FirstSwapTime  int64  `json:"first_swap_time"`
	FirstSwapPrice string `json:"first_swap_price"`
	FirstSwapUUID  string `json:"first_swap_uuid"`
	Priced         bool   `json:"priced"`
}

func TickerToGeneric(t stats.Ticker) GenericTicker {
	variants := t.Variants
	if variants == nil {
		variants = []string{}
	}
	return GenericTicker{
		TickerID:          t.TickerID,
		Base:              t.Base,
		Quote:             t.Quote,
		Variants:          variants,
		Trades:            t.Trades,
		BaseVolume:        Dec(t.BaseVolume),
		QuoteVolume:       Dec(t.QuoteVolume),
		BaseVolumeUSD:     Dec(t.BaseVolumeUSD),
		QuoteVolumeUSD:    Dec(t.QuoteVolumeUSD),
		CombinedVolumeUSD: Dec(t.CombinedVolumeUSD),
		LastPrice:         Dec(t.LastPrice),
		LastTrade:         t.LastTrade,
		LastSwapUUID:      t.LastSwapUUID,
		High:              Dec(t.High),
		Low:               Dec(t.Low),
		OldestPrice:       Dec(t.OldestPrice),
		NewestPrice:       Dec(t.NewestPrice),
		PriceChange:       Dec(t.PriceChange),
		PriceChangePct:    Dec(t.PriceChangePct),
		HighestBid:        Dec(t.HighestBid),
		LowestAsk:         Dec(t.LowestAsk),
		LiquidityInUSD:    Dec(t.LiquidityInUSD),
		BasePriceUSD:      Dec(t.BasePriceUSD),
		QuotePriceUSD:     Dec(t.QuotePriceUSD),
		Priced:            t.Priced,
	}
}

func TickersToGeneric(ts stats.Tickers) GenericTickers {
	out := GenericTickers{
		LastUpdate:           ts.LastUpdate,
		PairsCount:           ts.PairsCount,
		SwapsCount:           ts.SwapsCount,
		CombinedVolumeUSD:    Dec(ts.CombinedVolumeUSD),
		CombinedLiquidityUSD: Dec(ts.CombinedLiquidityUSD),
		Data:                 make([]GenericTicker, 0, len(ts.Data)),
	}
	for _, t := range ts.Data {
		out.Data = append(out.Data, TickerToGeneric(t))
	}
	return out
}

func orders(in []domain.Order) []GenericOrder {
	out := make([]GenericOrder, 0, len(in))
	for _, o := range in {
		out = append(out, GenericOrder{Price: Dec(o.Price), Volume: Dec(o.Volume), QuoteVolume: Dec(o.QuoteVolume)})
	}
	return out
}

func OrderbookToGeneric(b domain.Book) GenericOrderbook {
	variants := b.Variants
	if variants == nil {
		variants = []string{}
	}
	return GenericOrderbook{
		Pair:                b.Pair,
		Base:                b.Base,
		Quote:               b.Quote,
		Variants:            variants,
		Timestamp:           b.Timestamp,
		Bids:                orders(b.Bids),
		Asks:                orders(b.Asks),
		TotalAsksBaseVol:    Dec(b.TotalAsksBaseVol),
		TotalAsksQuoteVol:   Dec(b.TotalAsksQuoteVol),
		TotalBidsBaseVol:    Dec(b.TotalBidsBaseVol),
		TotalBidsQuoteVol:   Dec(b.TotalBidsQuoteVol),
		TotalAsksBaseUSD:    Dec(b.TotalAsksBaseUSD),
		TotalAsksQuoteUSD:   Dec(b.TotalAsksQuoteUSD),
		TotalBidsBaseUSD:    Dec(b.TotalBidsBaseUSD),
		TotalBidsQuoteUSD:   Dec(b.TotalBidsQuoteUSD),
		BaseLiquidityCoins:  Dec(b.BaseLiquidityCoins),
		BaseLiquidityUSD:    Dec(b.BaseLiquidityUSD),
		QuoteLiquidityCoins: Dec(b.QuoteLiquidityCoins),
		QuoteLiquidityUSD:   Dec(b.QuoteLiquidityUSD),
		LiquidityInUSD:      Dec(b.LiquidityInUSD),
	}
}

func SwapToGeneric(s domain.Swap) GenericSwap {
	return GenericSwap{
		UUID:              s.UUID,
		StartedAt:         s.StartedAt,
		FinishedAt:        s.FinishedAt,
		Duration:          s.Duration,
		MakerCoin:         s.MakerCoin,
		TakerCoin:         s.TakerCoin,
		MakerCoinTicker:   s.MakerCoinTicker,
		MakerCoinPlatform: s.MakerCoinPlatform,
		TakerCoinTicker:   s.TakerCoinTicker,
		TakerCoinPlatform: s.TakerCoinPlatform,
		MakerAmount:       Dec(s.MakerAmount),
		TakerAmount:       Dec(s.TakerAmount),
		MakerCoinUSDPrice: Dec(s.MakerCoinUSDPrice),
		TakerCoinUSDPrice: Dec(s.TakerCoinUSDPrice),
		MakerPubkey:       s.MakerPubkey,
		TakerPubkey:       s.TakerPubkey,
		MakerGUI:          s.MakerGUI,
		TakerGUI:          s.TakerGUI,
		MakerVersion:      s.MakerVersion,
		TakerVersion:      s.TakerVersion,
		IsSuccess:         int8(s.IsSuccess),
		Pair:              s.Pair,
		PairReverse:       s.PairReverse,
		PairStd:           s.PairStd,
		PairStdReverse:    s.PairStdReverse,
		TradeType:         string(s.TradeType),
		Price:             Dec(s.Price),
		ReversePrice:      Dec(s.ReversePrice),
		LastUpdated:       s.LastUpdated,
	}
}

func SwapsToGeneric(rows []domain.Swap) []GenericSwap {
	out := make([]GenericSwap, 0, len(rows))
	for _, s := range rows {
		out = append(out, SwapToGeneric(s))
	}
	return out
}

func PairVolumesToGeneric(v stats.PairVolumes) GenericPairVolumes {
	out := GenericPairVolumes{
		Range:          v.Range,
		Start:          v.Start,
		End:            v.End,
		TotalSwaps:     v.TotalSwaps,
		TradeVolumeUSD: Dec(v.TradeVolumeUSD),
		Volumes:        make(map[string]map[string]GenericPairVolume, len(v.Volumes)),
	}
	for std, variants := range v.Volumes {
		m := make(map[string]GenericPairVolume, len(variants))
		for name, agg := range variants {
			g := GenericPairVolume{
				Swaps:          agg.Swaps,
				BaseVolume:     Dec(agg.BaseVolume),
				QuoteVolume:    Dec(agg.QuoteVolume),
				BaseVolumeUSD:  Dec(agg.BaseVolumeUSD),
				QuoteVolumeUSD: Dec(agg.QuoteVolumeUSD),
				TradeVolumeUSD: Dec(agg.TradeVolumeUSD),
			}
			if agg.DexPrice != nil {
				g.DexPrice = Dec(*agg.DexPrice)
			}
			m[name] = g
		}
		out.Volumes[std] = m
	}
	return out
}

func CoinVolumesToGeneric(v stats.CoinVolumes) GenericCoinVolumes {
	out := GenericCoinVolumes{
		Range:          v.Range,
		Start:          v.Start,
		End:            v.End,
		TotalSwaps:     v.TotalSwaps,
		TradeVolumeUSD: Dec(v.TradeVolumeUSD),
		Volumes:        make(map[string]map[string]GenericCoinVolume, len(v.Volumes)),
	}
	for ticker, variants := range v.Volumes {
		m := make(map[string]GenericCoinVolume, len(variants))
		for name, agg := range variants {
			m[name] = GenericCoinVolume{
				Swaps:          agg.Swaps,
				MakerVolume:    Dec(agg.MakerVolume),
				TakerVolume:    Dec(agg.TakerVolume),
				TradeVolume:    Dec(agg.TradeVolume),
				MakerVolumeUSD: Dec(agg.MakerVolumeUSD),
				TakerVolumeUSD: Dec(agg.TakerVolumeUSD),
				TradeVolumeUSD: Dec(agg.TradeVolumeUSD),
			}
		}
		out.Volumes[ticker] = m
	}
	return out
}

// LastTradedToGeneric flattens the pair_std map into a list sorted by pair
func LastTradedToGeneric(m map[string]stats.LastTraded) []GenericLastTraded {
	out := make([]GenericLastTraded, 0, len(m))
	for _, pair := range sortedKeys(m) {
		lt := m[pair]
		out = append(out, GenericLastTraded{
			Pair:           pair,
			LastSwapTime:   lt.LastSwapTime,
			LastSwapPrice:  Dec(lt.LastSwapPrice),
			LastSwapUUID:   lt.LastSwapUUID,
			FirstSwapTime:  lt.FirstSwapTime,
			FirstSwapPrice: Dec(lt.FirstSwapPrice),
			FirstSwapUUID:  lt.FirstSwapUUID,
			Priced:         lt.Priced,
		})
	}
	return out
}
