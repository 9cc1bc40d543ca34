package present

import (
	"sort"

	"swapstats/internal/domain"
	"swapstats/internal/stats"
)

type CMCAsset struct {
	Name            string   `json:"name"`
	CoingeckoID     string   `json:"coingecko_id,omitempty"`
	Platforms       []string `json:"platforms"`
	ContractAddress string   `json:"contract_address,omitempty"`
	CanWithdraw     bool     `json:"can_withdraw"`
	CanDeposit      bool     `json:"can_deposit"`
	MinWithdraw     string   `json:"min_withdraw"`
	MakerFee        string   `json:"maker_fee"`
	TakerFee        string   `json:"taker_fee"`
}

type CMCSummary struct {
	TradingPairs          string `json:"trading_pairs"`
	BaseCurrency          string `json:"base_currency"`
	QuoteCurrency         string `json:"quote_currency"`
	LastPrice             string `json:"last_price"`
	LowestAsk             string `json:"lowest_ask"`
	HighestBid            string `json:"highest_bid"`
	BaseVolume            string `json:"base_volume"`
	QuoteVolume           string `json:"quote_volume"`
	PriceChangePercent24h string `json:"price_change_percent_24h"`
	HighestPrice24h       string `json:"highest_price_24h"`
	LowestPrice24h        string `json:"lowest_price_24h"`
}

type CMCTicker struct {
	BaseID      string `json:"base_id"`
	QuoteID     string `json:"quote_id"`
	LastPrice   string `json:"last_price"`
	BaseVolume  string `json:"base_volume"`
	QuoteVolume string `json:"quote_volume"`
	IsFrozen    int    `json:"isFrozen"`
}

type CMCOrderbook struct {
	Timestamp int64   `json:"timestamp"`
	Bids      []Level `json:"bids"`
	Asks      []Level `json:"asks"`
}

type CMCTrade struct {
	TradeID     string `json:"trade_id"`
	Price       string `json:"price"`
	BaseVolume  string `json:"base_volume"`
	QuoteVolume string `json:"quote_volume"`
	Timestamp   int64  `json:"timestamp"`
	Type        string `json:"type"`
}

// AssetsToCMC lists configured tickers; testnet coins are left out
func AssetsToCMC(configs domain.CoinConfigs) map[string]CMCAsset {
	out := make(map[string]CMCAsset, len(configs))

	coins := make([]string, 0, len(configs))
	for coin := range configs {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	for _, coin := range coins {
		cfg := configs[coin]
		if cfg.IsTestnet {
			continue
		}
		ticker := domain.StripPlatform(coin)
		a, ok := out[ticker]
		if !ok {
			a = CMCAsset{
				Name:        cfg.Name,
				CoingeckoID: cfg.CoingeckoID,
				Platforms:   []string{},
				CanWithdraw: true,
				CanDeposit:  true,
				MinWithdraw: Dec(decimalZero),
				MakerFee:    Dec(decimalZero),
				TakerFee:    Dec(decimalZero),
			}
		}
		if a.Name == "" {
			a.Name = cfg.Name
		}
		if p := domain.Platform(coin); p != "" {
			a.Platforms = append(a.Platforms, p)
		} else if cfg.ContractAddress != "" {
			a.ContractAddress = cfg.ContractAddress
		}
		out[ticker] = a
	}
	return out
}

func TickerToCMC(t stats.Ticker) CMCSummary {
	return CMCSummary{
		TradingPairs:          domain.DeplatformPair(t.TickerID),
		BaseCurrency:          domain.StripPlatform(t.Base),
		QuoteCurrency:         domain.StripPlatform(t.Quote),
		LastPrice:             Dec(t.LastPrice),
		LowestAsk:             Dec(t.LowestAsk),
		HighestBid:            Dec(t.HighestBid),
		BaseVolume:            Dec(t.BaseVolume),
		QuoteVolume:           Dec(t.QuoteVolume),
		PriceChangePercent24h: Dec(t.PriceChangePct.Mul(hundred)),
		HighestPrice24h:       Dec(t.High),
		LowestPrice24h:        Dec(t.Low),
	}
}

func TickersToSummary(ts []stats.Ticker) []CMCSummary {
	out := make([]CMCSummary, 0, len(ts))
	for _, t := range ts {
		out = append(out, TickerToCMC(t))
	}
	return out
}

// TickersToCMCTicker keys rows by BASE_QUOTE; ids are the coingecko ids of the tickers
func TickersToCMCTicker(ts []stats.Ticker, configs domain.CoinConfigs) map[string]CMCTicker {
	ids := make(map[string]string, len(configs))
	for coin, cfg := range configs {
		if cfg.CoingeckoID != "" {
			ids[domain.StripPlatform(coin)] = cfg.CoingeckoID
		}
	}

	out := make(map[string]CMCTicker, len(ts))
	for _, t := range ts {
		base, quote := domain.StripPlatform(t.Base), domain.StripPlatform(t.Quote)
		out[domain.MakePair(base, quote)] = CMCTicker{
			BaseID:      ids[base],
			QuoteID:     ids[quote],
			LastPrice:   Dec(t.LastPrice),
			BaseVolume:  Dec(t.BaseVolume),
			QuoteVolume: Dec(t.QuoteVolume),
		}
	}
	return out
}

func OrderbookToCMC(b domain.Book) CMCOrderbook {
	return CMCOrderbook{
		Timestamp: millis(b.Timestamp),
		Bids:      levels(b.Bids),
		Asks:      levels(b.Asks),
	}
}

// HistoricalTradesToCMC keeps the input order; timestamps in milliseconds
func HistoricalTradesToCMC(trades []Trade) []CMCTrade {
	out := make([]CMCTrade, 0, len(trades))
	for _, t := range trades {
		out = append(out, CMCTrade{
			TradeID:     t.UUID,
			Price:       Dec(t.Price),
			BaseVolume:  Dec(t.BaseVolume),
			QuoteVolume: Dec(t.QuoteVolume),
			Timestamp:   millis(t.FinishedAt),
			Type:        string(t.Type),
		})
	}
	return out
}
