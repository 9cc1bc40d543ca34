package domain

import (
	"github.com/shopspring/decimal"
)

// SuccessState of a swap: unknown / failed / success
type SuccessState int8

const (
	SwapUnknown   SuccessState = -1
	SwapFailed    SuccessState = 0
	SwapSucceeded SuccessState = 1
)

type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

// Sentinel for gui/version/pubkey values a source did not report
const Unknown = "unknown"

// Swap is the canonical ledger row
type Swap struct {
	UUID       string `json:"uuid" db:"uuid"`
	StartedAt  int64  `json:"started_at" db:"started_at"`
	FinishedAt int64  `json:"finished_at" db:"finished_at"`
	Duration   int64  `json:"duration" db:"duration"`

	MakerCoin         string `json:"maker_coin" db:"maker_coin"`
	TakerCoin         string `json:"taker_coin" db:"taker_coin"`
	MakerCoinTicker   string `json:"maker_coin_ticker" db:"maker_coin_ticker"`
	MakerCoinPlatform string `json:"maker_coin_platform" db:"maker_coin_platform"`
	TakerCoinTicker   string `json:"taker_coin_ticker" db:"taker_coin_ticker"`
	TakerCoinPlatform string `json:"taker_coin_platform" db:"taker_coin_platform"`

	MakerAmount       decimal.Decimal `json:"maker_amount" db:"maker_amount"`
	TakerAmount       decimal.Decimal `json:"taker_amount" db:"taker_amount"`
	MakerCoinUSDPrice decimal.Decimal `json:"maker_coin_usd_price" db:"maker_coin_usd_price"`
	TakerCoinUSDPrice decimal.Decimal `json:"taker_coin_usd_price" db:"taker_coin_usd_price"`

	MakerPubkey  string `json:"maker_pubkey" db:"maker_pubkey"`
	TakerPubkey  string `json:"taker_pubkey" db:"taker_pubkey"`
	MakerGUI     string `json:"maker_gui" db:"maker_gui"`
	TakerGUI     string `json:"taker_gui" db:"taker_gui"`
	MakerVersion string `json:"maker_version" db:"maker_version"`
	TakerVersion string `json:"taker_version" db:"taker_version"`

	IsSuccess SuccessState `json:"is_success" db:"is_success"`

	// derived
	Pair           string          `json:"pair" db:"pair"`
	PairReverse    string          `json:"pair_reverse" db:"pair_reverse"`
	PairStd        string          `json:"pair_std" db:"pair_std"`
	PairStdReverse string          `json:"pair_std_reverse" db:"pair_std_reverse"`
	TradeType      TradeType       `json:"trade_type" db:"trade_type"`
	Price          decimal.Decimal `json:"price" db:"price"`
	ReversePrice   decimal.Decimal `json:"reverse_price" db:"reverse_price"`
	LastUpdated    int64           `json:"last_updated" db:"last_updated"`
}

// Base and quote volumes of the swap with trade direction applied
func (s *Swap) BaseQuoteVolumes() (base, quote decimal.Decimal) {
	if s.TradeType == TradeBuy {
		return s.MakerAmount, s.TakerAmount
	}
	return s.TakerAmount, s.MakerAmount
}

// PriceFor returns the swap price quoted for pair, inverting when pair is the reverse of the row's pair
func (s *Swap) PriceFor(pair string) decimal.Decimal {
	if pair == s.PairReverse || pair == s.PairStdReverse {
		return s.ReversePrice
	}
	return s.Price
}

// RawSwap carries only the fields common to every source ledger
type RawSwap struct {
	Source string

	UUID       string
	StartedAt  int64
	FinishedAt int64

	MakerCoin   string
	TakerCoin   string
	MakerAmount decimal.Decimal
	TakerAmount decimal.Decimal

	MakerCoinUSDPrice decimal.Decimal
	TakerCoinUSDPrice decimal.Decimal

	MakerPubkey  string
	TakerPubkey  string
	MakerGUI     string
	TakerGUI     string
	MakerVersion string
	TakerVersion string

	IsSuccess SuccessState
}

// CoinConfig is one entry of the coin configuration document
type CoinConfig struct {
	Coin            string `json:"coin"`
	Ticker          string `json:"ticker"`
	Platform        string `json:"platform"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	IsTestnet       bool   `json:"is_testnet"`
	WalletOnly      bool   `json:"wallet_only"`
	CoingeckoID     string `json:"coingecko_id"`
	ContractAddress string `json:"contract_address,omitempty"`
	Decimals        int    `json:"decimals,omitempty"`
}

// CoinConfigs keyed by variant
type CoinConfigs map[string]CoinConfig

func (c CoinConfigs) Has(coin string) bool {
	_, ok := c[coin]
	return ok
}

// Tradable reports whether coin is configured and can be traded on the orderbook
func (c CoinConfigs) Tradable(coin string) bool {
	cfg, ok := c[coin]
	return ok && !cfg.WalletOnly
}

// Ticker level views of the configured coins, sorted
func (c CoinConfigs) Tickers() []string {
	seen := make(map[string]struct{}, len(c))
	for coin := range c {
		seen[StripPlatform(coin)] = struct{}{}
	}
	return sortedKeys(seen)
}

// Order is one level of an orderbook side; Volume is in base coin
type Order struct {
	Price       decimal.Decimal `json:"price"`
	Volume      decimal.Decimal `json:"volume"`
	QuoteVolume decimal.Decimal `json:"quote_volume"`
}

// Book is a priced orderbook snapshot for a pair (single variant or merged variants)
type Book struct {
	Pair     string   `json:"pair"`
	Base     string   `json:"base"`
	Quote    string   `json:"quote"`
	Variants []string `json:"variants"`
	Bids     []Order  `json:"bids"`
	Asks     []Order  `json:"asks"`

	TotalAsksBaseVol  decimal.Decimal `json:"total_asks_base_vol"`
	TotalAsksQuoteVol decimal.Decimal `json:"total_asks_quote_vol"`
	TotalBidsBaseVol  decimal.Decimal `json:"total_bids_base_vol"`
	TotalBidsQuoteVol decimal.Decimal `json:"total_bids_quote_vol"`
	TotalAsksBaseUSD  decimal.Decimal `json:"total_asks_base_usd"`
	TotalAsksQuoteUSD decimal.Decimal `json:"total_asks_quote_usd"`
	TotalBidsBaseUSD  decimal.Decimal `json:"total_bids_base_usd"`
	TotalBidsQuoteUSD decimal.Decimal `json:"total_bids_quote_usd"`

	BaseLiquidityCoins  decimal.Decimal `json:"base_liquidity_coins"`
	BaseLiquidityUSD    decimal.Decimal `json:"base_liquidity_usd"`
	QuoteLiquidityCoins decimal.Decimal `json:"quote_liquidity_coins"`
	QuoteLiquidityUSD   decimal.Decimal `json:"quote_liquidity_usd"`
	LiquidityInUSD      decimal.Decimal `json:"liquidity_in_usd"`

	Timestamp int64 `json:"timestamp"`
}

// Highest bid and lowest ask, zero when the side is empty
func (b *Book) BestBidAsk() (bid, ask decimal.Decimal) {
	for i, o := range b.Bids {
		if i == 0 || o.Price.GreaterThan(bid) {
			bid = o.Price
		}
	}
	for i, o := range b.Asks {
		if i == 0 || o.Price.LessThan(ask) {
			ask = o.Price
		}
	}
	return bid, ask
}
