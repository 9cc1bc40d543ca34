package domain

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	oldSuffix     = "_OLD"
	segwitSuffix  = "-segwit"
	platformSep   = "-"
	pricePrecsion = 28
)

// StripPlatform returns the bare ticker of a coin variant; a trailing "_OLD" stays part of the ticker
func StripPlatform(coin string) string {
	if strings.HasSuffix(coin, oldSuffix) {
		return StripPlatform(strings.TrimSuffix(coin, oldSuffix)) + oldSuffix
	}
	if i := strings.Index(coin, platformSep); i >= 0 {
		return coin[:i]
	}
	return coin
}

// Platform returns the platform suffix of a variant ("" for a bare ticker)
func Platform(coin string) string {
	coin = strings.TrimSuffix(coin, oldSuffix)
	if i := strings.Index(coin, platformSep); i >= 0 {
		return coin[i+1:]
	}
	return ""
}

// CoinVariants lists every configured coin whose ticker matches; segwitOnly keeps the plain and segwit variants
func CoinVariants(ticker string, configs CoinConfigs, segwitOnly bool) []string {
	ticker = StripPlatform(ticker)
	out := make([]string, 0, 4)
	for coin := range configs {
		if StripPlatform(coin) != ticker {
			continue
		}
		if segwitOnly && coin != ticker && coin != ticker+segwitSuffix {
			continue
		}
		out = append(out, coin)
	}
	sort.Strings(out)
	return out
}

// Price is the external USD spot price and market cap of a ticker
type Price struct {
	USD       decimal.Decimal `json:"usd"`
	MarketCap decimal.Decimal `json:"usd_market_cap"`
}

// PriceTable keyed by deplatformed ticker
type PriceTable map[string]Price

func (t PriceTable) USD(coin string) decimal.Decimal {
	return t[StripPlatform(coin)].USD
}

func (t PriceTable) MarketCap(coin string) decimal.Decimal {
	return t[StripPlatform(coin)].MarketCap
}

// Priced is false for missing or zero price
func (t PriceTable) Priced(coin string) bool {
	return t.USD(coin).IsPositive()
}

func (t PriceTable) PairPriced(pair string) bool {
	base, quote, err := BaseQuote(pair)
	if err != nil {
		return false
	}
	return t.Priced(base) && t.Priced(quote)
}

// Div divides with the precision used for every price in the ledger; zero divisor gives zero
func Div(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, pricePrecsion)
}

// Max of two decimals
func MaxDec(a, b decimal.Decimal) decimal.Decimal {
	if b.GreaterThan(a) {
		return b
	}
	return a
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
