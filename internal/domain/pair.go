package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidPair = errors.New("invalid pair")
)

const pairSep = "_"

// Pair = "<base>_<quote>"
func MakePair(base, quote string) string {
	return base + pairSep + quote
}

// BaseQuote splits a pair; segments equal to "OLD" stick to the coin before them
func BaseQuote(pair string) (string, string, error) {
	parts := strings.Split(pair, pairSep)

	var base, quote string
	switch len(parts) {
	case 2:
		base, quote = parts[0], parts[1]
	case 3:
		switch {
		case parts[1] == "OLD":
			base, quote = parts[0]+oldSuffix, parts[2]
		case parts[2] == "OLD":
			base, quote = parts[0], parts[1]+oldSuffix
		}
	case 4:
		if parts[1] == "OLD" && parts[3] == "OLD" {
			base, quote = parts[0]+oldSuffix, parts[2]+oldSuffix
		}
	}

	if base == "" || quote == "" || base == "OLD" || quote == "OLD" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPair, pair)
	}
	return base, quote, nil
}

// Invert swaps base and quote; an unparsable pair is returned as is
func Invert(pair string) string {
	base, quote, err := BaseQuote(pair)
	if err != nil {
		return pair
	}
	return MakePair(quote, base)
}

// DeplatformPair strips the platform from both sides
func DeplatformPair(pair string) string {
	base, quote, err := BaseQuote(pair)
	if err != nil {
		return pair
	}
	return MakePair(StripPlatform(base), StripPlatform(quote))
}

// HasPlatform is true when either side of the pair is a platform variant
func HasPlatform(pair string) bool {
	return DeplatformPair(pair) != pair
}

// OrderByMarketCap puts the coin with the strictly larger market cap on the quote side;
// equal caps (zero included) order lexicographically ascending on the full variant
func OrderByMarketCap(pair string, prices PriceTable) string {
	base, quote, err := BaseQuote(pair)
	if err != nil {
		return pair
	}

	switch prices.MarketCap(base).Cmp(prices.MarketCap(quote)) {
	case 1:
		return MakePair(quote, base)
	case 0:
		if base > quote {
			return MakePair(quote, base)
		}
	}
	return pair
}

// IsReversed reports whether pair is the inverse of its canonical ordering
func IsReversed(pair string, prices PriceTable) bool {
	return OrderByMarketCap(pair, prices) != pair
}

// IsBridgeSwap: same ticker on both sides, different platforms
func IsBridgeSwap(pair string) bool {
	base, quote, err := BaseQuote(pair)
	if err != nil {
		return false
	}
	return StripPlatform(base) == StripPlatform(quote)
}

// IsBridgeSwapDuplicate gates the non-canonical direction of a bridge pair out of aggregation
func IsBridgeSwapDuplicate(pair string, prices PriceTable) bool {
	return IsBridgeSwap(pair) && pair != OrderByMarketCap(pair, prices)
}

// PairVariants is the cross product of both sides' variants minus self pairs and bridge duplicates
func PairVariants(pairStd string, configs CoinConfigs, prices PriceTable) []string {
	base, quote, err := BaseQuote(DeplatformPair(pairStd))
	if err != nil {
		return nil
	}

	out := make([]string, 0, 4)
	for _, bv := range CoinVariants(base, configs, false) {
		for _, qv := range CoinVariants(quote, configs, false) {
			if bv == qv {
				continue
			}
			p := MakePair(bv, qv)
			if IsBridgeSwapDuplicate(p, prices) {
				continue
			}
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
