package ledger

import (
	"swapstats/internal/domain"

	"github.com/shopspring/decimal"
)

// Conflict: two sources assert different specific values for one string field
type Conflict struct {
	UUID     string
	Field    string
	Existing string
	Incoming string
}

// Merge folds incoming into existing.
// numerics take the max, strings the more specific value (existing wins ties),
// the canonical pair derivation is first writer wins.
func Merge(existing, incoming domain.Swap) (domain.Swap, []Conflict) {
	out := existing
	var conflicts []Conflict

	pick := func(field string, cur *string, in string) {
		switch {
		case !specific(in):
		case !specific(*cur):
			*cur = in
		case *cur != in:
			conflicts = append(conflicts, Conflict{UUID: existing.UUID, Field: field, Existing: *cur, Incoming: in})
		}
	}

	if incoming.IsSuccess > out.IsSuccess {
		out.IsSuccess = incoming.IsSuccess
	}
	out.StartedAt = max(out.StartedAt, incoming.StartedAt)
	out.FinishedAt = max(out.FinishedAt, incoming.FinishedAt)

	out.MakerAmount = domain.MaxDec(out.MakerAmount, incoming.MakerAmount)
	out.TakerAmount = domain.MaxDec(out.TakerAmount, incoming.TakerAmount)
	out.MakerCoinUSDPrice = domain.MaxDec(out.MakerCoinUSDPrice, incoming.MakerCoinUSDPrice)
	out.TakerCoinUSDPrice = domain.MaxDec(out.TakerCoinUSDPrice, incoming.TakerCoinUSDPrice)

	pick("maker_pubkey", &out.MakerPubkey, incoming.MakerPubkey)
	pick("taker_pubkey", &out.TakerPubkey, incoming.TakerPubkey)
	pick("maker_gui", &out.MakerGUI, incoming.MakerGUI)
	pick("taker_gui", &out.TakerGUI, incoming.TakerGUI)
	pick("maker_version", &out.MakerVersion, incoming.MakerVersion)
	pick("taker_version", &out.TakerVersion, incoming.TakerVersion)

	// a row written without coins (never expected) adopts the incoming derivation whole
	if out.MakerCoin == "" || out.TakerCoin == "" || out.Pair == "" {
		out.MakerCoin, out.TakerCoin = incoming.MakerCoin, incoming.TakerCoin
		out.MakerCoinTicker, out.MakerCoinPlatform = incoming.MakerCoinTicker, incoming.MakerCoinPlatform
		out.TakerCoinTicker, out.TakerCoinPlatform = incoming.TakerCoinTicker, incoming.TakerCoinPlatform
		out.Pair, out.PairReverse = incoming.Pair, incoming.PairReverse
		out.PairStd, out.PairStdReverse = incoming.PairStd, incoming.PairStdReverse
		out.TradeType = incoming.TradeType
	} else {
		if incoming.MakerCoin != "" && incoming.MakerCoin != out.MakerCoin {
			conflicts = append(conflicts, Conflict{UUID: existing.UUID, Field: "maker_coin", Existing: out.MakerCoin, Incoming: incoming.MakerCoin})
		}
		if incoming.TakerCoin != "" && incoming.TakerCoin != out.TakerCoin {
			conflicts = append(conflicts, Conflict{UUID: existing.UUID, Field: "taker_coin", Existing: out.TakerCoin, Incoming: incoming.TakerCoin})
		}
	}

	// amounts only ever grow, so the price follows them to keep price * taker == maker
	out.Price, out.ReversePrice = domain.SwapPrices(out.TradeType, out.MakerAmount, out.TakerAmount)
	out.Duration = domain.Duration(out.StartedAt, out.FinishedAt)

	return out, conflicts
}

func specific(s string) bool {
	return s != "" && s != domain.Unknown
}

// Same reports field equality with decimals compared by value
func Same(a, b domain.Swap) bool {
	da, db := takeDecimals(&a), takeDecimals(&b)
	for i := range da {
		if !da[i].Equal(db[i]) {
			return false
		}
	}
	return a == b
}

// takeDecimals returns the decimal fields of s and zeroes them
func takeDecimals(s *domain.Swap) []decimal.Decimal {
	fields := []*decimal.Decimal{&s.MakerAmount, &s.TakerAmount, &s.MakerCoinUSDPrice, &s.TakerCoinUSDPrice, &s.Price, &s.ReversePrice}
	out := make([]decimal.Decimal, len(fields))
	for i, f := range fields {
		out[i] = *f
		*f = decimal.Decimal{}
	}
	return out
}
