// Package present maps canonical artifacts onto the external response shapes.
// Every function is pure; numerics leave as strings with ten decimal places.
package present

import (
	"strconv"

	"swapstats/internal/domain"

	"github.com/shopspring/decimal"
)

const decimalPlaces = 10

var (
	decimalZero = decimal.Zero
	hundred     = decimal.NewFromInt(100)
)

func Dec(d decimal.Decimal) string {
	return d.StringFixed(decimalPlaces)
}

// Level is one [price, volume] book level
type Level [2]string

func levels(orders []domain.Order) []Level {
	out := make([]Level, 0, len(orders))
	for _, o := range orders {
		out = append(out, Level{Dec(o.Price), Dec(o.Volume)})
	}
	return out
}

func millis(sec int64) int64 {
	return sec * 1000
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// Trade is a ledger row quoted for a requested pair orientation
type Trade struct {
	UUID        string
	Price       decimal.Decimal
	BaseVolume  decimal.Decimal
	QuoteVolume decimal.Decimal
	Type        domain.TradeType
	FinishedAt  int64
}

// TradeFor quotes s for pair; a reversed request inverts the price, swaps the volumes and flips the side
func TradeFor(s domain.Swap, pair string) Trade {
	base, quote := s.BaseQuoteVolumes()
	t := Trade{
		UUID:        s.UUID,
		Price:       s.Price,
		BaseVolume:  base,
		QuoteVolume: quote,
		Type:        s.TradeType,
		FinishedAt:  s.FinishedAt,
	}

	if pair == s.PairReverse || pair == s.PairStdReverse {
		t.Price = s.ReversePrice
		t.BaseVolume, t.QuoteVolume = quote, base
		if t.Type == domain.TradeBuy {
			t.Type = domain.TradeSell
		} else {
			t.Type = domain.TradeBuy
		}
	}
	return t
}
