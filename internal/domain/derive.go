package domain

import "github.com/shopspring/decimal"

// Derived is the pair identity of a swap, fixed at first write
type Derived struct {
	Pair           string
	PairReverse    string
	PairStd        string
	PairStdReverse string
	TradeType      TradeType
}

// Derive applies the ledger rules: the taker_maker pair is ordered by market cap;
// when that keeps the taker on the base side the swap is a sell, otherwise a buy
func Derive(makerCoin, takerCoin string, prices PriceTable) Derived {
	raw := MakePair(takerCoin, makerCoin)
	pair := OrderByMarketCap(raw, prices)
	pairStd := DeplatformPair(pair)

	tt := TradeBuy
	if DeplatformPair(raw) == pairStd {
		tt = TradeSell
	}

	return Derived{
		Pair:           pair,
		PairReverse:    Invert(pair),
		PairStd:        pairStd,
		PairStdReverse: Invert(pairStd),
		TradeType:      tt,
	}
}

// SwapPrices: sell = maker/taker, buy = taker/maker; reverse is the other ratio
func SwapPrices(tt TradeType, makerAmount, takerAmount decimal.Decimal) (price, reverse decimal.Decimal) {
	makerPerTaker := Div(makerAmount, takerAmount)
	takerPerMaker := Div(takerAmount, makerAmount)
	if tt == TradeSell {
		return makerPerTaker, takerPerMaker
	}
	return takerPerMaker, makerPerTaker
}

// Duration is zero unless both ends are known and ordered
func Duration(startedAt, finishedAt int64) int64 {
	if startedAt <= 0 || finishedAt <= 0 || finishedAt < startedAt {
		return 0
	}
	return finishedAt - startedAt
}
