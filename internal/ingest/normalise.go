package ingest

import (
	"swapstats/internal/domain"
	"swapstats/internal/sources"
)

// Normalise builds the canonical row for raw. ok is false for rows that cannot
// carry a price: missing uuid or coins, or a zero amount on either side.
func Normalise(raw domain.RawSwap, kind sources.Kind, prices domain.PriceTable) (domain.Swap, bool) {
	if raw.UUID == "" || raw.MakerCoin == "" || raw.TakerCoin == "" {
		return domain.Swap{}, false
	}
	if !raw.MakerAmount.IsPositive() || !raw.TakerAmount.IsPositive() {
		return domain.Swap{}, false
	}

	s := domain.Swap{
		UUID:              raw.UUID,
		StartedAt:         raw.StartedAt,
		FinishedAt:        raw.FinishedAt,
		MakerCoin:         raw.MakerCoin,
		TakerCoin:         raw.TakerCoin,
		MakerCoinTicker:   domain.StripPlatform(raw.MakerCoin),
		MakerCoinPlatform: domain.Platform(raw.MakerCoin),
		TakerCoinTicker:   domain.StripPlatform(raw.TakerCoin),
		TakerCoinPlatform: domain.Platform(raw.TakerCoin),
		MakerAmount:       raw.MakerAmount,
		TakerAmount:       raw.TakerAmount,
		MakerCoinUSDPrice: raw.MakerCoinUSDPrice,
		TakerCoinUSDPrice: raw.TakerCoinUSDPrice,
		MakerPubkey:       raw.MakerPubkey,
		TakerPubkey:       raw.TakerPubkey,
		MakerGUI:          raw.MakerGUI,
		TakerGUI:          raw.TakerGUI,
		MakerVersion:      raw.MakerVersion,
		TakerVersion:      raw.TakerVersion,
		IsSuccess:         raw.IsSuccess,
	}

	if s.IsSuccess == domain.SwapUnknown {
		switch kind {
		case sources.KindSuccess:
			s.IsSuccess = domain.SwapSucceeded
		case sources.KindFailed:
			s.IsSuccess = domain.SwapFailed
		}
	}

	// upstream tables only record started_at
	if s.FinishedAt == 0 && kind != sources.KindNode {
		s.FinishedAt = s.StartedAt
	}
	s.Duration = domain.Duration(s.StartedAt, s.FinishedAt)

	d := domain.Derive(s.MakerCoin, s.TakerCoin, prices)
	s.Pair, s.PairReverse = d.Pair, d.PairReverse
	s.PairStd, s.PairStdReverse = d.PairStd, d.PairStdReverse
	s.TradeType = d.TradeType
	s.Price, s.ReversePrice = domain.SwapPrices(s.TradeType, s.MakerAmount, s.TakerAmount)

	return s, true
}
