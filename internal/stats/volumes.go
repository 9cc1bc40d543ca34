package stats

import (
	"context"

	"swapstats/internal/domain"
)

const allVariants = "ALL"

// CoinTradeVolumes folds the maker and taker side of every successful swap into
// ticker -> variant volumes, with an ALL rollup per ticker
func (e *Engine) CoinTradeVolumes(ctx context.Context, w Window) (CoinVolumes, error) {
	rows, from, to, err := e.successful(ctx, w)
	if err != nil {
		return CoinVolumes{}, err
	}
	prices := e.ref.Prices(ctx)

	byVariant := make(map[string]CoinVolume, 64)
	for i := range rows {
		s := &rows[i]

		m := byVariant[s.MakerCoin]
		m.Swaps++
		m.MakerVolume = m.MakerVolume.Add(s.MakerAmount)
		byVariant[s.MakerCoin] = m

		t := byVariant[s.TakerCoin]
		t.Swaps++
		t.TakerVolume = t.TakerVolume.Add(s.TakerAmount)
		byVariant[s.TakerCoin] = t
	}

	out := CoinVolumes{
		Range:   w.Name,
		Start:   from,
		End:     to,
		Volumes: make(map[string]map[string]CoinVolume, len(byVariant)),
	}

	var swaps int64
	for variant, v := range byVariant {
		usd := prices.USD(variant)
		v.TradeVolume = v.MakerVolume.Add(v.TakerVolume)
		v.MakerVolumeUSD = v.MakerVolume.Mul(usd)
		v.TakerVolumeUSD = v.TakerVolume.Mul(usd)
		v.TradeVolumeUSD = v.TradeVolume.Mul(usd)

		ticker := domain.StripPlatform(variant)
		if out.Volumes[ticker] == nil {
			out.Volumes[ticker] = make(map[string]CoinVolume, 2)
		}
		out.Volumes[ticker][variant] = v
		out.Volumes[ticker][allVariants] = out.Volumes[ticker][allVariants].add(v)

		swaps += v.Swaps
		out.TradeVolumeUSD = out.TradeVolumeUSD.Add(v.TradeVolumeUSD)
	}
	// every swap was counted once per side
	out.TotalSwaps = swaps / 2

	return out, nil
}

// PairTradeVolumes groups successful swaps by canonical variant with direction applied:
// buy gives base=maker, sell gives base=taker
func (e *Engine) PairTradeVolumes(ctx context.Context, w Window) (PairVolumes, error) {
	rows, from, to, err := e.successful(ctx, w)
	if err != nil {
		return PairVolumes{}, err
	}
	prices := e.ref.Prices(ctx)

	out := PairVolumes{
		Range:   w.Name,
		Start:   from,
		End:     to,
		Volumes: make(map[string]map[string]PairVolume, 64),
	}

	for i := range rows {
		o := orient(&rows[i], prices)

		if out.Volumes[o.std] == nil {
			out.Volumes[o.std] = make(map[string]PairVolume, 2)
		}
		v := out.Volumes[o.std][o.variant]
		v.Swaps++
		v.BaseVolume = v.BaseVolume.Add(o.base)
		v.QuoteVolume = v.QuoteVolume.Add(o.quote)
		out.Volumes[o.std][o.variant] = v
	}

	for std, variants := range out.Volumes {
		base, quote, _ := domain.BaseQuote(std)
		baseUSD, quoteUSD := prices.USD(base), prices.USD(quote)

		var all PairVolume
		for variant, v := range variants {
			v.BaseVolumeUSD = v.BaseVolume.Mul(baseUSD)
			v.QuoteVolumeUSD = v.QuoteVolume.Mul(quoteUSD)
			v.TradeVolumeUSD = v.BaseVolumeUSD.Add(v.QuoteVolumeUSD)
			dex := domain.Div(v.BaseVolume, v.QuoteVolume)
			v.DexPrice = &dex
			variants[variant] = v

			all.Swaps += v.Swaps
			all.BaseVolume = all.BaseVolume.Add(v.BaseVolume)
			all.QuoteVolume = all.QuoteVolume.Add(v.QuoteVolume)
			all.BaseVolumeUSD = all.BaseVolumeUSD.Add(v.BaseVolumeUSD)
			all.QuoteVolumeUSD = all.QuoteVolumeUSD.Add(v.QuoteVolumeUSD)
			all.TradeVolumeUSD = all.TradeVolumeUSD.Add(v.TradeVolumeUSD)
		}
		variants[allVariants] = all

		out.TotalSwaps += all.Swaps
		out.TradeVolumeUSD = out.TradeVolumeUSD.Add(all.TradeVolumeUSD)
	}

	return out, nil
}
