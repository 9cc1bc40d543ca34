package stats

import (
	"context"
)

// PairsLastTraded returns pair_std -> first/last successful swap across all its variants.
// Prices are quoted in the current canonical orientation of the pair.
func (e *Engine) PairsLastTraded(ctx context.Context) (map[string]LastTraded, error) {
	rows, _, _, err := e.successful(ctx, AllTime)
	if err != nil {
		return nil, err
	}
	prices := e.ref.Prices(ctx)

	out := make(map[string]LastTraded, 64)
	for i := range rows {
		o := orient(&rows[i], prices)

		lt := observe(out[o.std], o)
		if lt.Variants == nil {
			lt.Variants = make(map[string]LastTraded, 2)
		}
		lt.Variants[o.variant] = observe(lt.Variants[o.variant], o)
		out[o.std] = lt
	}

	for std, lt := range out {
		lt.Priced = prices.PairPriced(std)
		for variant, v := range lt.Variants {
			v.Priced = lt.Priced
			lt.Variants[variant] = v
		}
		out[std] = lt
	}
	return out, nil
}

func observe(lt LastTraded, o oriented) LastTraded {
	s := o.swap
	if lt.LastSwapUUID == "" || s.FinishedAt > lt.LastSwapTime ||
		(s.FinishedAt == lt.LastSwapTime && s.UUID > lt.LastSwapUUID) {
		lt.LastSwapTime, lt.LastSwapPrice, lt.LastSwapUUID = s.FinishedAt, o.price, s.UUID
	}
	if lt.FirstSwapUUID == "" || s.FinishedAt < lt.FirstSwapTime ||
		(s.FinishedAt == lt.FirstSwapTime && s.UUID < lt.FirstSwapUUID) {
		lt.FirstSwapTime, lt.FirstSwapPrice, lt.FirstSwapUUID = s.FinishedAt, o.price, s.UUID
	}
	return lt
}
