package cache

import "fmt"

const (
	KeyCoinConfig        = "coin_config"
	KeyPrices            = "prices"
	KeyFiatRates         = "fiat_rates"
	KeyPairsLastTraded   = "pairs_last_traded"
	KeyTickers           = "tickers"
	KeyOrderbookExtended = "orderbook_extended"

	lockPrefix = "lock_"
	testSuffix = "-testing"
)

// Windows carried by the volume artifacts
const (
	Window24h     = "24h"
	Window14d     = "14d"
	WindowAllTime = "alltime"
)

func PairVolumesKey(window string) string {
	return "pair_volumes_" + window
}

func CoinVolumesKey(window string) string {
	return "coin_volumes_" + window
}

// OrderbookKey is keyed by the canonical orientation of the pair
func OrderbookKey(base, quote string) string {
	return fmt.Sprintf("orderbook_%s_%s", base, quote)
}

func TaskLockKey(task string) string {
	return "task_" + task
}
