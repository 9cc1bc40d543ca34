package feeds

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"swapstats/internal/domain"

	"gitlab.com/nevasik7/alerting/logger"
	"golang.org/x/time/rate"
)

const (
	feedPrices   = "prices"
	maxChunkSize = 200
)

type PriceClient struct {
	f         fetcher
	log       logger.Logger
	baseURL   string
	chunkSize int
	limiter   *rate.Limiter
}

// NewPriceClient: chunkDelay is the minimum gap between two chunk requests
func NewPriceClient(log logger.Logger, baseURL string, chunkSize int, chunkDelay time.Duration, opts Options) (*PriceClient, error) {
	if baseURL == "" {
		return nil, errors.New("prices url is required")
	}

	// sane defaults
	if chunkSize <= 0 || chunkSize > maxChunkSize {
		chunkSize = maxChunkSize
	}
	limit := rate.Inf
	if chunkDelay > 0 {
		limit = rate.Every(chunkDelay)
	}

	return &PriceClient{
		f:         opts.fetcher(log),
		log:       log,
		baseURL:   baseURL,
		chunkSize: chunkSize,
		limiter:   rate.NewLimiter(limit, 1),
	}, nil
}

// Fetch returns id -> price; one failed chunk fails the snapshot
func (c *PriceClient) Fetch(ctx context.Context, ids []string) (map[string]domain.Price, error) {
	out := make(map[string]domain.Price, len(ids))

	for start := 0; start < len(ids); start += c.chunkSize {
		end := min(start+c.chunkSize, len(ids))

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Feed: feedPrices, Kind: KindTransient, Err: err}
		}

		var chunk map[string]domain.Price
		if err := c.f.getJSON(ctx, feedPrices, c.chunkURL(ids[start:end]), &chunk); err != nil {
			return nil, fmt.Errorf("failed price chunk [%d:%d], error=%w", start, end, err)
		}
		for id, p := range chunk {
			out[id] = p
		}
		c.log.Debugf("Fetched price chunk [%d:%d], got=%d", start, end, len(chunk))
	}

	return out, nil
}

func (c *PriceClient) chunkURL(ids []string) string {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_market_cap", "true")

	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + q.Encode()
}

// CoingeckoIDs of the configured coins, unique and sorted
func CoingeckoIDs(configs domain.CoinConfigs) []string {
	seen := make(map[string]struct{}, len(configs))
	for _, cfg := range configs {
		if cfg.CoingeckoID == "" || cfg.CoingeckoID == "test-coin" {
			continue
		}
		seen[cfg.CoingeckoID] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// PriceTableFromIDs maps id prices onto tickers; a priced variant wins over an unpriced one
func PriceTableFromIDs(configs domain.CoinConfigs, byID map[string]domain.Price) domain.PriceTable {
	out := make(domain.PriceTable, len(byID))

	coins := make([]string, 0, len(configs))
	for coin := range configs {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	for _, coin := range coins {
		p, ok := byID[configs[coin].CoingeckoID]
		if !ok {
			continue
		}
		ticker := domain.StripPlatform(coin)
		if cur, exists := out[ticker]; exists && cur.USD.IsPositive() {
			continue
		}
		out[ticker] = p
	}
	return out
}
