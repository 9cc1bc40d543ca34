package refdata

import (
	"context"
	"errors"
	"fmt"

	"swapstats/internal/domain"
	"swapstats/internal/feeds"
	"swapstats/internal/pubsub"

	"github.com/shopspring/decimal"
	"gitlab.com/nevasik7/alerting/logger"
)

var ErrNoCoinConfig = errors.New("coin config not loaded")

type CoinConfigFetcher interface {
	Fetch(ctx context.Context) (domain.CoinConfigs, error)
}

type PriceFetcher interface {
	Fetch(ctx context.Context, ids []string) (map[string]domain.Price, error)
}

type FiatFetcher interface {
	Fetch(ctx context.Context) (map[string]decimal.Decimal, error)
}

type Fetchers struct {
	Coins  CoinConfigFetcher
	Prices PriceFetcher
	Fiat   FiatFetcher // optional
}

// Refresher publishes complete feed snapshots; a failed fetch leaves the last good value in place
type Refresher struct {
	log      logger.Logger
	store    *Store
	f        Fetchers
	notifier pubsub.Broadcaster
}

func NewRefresher(log logger.Logger, store *Store, f Fetchers, notifier pubsub.Broadcaster) (*Refresher, error) {
	if store == nil {
		return nil, errors.New("refdata store is required")
	}
	if f.Coins == nil || f.Prices == nil {
		return nil, errors.New("coin config and price fetchers are required")
	}
	return &Refresher{log: log, store: store, f: f, notifier: notifier}, nil
}

func (r *Refresher) RefreshCoinConfig(ctx context.Context) error {
	configs, err := r.f.Coins.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed fetch coin config, error=%w", err)
	}
	if err = r.store.putCoinConfigs(ctx, configs); err != nil {
		r.log.Warnf("Failed cache coin config, error=%v", err)
	}

	r.log.Infof("Refreshed coin config, coins=%d", len(configs))
	r.notify(ctx, "coin_config", len(configs))
	return nil
}

func (r *Refresher) RefreshPrices(ctx context.Context) error {
	configs := r.store.CoinConfigs(ctx)
	if len(configs) == 0 {
		return ErrNoCoinConfig
	}

	byID, err := r.f.Prices.Fetch(ctx, feeds.CoingeckoIDs(configs))
	if err != nil {
		return fmt.Errorf("failed fetch prices, error=%w", err)
	}

	table := feeds.PriceTableFromIDs(configs, byID)
	if err = r.store.putPrices(ctx, table); err != nil {
		r.log.Warnf("Failed cache prices, error=%v", err)
	}

	r.log.Infof("Refreshed prices, tickers=%d", len(table))
	r.notify(ctx, "prices", len(table))
	return nil
}

func (r *Refresher) RefreshFiat(ctx context.Context) error {
	if r.f.Fiat == nil {
		return nil
	}

	rates, err := r.f.Fiat.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed fetch fiat rates, error=%w", err)
	}
	if err = r.store.putFiat(ctx, rates); err != nil {
		r.log.Warnf("Failed cache fiat rates, error=%v", err)
	}

	r.log.Infof("Refreshed fiat rates, currencies=%d", len(rates))
	r.notify(ctx, "fiat_rates", len(rates))
	return nil
}

func (r *Refresher) notify(ctx context.Context, kind string, n int) {
	if r.notifier == nil {
		return
	}
	evt := map[string]any{"kind": kind, "entries": n}
	if err := r.notifier.Publish(ctx, pubsub.SubjectRefData, evt); err != nil {
		r.log.Debugf("Failed publish refdata event, error=%v", err)
	}
}
